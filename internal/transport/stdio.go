// SPDX-License-Identifier: GPL-3.0-or-later
//
// New: the `-` (stdio) endpoint (spec.md §6). os.Stdin/os.Stdout are
// synchronous; per spec.md §4.10 this leaf must be driven through
// [websocat/internal/gateway], never read/written directly from a task
// goroutine.

package transport

import (
	"os"

	"websocat/internal/core"
	"websocat/internal/gateway"
)

// Stdio returns a [core.StreamSocket] wrapping process stdin/stdout
// through the sync-to-async gateway.
func Stdio() *core.StreamSocket {
	r := gateway.WrapReader(os.Stdin)
	w := gateway.WrapWriter(os.Stdout)
	return &core.StreamSocket{
		Read:  &core.StreamRead{Reader: r},
		Write: &core.StreamWrite{Writer: w},
		FD:    fd(os.Stdin),
	}
}

func fd(f *os.File) int {
	if f == nil {
		return -1
	}
	return int(f.Fd())
}
