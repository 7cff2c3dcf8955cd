// SPDX-License-Identifier: GPL-3.0-or-later
//
// New: readfile:/writefile:/appendfile: endpoints (spec.md §6), thin per
// spec.md §1's Non-goal list ("filesystem read/write"). File I/O can block
// on network filesystems, so these also go through the gateway rather than
// being read directly from a task goroutine.

package transport

import (
	"os"

	"websocat/internal/core"
	"websocat/internal/gateway"
)

// OpenReadFile opens path read-only and returns a read-only [core.StreamSocket].
func OpenReadFile(path string) (*core.StreamSocket, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &core.StreamSocket{Read: &core.StreamRead{Reader: gateway.WrapReader(f)}, FD: int(f.Fd())}, nil
}

// OpenWriteFile creates/truncates path and returns a write-only
// [core.StreamSocket]. append selects O_APPEND (the appendfile: form) over
// O_TRUNC (the writefile: form).
func OpenWriteFile(path string, append bool) (*core.StreamSocket, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	return &core.StreamSocket{Write: &core.StreamWrite{Writer: gateway.WrapWriter(f)}, FD: int(f.Fd())}, nil
}
