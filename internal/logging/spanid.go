// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: github.com/bassosimone/nop spanid.go

package logging

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 identifying one span: a sequence of operations
// that can fail in a single, specific way, e.g. one `tcp_connect`, one TLS
// handshake, one WebSocket upgrade, or one builtin's run from start to
// Hangup. Every Start/Done log pair this module emits shares a span ID.
//
// Panics if the system random number generator fails, which should only
// happen under extraordinary circumstances.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
