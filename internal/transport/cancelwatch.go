// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: github.com/bassosimone/nop cancelwatch.go
//
// Backs spec.md §5's cancellation model ("task termination propagates by
// dropping handles... a peer's close is observed via Hangup") for any
// session whose lifetime should track a context, e.g. --global-timeout-ms.

package transport

import (
	"context"
	"net"
)

// NewCancelWatchFunc returns a new [*CancelWatchFunc].
func NewCancelWatchFunc() *CancelWatchFunc {
	return &CancelWatchFunc{}
}

// CancelWatchFunc closes a connection when its context is done, using
// [context.AfterFunc] rather than a goroutine blocked on ctx.Done() so the
// watcher itself never leaks: closing the returned conn unregisters it.
type CancelWatchFunc struct{}

// Call wraps conn so it closes when ctx is canceled or its deadline passes.
func (op *CancelWatchFunc) Call(ctx context.Context, conn net.Conn) (net.Conn, error) {
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	return &cancelWatchedConn{Conn: conn, stop: stop}, nil
}

type cancelWatchedConn struct {
	net.Conn
	stop func() bool
}

func (c *cancelWatchedConn) Close() error {
	c.stop()
	return c.Conn.Close()
}
