// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapts a [core.StreamSocket] to [net.Conn] for overlays that need one
// (tls_client, log): the teacher's collaborators (TLSHandshakeFunc,
// ObserveConnFunc) are net.Conn-shaped, but a StreamSocket's halves may
// come from anywhere (a gateway-wrapped pipe, a WebSocket upgrade's
// leftover-prefix reader) rather than an actual socket.

package scenario

import (
	"net"
	"time"

	"websocat/internal/core"
)

type streamConn struct {
	ss *core.StreamSocket
}

func asNetConn(ss *core.StreamSocket) net.Conn { return &streamConn{ss: ss} }

func (c *streamConn) Read(p []byte) (int, error) {
	if c.ss.Read == nil {
		return 0, net.ErrClosed
	}
	return c.ss.Read.Read(p)
}

func (c *streamConn) Write(p []byte) (int, error) {
	if c.ss.Write == nil {
		return 0, net.ErrClosed
	}
	return c.ss.Write.Write(p)
}

func (c *streamConn) Close() error {
	if c.ss.Write != nil {
		return c.ss.Write.Shutdown()
	}
	return nil
}

func (c *streamConn) LocalAddr() net.Addr                { return streamAddr{} }
func (c *streamConn) RemoteAddr() net.Addr               { return streamAddr{} }
func (c *streamConn) SetDeadline(time.Time) error        { return nil }
func (c *streamConn) SetReadDeadline(time.Time) error    { return nil }
func (c *streamConn) SetWriteDeadline(time.Time) error   { return nil }

type streamAddr struct{}

func (streamAddr) Network() string { return "stream" }
func (streamAddr) String() string  { return "stream" }
