// SPDX-License-Identifier: GPL-3.0-or-later

package httpupgrade

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"websocat/internal/core"
)

func socketPair() (*core.StreamSocket, *core.StreamSocket) {
	a, b := net.Pipe()
	sa := &core.StreamSocket{Read: &core.StreamRead{Reader: a}, Write: &core.StreamWrite{Writer: a}, FD: -1}
	sb := &core.StreamSocket{Read: &core.StreamRead{Reader: b}, Write: &core.StreamWrite{Writer: b}, FD: -1}
	return sa, sb
}

func TestClientServerUpgradeRoundTrip(t *testing.T) {
	clientSock, serverSock := socketPair()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- Http1Serve(context.Background(), ServerOptions{}, serverSock,
			func(ctx context.Context, rq *IncomingRequest) (*OutgoingResponse, error) {
				return WsAccept(ServerOptions{}, rq)
			},
			func(ctx context.Context, socket *core.StreamSocket) error {
				buf := make([]byte, 5)
				_, err := socket.Read.Read(buf)
				if err != nil {
					return err
				}
				assert.Equal(t, "hello", string(buf))
				return nil
			},
		)
	}()

	clientDone := make(chan error, 1)
	go func() {
		clientDone <- WsUpgrade(context.Background(), ClientOptions{Host: "example.test", Path: "/ws"}, clientSock, nil,
			func(ctx context.Context, socket *core.StreamSocket) error {
				_, err := socket.Write.Write([]byte("hello"))
				return err
			},
		)
	}()

	select {
	case err := <-serverDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not finish")
	}
	select {
	case err := <-clientDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not finish")
	}
}

func TestWsAcceptRejectsNonGetUnlessLax(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "http://x/ws", nil)
	rq := &IncomingRequest{Request: req}
	_, err := WsAccept(ServerOptions{}, rq)
	assert.Error(t, err)

	_, err = WsAccept(ServerOptions{Lax: true}, rq)
	assert.NoError(t, err)
}

func TestHasUpgradeTriad(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://x/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	assert.True(t, hasUpgradeTriad(req))
}
