// SPDX-License-Identifier: GPL-3.0-or-later

package udpserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"websocat/internal/core"
)

func TestServeEchoesThroughPerPeerSession(t *testing.T) {
	laddr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	require.NoError(t, err)
	conn, err := net.ListenUDP("udp", laddr)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := make(chan *core.DatagramSocket, 1)
	go Serve(ctx, conn, Config{QueueLen: 8}, func(ctx context.Context, peer *net.UDPAddr, socket *core.DatagramSocket) {
		sessions <- socket
	})

	client, err := net.DialUDP("udp", nil, conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte("ping"))
	require.NoError(t, err)

	var sess *core.DatagramSocket
	select {
	case sess = <-sessions:
	case <-time.After(2 * time.Second):
		t.Fatal("no session observed")
	}

	buf := make([]byte, 64)
	res, err := sess.Read.Src.ReadPacket(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(res.Bytes(buf)))

	require.NoError(t, sess.Write.Snk.WritePacket(ctx, []byte("pong"), 0))

	reply := make([]byte, 64)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(reply)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(reply[:n]))
}
