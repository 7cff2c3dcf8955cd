// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: github.com/bassosimone/nop connect_test.go (fake-dialer
// test style).

package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"websocat/internal/netcfg"
)

type fakeDialer struct {
	conn net.Conn
	err  error
}

func (f *fakeDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f.conn, f.err
}

func TestConnectFuncSuccess(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	cfg := netcfg.NewConfig()
	cfg.Dialer = &fakeDialer{conn: client}
	cfg.TimeNow = func() time.Time { return time.Unix(0, 0) }

	op := NewConnectFunc(cfg, "tcp")
	conn, err := op.Call(context.Background(), "example.com:80")
	require.NoError(t, err)
	assert.Equal(t, client, conn)
}

func TestConnectFuncFailure(t *testing.T) {
	wantErr := errors.New("boom")
	cfg := netcfg.NewConfig()
	cfg.Dialer = &fakeDialer{err: wantErr}

	op := NewConnectFunc(cfg, "tcp")
	_, err := op.Call(context.Background(), "example.com:80")
	assert.ErrorIs(t, err, wantErr)
}
