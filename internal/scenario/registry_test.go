// SPDX-License-Identifier: GPL-3.0-or-later

package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"websocat/internal/core"
	"websocat/internal/netcfg"
)

func TestRegistryCopiesMockStreamSocketToLiteral(t *testing.T) {
	reg := NewDefaultRegistry(netcfg.NewConfig())
	src := `copy(mock_stream_socket("send hello; close"), literal(""))`
	root, err := Parse(src)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = Run(ctx, reg, root)
	assert.NoError(t, err)
}

func TestRegistryStreamChunksRoundTrip(t *testing.T) {
	reg := NewDefaultRegistry(netcfg.NewConfig())
	// stream_chunks wraps the mock peer as a datagram socket; dummy()
	// wrapped the same way lets copy bridge two datagram sockets.
	src := `copy(stream_chunks(mock_stream_socket("send abc; close")), stream_chunks(dummy()))`
	root, err := Parse(src)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = Run(ctx, reg, root)
	assert.NoError(t, err)
}

func TestRegistryUnknownBuiltinSurfacesAsExecError(t *testing.T) {
	reg := NewDefaultRegistry(netcfg.NewConfig())
	root, err := Parse(`no_such_builtin()`)
	require.NoError(t, err)
	err = Run(context.Background(), reg, root)
	assert.Error(t, err)
}

func TestBuiltinWriteBufferCoalescesUntilSize(t *testing.T) {
	b := &builtins{cfg: netcfg.NewConfig()}
	ex := NewExecutor(NewDefaultRegistry(b.cfg))
	ctx := context.Background()

	var captured captureWriter
	inner := &core.StreamSocket{Write: &core.StreamWrite{Writer: &captured}, FD: -1}
	wrapped, err := b.writeBuffer(ctx, ex, []Value{inner}, map[string]Value{"size": int64(4)})
	require.NoError(t, err)
	ss := wrapped.(*core.StreamSocket)

	_, err = ss.Write.Write([]byte("ab"))
	require.NoError(t, err)
	assert.Empty(t, captured.chunks, "buffer should hold bytes below Size")

	_, err = ss.Write.Write([]byte("cd"))
	require.NoError(t, err)
	assert.Equal(t, []string{"abcd"}, captured.chunks, "buffer should flush once Size bytes accumulate")
}

type captureWriter struct {
	chunks []string
}

func (c *captureWriter) Write(p []byte) (int, error) {
	c.chunks = append(c.chunks, string(p))
	return len(p), nil
}
