// SPDX-License-Identifier: GPL-3.0-or-later

package trivial

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"websocat/internal/core"
)

func TestReadWriteStreamChunks(t *testing.T) {
	var wire bytes.Buffer
	sink := WriteStreamChunks(&core.StreamWrite{Writer: &wire})
	require.NoError(t, sink.WritePacket(context.Background(), []byte("abc"), 0))
	assert.Equal(t, "abc", wire.String())

	src := ReadStreamChunks(&core.StreamRead{Reader: bytes.NewReader([]byte("xyz"))})
	buf := make([]byte, 16)
	res, err := src.ReadPacket(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(res.Bytes(buf)))
}

func TestLineChunksRoundTrip(t *testing.T) {
	var wire bytes.Buffer
	w := WriteLineChunks(&core.StreamWrite{Writer: &wire}, LineChunksConfig{})
	require.NoError(t, w.WritePacket(context.Background(), []byte("hello"), 0))
	require.NoError(t, w.WritePacket(context.Background(), []byte("world"), 0))
	assert.Equal(t, "hello\nworld\n", wire.String())

	r := ReadLineChunks(&core.StreamRead{Reader: bytes.NewReader(wire.Bytes())}, LineChunksConfig{})
	buf := make([]byte, 16)
	res, err := r.ReadPacket(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(res.Bytes(buf)))
	res, err = r.ReadPacket(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, "world", string(res.Bytes(buf)))
}

func TestLineChunksSubstitutesSeparator(t *testing.T) {
	var wire bytes.Buffer
	w := WriteLineChunks(&core.StreamWrite{Writer: &wire}, LineChunksConfig{SubstituteSpace: true})
	require.NoError(t, w.WritePacket(context.Background(), []byte("a\nb"), 0))
	assert.Equal(t, "a b\n", wire.String())
}

func TestWriteBufferCoalescesUntilSize(t *testing.T) {
	var wire bytes.Buffer
	wb := &WriteBuffer{Inner: &core.StreamWrite{Writer: &wire}, Size: 4}

	_, err := wb.Write([]byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, 0, wire.Len(), "must not flush before reaching Size")

	_, err = wb.Write([]byte("cd"))
	require.NoError(t, err)
	assert.Equal(t, "abcd", wire.String())
}

func TestWriteBufferFlushPushesRemainder(t *testing.T) {
	var wire bytes.Buffer
	wb := &WriteBuffer{Inner: &core.StreamWrite{Writer: &wire}, Size: 16}
	_, _ = wb.Write([]byte("ab"))
	require.NoError(t, wb.Flush())
	assert.Equal(t, "ab", wire.String())
}

func TestDefragmentWritesEmitsOneCall(t *testing.T) {
	var calls int
	var got []byte
	sink := core.PacketWriteFunc(func(ctx context.Context, buf []byte, flags core.BufferFlags) error {
		calls++
		got = append([]byte(nil), buf...)
		return nil
	})
	w := DefragmentWrites(sink)
	require.NoError(t, w.WritePacket(context.Background(), []byte("ab"), core.BufferFlags(0).With(core.FlagNonFinalChunk)))
	require.NoError(t, w.WritePacket(context.Background(), []byte("c"), 0))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "abc", string(got))
}

func TestTeeAbortsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	var secondCalled bool
	sinks := []core.PacketWrite{
		core.PacketWriteFunc(func(ctx context.Context, buf []byte, flags core.BufferFlags) error { return boom }),
		core.PacketWriteFunc(func(ctx context.Context, buf []byte, flags core.BufferFlags) error { secondCalled = true; return nil }),
	}
	err := Tee(sinks, TeeAbortOnFirstError).WritePacket(context.Background(), []byte("x"), 0)
	assert.ErrorIs(t, err, boom)
	assert.False(t, secondCalled)
}

func TestTeeIgnoresErrors(t *testing.T) {
	boom := errors.New("boom")
	var secondCalled bool
	sinks := []core.PacketWrite{
		core.PacketWriteFunc(func(ctx context.Context, buf []byte, flags core.BufferFlags) error { return boom }),
		core.PacketWriteFunc(func(ctx context.Context, buf []byte, flags core.BufferFlags) error { secondCalled = true; return nil }),
	}
	err := Tee(sinks, TeeIgnoreErrors).WritePacket(context.Background(), []byte("x"), 0)
	assert.NoError(t, err)
	assert.True(t, secondCalled)
}
