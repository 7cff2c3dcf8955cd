// SPDX-License-Identifier: GPL-3.0-or-later

package reuser

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"websocat/internal/core"
)

type memDatagram struct {
	written []core.BufferFlags
	payload [][]byte
}

func newMemInner() (*core.DatagramSocket, *memDatagram) {
	m := &memDatagram{}
	snk := core.PacketWriteFunc(func(ctx context.Context, buf []byte, flags core.BufferFlags) error {
		m.written = append(m.written, flags)
		m.payload = append(m.payload, append([]byte(nil), buf...))
		return nil
	})
	src := core.PacketReadFunc(func(ctx context.Context, buf []byte) (core.PacketReadResult, error) {
		return core.PacketReadResult{}, context.Canceled
	})
	return &core.DatagramSocket{
		Read:  &core.DatagramRead{Src: src},
		Write: &core.DatagramWrite{Snk: snk},
		FD:    -1,
	}, m
}

// newFragmentingMemInner serves one fixed sequence of datagram fragments
// from Src, regardless of how many clients read it.
func newFragmentingMemInner(fragments []core.PacketReadResult) *core.DatagramSocket {
	var i int
	var mu sync.Mutex
	src := core.PacketReadFunc(func(ctx context.Context, buf []byte) (core.PacketReadResult, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(fragments) {
			return core.PacketReadResult{}, context.Canceled
		}
		res := fragments[i]
		i++
		return res, nil
	})
	return &core.DatagramSocket{
		Read:  &core.DatagramRead{Src: src},
		Write: &core.DatagramWrite{Snk: core.PacketWriteFunc(func(context.Context, []byte, core.BufferFlags) error { return nil })},
		FD:    -1,
	}
}

func TestSimpleReuserReadHoldsPermitAcrossFragments(t *testing.T) {
	inner := newFragmentingMemInner([]core.PacketReadResult{
		{Length: 0, Flags: core.BufferFlags(0).With(core.FlagNonFinalChunk)},
		{Length: 0, Flags: 0},
	})
	r := New(inner, false)
	client := r.NewClient()

	buf := make([]byte, 16)
	res, err := client.Read.Src.ReadPacket(context.Background(), buf)
	require.NoError(t, err)
	require.True(t, res.Flags.Has(core.FlagNonFinalChunk))

	// A second client must not be able to interleave a read between this
	// client's fragments: the permit stays held until the final fragment.
	released := r.readSem.TryAcquire(1)
	assert.False(t, released, "read permit must stay held while a message is still fragmenting")

	res, err = client.Read.Src.ReadPacket(context.Background(), buf)
	require.NoError(t, err)
	assert.False(t, res.Flags.Has(core.FlagNonFinalChunk))

	assert.True(t, r.readSem.TryAcquire(1), "read permit must be released once the final fragment is read")
}

func TestSimpleReuserWriteCompleteMessage(t *testing.T) {
	inner, mem := newMemInner()
	r := New(inner, false)
	client := r.NewClient()

	require.NoError(t, client.Write.Snk.WritePacket(context.Background(), []byte("hi"), 0))

	require.Len(t, mem.payload, 1)
	assert.Equal(t, "hi", string(mem.payload[0]))
}

func TestSimpleReuserTornWriteCommittedWhenNotDisconnecting(t *testing.T) {
	inner, mem := newMemInner()
	r := New(inner, false)
	client := r.NewClient()

	require.NoError(t, client.Write.Snk.WritePacket(
		context.Background(), []byte("partial"), core.BufferFlags(0).With(core.FlagNonFinalChunk)))
	require.NoError(t, client.Close())

	nextClient := r.NewClient()
	require.NoError(t, nextClient.Write.Snk.WritePacket(context.Background(), []byte("next"), 0))

	require.Len(t, mem.payload, 3)
	assert.Equal(t, "partial", string(mem.payload[0]))
	assert.True(t, mem.written[0].Has(core.FlagNonFinalChunk))
	assert.Empty(t, mem.payload[1])
	assert.False(t, mem.written[1].Has(core.FlagNonFinalChunk))
	assert.Equal(t, "next", string(mem.payload[2]))
}

func TestSimpleReuserTornWriteDisconnectsWhenConfigured(t *testing.T) {
	inner, mem := newMemInner()
	r := New(inner, true)
	client := r.NewClient()

	require.NoError(t, client.Write.Snk.WritePacket(
		context.Background(), []byte("partial"), core.BufferFlags(0).With(core.FlagNonFinalChunk)))
	require.NoError(t, client.Close())

	nextClient := r.NewClient()
	err := nextClient.Write.Snk.WritePacket(context.Background(), []byte("next"), 0)
	assert.ErrorIs(t, err, ErrClosed)

	require.Len(t, mem.written, 2)
	assert.True(t, mem.written[0].Has(core.FlagNonFinalChunk))
	assert.True(t, mem.written[1].Has(core.FlagEof))
}
