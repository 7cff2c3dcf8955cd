// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/scenario_executor/reuser.rs
// (SimpleReuser: write/read turn-taking semaphores, the
// disconnect_on_torn_datagram corrective-write policy). Backs the
// SimpleReuser overlay, spec.md §4.8.
//
// Simplification vs. the original: a client reader holds the read
// semaphore for the full duration of one message (acquire once, release on
// the fragment with !NonFinalChunk) rather than releasing and
// re-acquiring per chunk with a "discard stale chunks" fallback. Since
// semaphore capacity is 1, no other reader can interleave while one is
// held, so the "whole message reaches exactly one reader" invariant
// (spec.md §8 property 6) holds without needing the original's
// post-hoc-interleave discard path, which exists there to support
// cooperative mid-read cancellation that this port does not need.

package reuser

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"

	"websocat/internal/core"
)

// ErrClosed is returned to a client that writes after the shared session
// has been closed by a torn-message disconnect.
var ErrClosed = errors.New("reuser: shared session closed")

type pendingFragment struct {
	buf   []byte
	flags core.BufferFlags
}

// SimpleReuser multiplexes N client [core.DatagramSocket] onto one shared
// inner [core.DatagramSocket].
type SimpleReuser struct {
	Inner                  *core.DatagramSocket
	DisconnectOnTornWrite  bool
	writeSem               *semaphore.Weighted
	readSem                *semaphore.Weighted
	mu                     sync.Mutex
	pendingTorn            *pendingFragment
	closed                 bool
}

// New builds a [*SimpleReuser] around inner.
func New(inner *core.DatagramSocket, disconnectOnTornWrite bool) *SimpleReuser {
	return &SimpleReuser{
		Inner:                 inner,
		DisconnectOnTornWrite: disconnectOnTornWrite,
		writeSem:              semaphore.NewWeighted(1),
		readSem:               semaphore.NewWeighted(1),
	}
}

// ClientSocket is one client's view onto the shared session. Close must be
// called if the client disconnects mid-message so the reuser can apply its
// configured torn-message policy to the next writer.
type ClientSocket struct {
	*core.DatagramSocket
	close func() error
}

// Close releases any write permit this client still holds, applying the
// torn-message policy if a fragment was left incomplete.
func (c *ClientSocket) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// NewClient returns a fresh [*ClientSocket] sharing r's inner session.
func (r *SimpleReuser) NewClient() *ClientSocket {
	heldWrite := false
	heldRead := false
	write := core.PacketWriteFunc(func(ctx context.Context, buf []byte, flags core.BufferFlags) error {
		if !heldWrite {
			if err := r.writeSem.Acquire(ctx, 1); err != nil {
				return err
			}
			heldWrite = true
			if err := r.applyTornPolicy(ctx); err != nil {
				r.writeSem.Release(1)
				heldWrite = false
				return err
			}
		}
		r.mu.Lock()
		closed := r.closed
		r.mu.Unlock()
		if closed {
			r.writeSem.Release(1)
			heldWrite = false
			return ErrClosed
		}

		nonFinal := flags.Has(core.FlagNonFinalChunk)
		var err error
		if flags.Has(core.FlagEof) {
			// a client disconnecting does not end the shared session
			err = nil
		} else {
			err = r.Inner.Write.Snk.WritePacket(ctx, buf, flags)
		}

		if nonFinal {
			r.mu.Lock()
			r.pendingTorn = &pendingFragment{buf: append([]byte(nil), buf...), flags: flags}
			r.mu.Unlock()
		} else {
			r.mu.Lock()
			r.pendingTorn = nil
			r.mu.Unlock()
			r.writeSem.Release(1)
			heldWrite = false
		}
		return err
	})

	read := core.PacketReadFunc(func(ctx context.Context, buf []byte) (core.PacketReadResult, error) {
		if !heldRead {
			if err := r.readSem.Acquire(ctx, 1); err != nil {
				return core.PacketReadResult{}, err
			}
			heldRead = true
		}
		res, err := r.Inner.Read.Src.ReadPacket(ctx, buf)
		if err != nil {
			r.readSem.Release(1)
			heldRead = false
			return res, err
		}
		if !res.Flags.Has(core.FlagNonFinalChunk) {
			r.readSem.Release(1)
			heldRead = false
		}
		return res, nil
	})

	closeFn := func() error {
		if heldRead {
			r.readSem.Release(1)
			heldRead = false
		}
		if !heldWrite {
			return nil
		}
		ctx := context.Background()
		err := r.applyTornPolicy(ctx)
		r.writeSem.Release(1)
		heldWrite = false
		return err
	}

	return &ClientSocket{
		DatagramSocket: &core.DatagramSocket{
			Read:  &core.DatagramRead{Src: read},
			Write: &core.DatagramWrite{Snk: write},
			FD:    -1,
		},
		close: closeFn,
	}
}

// applyTornPolicy must be called with the write semaphore held and reflects
// a prior holder's unfinished message, if any.
func (r *SimpleReuser) applyTornPolicy(ctx context.Context) error {
	r.mu.Lock()
	pending := r.pendingTorn
	r.pendingTorn = nil
	r.mu.Unlock()
	if pending == nil {
		return nil
	}
	if r.DisconnectOnTornWrite {
		_ = r.Inner.Write.Snk.WritePacket(ctx, nil, core.BufferFlags(0).With(core.FlagEof))
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		return nil
	}
	// commit the torn message with an empty final fragment carrying the
	// pending flags minus NonFinalChunk; its earlier fragments already went out
	committed := pending.flags.Without(core.FlagNonFinalChunk)
	return r.Inner.Write.Snk.WritePacket(ctx, nil, committed)
}
