// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/scenario_executor/trivials.rs
// (ReadStreamChunks/WriteStreamChunks: one chunk per poll, no framing).
// Backs read_stream_chunks/write_stream_chunks, spec.md §4.11.

package trivial

import (
	"context"

	"websocat/internal/core"
)

// ReadStreamChunks adapts sr into a [core.PacketRead] where each call
// forwards whatever bytes a single underlying Read call returns as one
// complete (non-fragmented) datagram.
func ReadStreamChunks(sr *core.StreamRead) core.PacketRead {
	return core.PacketReadFunc(func(ctx context.Context, buf []byte) (core.PacketReadResult, error) {
		n, err := sr.Read(buf)
		if n > 0 {
			return core.PacketReadResult{Length: n}, nil
		}
		if err != nil {
			return core.PacketReadResult{Flags: core.BufferFlags(0).With(core.FlagEof)}, nil
		}
		return core.PacketReadResult{}, nil
	})
}

// WriteStreamChunks adapts sw into a [core.PacketWrite] that writes each
// datagram's bytes straight through with no added framing.
func WriteStreamChunks(sw *core.StreamWrite) core.PacketWrite {
	return core.PacketWriteFunc(func(ctx context.Context, buf []byte, flags core.BufferFlags) error {
		if len(buf) > 0 {
			if _, err := sw.Write(buf); err != nil {
				return err
			}
		}
		if flags.Has(core.FlagEof) {
			return sw.Shutdown()
		}
		return nil
	})
}
