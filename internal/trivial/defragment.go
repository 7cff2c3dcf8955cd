// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/scenario_executor/trivials3.rs
// (DefragmentWrites: accumulate NonFinalChunk fragments, emit one final
// write). Backs defragment_writes, spec.md §4.11.

package trivial

import (
	"context"

	"websocat/internal/core"
)

// DefragmentWrites wraps sink so that NonFinalChunk fragments are
// accumulated and forwarded as a single write on the final fragment.
func DefragmentWrites(sink core.PacketWrite) core.PacketWrite {
	var pending []byte
	var sawText bool
	return core.PacketWriteFunc(func(ctx context.Context, buf []byte, flags core.BufferFlags) error {
		if flags.IsControl() {
			return sink.WritePacket(ctx, buf, flags)
		}
		pending = append(pending, buf...)
		if flags.Has(core.FlagText) {
			sawText = true
		}
		if flags.Has(core.FlagNonFinalChunk) {
			return nil
		}
		payload := pending
		isText := sawText
		pending, sawText = nil, false

		out := core.BufferFlags(0)
		if isText {
			out = out.With(core.FlagText)
		}
		return sink.WritePacket(ctx, payload, out)
	})
}
