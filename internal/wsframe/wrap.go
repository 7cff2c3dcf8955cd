// SPDX-License-Identifier: GPL-3.0-or-later
//
// New: the ws_wrap ping/pong auto-reply policy, spec.md §4.5.3. No teacher
// equivalent; follows spec.md's description directly.

package wsframe

import (
	"context"
	"math"

	"websocat/internal/core"
)

// PongLimit is the largest inhibitAfter value [AutoPong] accepts
// (math.MaxInt64); a negative inhibitAfter means unlimited.
const PongLimit = math.MaxInt64

// AutoPong wraps src so that every incoming Ping datagram is answered with
// a Pong of the same payload on snk, up to inhibitAfter replies (a
// negative value means unlimited; ws_wrap passes -1). The Ping
// itself is still delivered to the caller unchanged.
func AutoPong(src core.PacketRead, snk core.PacketWrite, inhibitAfter int64) core.PacketRead {
	sent := int64(0)
	return core.PacketReadFunc(func(ctx context.Context, buf []byte) (core.PacketReadResult, error) {
		res, err := src.ReadPacket(ctx, buf)
		if err != nil {
			return res, err
		}
		if res.Flags.Has(core.FlagPing) && !res.Flags.Has(core.FlagNonFinalChunk) {
			if inhibitAfter < 0 || sent < inhibitAfter {
				sent++
				payload := append([]byte(nil), res.Bytes(buf)...)
				_ = snk.WritePacket(ctx, payload, core.BufferFlags(0).With(core.FlagPong))
			}
		}
		return res, err
	})
}
