// SPDX-License-Identifier: GPL-3.0-or-later
//
// New: the datagram_mode=true half of the Log overlay (spec.md §4.2 patch
// 6). The byte-stream half is [ObserveConnFunc]; this file reuses the same
// Start/Done field convention for [core.PacketRead]/[core.PacketWrite], and
// adds the --log-traffic content field (hex-encoded when --log-hex is set,
// omitted entirely when --log-omit-content is set).

package transport

import (
	"context"
	"encoding/hex"
	"log/slog"

	"websocat/internal/core"
	"websocat/internal/logging"
	"websocat/internal/netcfg"
)

// LogOptions controls the content-bearing fields the Log overlay attaches.
type LogOptions struct {
	Traffic     bool // --log-traffic: attach the payload as a field
	Hex         bool // --log-hex: hex-encode instead of printing raw bytes
	OmitContent bool // --log-omit-content: never attach payload, only sizes/flags
}

// LogPacketRead wraps a [core.PacketRead] to log packetReadStart/packetReadDone at
// Debug for each datagram.
func LogPacketRead(cfg *netcfg.Config, opts LogOptions, src core.PacketRead) core.PacketRead {
	return core.PacketReadFunc(func(ctx context.Context, buf []byte) (core.PacketReadResult, error) {
		span := logging.NewSpanID()
		t0 := cfg.TimeNow()
		cfg.Logger.Debug("packetReadStart", slog.String("span", span), slog.Time("t", t0))
		res, err := src.ReadPacket(ctx, buf)
		fields := []any{
			slog.Any("err", err),
			slog.String("errClass", cfg.ErrClassifier.Classify(err)),
			slog.String("flags", res.Flags.String()),
			slog.Int("length", res.Length),
			slog.String("span", span),
			slog.Time("t0", t0),
			slog.Time("t", cfg.TimeNow()),
		}
		if err == nil {
			if attr, ok := contentField(opts, res.Bytes(buf)); ok {
				fields = append(fields, attr)
			}
		}
		cfg.Logger.Debug("packetReadDone", fields...)
		return res, err
	})
}

// LogPacketWrite wraps a [core.PacketWrite] to log packetWriteStart/packetWriteDone at
// Debug for each datagram.
func LogPacketWrite(cfg *netcfg.Config, opts LogOptions, snk core.PacketWrite) core.PacketWrite {
	return core.PacketWriteFunc(func(ctx context.Context, buf []byte, flags core.BufferFlags) error {
		span := logging.NewSpanID()
		t0 := cfg.TimeNow()
		startFields := []any{slog.String("flags", flags.String()), slog.Int("length", len(buf)), slog.String("span", span), slog.Time("t", t0)}
		if attr, ok := contentField(opts, buf); ok {
			startFields = append(startFields, attr)
		}
		cfg.Logger.Debug("packetWriteStart", startFields...)
		err := snk.WritePacket(ctx, buf, flags)
		cfg.Logger.Debug(
			"packetWriteDone",
			slog.Any("err", err),
			slog.String("errClass", cfg.ErrClassifier.Classify(err)),
			slog.String("span", span),
			slog.Time("t0", t0),
			slog.Time("t", cfg.TimeNow()),
		)
		return err
	})
}

func contentField(opts LogOptions, payload []byte) (slog.Attr, bool) {
	if opts.OmitContent || !opts.Traffic {
		return slog.Attr{}, false
	}
	if opts.Hex {
		return slog.String("content", hex.EncodeToString(payload)), true
	}
	return slog.String("content", string(payload)), true
}
