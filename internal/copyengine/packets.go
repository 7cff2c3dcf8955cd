// SPDX-License-Identifier: GPL-3.0-or-later
//
// copy_packets per spec.md §4.4.2: two-phase Read/Write state machine over
// a reused 64 KiB scratch buffer, forwarding flags verbatim (no
// defragmentation), terminating on BufferFlag::Eof or any error.

package copyengine

import (
	"context"
	"log/slog"
	"time"

	"websocat/internal/core"
	"websocat/internal/errclass"
	"websocat/internal/logging"
)

// Packets builds a [core.Task] copying datagrams from a [core.DatagramRead]
// to a [core.DatagramWrite]. Either half may be nil, in which case the task
// is a no-op.
func Packets(from *core.DatagramRead, to *core.DatagramWrite, logger interestedLogger) core.Task {
	if logger == nil {
		logger = noopLogger{}
	}
	return func(ctx context.Context) error {
		if from == nil || to == nil {
			return nil
		}
		span := logging.NewSpanID()
		t0 := time.Now()
		logCopyPacketsStart(logger, span, t0)
		n, err := copyPacketsLoop(ctx, from, to)
		logCopyPacketsDone(logger, span, t0, n, err)
		return err
	}
}

func copyPacketsLoop(ctx context.Context, from *core.DatagramRead, to *core.DatagramWrite) (int64, error) {
	var total int64
	buf := make([]byte, scratchSize)
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		res, rerr := from.Src.ReadPacket(ctx, buf)
		if rerr != nil {
			return total, rerr
		}
		if err := to.Snk.WritePacket(ctx, res.Bytes(buf), res.Flags); err != nil {
			return total, err
		}
		total += int64(res.Length)
		if res.Flags.Has(core.FlagEof) {
			return total, nil
		}
	}
}

func logCopyPacketsStart(logger interestedLogger, span string, t0 time.Time) {
	logger.Debug("copyPacketsStart", slog.String("span", span), slog.Time("t", t0))
}

func logCopyPacketsDone(logger interestedLogger, span string, t0 time.Time, n int64, err error) {
	logger.Debug(
		"copyPacketsDone",
		slog.Any("err", err),
		slog.String("errClass", errclass.New(err)),
		slog.Int64("n", n),
		slog.String("span", span),
		slog.Time("t0", t0),
		slog.Time("t", time.Now()),
	)
}
