// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: github.com/bassosimone/nop connect.go (Start/Done span
// logging convention). The copy loop itself follows spec.md §4.4.1: drain
// StreamRead.Prefix first, then loop read-into-scratch/write-to-sink until
// EOF or error.

package copyengine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"websocat/internal/core"
	"websocat/internal/errclass"
	"websocat/internal/logging"
)

const scratchSize = 64 * 1024

// Bytes builds a [core.Task] copying from a [core.StreamRead] to a
// [core.StreamWrite]. Either half may be nil, in which case the task is a
// no-op. logger may be nil, in which case a discard logger is used.
func Bytes(from *core.StreamRead, to *core.StreamWrite, logger interestedLogger) core.Task {
	if logger == nil {
		logger = noopLogger{}
	}
	return func(ctx context.Context) error {
		if from == nil || to == nil {
			return nil
		}
		span := logging.NewSpanID()
		t0 := time.Now()
		logCopyBytesStart(logger, span, t0)
		n, err := copyBytesLoop(ctx, from, to)
		logCopyBytesDone(logger, span, t0, n, err)
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
}

func copyBytesLoop(ctx context.Context, from *core.StreamRead, to *core.StreamWrite) (int64, error) {
	var total int64
	buf := make([]byte, scratchSize)
	for {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		n, rerr := from.Read(buf)
		if n > 0 {
			if _, werr := to.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if rerr != nil {
			if rerr == io.EOF {
				_ = to.Shutdown()
			}
			return total, rerr
		}
	}
}

type interestedLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}

func logCopyBytesStart(logger interestedLogger, span string, t0 time.Time) {
	logger.Debug("copyBytesStart", slog.String("span", span), slog.Time("t", t0))
}

func logCopyBytesDone(logger interestedLogger, span string, t0 time.Time, n int64, err error) {
	logger.Debug(
		"copyBytesDone",
		slog.Any("err", err),
		slog.String("errClass", errclass.New(err)),
		slog.Int64("n", n),
		slog.String("span", span),
		slog.Time("t0", t0),
		slog.Time("t", time.Now()),
	)
}
