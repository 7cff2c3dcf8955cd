// SPDX-License-Identifier: GPL-3.0-or-later
//
// The "copy" builtin: bidirectionally bridges the two materialised socket
// stacks, spec.md §4.4 ("the core data-moving operation"). Grounded on
// internal/copyengine (spec.md §4.4.1/§4.4.2); golang.org/x/sync/errgroup
// (already pulled in for internal/reuser's semaphore) runs both directions
// concurrently and cancels the other as soon as either returns an error; a
// direction that finishes cleanly leaves the other running.

package scenario

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"websocat/internal/copyengine"
	"websocat/internal/core"
)

func builtinCopy(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("scenario: copy requires exactly 2 arguments")
	}
	left, right := args[0], args[1]
	unidirectional := optBoolVal(opts, "unidirectional", false)

	task := core.Task(func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		if ls, ok := left.(*core.StreamSocket); ok {
			if rs, ok := right.(*core.StreamSocket); ok {
				g.Go(runTask(copyengine.Bytes(ls.Read, rs.Write, noopCopyLogger{}), gctx))
				if !unidirectional {
					g.Go(runTask(copyengine.Bytes(rs.Read, ls.Write, noopCopyLogger{}), gctx))
				}
				return g.Wait()
			}
		}
		if ld, ok := left.(*core.DatagramSocket); ok {
			if rd, ok := right.(*core.DatagramSocket); ok {
				g.Go(runTask(copyengine.Packets(ld.Read, rd.Write, noopCopyLogger{}), gctx))
				if !unidirectional {
					g.Go(runTask(copyengine.Packets(rd.Read, ld.Write, noopCopyLogger{}), gctx))
				}
				return g.Wait()
			}
		}
		return fmt.Errorf("scenario: copy: mismatched or unsupported socket types (%T, %T)", left, right)
	})
	return task, nil
}

func runTask(t core.Task, ctx context.Context) func() error {
	return func() error {
		if t == nil {
			return nil
		}
		return t(ctx)
	}
}

type noopCopyLogger struct{}

func (noopCopyLogger) Debug(string, ...any) {}
func (noopCopyLogger) Info(string, ...any)  {}
