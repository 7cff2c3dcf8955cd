// SPDX-License-Identifier: GPL-3.0-or-later
//
// parallel/sequential/race builtins: the scenario-level counterpart to
// internal/compose's --compose tree (spec.md §4.12). Each argument is a
// zero-parameter lambda wrapping one composed invocation's own scenario;
// compiling a ComposedArgument group node produces a call to one of these
// three names with one such lambda per child.

package scenario

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

func asThunk(v Value, what string) (Lambda, error) {
	l, ok := v.(Lambda)
	if !ok {
		return Lambda{}, fmt.Errorf("scenario: %s: expected a lambda argument, got %T", what, v)
	}
	if len(l.Params) != 0 {
		return Lambda{}, fmt.Errorf("scenario: %s: expected a zero-parameter lambda, got %d params", what, len(l.Params))
	}
	return l, nil
}

// parallel runs every child scenario concurrently and waits for all of
// them, same all-or-first-error contract as [golang.org/x/sync/errgroup].
func (b *builtins) parallel(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	grp, gctx := errgroup.WithContext(ctx)
	for i, v := range args {
		thunk, err := asThunk(v, "parallel")
		if err != nil {
			return nil, err
		}
		grp.Go(func() error {
			_, err := ex.CallLambda(gctx, thunk, nil)
			if err != nil {
				return fmt.Errorf("parallel[%d]: %w", i, err)
			}
			return nil
		})
	}
	return nil, grp.Wait()
}

// sequential runs each child scenario in order, stopping at the first
// error.
func (b *builtins) sequential(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	for i, v := range args {
		thunk, err := asThunk(v, "sequential")
		if err != nil {
			return nil, err
		}
		if _, err := ex.CallLambda(ctx, thunk, nil); err != nil {
			return nil, fmt.Errorf("sequential[%d]: %w", i, err)
		}
	}
	return nil, nil
}

// race runs every child scenario concurrently and returns as soon as the
// first one completes, successfully or not; the context passed to the
// still-running children is cancelled so they unwind.
func (b *builtins) race(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	rctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		idx int
		err error
	}
	results := make(chan outcome, len(args))
	for i, v := range args {
		thunk, err := asThunk(v, "race")
		if err != nil {
			return nil, err
		}
		go func(i int, thunk Lambda) {
			_, err := ex.CallLambda(rctx, thunk, nil)
			results <- outcome{idx: i, err: err}
		}(i, thunk)
	}

	select {
	case res := <-results:
		if res.err != nil {
			return nil, fmt.Errorf("race[%d]: %w", res.idx, res.err)
		}
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
