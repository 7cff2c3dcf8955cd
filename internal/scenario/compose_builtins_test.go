// SPDX-License-Identifier: GPL-3.0-or-later

package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func thunk(ex *Executor, body Node) Lambda {
	return Lambda{Body: &body, Env: ex}
}

func TestParallelWaitsForAllAndPropagatesError(t *testing.T) {
	b := &builtins{}
	ex := NewExecutor(echoRegistry())
	ctx := context.Background()

	ok := Node{Kind: KindIdent, Ident: "x"}
	bad := Node{Kind: KindIdent, Ident: "nope"}
	ex.vars["x"] = int64(1)

	_, err := b.parallel(ctx, ex, []Value{thunk(ex, ok), thunk(ex, bad)}, nil)
	assert.Error(t, err)

	_, err = b.parallel(ctx, ex, []Value{thunk(ex, ok), thunk(ex, ok)}, nil)
	assert.NoError(t, err)
}

func TestSequentialStopsAtFirstError(t *testing.T) {
	b := &builtins{}
	ex := NewExecutor(echoRegistry())
	ctx := context.Background()

	var ranSecond bool
	reg := Registry{
		"fail": func(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
			return nil, assert.AnError
		},
		"mark": func(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
			ranSecond = true
			return nil, nil
		},
	}
	ex2 := NewExecutor(reg)

	failNode := Node{Kind: KindCall, Call: "fail"}
	markNode := Node{Kind: KindCall, Call: "mark"}

	_, err := b.sequential(ctx, ex2, []Value{thunk(ex2, failNode), thunk(ex2, markNode)}, nil)
	require.Error(t, err)
	assert.False(t, ranSecond, "sequential must not run steps after a failure")
}

func TestRaceReturnsFirstCompletion(t *testing.T) {
	b := &builtins{}
	reg := Registry{
		"fast": func(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
			return nil, nil
		},
		"slow": func(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
			select {
			case <-time.After(time.Second):
				return nil, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	ex := NewExecutor(reg)
	fastNode := Node{Kind: KindCall, Call: "fast"}
	slowNode := Node{Kind: KindCall, Call: "slow"}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := b.race(ctx, ex, []Value{thunk(ex, slowNode), thunk(ex, fastNode)}, nil)
	assert.NoError(t, err)
}

func TestAsThunkRejectsNonLambda(t *testing.T) {
	_, err := asThunk(int64(5), "parallel")
	assert.Error(t, err)
}
