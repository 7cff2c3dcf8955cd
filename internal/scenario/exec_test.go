// SPDX-License-Identifier: GPL-3.0-or-later

package scenario

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoRegistry() Registry {
	return Registry{
		"ident": func(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
			return args[0], nil
		},
		"add": func(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
			return args[0].(int64) + args[1].(int64), nil
		},
	}
}

func TestEvalLiterals(t *testing.T) {
	ex := NewExecutor(echoRegistry())
	v, err := ex.Eval(context.Background(), Node{Kind: KindString, Str: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", v)
}

func TestEvalLetBindsAndScopes(t *testing.T) {
	n, err := Parse(`let(x, 10, add(x, 5))`)
	require.NoError(t, err)
	ex := NewExecutor(echoRegistry())
	v, err := ex.Eval(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, int64(15), v)
}

func TestEvalUndefinedVariableErrors(t *testing.T) {
	ex := NewExecutor(echoRegistry())
	_, err := ex.Eval(context.Background(), Node{Kind: KindIdent, Ident: "nope"})
	assert.Error(t, err)
}

func TestEvalUnknownBuiltinErrors(t *testing.T) {
	n, err := Parse(`nonexistent_builtin()`)
	require.NoError(t, err)
	ex := NewExecutor(echoRegistry())
	_, err = ex.Eval(context.Background(), n)
	assert.Error(t, err)
}

func TestLambdaClosesOverDefiningEnvNotCallerEnv(t *testing.T) {
	ex := NewExecutor(echoRegistry())
	ctx := context.Background()

	defining := ex.child()
	defining.vars["x"] = int64(1)
	lambdaNode, err := Parse(`add(x, y)`)
	require.NoError(t, err)
	lambda := Lambda{Params: []string{"y"}, Body: &lambdaNode, Env: defining}

	caller := ex.child()
	caller.vars["x"] = int64(100)

	v, err := caller.CallLambda(ctx, lambda, []Value{int64(9)})
	require.NoError(t, err)
	// The lambda's body resolves x through its own closure (defining, x=1),
	// not through the caller's environment (caller, x=100).
	assert.Equal(t, int64(10), v)
}

func TestCallLambdaDirectly(t *testing.T) {
	ex := NewExecutor(echoRegistry())
	body := Node{Kind: KindIdent, Ident: "y"}
	lambda := Lambda{Params: []string{"y"}, Body: &body, Env: ex}
	v, err := ex.CallLambda(context.Background(), lambda, []Value{int64(7)})
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}
