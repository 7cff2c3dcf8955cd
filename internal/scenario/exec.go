// SPDX-License-Identifier: GPL-3.0-or-later
//
// The scenario executor, spec.md §4.3: "evaluate expressions, producing
// handles... spawn Handle<Task> values onto a scheduler... run until the
// root task completes." Grounded on original_source/src/scenario_executor's
// Dynamic-valued, registry-dispatched call tree; no teacher equivalent
// (bassosimone/nop has no embedded scripting layer of its own).

package scenario

import (
	"context"
	"fmt"

	"websocat/internal/core"
)

// Value is whatever one scenario expression evaluates to: a Go primitive
// (string/int64/bool), a *core.StreamSocket or *core.DatagramSocket, a
// core.Task, a Lambda, or a builtin-specific handle type such as
// *reuser.Listener.
type Value = any

// Lambda is a closure: Body evaluated in an environment extending Env
// with Params bound to the arguments of a later [Executor.CallLambda].
type Lambda struct {
	Params []string
	Body   *Node
	Env    *Executor
}

// Builtin is one entry in a [Registry]: given the already-evaluated
// positional and keyword arguments of a call, it produces a Value or an
// error.
type Builtin func(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error)

// Registry maps scenario call names to their implementation.
type Registry map[string]Builtin

// Executor evaluates a [Node] tree against a [Registry], threading a
// lexical environment for "let" bindings and lambda closures.
type Executor struct {
	Registry Registry
	vars     map[string]Value
	parent   *Executor
}

// NewExecutor returns a root [*Executor] with no bindings.
func NewExecutor(reg Registry) *Executor {
	return &Executor{Registry: reg, vars: map[string]Value{}}
}

func (ex *Executor) child() *Executor {
	return &Executor{Registry: ex.Registry, vars: map[string]Value{}, parent: ex}
}

func (ex *Executor) lookup(name string) (Value, bool) {
	for e := ex; e != nil; e = e.parent {
		if v, ok := e.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Eval evaluates one expression node.
func (ex *Executor) Eval(ctx context.Context, n Node) (Value, error) {
	switch n.Kind {
	case KindString:
		return n.Str, nil
	case KindInt:
		return n.Int, nil
	case KindBool:
		return n.Bool, nil
	case KindIdent:
		v, ok := ex.lookup(n.Ident)
		if !ok {
			return nil, fmt.Errorf("scenario: undefined variable %q", n.Ident)
		}
		return v, nil
	case KindLambda:
		return Lambda{Params: n.LambdaParams, Body: n.LambdaBody, Env: ex}, nil
	case KindCall:
		return ex.evalCall(ctx, n)
	default:
		return nil, fmt.Errorf("scenario: unhandled node kind %d", n.Kind)
	}
}

func (ex *Executor) evalCall(ctx context.Context, n Node) (Value, error) {
	if n.Call == "let" {
		return ex.evalLet(ctx, n)
	}

	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := ex.Eval(ctx, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	opts := make(map[string]Value, len(n.Opts))
	for k, a := range n.Opts {
		v, err := ex.Eval(ctx, a)
		if err != nil {
			return nil, err
		}
		opts[k] = v
	}

	fn, ok := ex.Registry[n.Call]
	if !ok {
		return nil, fmt.Errorf("scenario: unknown builtin %q", n.Call)
	}
	return fn(ctx, ex, args, opts)
}

// evalLet implements `let(name, value, body)`: value is evaluated in the
// current environment, bound to name in a child environment, and body is
// evaluated in that child.
func (ex *Executor) evalLet(ctx context.Context, n Node) (Value, error) {
	if len(n.Args) != 3 || n.Args[0].Kind != KindIdent {
		return nil, fmt.Errorf("scenario: let requires (ident, value, body)")
	}
	value, err := ex.Eval(ctx, n.Args[1])
	if err != nil {
		return nil, err
	}
	child := ex.child()
	child.vars[n.Args[0].Ident] = value
	return child.Eval(ctx, n.Args[2])
}

// CallLambda invokes l with args bound to its parameters, in an environment
// extending l.Env (not the caller's environment — lexical scoping).
func (ex *Executor) CallLambda(ctx context.Context, l Lambda, args []Value) (Value, error) {
	child := l.Env.child()
	for i, p := range l.Params {
		if i < len(args) {
			child.vars[p] = args[i]
		}
	}
	if l.Body == nil {
		return nil, fmt.Errorf("scenario: lambda has no body")
	}
	return child.Eval(ctx, *l.Body)
}

// Run evaluates root and, if it produced a [core.Task], runs it to
// completion — spec.md §4.3's "run until the root task completes".
func Run(ctx context.Context, reg Registry, root Node) error {
	ex := NewExecutor(reg)
	v, err := ex.Eval(ctx, root)
	if err != nil {
		return err
	}
	task, ok := v.(core.Task)
	if !ok {
		return nil
	}
	return task(ctx)
}
