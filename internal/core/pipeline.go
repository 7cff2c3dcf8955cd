// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: github.com/bassosimone/nop func.go, compose.go, unit.go
//
// The planner's prelude (hostname pre-resolution, TLS connector construction,
// reuser-listener materialisation — spec.md §4.2 patches 4/5/9) and the
// transport leaves both benefit from the same small composition algebra the
// teacher package builds its DNS/TLS/HTTP pipelines from: a Func is an
// operation with exactly one success and one failure mode, and Funcs compose
// so failures short-circuit without extra bookkeeping at each call site.

package core

import "context"

// Unit is a type carrying no value, used for [Func] that take no input or
// return no output.
type Unit struct{}

// Func is a single operation turning an input into an output or an error.
type Func[A, B any] interface {
	Call(ctx context.Context, input A) (B, error)
}

// FuncAdapter wraps a plain function as a [Func].
type FuncAdapter[A, B any] func(ctx context.Context, input A) (B, error)

// Call implements [Func].
func (f FuncAdapter[A, B]) Call(ctx context.Context, input A) (B, error) {
	return f(ctx, input)
}

// Compose2 chains two [Func] into a pipeline: op1's output feeds op2.
func Compose2[A, B, C any](op1 Func[A, B], op2 Func[B, C]) Func[A, C] {
	return &compose2[A, B, C]{op1, op2}
}

type compose2[A, B, C any] struct {
	op1 Func[A, B]
	op2 Func[B, C]
}

func (c *compose2[A, B, C]) Call(ctx context.Context, input A) (C, error) {
	res, err := c.op1.Call(ctx, input)
	if err != nil {
		var zero C
		return zero, err
	}
	return c.op2.Call(ctx, res)
}

// Compose3 chains three [Func].
func Compose3[A, B, C, D any](op1 Func[A, B], op2 Func[B, C], op3 Func[C, D]) Func[A, D] {
	return Compose2(op1, Compose2(op2, op3))
}

// ConstFunc lifts a pure value into a [Func[Unit, B]] that ignores its input.
func ConstFunc[B any](value B) Func[Unit, B] {
	return FuncAdapter[Unit, B](func(context.Context, Unit) (B, error) {
		return value, nil
	})
}
