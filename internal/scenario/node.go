// SPDX-License-Identifier: GPL-3.0-or-later
//
// The scenario text's AST, spec.md §4.3. Grounded on the embedded-language
// model original_source/src/scenario_executor describes throughout (a
// small Lisp-like call tree over a `Dynamic` value type, with `FnPtr`
// closures as continuations) — no teacher/pack equivalent, this is the
// tool-specific scripting layer.

package scenario

// Node is one parsed scenario-text expression: a literal, a variable
// reference, a call, or a lambda.
type Node struct {
	// Kind discriminates the node; exactly one of the fields below it is
	// meaningful for a given Kind.
	Kind NodeKind

	Str   string
	Int   int64
	Bool  bool
	Ident string

	Call string
	Args []Node
	Opts map[string]Node

	LambdaParams []string
	LambdaBody   *Node
}

// NodeKind is the discriminant of [Node].
type NodeKind int

const (
	KindString NodeKind = iota
	KindInt
	KindBool
	KindIdent
	KindCall
	KindLambda
)
