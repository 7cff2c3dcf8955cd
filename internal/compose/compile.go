// SPDX-License-Identifier: GPL-3.0-or-later

package compose

import "websocat/internal/scenario"

// LeafCompiler turns one leaf invocation's argv into the scenario it runs.
// cmd/websocat supplies this: parse argv's specifier pair with
// internal/specifier, lower with internal/planner, compile with
// [scenario.Compile].
type LeafCompiler func(argv []string) (scenario.Node, error)

// Compile renders a tree as parsed by [Parse] into one scenario.Node: a
// leaf becomes whatever compileLeaf returns for its argv; a group becomes
// a call to "parallel", "sequential", or "race" whose arguments are
// zero-parameter lambdas, one per child, each wrapping that child's own
// compiled scenario.
func Compile(arg *Argument, compileLeaf LeafCompiler) (scenario.Node, error) {
	if arg.IsLeaf() {
		return compileLeaf(arg.Argv)
	}

	args := make([]scenario.Node, 0, len(arg.Children))
	for _, child := range arg.Children {
		body, err := Compile(child, compileLeaf)
		if err != nil {
			return scenario.Node{}, err
		}
		args = append(args, scenario.Node{Kind: scenario.KindLambda, LambdaBody: &body})
	}

	return scenario.Node{Kind: scenario.KindCall, Call: arg.Op.String(), Args: args}, nil
}
