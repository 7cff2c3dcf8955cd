// SPDX-License-Identifier: GPL-3.0-or-later

package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"websocat/internal/scenario"
)

func stubLeafCompiler(argv []string) (scenario.Node, error) {
	return scenario.Node{Kind: scenario.KindString, Str: strings.Join(argv, " ")}, nil
}

func TestCompileLeafDelegatesToLeafCompiler(t *testing.T) {
	arg, err := Parse([]string{"tcp:127.0.0.1:1234", "-"})
	require.NoError(t, err)

	n, err := Compile(arg, stubLeafCompiler)
	require.NoError(t, err)
	assert.Equal(t, scenario.KindString, n.Kind)
	assert.Equal(t, "tcp:127.0.0.1:1234 -", n.Str)
}

func TestCompileGroupProducesCallWithLambdaArgs(t *testing.T) {
	arg, err := Parse([]string{"a", "&", "b"})
	require.NoError(t, err)

	n, err := Compile(arg, stubLeafCompiler)
	require.NoError(t, err)
	require.Equal(t, scenario.KindCall, n.Kind)
	assert.Equal(t, "parallel", n.Call)
	require.Len(t, n.Args, 2)
	for i, want := range []string{"a", "b"} {
		child := n.Args[i]
		require.Equal(t, scenario.KindLambda, child.Kind)
		assert.Empty(t, child.LambdaParams)
		require.NotNil(t, child.LambdaBody)
		assert.Equal(t, want, child.LambdaBody.Str)
	}
}

func TestCompileNestedGroupsPreserveOperators(t *testing.T) {
	arg, err := Parse([]string{"(", "a", "&", "b", ")", ";", "c"})
	require.NoError(t, err)

	n, err := Compile(arg, stubLeafCompiler)
	require.NoError(t, err)
	assert.Equal(t, "sequential", n.Call)
	require.Len(t, n.Args, 2)

	inner := n.Args[0].LambdaBody
	require.Equal(t, scenario.KindCall, inner.Kind)
	assert.Equal(t, "parallel", inner.Call)
}

func TestCompilePropagatesLeafCompilerError(t *testing.T) {
	arg, err := Parse([]string{"a"})
	require.NoError(t, err)

	_, err = Compile(arg, func(argv []string) (scenario.Node, error) {
		return scenario.Node{}, assert.AnError
	})
	assert.Error(t, err)
}
