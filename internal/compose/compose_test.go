// SPDX-License-Identifier: GPL-3.0-or-later

package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleLeaf(t *testing.T) {
	arg, err := Parse([]string{"-bu", "tcp:127.0.0.1:1234", "-"})
	require.NoError(t, err)
	require.True(t, arg.IsLeaf())
	assert.Equal(t, []string{"-bu", "tcp:127.0.0.1:1234", "-"}, arg.Argv)
}

func TestParseParallelPair(t *testing.T) {
	// Mirrors spec.md §8's compose seeded scenario.
	tokens := []string{
		"-bu", "mss:R ABC", "registry-stream-connect:q",
		"&",
		"-bu", "--oneshot", "registry-stream-listen:q", "mss:W ABC",
	}
	arg, err := Parse(tokens)
	require.NoError(t, err)
	require.False(t, arg.IsLeaf())
	assert.Equal(t, OpParallel, arg.Op)
	require.Len(t, arg.Children, 2)
	assert.Equal(t, []string{"-bu", "mss:R ABC", "registry-stream-connect:q"}, arg.Children[0].Argv)
	assert.Equal(t, []string{"-bu", "--oneshot", "registry-stream-listen:q", "mss:W ABC"}, arg.Children[1].Argv)
}

func TestParseSequentialChain(t *testing.T) {
	arg, err := Parse([]string{"a", ";", "b", ";", "c"})
	require.NoError(t, err)
	require.Equal(t, OpSequential, arg.Op)
	require.Len(t, arg.Children, 3)
}

func TestParseRace(t *testing.T) {
	arg, err := Parse([]string{"a", "^", "b"})
	require.NoError(t, err)
	assert.Equal(t, OpRace, arg.Op)
}

func TestParseParenthesesGrouping(t *testing.T) {
	arg, err := Parse([]string{"(", "a", "&", "b", ")", ";", "c"})
	require.NoError(t, err)
	require.Equal(t, OpSequential, arg.Op)
	require.Len(t, arg.Children, 2)

	group := arg.Children[0]
	require.False(t, group.IsLeaf())
	assert.Equal(t, OpParallel, group.Op)
	require.Len(t, group.Children, 2)

	leaf := arg.Children[1]
	require.True(t, leaf.IsLeaf())
	assert.Equal(t, []string{"c"}, leaf.Argv)
}

func TestParseMixedOperatorsWithoutParensIsRejected(t *testing.T) {
	_, err := Parse([]string{"a", "&", "b", ";", "c"})
	assert.Error(t, err)
}

func TestParseUnterminatedGroupIsRejected(t *testing.T) {
	_, err := Parse([]string{"(", "a", "&", "b"})
	assert.Error(t, err)
}

func TestParseEmptyInputIsRejected(t *testing.T) {
	_, err := Parse(nil)
	assert.Error(t, err)
}

func TestParseDanglingOperatorIsRejected(t *testing.T) {
	_, err := Parse([]string{"a", "&"})
	assert.Error(t, err)
}
