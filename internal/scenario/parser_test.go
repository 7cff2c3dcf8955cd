// SPDX-License-Identifier: GPL-3.0-or-later

package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiterals(t *testing.T) {
	n, err := Parse(`"hello"`)
	require.NoError(t, err)
	assert.Equal(t, KindString, n.Kind)
	assert.Equal(t, "hello", n.Str)

	n, err = Parse("42")
	require.NoError(t, err)
	assert.Equal(t, KindInt, n.Kind)
	assert.Equal(t, int64(42), n.Int)

	n, err = Parse("-7")
	require.NoError(t, err)
	assert.Equal(t, int64(-7), n.Int)

	n, err = Parse("true")
	require.NoError(t, err)
	assert.Equal(t, KindBool, n.Kind)
	assert.True(t, n.Bool)

	n, err = Parse("some_ident")
	require.NoError(t, err)
	assert.Equal(t, KindIdent, n.Kind)
	assert.Equal(t, "some_ident", n.Ident)
}

func TestParseCallWithOptsAndArgs(t *testing.T) {
	n, err := Parse(`connect_tcp{port:"1234"}("example.com")`)
	require.NoError(t, err)
	require.Equal(t, KindCall, n.Kind)
	assert.Equal(t, "connect_tcp", n.Call)
	require.Len(t, n.Args, 1)
	assert.Equal(t, "example.com", n.Args[0].Str)
	require.Contains(t, n.Opts, "port")
	assert.Equal(t, "1234", n.Opts["port"].Str)
}

func TestParseNestedLet(t *testing.T) {
	src := `let(x, connect_tcp{port:"80"}("example.com"), copy(x, stdio()))`
	n, err := Parse(src)
	require.NoError(t, err)
	require.Equal(t, "let", n.Call)
	require.Len(t, n.Args, 3)
	assert.Equal(t, KindIdent, n.Args[0].Kind)
	assert.Equal(t, "connect_tcp", n.Args[1].Call)
	assert.Equal(t, "copy", n.Args[2].Call)
}

func TestParseLambdaArrowAndBare(t *testing.T) {
	n, err := Parse(`|a, b| => a`)
	require.NoError(t, err)
	require.Equal(t, KindLambda, n.Kind)
	assert.Equal(t, []string{"a", "b"}, n.LambdaParams)
	require.NotNil(t, n.LambdaBody)
	assert.Equal(t, "a", n.LambdaBody.Ident)

	n, err = Parse(`|| stdio()`)
	require.NoError(t, err)
	assert.Empty(t, n.LambdaParams)
	assert.Equal(t, "stdio", n.LambdaBody.Call)
}

func TestParseTrailingInputIsError(t *testing.T) {
	_, err := Parse(`stdio() extra`)
	assert.Error(t, err)
}

func TestParseEscapesAndComments(t *testing.T) {
	n, err := Parse("# a comment\n\"line\\nbreak\"")
	require.NoError(t, err)
	assert.Equal(t, "line\nbreak", n.Str)
}

func TestPrintRoundTrip(t *testing.T) {
	src := `let(x, connect_tcp{port:"80"}("example.com"), copy(x, stdio()))`
	n, err := Parse(src)
	require.NoError(t, err)

	printed := Print(n)
	n2, err := Parse(printed)
	require.NoError(t, err)
	assert.Equal(t, Print(n2), printed)
}

func TestPrintSortsOptsDeterministically(t *testing.T) {
	n := Node{Kind: KindCall, Call: "f", Opts: map[string]Node{
		"z": strNode("1"),
		"a": strNode("2"),
	}}
	out := Print(n)
	assert.Less(t, indexOf(out, "a:"), indexOf(out, "z:"))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
