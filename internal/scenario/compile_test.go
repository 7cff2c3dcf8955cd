// SPDX-License-Identifier: GPL-3.0-or-later

package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"websocat/internal/planner"
	"websocat/internal/specifier"
)

func buildPlan(t *testing.T, left, right string, opts planner.Options) *planner.Plan {
	t.Helper()
	ls, err := specifier.Parse(left)
	require.NoError(t, err)
	rs, err := specifier.Parse(right)
	require.NoError(t, err)
	lp, err := planner.Lower(ls)
	require.NoError(t, err)
	rp, err := planner.Lower(rs)
	require.NoError(t, err)
	plan, err := planner.Build(lp, rp, opts)
	require.NoError(t, err)
	return plan
}

func TestCompileSimpleStacksRoundTripsThroughPrinter(t *testing.T) {
	plan := buildPlan(t, "tcp:127.0.0.1:1234", "-", planner.Options{})
	root := Compile(plan)
	require.Equal(t, "copy", root.Call)

	printed := Print(root)
	reparsed, err := Parse(printed)
	require.NoError(t, err)
	assert.Equal(t, Print(reparsed), printed)
}

func TestCompileSocks5ConnectProducesCallWithProxyAndTarget(t *testing.T) {
	plan := buildPlan(t, "socks5:user:pass@127.0.0.1:1080,example.com:443", "-", planner.Options{})
	root := Compile(plan)

	printed := Print(root)
	assert.Contains(t, printed, "socks5_connect")
	assert.Contains(t, printed, "127.0.0.1:1080")
	assert.Contains(t, printed, "example.com:443")
}

func TestCompileHostnamePreresolutionWrapsCopyInLet(t *testing.T) {
	plan := buildPlan(t, "tcp:example.com:1234", "-", planner.Options{})
	root := Compile(plan)
	require.Equal(t, "let", root.Call)

	var sawCopy bool
	var walk func(n Node)
	walk = func(n Node) {
		if n.Kind == KindCall && n.Call == "copy" {
			sawCopy = true
		}
		for _, a := range n.Args {
			walk(a)
		}
	}
	walk(root)
	assert.True(t, sawCopy)
}

func TestCompileWsUpgradeCarriesHostAndPath(t *testing.T) {
	plan := buildPlan(t, "ws://example.com/chat", "-", planner.Options{})
	root := Compile(plan)

	var found *Node
	var walk func(n Node)
	walk = func(n Node) {
		if n.Kind == KindCall && n.Call == "ws_upgrade" {
			cp := n
			found = &cp
			return
		}
		for _, a := range n.Args {
			walk(a)
		}
	}
	walk(root)
	require.NotNil(t, found, "expected a ws_upgrade call somewhere in the compiled tree")
	assert.Equal(t, "example.com", found.Opts["host"].Str)
	assert.Equal(t, "/chat", found.Opts["path"].Str)
}

func TestCompileSimpleReuserListenerWrapsInnerInLambda(t *testing.T) {
	plan := buildPlan(t, "udp-server:127.0.0.1:9000", "-", planner.Options{})

	var sawLambda bool
	for _, pa := range plan.Prelude {
		if _, ok := pa.(planner.CreateSimpleReuserListener); ok {
			node := compilePrelude(pa, Node{Kind: KindIdent, Ident: "x"})
			// node is let(var, simple_reuser_listener(<lambda>), body)
			value := node.Args[1]
			require.Equal(t, "simple_reuser_listener", value.Call)
			require.Len(t, value.Args, 1)
			assert.Equal(t, KindLambda, value.Args[0].Kind)
			sawLambda = true
		}
	}
	assert.True(t, sawLambda, "expected a CreateSimpleReuserListener prelude action for a UDP listener")
}
