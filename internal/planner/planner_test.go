// SPDX-License-Identifier: GPL-3.0-or-later

package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"websocat/internal/specifier"
)

func lowerRaw(t *testing.T, raw string) *Stack {
	t.Helper()
	s, err := specifier.Parse(raw)
	require.NoError(t, err)
	ls, err := Lower(s)
	require.NoError(t, err)
	return ls
}

func TestPatch1URLSplitClient(t *testing.T) {
	left := lowerRaw(t, "wss://example.com/ws")
	right := lowerRaw(t, "-")

	plan, err := Build(left, right, Options{})
	require.NoError(t, err)

	ep, ok := plan.Left.Endpoint.(TCPConnectByEarlyHostname)
	require.True(t, ok, "expected hostname pre-resolved by patch 4")
	assert.Equal(t, "443", ep.Port)

	var sawUpgrade, sawFramer, sawTLS bool
	for _, o := range plan.Left.Overlays {
		switch o.(type) {
		case WsUpgrade:
			sawUpgrade = true
		case WsFramer:
			sawFramer = true
		case TlsClient:
			sawTLS = true
		}
	}
	assert.True(t, sawUpgrade)
	assert.True(t, sawFramer)
	assert.True(t, sawTLS)
}

func TestPatch4LateResolveSkipsPreresolution(t *testing.T) {
	left := lowerRaw(t, "tcp:example.com:1234")
	right := lowerRaw(t, "-")

	plan, err := Build(left, right, Options{LateResolve: true})
	require.NoError(t, err)

	_, ok := plan.Left.Endpoint.(TCPConnectByLateHostname)
	assert.True(t, ok)
	assert.Empty(t, plan.Prelude)
}

func TestPatch7ChunkerInsertionOnMismatch(t *testing.T) {
	left := lowerRaw(t, "ws://example.com/ws")
	right := lowerRaw(t, "-")

	plan, err := Build(left, right, Options{})
	require.NoError(t, err)

	found := false
	for _, o := range plan.Right.Overlays {
		if _, ok := o.(StreamChunksOverlay); ok {
			found = true
		}
	}
	assert.True(t, found, "stdio stack must gain a chunker since left is datagram (ws)")
}

func TestPatch9ReuserMaterialisation(t *testing.T) {
	left := lowerRaw(t, "udp-server:127.0.0.1:9000")
	right := lowerRaw(t, "-")

	plan, err := Build(left, right, Options{})
	require.NoError(t, err)

	_, ok := plan.Right.Endpoint.(*SimpleReuserEndpoint)
	require.True(t, ok)

	var sawPrep bool
	for _, pa := range plan.Prelude {
		if _, ok := pa.(CreateSimpleReuserListener); ok {
			sawPrep = true
		}
	}
	assert.True(t, sawPrep)
}

func TestLowerSocks5ConnectParsesProxyTargetAndCreds(t *testing.T) {
	left := lowerRaw(t, "socks5:alice:hunter2@127.0.0.1:1080,example.com:443")

	ep, ok := left.Endpoint.(Socks5Connect)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:1080", ep.ProxyAddr)
	assert.Equal(t, "alice", ep.Username)
	assert.Equal(t, "hunter2", ep.Password)
	assert.Equal(t, "example.com:443", ep.Target)
}

func TestLowerSocks5ConnectWithoutCreds(t *testing.T) {
	left := lowerRaw(t, "socks5:127.0.0.1:1080,example.com:443")

	ep, ok := left.Endpoint.(Socks5Connect)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:1080", ep.ProxyAddr)
	assert.Empty(t, ep.Username)
	assert.Equal(t, "example.com:443", ep.Target)
}

func TestLowerSocks5ConnectRejectsMissingComma(t *testing.T) {
	_, err := specifier.Parse("socks5:127.0.0.1:1080")
	require.NoError(t, err)

	s, _ := specifier.Parse("socks5:127.0.0.1:1080")
	_, err = Lower(s)
	assert.Error(t, err)
}
