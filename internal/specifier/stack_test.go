// SPDX-License-Identifier: GPL-3.0-or-later

package specifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderPreservingOverlays(t *testing.T) {
	s, err := Parse("tls:ws-c:log:tcp:example.com:443")
	require.NoError(t, err)
	require.Len(t, s.Overlays, 3)
	assert.Equal(t, "tls", s.Overlays[0].Name)
	assert.Equal(t, "ws-c", s.Overlays[1].Name)
	assert.Equal(t, "log", s.Overlays[2].Name)
	assert.Equal(t, "tcp", s.Endpoint.Kind)
	assert.Equal(t, "example.com:443", s.Endpoint.Arg)
}

func TestParseWsURL(t *testing.T) {
	s, err := Parse("ws://example.com/ws")
	require.NoError(t, err)
	assert.Empty(t, s.Overlays)
	assert.Equal(t, "ws", s.Endpoint.Kind)
	assert.Equal(t, "example.com/ws", s.Endpoint.Arg)
}

func TestParseStdio(t *testing.T) {
	s, err := Parse("-")
	require.NoError(t, err)
	assert.Equal(t, "stdio", s.Endpoint.Kind)
}

func TestParseUnknownEndpointIsError(t *testing.T) {
	_, err := Parse("bogus:thing")
	assert.Error(t, err)
}

func TestStringRoundTrips(t *testing.T) {
	for _, raw := range []string{
		"tls:tcp:example.com:443",
		"ws://example.com/ws",
		"wss://example.com/ws",
		"-",
		"lines:-",
	} {
		s, err := Parse(raw)
		require.NoError(t, err, raw)
		s2, err := Parse(s.String())
		require.NoError(t, err, raw)
		assert.Equal(t, s, s2, raw)
	}
}
