// SPDX-License-Identifier: GPL-3.0-or-later

package gateway

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapReader(t *testing.T) {
	r := WrapReader(strings.NewReader("hello world"))
	buf := make([]byte, 5)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf[:n]))

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, " world", string(rest))
}

func TestWriteGateway(t *testing.T) {
	var buf bytes.Buffer
	g := WrapWriter(&buf)

	n, err := g.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "abc", buf.String())

	require.NoError(t, g.Shutdown())

	_, err = g.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrShutdown)
}
