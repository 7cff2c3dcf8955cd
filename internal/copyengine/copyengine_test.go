// SPDX-License-Identifier: GPL-3.0-or-later

package copyengine

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"websocat/internal/core"
)

func TestBytesDrainsPrefixThenReader(t *testing.T) {
	src := &core.StreamRead{Reader: bytes.NewReader([]byte("world")), Prefix: []byte("hello ")}
	var out bytes.Buffer
	dst := &core.StreamWrite{Writer: &out}

	task := Bytes(src, dst, nil)
	require.NoError(t, task(context.Background()))

	assert.Equal(t, "hello world", out.String())
}

func TestBytesNoopOnNilHalf(t *testing.T) {
	task := Bytes(nil, &core.StreamWrite{Writer: &bytes.Buffer{}}, nil)
	require.NoError(t, task(context.Background()))
}

func TestPacketsForwardsFlagsVerbatim(t *testing.T) {
	frames := []core.PacketReadResult{
		{Flags: core.BufferFlags(0).With(core.FlagText), Length: 5},
		{Flags: core.BufferFlags(0).With(core.FlagEof), Length: 0},
	}
	payloads := [][]byte{[]byte("hello"), nil}
	i := 0
	src := &core.DatagramRead{Src: core.PacketReadFunc(func(ctx context.Context, buf []byte) (core.PacketReadResult, error) {
		n := copy(buf, payloads[i])
		res := frames[i]
		res.Length = n
		i++
		return res, nil
	})}

	var gotFlags []core.BufferFlags
	var gotPayloads [][]byte
	dst := &core.DatagramWrite{Snk: core.PacketWriteFunc(func(ctx context.Context, buf []byte, flags core.BufferFlags) error {
		gotFlags = append(gotFlags, flags)
		gotPayloads = append(gotPayloads, append([]byte(nil), buf...))
		return nil
	})}

	task := Packets(src, dst, nil)
	require.NoError(t, task(context.Background()))

	require.Len(t, gotFlags, 2)
	assert.True(t, gotFlags[0].Has(core.FlagText))
	assert.Equal(t, "hello", string(gotPayloads[0]))
	assert.True(t, gotFlags[1].Has(core.FlagEof))
}
