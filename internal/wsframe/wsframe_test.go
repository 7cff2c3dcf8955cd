// SPDX-License-Identifier: GPL-3.0-or-later

package wsframe

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"websocat/internal/core"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var wire bytes.Buffer
	enc := &Encoder{Writer: &core.StreamWrite{Writer: &wire}, ClientMode: true}

	require.NoError(t, enc.WritePacket(context.Background(), []byte("hello"), core.BufferFlags(0).With(core.FlagText)))
	require.NoError(t, enc.WritePacket(context.Background(), []byte("world"), 0))

	dec := &Decoder{Source: &core.StreamRead{Reader: &wire}}
	buf := make([]byte, 64)

	res, err := dec.ReadPacket(context.Background(), buf)
	require.NoError(t, err)
	assert.True(t, res.Flags.Has(core.FlagText))
	assert.Equal(t, "hello", string(res.Bytes(buf)))

	res, err = dec.ReadPacket(context.Background(), buf)
	require.NoError(t, err)
	assert.False(t, res.Flags.Has(core.FlagText))
	assert.Equal(t, "world", string(res.Bytes(buf)))
}

func TestClientModeSetsMaskBit(t *testing.T) {
	var wire bytes.Buffer
	enc := &Encoder{Writer: &core.StreamWrite{Writer: &wire}, ClientMode: true}
	require.NoError(t, enc.WritePacket(context.Background(), []byte("x"), 0))

	raw := wire.Bytes()
	assert.True(t, raw[1]&0x80 != 0, "mask bit must be set in client mode")
}

func TestServerModeNoMaskBit(t *testing.T) {
	var wire bytes.Buffer
	enc := &Encoder{Writer: &core.StreamWrite{Writer: &wire}, ClientMode: false}
	require.NoError(t, enc.WritePacket(context.Background(), []byte("x"), 0))

	raw := wire.Bytes()
	assert.True(t, raw[1]&0x80 == 0, "mask bit must be clear in server mode")
}

func TestControlFramesNeverFragmented(t *testing.T) {
	var wire bytes.Buffer
	enc := &Encoder{Writer: &core.StreamWrite{Writer: &wire}}
	require.NoError(t, enc.WritePacket(context.Background(), []byte("p"), core.BufferFlags(0).With(core.FlagPing)))

	raw := wire.Bytes()
	fin := raw[0]&0x80 != 0
	assert.True(t, fin, "control frames must always be written with fin=1")
}

func TestDecoderRejectsReservedBits(t *testing.T) {
	wire := bytes.NewBuffer([]byte{0xF2, 0x00})
	dec := &Decoder{Source: &core.StreamRead{Reader: wire}}
	_, err := dec.ReadPacket(context.Background(), make([]byte, 16))
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestDecoderEOFYieldsEofFlag(t *testing.T) {
	dec := &Decoder{Source: &core.StreamRead{Reader: bytes.NewReader(nil)}}
	res, err := dec.ReadPacket(context.Background(), make([]byte, 16))
	require.NoError(t, err)
	assert.True(t, res.Flags.Has(core.FlagEof))
}
