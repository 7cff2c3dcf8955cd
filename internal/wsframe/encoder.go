// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/scenario_executor/wsframer.rs
// (WsEncoder state machine: Idle -> WritingHeader -> WritingData ->
// [Flushing] -> [Terminating] -> PacketCompleted, with the
// WritingDataFromAltBuffer path folded into the controlBuf accumulator
// below). Backs the ws_wrap/WsFramer{client_mode} overlay, spec.md §4.5.1.

package wsframe

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"websocat/internal/core"
)

// Encoder implements [core.PacketWrite] over a byte-stream writer,
// producing RFC 6455 WebSocket frames. Control frames (Ping/Pong/Close)
// are buffered internally until a final fragment arrives — per spec.md
// §4.5.1 they must never be fragmented on the wire.
type Encoder struct {
	Writer     *core.StreamWrite
	ClientMode bool

	inProgressData bool
	controlBuf     []byte
	controlOp      opcode
	closed         bool
}

var _ core.PacketWrite = (*Encoder)(nil)

// WritePacket implements [core.PacketWrite].
func (e *Encoder) WritePacket(ctx context.Context, buf []byte, flags core.BufferFlags) error {
	if e.closed {
		return fmt.Errorf("wsframe: encoder closed")
	}

	op := e.chooseOpcode(flags)

	if op.isControl() {
		e.controlBuf = append(e.controlBuf, buf...)
		e.controlOp = op
		if flags.Has(core.FlagNonFinalChunk) {
			return nil
		}
		payload := e.controlBuf
		e.controlBuf = nil
		if err := e.writeFrame(op, true, payload); err != nil {
			return err
		}
		if op == opClose {
			e.closed = true
			return e.Writer.Shutdown()
		}
		return e.Writer.Flush()
	}

	fin := !flags.Has(core.FlagNonFinalChunk)
	if err := e.writeFrame(op, fin, buf); err != nil {
		return err
	}
	e.inProgressData = !fin
	if fin {
		return e.Writer.Flush()
	}
	return nil
}

func (e *Encoder) chooseOpcode(flags core.BufferFlags) opcode {
	switch {
	case flags.Has(core.FlagPing):
		return opPing
	case flags.Has(core.FlagPong):
		return opPong
	case flags.Has(core.FlagEof):
		return opClose
	case e.inProgressData:
		return opContinuation
	case flags.Has(core.FlagText):
		return opText
	default:
		return opBinary
	}
}

func (e *Encoder) writeFrame(op opcode, fin bool, payload []byte) error {
	header := make([]byte, 2, 14)
	if fin {
		header[0] = 0x80
	}
	header[0] |= byte(op)

	n := len(payload)
	switch {
	case n < 126:
		header[1] = byte(n)
	case n <= 0xFFFF:
		header[1] = 126
		header = binary.BigEndian.AppendUint16(header, uint16(n))
	default:
		header[1] = 127
		header = binary.BigEndian.AppendUint64(header, uint64(n))
	}

	var mask [4]byte
	out := payload
	if e.ClientMode {
		header[1] |= 0x80
		if _, err := rand.Read(mask[:]); err != nil {
			return fmt.Errorf("wsframe: mask key: %w", err)
		}
		header = append(header, mask[:]...)
		out = make([]byte, n)
		for i, b := range payload {
			out[i] = b ^ mask[i%4]
		}
	}

	if _, err := e.Writer.Write(header); err != nil {
		return err
	}
	if n > 0 {
		if _, err := e.Writer.Write(out); err != nil {
			return err
		}
	}
	return nil
}
