// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/scenario_executor/wsframer.rs
// (WsDecoder streaming decode: consume prefix then reader, emit one
// PacketReadResult per frame-payload chunk). Backs ws_wrap/WsFramer's
// decode half, spec.md §4.5.2.

package wsframe

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"websocat/internal/core"
)

// Decoder implements [core.PacketRead] over a byte-stream reader, consuming
// RFC 6455 WebSocket frames. inner.Prefix (post-upgrade read-ahead bytes,
// spec.md §4.6.1) is drained before inner.Reader, since [core.StreamRead]
// already implements that draining in its own Read method.
type Decoder struct {
	Source *core.StreamRead

	RequireMasked   bool
	RequireUnmasked bool

	// in-progress frame, carried across ReadPacket calls when the
	// caller's buffer is smaller than one frame's payload.
	haveFrame  bool
	op         opcode
	remaining  int64
	fin        bool
	masked     bool
	mask       [4]byte
	maskOffset int
}

var _ core.PacketRead = (*Decoder)(nil)

// ReadPacket implements [core.PacketRead].
func (d *Decoder) ReadPacket(ctx context.Context, buf []byte) (core.PacketReadResult, error) {
	if !d.haveFrame {
		if err := d.readHeader(); err != nil {
			if errors.Is(err, io.EOF) {
				return core.PacketReadResult{Flags: core.BufferFlags(0).With(core.FlagEof)}, nil
			}
			return core.PacketReadResult{}, err
		}
	}
	return d.readBody(buf)
}

func (d *Decoder) readHeader() error {
	var head [2]byte
	if _, err := io.ReadFull(d.Source, head[:]); err != nil {
		return err
	}
	fin := head[0]&0x80 != 0
	rsv := head[0] & 0x70
	op := parseOpcode(head[0])
	if rsv != 0 {
		return fmt.Errorf("wsframe: reserved bits set: %w", errInvalidData)
	}
	switch op {
	case opContinuation, opText, opBinary, opClose, opPing, opPong:
	default:
		return fmt.Errorf("wsframe: invalid opcode %#x: %w", byte(op), errInvalidData)
	}
	if op.isControl() && !fin {
		return fmt.Errorf("wsframe: fragmented control frame: %w", errInvalidData)
	}

	masked := head[1]&0x80 != 0
	if d.RequireMasked && !masked {
		return fmt.Errorf("wsframe: unmasked frame rejected: %w", errInvalidData)
	}
	if d.RequireUnmasked && masked {
		return fmt.Errorf("wsframe: masked frame rejected: %w", errInvalidData)
	}

	length := int64(head[1] & 0x7f)
	switch length {
	case 126:
		var ext [2]byte
		if _, err := io.ReadFull(d.Source, ext[:]); err != nil {
			return err
		}
		length = int64(binary.BigEndian.Uint16(ext[:]))
	case 127:
		var ext [8]byte
		if _, err := io.ReadFull(d.Source, ext[:]); err != nil {
			return err
		}
		length = int64(binary.BigEndian.Uint64(ext[:]))
		if length < 0 {
			return fmt.Errorf("wsframe: oversized payload length: %w", errInvalidData)
		}
	}

	var mask [4]byte
	if masked {
		if _, err := io.ReadFull(d.Source, mask[:]); err != nil {
			return err
		}
	}

	d.haveFrame = true
	d.op = op
	d.remaining = length
	d.fin = fin
	d.masked = masked
	d.mask = mask
	d.maskOffset = 0
	return nil
}

func (d *Decoder) readBody(buf []byte) (core.PacketReadResult, error) {
	n := int64(len(buf))
	if n > d.remaining {
		n = d.remaining
	}
	if n > 0 {
		if _, err := io.ReadFull(d.Source, buf[:n]); err != nil {
			return core.PacketReadResult{}, err
		}
		if d.masked {
			for i := int64(0); i < n; i++ {
				buf[i] ^= d.mask[(d.maskOffset+i)%4]
			}
			d.maskOffset += int(n)
		}
	}
	d.remaining -= n

	flags := flagsForOpcode(d.op)
	if d.remaining > 0 || !d.fin {
		flags = flags.With(core.FlagNonFinalChunk)
	}
	if d.remaining == 0 {
		d.haveFrame = false
	}
	return core.PacketReadResult{Flags: flags, Start: 0, Length: int(n)}, nil
}

func flagsForOpcode(op opcode) core.BufferFlags {
	var f core.BufferFlags
	switch op {
	case opText:
		f = f.With(core.FlagText)
	case opPing:
		f = f.With(core.FlagPing)
	case opPong:
		f = f.With(core.FlagPong)
	case opClose:
		f = f.With(core.FlagEof)
	}
	return f
}

var errInvalidData = errors.New("wsframe: invalid frame")

// ErrInvalidData is returned (wrapped) for any RFC 6455 framing violation:
// invalid opcode, reserved bits set, a fragmented control frame, or an
// oversized payload length declaration.
var ErrInvalidData = errInvalidData
