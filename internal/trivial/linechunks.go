// SPDX-License-Identifier: GPL-3.0-or-later
//
// line_chunks, spec.md §4.11: newline- (or other separator-) delimited
// records, with optional substitution of an in-payload separator byte so
// framing is never corrupted by message content.

package trivial

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"websocat/internal/core"
)

// LineChunksConfig configures [ReadLineChunks] and [WriteLineChunks].
type LineChunksConfig struct {
	Separator byte // defaults to '\n' if zero
	// SubstituteSpace, when true, replaces any Separator byte found inside
	// an outgoing payload with a space rather than let it corrupt framing.
	SubstituteSpace bool
}

func (c LineChunksConfig) separator() byte {
	if c.Separator == 0 {
		return '\n'
	}
	return c.Separator
}

// ReadLineChunks adapts sr into a [core.PacketRead] yielding one datagram
// per Separator-delimited record (the separator itself is stripped).
func ReadLineChunks(sr *core.StreamRead, cfg LineChunksConfig) core.PacketRead {
	br := bufio.NewReader(sr)
	sep := cfg.separator()
	return core.PacketReadFunc(func(ctx context.Context, buf []byte) (core.PacketReadResult, error) {
		line, err := br.ReadBytes(sep)
		if len(line) > 0 && line[len(line)-1] == sep {
			line = line[:len(line)-1]
		}
		if len(line) == 0 && err != nil {
			return core.PacketReadResult{Flags: core.BufferFlags(0).With(core.FlagEof)}, nil
		}
		n := copy(buf, line)
		flags := core.BufferFlags(0)
		if err != nil && err != io.EOF {
			return core.PacketReadResult{Length: n}, err
		}
		return core.PacketReadResult{Flags: flags, Length: n}, nil
	})
}

// WriteLineChunks adapts sw into a [core.PacketWrite] appending Separator
// after each complete (non-fragmented) message, defragmenting NonFinalChunk
// fragments first.
func WriteLineChunks(sw *core.StreamWrite, cfg LineChunksConfig) core.PacketWrite {
	sep := cfg.separator()
	var pending []byte
	return core.PacketWriteFunc(func(ctx context.Context, buf []byte, flags core.BufferFlags) error {
		pending = append(pending, buf...)
		if flags.Has(core.FlagNonFinalChunk) {
			return nil
		}
		payload := pending
		pending = nil
		if cfg.SubstituteSpace {
			payload = bytes.ReplaceAll(payload, []byte{sep}, []byte{' '})
		}
		payload = append(payload, sep)
		if _, err := sw.Write(payload); err != nil {
			return err
		}
		if flags.Has(core.FlagEof) {
			return sw.Shutdown()
		}
		return nil
	})
}
