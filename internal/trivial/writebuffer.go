// SPDX-License-Identifier: GPL-3.0-or-later
//
// write_buffer, spec.md §4.11: coalesces small writes into the inner sink.
// Per SPEC_FULL.md §E decision 2, flushing is size-triggered only — there
// is no background timer forcing a flush of a partially-filled buffer; an
// explicit Flush or Shutdown call is required to push a short remainder.

package trivial

import (
	"websocat/internal/core"
)

// WriteBuffer coalesces Write calls into an internal buffer, forwarding to
// Inner only once the buffer reaches Size bytes (or on an explicit Flush /
// Shutdown call).
type WriteBuffer struct {
	Inner *core.StreamWrite
	Size  int

	buf []byte
}

// Write implements io.Writer.
func (b *WriteBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	for len(b.buf) >= b.Size {
		chunk := b.buf[:b.Size]
		if _, err := b.Inner.Write(chunk); err != nil {
			return len(p), err
		}
		b.buf = append([]byte(nil), b.buf[b.Size:]...)
	}
	return len(p), nil
}

// Flush forces any buffered remainder out to Inner.
func (b *WriteBuffer) Flush() error {
	if len(b.buf) > 0 {
		if _, err := b.Inner.Write(b.buf); err != nil {
			return err
		}
		b.buf = nil
	}
	return b.Inner.Flush()
}

// Shutdown flushes the remainder then half-closes Inner.
func (b *WriteBuffer) Shutdown() error {
	if err := b.Flush(); err != nil {
		return err
	}
	return b.Inner.Shutdown()
}
