// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: github.com/bassosimone/nop func.go, unit.go
//
// The scenario executor (see [websocat/internal/scenario]) passes resources
// between builtins as opaque, type-tagged, take-once handles rather than as
// concrete I/O objects. This file implements that primitive.

package core

import (
	"errors"
	"sync"
)

// ErrNullHandle is returned when a [Handle] is taken (or dereferenced) a
// second time, or when a handle that was never populated is taken.
var ErrNullHandle = errors.New("core: null handle")

// Handle is an opaque, shareable, type-tagged reference to an optional owned
// value of type T. It may be cloned freely; the inner value may be taken out
// exactly once.
//
// The zero value is not usable; construct with [NewHandle] or [WrapHandle].
type Handle[T any] struct {
	cell *cell[T]
}

type cell[T any] struct {
	mu       sync.Mutex
	value    *T
	consumed bool
}

// NewHandle wraps value in a freshly allocated [Handle].
func NewHandle[T any](value T) Handle[T] {
	return Handle[T]{cell: &cell[T]{value: &value}}
}

// WrapHandle wraps an optional value: a nil value produces a handle that is
// already empty (mirrors the source's `Option<T>` semantics for sockets
// where a half may be absent, e.g. an incomplete [StreamSocket]).
func WrapHandle[T any](value *T) Handle[T] {
	return Handle[T]{cell: &cell[T]{value: value}}
}

// NullHandle returns a handle whose slot is empty.
func NullHandle[T any]() Handle[T] {
	return Handle[T]{cell: &cell[T]{}}
}

// IsNil reports whether the handle was never constructed with a cell (the Go
// zero value of [Handle]). This is distinct from the slot being empty or
// already taken; use [Handle.Populated] for that.
func (h Handle[T]) IsNil() bool {
	return h.cell == nil
}

// Clone returns a new reference to the same underlying cell.
func (h Handle[T]) Clone() Handle[T] {
	return h
}

// Populated reports whether the slot currently holds a value (not yet taken,
// and constructed with a non-nil value).
func (h Handle[T]) Populated() bool {
	if h.cell == nil {
		return false
	}
	h.cell.mu.Lock()
	defer h.cell.mu.Unlock()
	return !h.cell.consumed && h.cell.value != nil
}

// Take removes and returns the inner value. A second call, or a call on an
// empty/nil handle, returns [ErrNullHandle].
func (h Handle[T]) Take() (T, error) {
	var zero T
	if h.cell == nil {
		return zero, ErrNullHandle
	}
	h.cell.mu.Lock()
	defer h.cell.mu.Unlock()
	if h.cell.consumed || h.cell.value == nil {
		return zero, ErrNullHandle
	}
	v := *h.cell.value
	h.cell.consumed = true
	h.cell.value = nil
	return v, nil
}

// Peek returns the inner value without consuming it. Used by builtins (such
// as the reuser) that need to share a single underlying resource across
// many derived handles instead of taking exclusive ownership of it.
func (h Handle[T]) Peek() (T, bool) {
	var zero T
	if h.cell == nil {
		return zero, false
	}
	h.cell.mu.Lock()
	defer h.cell.mu.Unlock()
	if h.cell.consumed || h.cell.value == nil {
		return zero, false
	}
	return *h.cell.value, true
}
