// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/scenario_executor/reuser.rs
// (SimpleReuserListener's Uninitialised/Active/Failed state machine and
// maybe_init_then_connect). Backs spec.md §4.8's "Listener variant".
//
// Simplification: the original fulfills a one-shot async slot so
// concurrent callers racing the first initialisation all wait on the same
// in-flight attempt. Here the state transition and the initializer call
// itself happen under one held mutex, which gives the same effective
// behavior — concurrent callers serialize on the lock and every caller
// after the first observes either Active or Failed — without needing a
// separate broadcast primitive.

package reuser

import (
	"context"
	"sync"

	"websocat/internal/core"
)

// ListenerState is one state of a [Listener]'s lifecycle.
type ListenerState int

const (
	StateUninitialised ListenerState = iota
	StateActive
	StateFailed
)

// Initializer produces the shared inner [core.DatagramSocket] the first
// time a [Listener] is used.
type Initializer func(ctx context.Context) (*core.DatagramSocket, error)

// Listener is a lazily-initialised [SimpleReuser]: the first
// MaybeInitThenConnect call runs Init; later calls reuse the resulting
// reuser. If Init fails and ConnectAgain is false, later calls fail fast
// with the same error instead of retrying.
type Listener struct {
	Init                  Initializer
	DisconnectOnTornWrite bool
	ConnectAgain          bool

	mu      sync.Mutex
	state   ListenerState
	reuser  *SimpleReuser
	initErr error
}

// NewListener builds a [*Listener] around init.
func NewListener(init Initializer, disconnectOnTornWrite, connectAgain bool) *Listener {
	return &Listener{Init: init, DisconnectOnTornWrite: disconnectOnTornWrite, ConnectAgain: connectAgain}
}

// MaybeInitThenConnect returns a fresh [*ClientSocket] onto the (possibly
// just-initialised) shared reuser.
func (l *Listener) MaybeInitThenConnect(ctx context.Context) (*ClientSocket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateActive:
		return l.reuser.NewClient(), nil
	case StateFailed:
		if !l.ConnectAgain {
			return nil, l.initErr
		}
	}

	socket, err := l.Init(ctx)
	if err != nil {
		l.state = StateFailed
		l.initErr = err
		return nil, err
	}
	l.reuser = New(socket, l.DisconnectOnTornWrite)
	l.state = StateActive
	return l.reuser.NewClient(), nil
}
