// SPDX-License-Identifier: GPL-3.0-or-later
//
// New: the registry-stream-{listen,connect} in-process loopback endpoint
// (SPEC_FULL.md §D.4), used throughout spec.md §8's seeded scenarios.
// Grounded on original_source's in-process test connector pattern
// (tests/ioless.rs): a named registry of net.Pipe() pairs, letting a single
// --compose invocation (spec.md §4.12) wire two specifier stacks together
// without touching the network.

package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
)

// Registry is a process-wide named rendezvous point for in-process
// connection pairs, addressed by the name in registry-stream-listen:NAME /
// registry-stream-connect:NAME.
type Registry struct {
	mu      sync.Mutex
	waiters map[string]chan net.Conn
}

// DefaultRegistry is the registry shared by every specifier in one process,
// matching the scope a single websocat/--compose invocation needs.
var DefaultRegistry = &Registry{}

func (r *Registry) waiterFor(name string) chan net.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.waiters == nil {
		r.waiters = make(map[string]chan net.Conn)
	}
	ch, ok := r.waiters[name]
	if !ok {
		ch = make(chan net.Conn)
		r.waiters[name] = ch
	}
	return ch
}

// Listen blocks until a Connect call for the same name arrives, then
// returns one side of an in-process net.Pipe().
func (r *Registry) Listen(ctx context.Context, name string) (net.Conn, error) {
	ch := r.waiterFor(name)
	client, server := net.Pipe()
	select {
	case ch <- client:
		return server, nil
	case <-ctx.Done():
		client.Close()
		server.Close()
		return nil, ctx.Err()
	}
}

// Connect blocks until a Listen call for the same name is waiting, then
// returns the connected conn handed off by [Registry.Listen].
func (r *Registry) Connect(ctx context.Context, name string) (net.Conn, error) {
	ch := r.waiterFor(name)
	select {
	case conn := <-ch:
		return conn, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("transport: registry connect %q: %w", name, ctx.Err())
	}
}
