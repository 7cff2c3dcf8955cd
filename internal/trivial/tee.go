// SPDX-License-Identifier: GPL-3.0-or-later
//
// tee, spec.md §4.11: broadcasts writes to N sinks with a configurable
// failure-propagation policy.

package trivial

import (
	"context"

	"websocat/internal/core"
)

// TeeFailurePolicy controls how [Tee] reacts to a sink returning an error.
type TeeFailurePolicy int

const (
	// TeeAbortOnFirstError stops broadcasting and returns the first error
	// a sink produces.
	TeeAbortOnFirstError TeeFailurePolicy = iota
	// TeeIgnoreErrors writes to every sink regardless of earlier failures
	// and never returns an error itself.
	TeeIgnoreErrors
)

// Tee returns a [core.PacketWrite] broadcasting every WritePacket call to
// all of sinks, in order.
func Tee(sinks []core.PacketWrite, policy TeeFailurePolicy) core.PacketWrite {
	return core.PacketWriteFunc(func(ctx context.Context, buf []byte, flags core.BufferFlags) error {
		for _, sink := range sinks {
			if err := sink.WritePacket(ctx, buf, flags); err != nil {
				if policy == TeeAbortOnFirstError {
					return err
				}
			}
		}
		return nil
	})
}
