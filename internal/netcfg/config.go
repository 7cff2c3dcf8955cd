// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: github.com/bassosimone/nop config.go
//
// Config is handed to the scenario builtin registry and from there to every
// transport leaf (spec.md §4.3) instead of each builtin reaching for globals, so a
// single scenario run can be driven end to end with a fake clock and a fake
// dialer in tests.

package netcfg

import (
	"context"
	"net"
	"time"

	"websocat/internal/errclass"
	"websocat/internal/logging"
)

// Dialer abstracts [*net.Dialer] so the tcp/udp/unix transport leaves and
// tests can supply an alternative.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config holds configuration shared by every transport leaf and overlay
// constructed while executing one scenario.
//
// All fields have sensible defaults set by [NewConfig] and are safe to
// override before the scenario executor's first [websocat/internal/core.Task]
// runs; they must not be mutated concurrently with a run in progress.
type Config struct {
	// Dialer opens outbound tcp/udp/unix connections.
	Dialer Dialer

	// ErrClassifier turns an error into the short errClass log field.
	// Defaults to [ErrClassifierFunc] wrapping [errclass.New].
	ErrClassifier ErrClassifier

	// Logger is the [logging.SLogger] every leaf and overlay logs spans to.
	Logger logging.SLogger

	// TimeNow returns the current time (overridable for deterministic tests).
	TimeNow func() time.Time

	// AnnounceListeningPorts prints "LISTEN proto=...,port=N" to stdout
	// (spec.md §6) once each listen_tcp/listen_unix endpoint is ready.
	AnnounceListeningPorts bool
}

// NewConfig creates a [*Config] with production defaults: the standard
// dialer, [errclass.New] classification, a discarding logger, and
// [time.Now].
func NewConfig() *Config {
	return &Config{
		Dialer:        &net.Dialer{},
		ErrClassifier: ErrClassifierFunc(errclass.New),
		Logger:        logging.DefaultSLogger(),
		TimeNow:       time.Now,
	}
}
