// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: github.com/bassosimone/nop slogger.go
//
// Every overlay and leaf in this module accepts an [SLogger] rather than a
// concrete [*slog.Logger] so unit tests can assert on emitted fields without
// parsing text, and so a caller embedding this module can route spans into
// whatever their own logging pipeline expects.

package logging

// SLogger abstracts the [*slog.Logger] behavior this module depends on.
//
// Two levels are used throughout:
//   - Info for lifecycle and protocol events: connect, close, TLS handshake,
//     WebSocket upgrade, scenario start/stop.
//   - Debug for per-I/O events: read, write, ping/pong, set deadline.
//
// `--log-verbose` (spec.md §4.2/§6) raises the effective level to Debug;
// `--log-traffic`/`--log-hex`/`--log-omit-content` only affect which extra
// fields are attached, never which level a message is logged at.
type SLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// DefaultSLogger returns the default [SLogger]: a no-op logger that
// discards all output, matching the convention of never writing to
// stdout/stderr unless the caller explicitly configures a logger via
// [websocat/internal/netcfg.Config.Logger].
func DefaultSLogger() SLogger {
	return discardSLogger{}
}

type discardSLogger struct{}

var _ SLogger = discardSLogger{}

func (discardSLogger) Debug(msg string, args ...any) {}
func (discardSLogger) Info(msg string, args ...any)  {}
