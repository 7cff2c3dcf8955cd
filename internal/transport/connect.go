// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: github.com/bassosimone/nop connect.go
//
// ConnectFunc backs the connect_tcp/connect_udp/connect_unix builtins
// (spec.md §6 endpoint forms tcp:, udp:, unix:) — the transport leaves
// spec.md §1 treats as thin collaborators, specified only by contract.

package transport

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/safeconn"

	"websocat/internal/logging"
	"websocat/internal/netcfg"
)

// NewConnectFunc returns a [*ConnectFunc] wired from cfg for the given
// network ("tcp", "udp", or "unix").
func NewConnectFunc(cfg *netcfg.Config, network string) *ConnectFunc {
	return &ConnectFunc{
		Dialer:        cfg.Dialer,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        cfg.Logger,
		Network:       network,
		TimeNow:       cfg.TimeNow,
	}
}

// ConnectFunc dials address (a host:port for tcp/udp, a path for unix).
type ConnectFunc struct {
	Dialer        netcfg.Dialer
	ErrClassifier netcfg.ErrClassifier
	Logger        interestedLogger
	Network       string
	TimeNow       func() time.Time
}

type interestedLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// Call dials op.Network/address, returning a connected [net.Conn] or an
// error, never both.
func (op *ConnectFunc) Call(ctx context.Context, address string) (net.Conn, error) {
	span := logging.NewSpanID()
	t0 := op.TimeNow()
	deadline, _ := ctx.Deadline()
	op.logConnectStart(span, address, t0, deadline)
	conn, err := op.Dialer.DialContext(ctx, op.Network, address)
	op.logConnectDone(span, address, t0, deadline, conn, err)
	return conn, err
}

func (op *ConnectFunc) logConnectStart(span, address string, t0, deadline time.Time) {
	op.Logger.Info(
		"connectStart",
		slog.Time("deadline", deadline),
		slog.String("protocol", op.Network),
		slog.String("remoteAddr", address),
		slog.String("span", span),
		slog.Time("t", t0),
	)
}

func (op *ConnectFunc) logConnectDone(span, address string, t0, deadline time.Time, conn net.Conn, err error) {
	op.Logger.Info(
		"connectDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", op.Network),
		slog.String("remoteAddr", address),
		slog.String("span", span),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
}
