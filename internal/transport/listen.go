// SPDX-License-Identifier: GPL-3.0-or-later
//
// New: the teacher is a connect-side-only library. Grounded on the same
// Start/Done logging convention as connect.go, generalized to accept.
// Backs tcp-listen:/unix-listen:/ws-l: (spec.md §4.2 patch 2, §6).

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

// Listener abstracts [net.Listener] construction so tests can substitute a
// fake.
type Listener interface {
	Listen(ctx context.Context, network, address string) (net.Listener, error)
}

// ListenerFunc adapts a function to [Listener].
type ListenerFunc func(ctx context.Context, network, address string) (net.Listener, error)

// Listen implements [Listener].
func (f ListenerFunc) Listen(ctx context.Context, network, address string) (net.Listener, error) {
	return f(ctx, network, address)
}

// DefaultListener listens using [net.ListenConfig].
var DefaultListener Listener = ListenerFunc(func(ctx context.Context, network, address string) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, network, address)
})

// NewListenFunc returns a [*ListenFunc] wired from cfg.
func NewListenFunc(cfg *netcfg.Config, listener Listener, network string) *ListenFunc {
	return &ListenFunc{
		ErrClassifier: cfg.ErrClassifier,
		Listener:      listener,
		Logger:        cfg.Logger,
		Network:       network,
		TimeNow:       cfg.TimeNow,
	}
}

// ListenFunc binds a listening socket on the given network/address.
type ListenFunc struct {
	ErrClassifier netcfg.ErrClassifier
	Listener      Listener
	Logger        interestedLogger
	Network       string
	TimeNow       func() time.Time
}

// Call binds op.Network/address.
func (op *ListenFunc) Call(ctx context.Context, address string) (net.Listener, error) {
	span := logging.NewSpanID()
	t0 := op.TimeNow()
	op.Logger.Info("listenStart", slog.String("protocol", op.Network), slog.String("localAddr", address), slog.String("span", span), slog.Time("t", t0))
	ln, err := op.Listener.Listen(ctx, op.Network, address)
	op.Logger.Info(
		"listenDone",
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("protocol", op.Network),
		slog.String("span", span),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
	return ln, err
}

// Accept accepts one connection from ln, logging Start/Done exactly as
// [ConnectFunc] does for the dial side.
func Accept(ctx context.Context, ln net.Listener, logger interestedLogger, ec netcfg.ErrClassifier, timeNow func() time.Time) (net.Conn, error) {
	span := logging.NewSpanID()
	t0 := timeNow()
	logger.Info("acceptStart", slog.String("span", span), slog.Time("t", t0))
	conn, err := ln.Accept()
	logger.Info(
		"acceptDone",
		slog.Any("err", err),
		slog.String("errClass", ec.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.String("span", span),
		slog.Time("t0", t0),
		slog.Time("t", timeNow()),
	)
	return conn, err
}
