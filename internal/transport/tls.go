// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: github.com/bassosimone/nop tls.go
//
// Backs the TlsClient overlay (spec.md §4.2 patch 5, §4.1 URL split for
// wss://). crypto/tls only: spec.md §1 lists "TLS bring-up details" as an
// explicit Non-goal, so the standard library's TLS stack is the right
// level of abstraction here, not a gap to fill with a third-party engine.

package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/bassosimone/safeconn"

	"websocat/internal/logging"
	"websocat/internal/netcfg"
)

// TLSConn abstracts over [*tls.Conn].
type TLSConn interface {
	ConnectionState() tls.ConnectionState
	HandshakeContext(ctx context.Context) error
	net.Conn
}

// NewTLSHandshakeFunc returns a [*TLSHandshakeFunc]. tlsConfig must not be
// nil; --tls-domain (spec.md §4.2 patch 5) sets tlsConfig.ServerName before
// this constructor is called, and --insecure/-k sets InsecureSkipVerify.
func NewTLSHandshakeFunc(cfg *netcfg.Config, tlsConfig *tls.Config) *TLSHandshakeFunc {
	runtimex.Assert(tlsConfig != nil)
	return &TLSHandshakeFunc{
		Config:        tlsConfig,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        cfg.Logger,
		TimeNow:       cfg.TimeNow,
	}
}

// TLSHandshakeFunc performs a client TLS handshake over an existing
// [net.Conn].
type TLSHandshakeFunc struct {
	Config        *tls.Config
	ErrClassifier netcfg.ErrClassifier
	Logger        interestedLogger
	TimeNow       func() time.Time
}

// Call runs the handshake, closing conn and returning an error if it fails.
func (op *TLSHandshakeFunc) Call(ctx context.Context, conn net.Conn) (TLSConn, error) {
	span := logging.NewSpanID()
	config := op.tlsConfig()
	tconn := tls.Client(conn, config)
	t0 := op.TimeNow()
	deadline, _ := ctx.Deadline()
	op.logStart(span, conn, t0, deadline, config)
	err := tconn.HandshakeContext(ctx)
	state := tconn.ConnectionState()
	op.logDone(span, conn, t0, deadline, config, err, state)
	if err != nil {
		tconn.Close()
		return nil, err
	}
	return tconn, nil
}

func (op *TLSHandshakeFunc) tlsConfig() *tls.Config {
	config := op.Config.Clone()
	config.Time = op.TimeNow
	return config
}

func (op *TLSHandshakeFunc) logStart(span string, conn net.Conn, t0, deadline time.Time, config *tls.Config) {
	op.Logger.Info(
		"tlsHandshakeStart",
		slog.Time("deadline", deadline),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", safeconn.Network(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.String("span", span),
		slog.Time("t", t0),
		slog.Any("tlsOfferedProtocols", config.NextProtos),
		slog.String("tlsServerName", config.ServerName),
		slog.Bool("tlsSkipVerify", config.InsecureSkipVerify),
	)
}

func (op *TLSHandshakeFunc) logDone(span string, conn net.Conn, t0, deadline time.Time, config *tls.Config, err error, state tls.ConnectionState) {
	op.Logger.Info(
		"tlsHandshakeDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", safeconn.Network(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.String("span", span),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
		slog.String("tlsCipherSuite", tls.CipherSuiteName(state.CipherSuite)),
		slog.String("tlsNegotiatedProtocol", state.NegotiatedProtocol),
		slog.Any("tlsPeerCerts", peerCerts(state, err)),
		slog.String("tlsServerName", config.ServerName),
		slog.String("tlsVersion", tls.VersionName(state.Version)),
	)
}

func peerCerts(state tls.ConnectionState, err error) [][]byte {
	out := [][]byte{}

	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return append(out, hostnameErr.Certificate.Raw)
	}
	var unknownAuthorityErr x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthorityErr) {
		return append(out, unknownAuthorityErr.Cert.Raw)
	}
	var certInvalidErr x509.CertificateInvalidError
	if errors.As(err, &certInvalidErr) {
		return append(out, certInvalidErr.Cert.Raw)
	}
	for _, cert := range state.PeerCertificates {
		out = append(out, cert.Raw)
	}
	return out
}
