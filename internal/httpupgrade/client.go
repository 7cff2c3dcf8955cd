// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: github.com/bassosimone/nop httpconn.go (the pattern of a
// small wrapper type owning a byte connection plus structured logging
// around each operation, constructed via a Func-style constructor). The
// upgrade handshake sequencing itself follows spec.md §4.6.1: build the GET
// request with the upgrade triad, send, read the response, validate unless
// lax, reclaim read-ahead bytes into the reconstructed StreamSocket's
// prefix.
//
// Unlike httpconn.go, which hands a completed net.Conn to net/http's
// transport for arbitrary round trips, ws_upgrade needs the raw
// bufio-buffered leftover bytes after the response line/headers — bytes
// belonging to the first WebSocket frame, already read off the wire by
// whatever buffers the response. net/http's Transport never exposes that
// buffer, so the handshake is done by hand: write the request directly,
// parse the response with bufio+http.ReadResponse, then recover
// bufio.Reader.Buffered() as the new StreamRead.Prefix.

package httpupgrade

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"websocat/internal/core"
	"websocat/internal/logging"
)

// ClientOptions configures [WsUpgrade].
type ClientOptions struct {
	// Host is sent as the Host header and used to build the request URL.
	Host string
	// Path is the request target, e.g. "/ws".
	Path string
	// Lax disables response validation beyond a successful parse.
	Lax bool
	// Headers are merged into the request (e.g. Origin, Authorization).
	Headers http.Header
}

// UpgradeContinuation is invoked with the reconstructed byte socket once a
// WebSocket upgrade completes, client or server side.
type UpgradeContinuation func(ctx context.Context, socket *core.StreamSocket) error

type clientLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// WsUpgrade performs the client-side WebSocket handshake over inner and, on
// success, invokes cont with the reclaimed [*core.StreamSocket].
func WsUpgrade(ctx context.Context, opts ClientOptions, inner *core.StreamSocket, logger clientLogger, cont UpgradeContinuation) error {
	if logger == nil {
		logger = noopClientLogger{}
	}
	key, err := generateKey()
	if err != nil {
		return err
	}

	req, err := buildUpgradeRequest(opts, key)
	if err != nil {
		return err
	}

	span := logging.NewSpanID()
	t0 := time.Now()
	logger.Info("wsUpgradeStart", slog.String("host", opts.Host), slog.String("path", opts.Path), slog.String("span", span), slog.Time("t", t0))

	if err := req.Write(inner.Write); err != nil {
		return err
	}
	if err := inner.Write.Flush(); err != nil {
		return err
	}

	br := bufio.NewReader(inner.Read)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		logger.Info("wsUpgradeDone", slog.Any("err", err), slog.String("span", span), slog.Time("t0", t0), slog.Time("t", time.Now()))
		return err
	}
	defer resp.Body.Close()

	if err := validateUpgradeResponse(opts, resp, key, logger, span); err != nil {
		logger.Info("wsUpgradeDone", slog.Any("err", err), slog.String("span", span), slog.Time("t0", t0), slog.Time("t", time.Now()))
		return err
	}
	logger.Info("wsUpgradeDone", slog.Any("err", error(nil)), slog.String("span", span), slog.Time("t0", t0), slog.Time("t", time.Now()))

	leftover := make([]byte, br.Buffered())
	if _, err := io.ReadFull(br, leftover); err != nil {
		return err
	}

	socket := &core.StreamSocket{
		Read:   &core.StreamRead{Reader: inner.Read.Reader, Prefix: leftover},
		Write:  inner.Write,
		Hangup: inner.Hangup,
		FD:     inner.FD,
	}
	return cont(ctx, socket)
}

func buildUpgradeRequest(opts ClientOptions, key string) (*http.Request, error) {
	target := opts.Path
	if target == "" {
		target = "/"
	}
	req, err := http.NewRequest(http.MethodGet, "http://"+opts.Host+target, nil)
	if err != nil {
		return nil, fmt.Errorf("httpupgrade: building request: %w", err)
	}
	req.Header = opts.Headers.Clone()
	if req.Header == nil {
		req.Header = http.Header{}
	}
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", key)
	req.Host = opts.Host
	return req, nil
}

func validateUpgradeResponse(opts ClientOptions, resp *http.Response, key string, logger clientLogger, span string) error {
	want := computeAccept(key)
	mismatch := resp.Header.Get("Sec-WebSocket-Accept") != want
	if opts.Lax {
		if mismatch {
			logger.Info("wsUpgradeAcceptMismatch", slog.String("got", resp.Header.Get("Sec-WebSocket-Accept")), slog.String("span", span), slog.String("want", want))
		}
		return nil
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		return fmt.Errorf("httpupgrade: unexpected status %d", resp.StatusCode)
	}
	if !headerHasToken(resp.Header, "Upgrade", "websocket") {
		return fmt.Errorf("httpupgrade: missing Upgrade: websocket header")
	}
	if mismatch {
		return fmt.Errorf("httpupgrade: Sec-WebSocket-Accept mismatch")
	}
	return nil
}

type noopClientLogger struct{}

func (noopClientLogger) Debug(string, ...any) {}
func (noopClientLogger) Info(string, ...any)  {}
