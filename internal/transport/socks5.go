// SPDX-License-Identifier: GPL-3.0-or-later
//
// New: supplements spec.md's distillation with the socks5: endpoint
// (SPEC_FULL.md §D.3), grounded on original_source/src/socks5_peer.rs
// (listed in original_source/_INDEX.md but dropped from spec.md). Uses
// golang.org/x/net/proxy, already a golang.org/x/net subpackage.

package transport

import (
	"context"
	"net"

	"golang.org/x/net/proxy"

	"websocat/internal/netcfg"
)

// Socks5ConnectFunc dials address through a SOCKS5 proxy.
type Socks5ConnectFunc struct {
	ProxyAddr string
	Username  string
	Password  string
}

// Call connects to address via the configured SOCKS5 proxy.
func (op *Socks5ConnectFunc) Call(ctx context.Context, address string) (net.Conn, error) {
	var auth *proxy.Auth
	if op.Username != "" {
		auth = &proxy.Auth{User: op.Username, Password: op.Password}
	}
	dialer, err := proxy.SOCKS5("tcp", op.ProxyAddr, auth, proxy.Direct)
	if err != nil {
		return nil, err
	}
	if ctxDialer, ok := dialer.(proxy.ContextDialer); ok {
		return ctxDialer.DialContext(ctx, "tcp", address)
	}
	return dialer.Dial("tcp", address)
}

// NewSocks5ConnectFunc builds a [*Socks5ConnectFunc] from the socks5:
// specifier's proxy address and optional userinfo.
func NewSocks5ConnectFunc(_ *netcfg.Config, proxyAddr, username, password string) *Socks5ConnectFunc {
	return &Socks5ConnectFunc{ProxyAddr: proxyAddr, Username: username, Password: password}
}
