// SPDX-License-Identifier: GPL-3.0-or-later
//
// Endpoint builtins: the leaves a compiled [websocat/internal/planner.Plan]
// bottoms out at. Grounded on internal/transport (connect/listen/resolve/
// stdio/subprocess/file/registry leaves) and spec.md §6's endpoint list.

package scenario

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"websocat/internal/core"
	"websocat/internal/gateway"
	"websocat/internal/netcfg"
	"websocat/internal/transport"
	"websocat/internal/udpserver"
)

// announceListening prints the "LISTEN proto=...,port=N" line spec.md §6
// describes for --stdout-announce-listening-ports, once ln is ready to
// accept. A listener without a numeric port (e.g. a unix socket path) has
// nothing to announce.
func announceListening(cfg *netcfg.Config, proto string, ln net.Listener) {
	if !cfg.AnnounceListeningPorts {
		return
	}
	tcpAddr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		return
	}
	fmt.Printf("LISTEN proto=%s,port=%d\n", proto, tcpAddr.Port)
}

func (b *builtins) resolveHostname(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	host, err := mustString(args[0], "resolve_hostname")
	if err != nil {
		return nil, err
	}
	port, err := mustString(args[1], "resolve_hostname")
	if err != nil {
		return nil, err
	}
	addrs, err := transport.NewResolver().Resolve(ctx, host)
	if err != nil {
		return nil, err
	}
	return net.JoinHostPort(addrs[0].String(), port), nil
}

func (b *builtins) tlsConnector(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	return "tls-connector", nil
}

func (b *builtins) connectTCP(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	host, err := mustString(args[0], "connect_tcp")
	if err != nil {
		return nil, err
	}
	address := joinHostPortIfBare(host, optString(opts, "port", ""))
	op := transport.NewConnectFunc(b.cfg, "tcp")
	conn, err := op.Call(ctx, address)
	if err != nil {
		return nil, err
	}
	return streamSocketFromConn(conn), nil
}

func (b *builtins) listenTCP(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	addr, err := mustString(args[0], "listen_tcp")
	if err != nil {
		return nil, err
	}
	op := transport.NewListenFunc(b.cfg, transport.DefaultListener, "tcp")
	ln, err := op.Call(ctx, addr)
	if err != nil {
		return nil, err
	}
	announceListening(b.cfg, "tcp", ln)
	conn, err := transport.Accept(ctx, ln, b.cfg.Logger, b.cfg.ErrClassifier, b.cfg.TimeNow)
	ln.Close()
	if err != nil {
		return nil, err
	}
	return streamSocketFromConn(conn), nil
}

func (b *builtins) socks5Connect(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	proxyAddr, err := mustString(args[0], "socks5_connect")
	if err != nil {
		return nil, err
	}
	target, err := mustString(args[1], "socks5_connect")
	if err != nil {
		return nil, err
	}
	op := transport.NewSocks5ConnectFunc(b.cfg, proxyAddr, optString(opts, "username", ""), optString(opts, "password", ""))
	conn, err := op.Call(ctx, target)
	if err != nil {
		return nil, err
	}
	return streamSocketFromConn(conn), nil
}

func streamSocketFromConn(conn net.Conn) *core.StreamSocket {
	fd := -1
	return &core.StreamSocket{
		Read:  &core.StreamRead{Reader: conn},
		Write: &core.StreamWrite{Writer: conn},
		Hangup: core.HangupFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
		FD: fd,
	}
}

func (b *builtins) connectUDP(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	addr, err := mustString(args[0], "connect_udp")
	if err != nil {
		return nil, err
	}
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	return datagramSocketFromUDPConn(conn), nil
}

func (b *builtins) bindUDP(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	addr, err := mustString(args[0], "bind_udp")
	if err != nil {
		return nil, err
	}
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}
	return datagramSocketFromUDPConn(conn), nil
}

func datagramSocketFromUDPConn(conn *net.UDPConn) *core.DatagramSocket {
	read := core.PacketReadFunc(func(ctx context.Context, buf []byte) (core.PacketReadResult, error) {
		n, err := conn.Read(buf)
		return core.PacketReadResult{Length: n}, err
	})
	write := core.PacketWriteFunc(func(ctx context.Context, buf []byte, flags core.BufferFlags) error {
		if flags.Has(core.FlagEof) {
			return conn.Close()
		}
		_, err := conn.Write(buf)
		return err
	})
	return &core.DatagramSocket{
		Read:  &core.DatagramRead{Src: read},
		Write: &core.DatagramWrite{Snk: write},
		FD:    -1,
	}
}

// udpServer binds a udp-server: listener via [websocat/internal/udpserver]
// and returns the first peer session observed as a *core.DatagramSocket.
// Serve keeps running in the background to demultiplex further peers, but
// this port bridges one peer per process invocation — see DESIGN.md's note
// on the scenario executor's single-root-task model.
func (b *builtins) udpServer(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	addr, err := mustString(args[0], "udp_server")
	if err != nil {
		return nil, err
	}
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}

	maxClients := optInt(opts, "max_clients", 1024)
	timeoutMS := int64(optInt(opts, "timeout_ms", 0))

	peers := make(chan *core.DatagramSocket, 1)
	go udpserver.Serve(ctx, conn, udpserver.Config{MaxClients: maxClients, QueueLen: 64, TimeoutMS: timeoutMS}, func(ctx context.Context, peer *net.UDPAddr, socket *core.DatagramSocket) {
		select {
		case peers <- socket:
		default:
		}
	})

	select {
	case socket := <-peers:
		return socket, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *builtins) connectUnix(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	path, err := mustString(args[0], "connect_unix")
	if err != nil {
		return nil, err
	}
	op := transport.NewConnectFunc(b.cfg, "unix")
	conn, err := op.Call(ctx, path)
	if err != nil {
		return nil, err
	}
	return streamSocketFromConn(conn), nil
}

func (b *builtins) listenUnix(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	path, err := mustString(args[0], "listen_unix")
	if err != nil {
		return nil, err
	}
	op := transport.NewListenFunc(b.cfg, transport.DefaultListener, "unix")
	ln, err := op.Call(ctx, path)
	if err != nil {
		return nil, err
	}
	announceListening(b.cfg, "unix", ln)
	conn, err := transport.Accept(ctx, ln, b.cfg.Logger, b.cfg.ErrClassifier, b.cfg.TimeNow)
	ln.Close()
	if err != nil {
		return nil, err
	}
	return streamSocketFromConn(conn), nil
}

// connectAbstract dials a Linux abstract-namespace unix socket (leading
// NUL byte), per spec.md §6's abstract: endpoint form.
func (b *builtins) connectAbstract(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	name, err := mustString(args[0], "connect_abstract")
	if err != nil {
		return nil, err
	}
	conn, err := net.Dial("unix", "@"+name)
	if err != nil {
		return nil, err
	}
	return streamSocketFromConn(conn), nil
}

func (b *builtins) connectSeqpacket(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	path, err := mustString(args[0], "connect_seqpacket")
	if err != nil {
		return nil, err
	}
	conn, err := net.Dial("unixpacket", path)
	if err != nil {
		return nil, err
	}
	return streamSocketFromConn(conn), nil
}

func (b *builtins) stdio(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	return transport.Stdio(), nil
}

// asyncFD adopts an already-open numbered file descriptor (spec.md §6's
// async-fd: endpoint) as a byte-stream socket, same gateway wrapping as
// [transport.Stdio] since an inherited fd is no more guaranteed
// poll-friendly than stdin.
func (b *builtins) asyncFD(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	n, err := mustString(args[0], "async_fd")
	if err != nil {
		return nil, err
	}
	fdNum, err := strconv.Atoi(n)
	if err != nil {
		return nil, fmt.Errorf("scenario: async_fd: %w", err)
	}
	f := os.NewFile(uintptr(fdNum), "async-fd")
	if f == nil {
		return nil, fmt.Errorf("scenario: async_fd: invalid descriptor %d", fdNum)
	}
	return &core.StreamSocket{
		Read:  &core.StreamRead{Reader: gateway.WrapReader(f)},
		Write: &core.StreamWrite{Writer: gateway.WrapWriter(f)},
		FD:    fdNum,
	}, nil
}

func (b *builtins) spawnExec(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	prog, err := mustString(args[0], "exec")
	if err != nil {
		return nil, err
	}
	extra := make([]string, 0, len(args)-1)
	for _, a := range args[1:] {
		s, err := mustString(a, "exec")
		if err != nil {
			return nil, err
		}
		extra = append(extra, s)
	}
	op := &transport.SpawnFunc{Shell: false}
	return op.Call(ctx, prog, extra)
}

func (b *builtins) spawnCmd(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	line, err := mustString(args[0], "cmd")
	if err != nil {
		return nil, err
	}
	op := &transport.SpawnFunc{Shell: true}
	return op.Call(ctx, line, nil)
}

func (b *builtins) mockStreamSocket(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	script, err := mustString(args[0], "mock_stream_socket")
	if err != nil {
		return nil, err
	}
	return newMockStreamSocket(script), nil
}

func (b *builtins) registryStreamListen(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	name, err := mustString(args[0], "registry_stream_listen")
	if err != nil {
		return nil, err
	}
	conn, err := transport.DefaultRegistry.Listen(ctx, name)
	if err != nil {
		return nil, err
	}
	return streamSocketFromConn(conn), nil
}

func (b *builtins) registryStreamConnect(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	name, err := mustString(args[0], "registry_stream_connect")
	if err != nil {
		return nil, err
	}
	conn, err := transport.DefaultRegistry.Connect(ctx, name)
	if err != nil {
		return nil, err
	}
	return streamSocketFromConn(conn), nil
}

func (b *builtins) literal(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	text, err := mustString(args[0], "literal")
	if err != nil {
		return nil, err
	}
	return readOnlySocket(strings.NewReader(text)), nil
}

func (b *builtins) literalBase64(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	b64, err := mustString(args[0], "literal_base64")
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("scenario: literal_base64: %w", err)
	}
	return readOnlySocket(strings.NewReader(string(raw))), nil
}

func (b *builtins) readfile(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	path, err := mustString(args[0], "readfile")
	if err != nil {
		return nil, err
	}
	return transport.OpenReadFile(path)
}

func (b *builtins) writefile(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	path, err := mustString(args[0], "writefile")
	if err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &core.StreamSocket{Write: &core.StreamWrite{Writer: gateway.WrapWriter(f)}, FD: int(f.Fd())}, nil
}

func (b *builtins) appendfile(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	path, err := mustString(args[0], "appendfile")
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &core.StreamSocket{Write: &core.StreamWrite{Writer: gateway.WrapWriter(f)}, FD: int(f.Fd())}, nil
}

func (b *builtins) dummy(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	return &core.StreamSocket{
		Read:  &core.StreamRead{Reader: strings.NewReader("")},
		Write: &core.StreamWrite{Writer: io.Discard},
		FD:    -1,
	}, nil
}

func (b *builtins) devnull(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	return b.dummy(ctx, ex, args, opts)
}

func (b *builtins) random(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	return &core.StreamSocket{
		Read:  &core.StreamRead{Reader: rand.Reader},
		Write: &core.StreamWrite{Writer: io.Discard},
		FD:    -1,
	}, nil
}

func (b *builtins) zero(ctx context.Context, ex *Executor, args []Value, opts map[string]Value) (Value, error) {
	return &core.StreamSocket{
		Read:  &core.StreamRead{Reader: zeroReader{}},
		Write: &core.StreamWrite{Writer: io.Discard},
		FD:    -1,
	}, nil
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func readOnlySocket(r io.Reader) *core.StreamSocket {
	return &core.StreamSocket{Read: &core.StreamRead{Reader: r}, Write: &core.StreamWrite{Writer: io.Discard}, FD: -1}
}
