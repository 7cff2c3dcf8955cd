// SPDX-License-Identifier: GPL-3.0-or-later
//
// Lowers a parsed [specifier.Stack] (raw scheme/arg strings) into the
// planner's typed IR, the input the patch sequence (patches.go) operates
// on. Grounded on spec.md §6's endpoint-form list.

package planner

import (
	"fmt"
	"net"
	"strings"

	"websocat/internal/specifier"
)

// Lower converts a parsed specifier stack into the planner's typed IR.
func Lower(s *specifier.Stack) (*Stack, error) {
	ep, err := lowerEndpoint(s.Endpoint)
	if err != nil {
		return nil, err
	}
	overlays := make([]OverlayNode, 0, len(s.Overlays))
	for _, o := range s.Overlays {
		on, err := lowerOverlay(o)
		if err != nil {
			return nil, err
		}
		overlays = append(overlays, on)
	}
	return &Stack{Overlays: overlays, Endpoint: ep}, nil
}

func splitHostPort(hostport string) (host, port string) {
	if h, p, err := net.SplitHostPort(hostport); err == nil {
		return h, p
	}
	return hostport, ""
}

func lowerEndpoint(ep specifier.Endpoint) (EndpointNode, error) {
	switch ep.Kind {
	case "ws":
		return WsURL{URI: ep.Arg}, nil
	case "wss":
		return WssURL{URI: ep.Arg}, nil
	case "ws-l":
		return WsListenURL{Addr: ep.Arg}, nil
	case "tcp":
		host, port := splitHostPort(ep.Arg)
		if net.ParseIP(host) != nil {
			return TCPConnectByIP{IP: host, Port: port}, nil
		}
		return TCPConnectByLateHostname{Host: host, Port: port}, nil
	case "tcp-listen":
		return TCPListen{Addr: ep.Arg}, nil
	case "udp":
		return UDPConnect{Addr: ep.Arg}, nil
	case "udp-bind":
		return UDPBind{Addr: ep.Arg}, nil
	case "udp-server":
		return UDPServer{Addr: ep.Arg}, nil
	case "unix":
		return UnixConnect{Path: ep.Arg}, nil
	case "unix-listen":
		return UnixListen{Path: ep.Arg}, nil
	case "abstract":
		return AbstractConnect{Name: ep.Arg}, nil
	case "seqpacket":
		return SeqpacketConnect{Path: ep.Arg}, nil
	case "stdio":
		return Stdio{}, nil
	case "exec":
		return Exec{Prog: ep.Arg}, nil
	case "cmd":
		return Cmd{Line: ep.Arg}, nil
	case "mock_stream_socket":
		return MockStreamSocket{Script: ep.Arg}, nil
	case "registry-stream-listen":
		return RegistryStreamListen{Name: ep.Arg}, nil
	case "registry-stream-connect":
		return RegistryStreamConnect{Name: ep.Arg}, nil
	case "literal":
		return LiteralText{Text: ep.Arg}, nil
	case "literal-base64":
		return LiteralBase64{B64: ep.Arg}, nil
	case "readfile":
		return ReadFile{Path: ep.Arg}, nil
	case "writefile":
		return WriteFile{Path: ep.Arg}, nil
	case "appendfile":
		return AppendFile{Path: ep.Arg}, nil
	case "dummy":
		return Dummy{}, nil
	case "devnull":
		return DevNull{}, nil
	case "random":
		return RandomSource{}, nil
	case "zero":
		return ZeroSource{}, nil
	case "async-fd":
		return AsyncFD{N: ep.Arg}, nil
	case "socks5":
		return lowerSocks5(ep.Arg)
	default:
		return nil, fmt.Errorf("planner: unhandled endpoint kind %q", ep.Kind)
	}
}

// lowerSocks5 parses a socks5: endpoint argument of the form
// "[user:pass@]proxyhost:proxyport,targethost:targetport".
func lowerSocks5(arg string) (EndpointNode, error) {
	proxyPart, target, ok := strings.Cut(arg, ",")
	if !ok {
		return nil, fmt.Errorf("planner: socks5: endpoint needs \"proxy,target\", got %q", arg)
	}
	var user, pass string
	if cred, rest, ok := strings.Cut(proxyPart, "@"); ok {
		proxyPart = rest
		if u, p, ok := strings.Cut(cred, ":"); ok {
			user, pass = u, p
		} else {
			user = cred
		}
	}
	return Socks5Connect{ProxyAddr: proxyPart, Username: user, Password: pass, Target: target}, nil
}

func lowerOverlay(o specifier.Overlay) (OverlayNode, error) {
	switch o.Name {
	case "ws-c", "ws-u":
		return WsUpgrade{}, nil
	case "tls":
		return TlsClient{}, nil
	case "log":
		return Log{}, nil
	case "chunks":
		return StreamChunksOverlay{}, nil
	case "lines":
		return LineChunksOverlay{}, nil
	case "lengthprefixed":
		return LengthPrefixedOverlay{NBytes: 4}, nil
	case "reuse-raw":
		return ReuseRawOverlay{}, nil
	case "read_chunk_limiter":
		return ReadChunkLimiterOverlay{}, nil
	case "write_chunk_limiter":
		return WriteChunkLimiterOverlay{}, nil
	case "write_buffer":
		return WriteBufferOverlay{}, nil
	case "tee":
		return TeeOverlay{}, nil
	case "defragment":
		return DefragmentOverlay{}, nil
	case "filter":
		return FilterOverlay{}, nil
	default:
		return nil, fmt.Errorf("planner: unhandled overlay %q", o.Name)
	}
}
