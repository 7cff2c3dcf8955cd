// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on spec.md §4.1 and §6 directly — the order-preserving,
// colon-separated overlay-prefix-then-endpoint specifier syntax is bespoke
// to this tool; no pack library parses it. No teacher equivalent exists
// (bassosimone-nop dials endpoints constructed in Go, not parsed from a
// single positional argument).

package specifier

import (
	"fmt"
	"strings"
)

// overlayNames lists every recognised overlay prefix, spec.md §6.
var overlayNames = []string{
	"ws-c", "ws-u", "tls", "log", "chunks", "lines", "lengthprefixed",
	"reuse-raw", "read_chunk_limiter", "write_chunk_limiter",
	"write_buffer", "tee", "defragment", "filter",
}

// endpointKinds lists every recognised endpoint scheme token, spec.md §6,
// excluding "ws"/"wss" (handled specially via the "://" form) and "-"
// (bare stdio).
var endpointKinds = map[string]bool{
	"tcp": true, "tcp-listen": true,
	"udp": true, "udp-bind": true, "udp-server": true,
	"ws-l": true,
	"unix": true, "unix-listen": true, "abstract": true, "seqpacket": true,
	"exec": true, "cmd": true,
	"mock_stream_socket":     true,
	"registry-stream-listen": true, "registry-stream-connect": true,
	"literal": true, "literal-base64": true,
	"readfile": true, "writefile": true, "appendfile": true,
	"dummy": true, "devnull": true, "random": true, "zero": true,
	"async-fd": true,
	"socks5":   true,
}

// Overlay is one parsed overlay prefix, outermost-to-innermost order
// preserved in [Stack.Overlays].
type Overlay struct {
	Name string
}

// Endpoint is the innermost token of a specifier: a scheme plus argument.
type Endpoint struct {
	Kind string
	Arg  string
}

// Stack is one fully parsed specifier: an ordered list of overlays wrapping
// one endpoint.
type Stack struct {
	Overlays []Overlay
	Endpoint Endpoint
	Raw      string
}

// Parse strips recognised overlay prefixes left-to-right from raw, then
// parses the remainder as an endpoint. An unrecognised endpoint scheme is
// an error; overlay prefixes not in [overlayNames] are simply not stripped
// (so they fall through to endpoint parsing, which then rejects them).
func Parse(raw string) (*Stack, error) {
	rest := raw
	var overlays []Overlay
	for {
		name, tail, ok := stripOverlayPrefix(rest)
		if !ok {
			break
		}
		overlays = append(overlays, Overlay{Name: name})
		rest = tail
	}
	ep, err := parseEndpoint(rest)
	if err != nil {
		return nil, err
	}
	return &Stack{Overlays: overlays, Endpoint: *ep, Raw: raw}, nil
}

func stripOverlayPrefix(s string) (name, tail string, ok bool) {
	for _, n := range overlayNames {
		p := n + ":"
		if strings.HasPrefix(s, p) {
			return n, s[len(p):], true
		}
	}
	return "", s, false
}

func parseEndpoint(rest string) (*Endpoint, error) {
	if rest == "-" {
		return &Endpoint{Kind: "stdio"}, nil
	}
	if arg, ok := strings.CutPrefix(rest, "ws://"); ok {
		return &Endpoint{Kind: "ws", Arg: arg}, nil
	}
	if arg, ok := strings.CutPrefix(rest, "wss://"); ok {
		return &Endpoint{Kind: "wss", Arg: arg}, nil
	}
	idx := strings.IndexByte(rest, ':')
	if idx < 0 {
		return nil, fmt.Errorf("specifier: %q is not a recognised endpoint", rest)
	}
	kind, arg := rest[:idx], rest[idx+1:]
	if !endpointKinds[kind] {
		return nil, fmt.Errorf("specifier: unknown endpoint scheme %q", kind)
	}
	return &Endpoint{Kind: kind, Arg: arg}, nil
}

// String reconstructs the specifier text (overlays outermost-first, then
// the endpoint), which round-trips through [Parse] for any stack it
// itself produced.
func (s *Stack) String() string {
	var b strings.Builder
	for _, o := range s.Overlays {
		b.WriteString(o.Name)
		b.WriteByte(':')
	}
	switch s.Endpoint.Kind {
	case "stdio":
		b.WriteByte('-')
	case "ws", "wss":
		b.WriteString(s.Endpoint.Kind)
		b.WriteString("://")
		b.WriteString(s.Endpoint.Arg)
	default:
		b.WriteString(s.Endpoint.Kind)
		b.WriteByte(':')
		b.WriteString(s.Endpoint.Arg)
	}
	return b.String()
}
