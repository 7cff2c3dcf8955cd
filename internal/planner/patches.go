// SPDX-License-Identifier: GPL-3.0-or-later
//
// The 11 idempotent patches, spec.md §4.2, applied in sequence to a
// lowered [Plan]. No teacher/pack equivalent; grounded on spec.md's prose
// description of each patch.

package planner

import "net"

// Options carries the CLI-level knobs the patches consult.
type Options struct {
	LateResolve   bool
	TLSDomain     string
	Insecure      bool
	LogTraffic    bool
	LogHex        bool
	LogOmitContent bool
	Binary        bool // --binary: StreamChunks for chunker insertion
	Text          bool // --text: LineChunks for chunker insertion
	WsCURI         string
	WriteSplitoff  *Stack
	Unidirectional bool
}

// Build lowers left/right and runs every patch over the resulting [Plan] in
// spec.md §4.2's order.
func Build(left, right *Stack, opts Options) (*Plan, error) {
	p := &Plan{Left: left, Right: right, Unidirectional: opts.Unidirectional}

	patches := []func(*Plan, Options) error{
		patch1URLSplit,
		patch2ListenSplit,
		patch3ClientServerShorthand,
		patch4HostnamePreresolution,
		patch5TLSContextDedup,
		patch6LogOverlayAutoInsert,
		patch7ChunkerInsertion,
		patch8ReuserAutoInsert,
		patch9ReuserMaterialisation,
		patch10WriteSplitoff,
		patch11SocketTypeValidation,
	}
	for _, patch := range patches {
		if err := patch(p, opts); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ApplyExecArgs attaches --exec-args' trailing argv to whichever of p's two
// stacks bottoms out at an exec: endpoint. Not one of the 11 patches above
// (spec.md §4.2 enumerates those as the planner's own rewrite pipeline);
// this is the CLI's own post-processing step for a flag that only exec:
// endpoints consume, so it runs once after [Build] rather than inside it.
func ApplyExecArgs(p *Plan, args []string) {
	for _, s := range []*Stack{p.Left, p.Right} {
		if e, ok := s.Endpoint.(Exec); ok {
			e.Args = args
			s.Endpoint = e
		}
	}
}

// ApplyLineChunksConfig applies --separator/--separator-inhibit-substitution
// to every LineChunksOverlay in both of p's stacks. Like [ApplyExecArgs],
// this is a CLI-flag post-processing step outside the 11-patch pipeline:
// the separator byte is a global CLI knob, not something patch 7's chunker
// insertion logic (which only decides *whether* to insert a chunker) needs
// to know about.
func ApplyLineChunksConfig(p *Plan, sep byte, substituteSpace bool) {
	for _, s := range []*Stack{p.Left, p.Right} {
		for i, o := range s.Overlays {
			if _, ok := o.(LineChunksOverlay); ok {
				s.Overlays[i] = LineChunksOverlay{Separator: sep, SubstituteSpace: substituteSpace}
			}
		}
	}
}

// ApplyBufferLimits fills in --read-buffer-limit/--write-buffer-limit as
// the default chunk size for any read_chunk_limiter:/write_chunk_limiter:/
// write_buffer: overlay the specifier left at its zero value (no explicit
// size was given in the specifier string itself). Zero readLimit/writeLimit
// leaves those overlays' zero value alone, which each builtin treats as
// "unbounded"/"library default" (spec.md §4.11).
func ApplyBufferLimits(p *Plan, readLimit, writeLimit int) {
	for _, s := range []*Stack{p.Left, p.Right} {
		for i, o := range s.Overlays {
			switch ov := o.(type) {
			case ReadChunkLimiterOverlay:
				if ov.N == 0 && readLimit != 0 {
					ov.N = readLimit
					s.Overlays[i] = ov
				}
			case WriteChunkLimiterOverlay:
				if ov.N == 0 && writeLimit != 0 {
					ov.N = writeLimit
					s.Overlays[i] = ov
				}
			case WriteBufferOverlay:
				if ov.Size == 0 && writeLimit != 0 {
					ov.Size = writeLimit
					s.Overlays[i] = ov
				}
			}
		}
	}
}

// ApplyUDPServerConfig fills --udp-max-clients/--udp-timeout-ms into
// whichever of p's two stacks bottoms out at a udp-server: endpoint.
func ApplyUDPServerConfig(p *Plan, maxClients int, timeoutMS int64) {
	for _, s := range []*Stack{p.Left, p.Right} {
		if e, ok := s.Endpoint.(UDPServer); ok {
			if maxClients != 0 {
				e.MaxClients = maxClients
			}
			e.TimeoutMS = timeoutMS
			s.Endpoint = e
		}
	}
}

// patch1URLSplit decomposes WsURL/WssURL endpoints into a TCP-connect
// endpoint plus WsUpgrade/WsFramer overlays (and, for wss, an outer
// TlsClient).
func patch1URLSplit(p *Plan, opts Options) error {
	for _, s := range []*Stack{p.Left, p.Right} {
		splitWsURL(s, opts)
	}
	return nil
}

func splitWsURL(s *Stack, opts Options) {
	switch ep := s.Endpoint.(type) {
	case WsURL:
		host, port := hostAndPort(ep.URI, "80")
		s.Endpoint = tcpEndpointFor(host, port)
		s.Overlays = append(s.Overlays, WsFramer{ClientMode: true}, WsUpgrade{URI: ep.URI, Host: host})
	case WssURL:
		host, port := hostAndPort(ep.URI, "443")
		s.Endpoint = tcpEndpointFor(host, port)
		s.Overlays = append(s.Overlays, WsFramer{ClientMode: true}, WsUpgrade{URI: ep.URI, Host: host}, TlsClient{Domain: host})
	}
}

func tcpEndpointFor(host, port string) EndpointNode {
	if net.ParseIP(host) != nil {
		return TCPConnectByIP{IP: host, Port: port}
	}
	return TCPConnectByLateHostname{Host: host, Port: port}
}

// hostAndPort splits a ws(s) authority+path URI into host and port,
// defaulting the port and discarding any path.
func hostAndPort(uri, defaultPort string) (string, string) {
	authority := uri
	for i, c := range uri {
		if c == '/' {
			authority = uri[:i]
			break
		}
	}
	if h, p, err := net.SplitHostPort(authority); err == nil {
		return h, p
	}
	return authority, defaultPort
}

// patch2ListenSplit decomposes a WsListenURL endpoint into a TCP listen
// endpoint plus WsAccept/WsFramer overlays.
func patch2ListenSplit(p *Plan, opts Options) error {
	for _, s := range []*Stack{p.Left, p.Right} {
		if ep, ok := s.Endpoint.(WsListenURL); ok {
			s.Endpoint = TCPListen{Addr: ep.Addr}
			s.Overlays = append(s.Overlays, WsFramer{ClientMode: false}, WsAccept{})
		}
	}
	return nil
}

// patch3ClientServerShorthand fills in the request URI for the ws-c:/ws-u:
// overlay shorthand forms. Unlike ws://, wss://, which carry their own URI
// in the specifier, lower.go emits these as a bare WsUpgrade{} with no URI
// set (lowerOverlay has no access to CLI-level Options); spec.md §4.2 patch
// 3 assigns this patch the job of pulling --ws-c-uri in, defaulting to "/"
// when unset.
func patch3ClientServerShorthand(p *Plan, opts Options) error {
	uri := opts.WsCURI
	if uri == "" {
		uri = "/"
	}
	for _, s := range []*Stack{p.Left, p.Right} {
		for i, o := range s.Overlays {
			if up, ok := o.(WsUpgrade); ok && up.URI == "" {
				up.URI = uri
				s.Overlays[i] = up
			}
		}
	}
	return nil
}

// patch4HostnamePreresolution converts TCPConnectByLateHostname into
// TCPConnectByEarlyHostname plus a shared ResolveHostname prelude action,
// unless opts.LateResolve.
func patch4HostnamePreresolution(p *Plan, opts Options) error {
	if opts.LateResolve {
		return nil
	}
	for i, s := range []*Stack{p.Left, p.Right} {
		if ep, ok := s.Endpoint.(TCPConnectByLateHostname); ok {
			varname := varName("addrs", i)
			s.Endpoint = TCPConnectByEarlyHostname{Var: varname, Port: ep.Port}
			p.Prelude = append(p.Prelude, ResolveHostname{Var: varname, Hostname: ep.Host, Port: ep.Port})
		}
	}
	return nil
}

func varName(base string, i int) string {
	if i == 0 {
		return base + "_left"
	}
	return base + "_right"
}

// patch5TLSContextDedup ensures every TlsClient overlay shares one
// connector built once in the prelude, and applies --tls-domain.
func patch5TLSContextDedup(p *Plan, opts Options) error {
	var haveTLS bool
	for _, s := range []*Stack{p.Left, p.Right} {
		for i := range s.Overlays {
			tc, ok := s.Overlays[i].(TlsClient)
			if !ok {
				continue
			}
			haveTLS = true
			if opts.TLSDomain != "" {
				tc.Domain = opts.TLSDomain
			}
			tc.Insecure = opts.Insecure
			s.Overlays[i] = tc
		}
	}
	if haveTLS {
		p.Prelude = append(p.Prelude, CreateTLSConnector{Var: "tls_connector"})
	}
	return nil
}

// patch6LogOverlayAutoInsert inserts a Log overlay immediately above the
// outermost TlsClient overlay (or at the very outside if none) when
// --log-traffic is set.
func patch6LogOverlayAutoInsert(p *Plan, opts Options) error {
	if !opts.LogTraffic {
		return nil
	}
	for _, s := range []*Stack{p.Left, p.Right} {
		pos := 0
		for i, o := range s.Overlays {
			if _, ok := o.(TlsClient); ok {
				pos = i
				break
			}
		}
		datagramMode := isDatagramSocket(s)
		inserted := append([]OverlayNode{}, s.Overlays[:pos]...)
		inserted = append(inserted, Log{DatagramMode: datagramMode, Hex: opts.LogHex, OmitContent: opts.LogOmitContent})
		inserted = append(inserted, s.Overlays[pos:]...)
		s.Overlays = inserted
	}
	return nil
}

// isDatagramSocket reports whether the outermost layer of s exposes a
// datagram socket rather than a byte stream.
func isDatagramSocket(s *Stack) bool {
	for _, o := range s.Overlays {
		switch o.(type) {
		case WsFramer, StreamChunksOverlay, LineChunksOverlay, LengthPrefixedOverlay:
			return true
		}
	}
	switch s.Endpoint.(type) {
	case UDPConnect, UDPBind, UDPServer:
		return true
	}
	return false
}

// patch7ChunkerInsertion appends a StreamChunks or LineChunks overlay to
// any bytestream-providing stack so both sides expose datagram sockets,
// when the two stacks disagree on socket type or the session is datagram.
func patch7ChunkerInsertion(p *Plan, opts Options) error {
	leftDatagram := isDatagramSocket(p.Left)
	rightDatagram := isDatagramSocket(p.Right)
	if leftDatagram == rightDatagram {
		return nil
	}
	chunker := func() OverlayNode {
		if opts.Text {
			return LineChunksOverlay{}
		}
		return StreamChunksOverlay{}
	}
	if !leftDatagram {
		p.Left.Overlays = append(p.Left.Overlays, chunker())
	}
	if !rightDatagram {
		p.Right.Overlays = append(p.Right.Overlays, chunker())
	}
	return nil
}

// prefersBeingSingle reports whether an endpoint only makes sense as a
// single concurrent session (stdio, a UDP bind, an append-only file, an
// async fd) — spec.md §4.2 patch 8's reuser-insertion trigger.
func prefersBeingSingle(s *Stack) bool {
	switch s.Endpoint.(type) {
	case Stdio, UDPBind, AppendFile, AsyncFD:
		return true
	}
	return false
}

func isListener(s *Stack) bool {
	switch s.Endpoint.(type) {
	case TCPListen, UnixListen, UDPServer:
		return true
	}
	for _, o := range s.Overlays {
		if _, ok := o.(WsAccept); ok {
			return true
		}
	}
	return false
}

// patch8ReuserAutoInsert appends a SimpleReuser overlay to the right stack
// when the session is datagram, the left stack is a listener, and the
// right stack prefers being single.
func patch8ReuserAutoInsert(p *Plan, opts Options) error {
	if isDatagramSocket(p.Left) && isListener(p.Left) && prefersBeingSingle(p.Right) {
		p.Right.Overlays = append(p.Right.Overlays, SimpleReuser{})
	}
	return nil
}

// patch9ReuserMaterialisation lifts any SimpleReuser overlay out into a
// SimpleReuserEndpoint, preallocating its listener via a
// CreateSimpleReuserListener prelude action.
//
// Every overlay the stack carried (chunker included) moves into Inner along
// with the endpoint: SimpleReuser must wrap a fully-formed datagram socket,
// and a chunker patch 7 inserted to turn a bytestream endpoint (e.g. stdio)
// into one belongs below the reuser, not above it, since
// [websocat/internal/reuser.SimpleReuser] only speaks [core.DatagramSocket].
func patch9ReuserMaterialisation(p *Plan, opts Options) error {
	for i, s := range []*Stack{p.Left, p.Right} {
		idx := -1
		for j, o := range s.Overlays {
			if _, ok := o.(SimpleReuser); ok {
				idx = j
				break
			}
		}
		if idx < 0 {
			continue
		}
		innerOverlays := append([]OverlayNode{}, s.Overlays[:idx]...)
		innerOverlays = append(innerOverlays, s.Overlays[idx+1:]...)
		inner := &Stack{Overlays: innerOverlays, Endpoint: s.Endpoint}
		varname := varName("reuser", i)
		newStack := &Stack{
			Endpoint: &SimpleReuserEndpoint{Var: varname, Inner: inner},
		}
		*s = *newStack
		p.Prelude = append(p.Prelude, CreateSimpleReuserListener{Var: varname, Inner: inner})
	}
	return nil
}

// patch10WriteSplitoff consumes opts.WriteSplitoff: the right stack
// becomes read-only and a WriteSplitoff overlay carrying the write-only
// stack is appended.
func patch10WriteSplitoff(p *Plan, opts Options) error {
	if opts.WriteSplitoff == nil {
		return nil
	}
	p.Right.Overlays = append(p.Right.Overlays, WriteSplitoff{Inner: opts.WriteSplitoff})
	return nil
}

// patch11SocketTypeValidation walks each stack's overlays confirming each
// one's required socket type agrees with what the layer below provides.
func patch11SocketTypeValidation(p *Plan, opts Options) error {
	for _, s := range []*Stack{p.Left, p.Right} {
		if err := validateStack(s); err != nil {
			return err
		}
	}
	return nil
}

// TypeMismatchError reports an overlay whose required socket type
// disagrees with what the layer below it provides.
type TypeMismatchError struct {
	Overlay            OverlayNode
	Required, Observed string
}

func (e *TypeMismatchError) Error() string {
	return "planner: type mismatch: overlay requires " + e.Required + " but layer below provides " + e.Observed
}

func validateStack(s *Stack) error {
	datagram := isDatagramSocket(&Stack{Endpoint: s.Endpoint})
	for i := len(s.Overlays) - 1; i >= 0; i-- {
		o := s.Overlays[i]
		switch o.(type) {
		case WsUpgrade, WsAccept, TlsClient, ReuseRawOverlay,
			ReadChunkLimiterOverlay, WriteChunkLimiterOverlay, WriteBufferOverlay, WriteSplitoff:
			if datagram {
				return &TypeMismatchError{Overlay: o, Required: "bytestream", Observed: "datagram"}
			}
		case WsFramer, StreamChunksOverlay, LineChunksOverlay, LengthPrefixedOverlay:
			datagram = true
		}
	}
	return nil
}
