// SPDX-License-Identifier: GPL-3.0-or-later
//
// The typed intermediate representation the planner's patches (spec.md
// §4.2) rewrite. Grounded on spec.md §4.2's node vocabulary
// (TcpConnectByLateHostname, WsUpgrade, CreateTlsConnector, ...) directly;
// no teacher/pack equivalent exists for this tool-specific planning IR.

package planner

// EndpointNode is the innermost node of a [Stack].
type EndpointNode interface{ isEndpoint() }

type TCPConnectByLateHostname struct{ Host, Port string }
type TCPConnectByEarlyHostname struct{ Var, Port string }
type TCPConnectByIP struct{ IP, Port string }
type TCPListen struct{ Addr string }
type UDPConnect struct{ Addr string }
type UDPBind struct{ Addr string }
type UDPServer struct {
	Addr       string
	MaxClients int
	TimeoutMS  int64
}
type UnixConnect struct{ Path string }
type UnixListen struct{ Path string }
type AbstractConnect struct{ Name string }
type SeqpacketConnect struct{ Path string }
type Stdio struct{}
type Exec struct {
	Prog string
	Args []string
}
type Cmd struct{ Line string }
type MockStreamSocket struct{ Script string }
type RegistryStreamListen struct{ Name string }
type RegistryStreamConnect struct{ Name string }
type LiteralText struct{ Text string }
type LiteralBase64 struct{ B64 string }
type ReadFile struct{ Path string }
type WriteFile struct{ Path string }
type AppendFile struct{ Path string }
type Dummy struct{}
type DevNull struct{}
type RandomSource struct{}
type ZeroSource struct{}
type AsyncFD struct{ N string }

// Socks5Connect dials Target through a SOCKS5 proxy at ProxyAddr,
// optionally authenticating with Username/Password (SPEC_FULL.md §D.3).
type Socks5Connect struct {
	ProxyAddr          string
	Username, Password string
	Target             string
}

// SimpleReuserEndpoint is the materialised form of a SimpleReuser overlay
// after patch 9 lifts it out into its own endpoint.
type SimpleReuserEndpoint struct {
	Var   string
	Inner *Stack
}

func (TCPConnectByLateHostname) isEndpoint()  {}
func (TCPConnectByEarlyHostname) isEndpoint() {}
func (TCPConnectByIP) isEndpoint()            {}
func (TCPListen) isEndpoint()                 {}
func (UDPConnect) isEndpoint()                {}
func (UDPBind) isEndpoint()                   {}
func (UDPServer) isEndpoint()                 {}
func (UnixConnect) isEndpoint()               {}
func (UnixListen) isEndpoint()                {}
func (AbstractConnect) isEndpoint()           {}
func (SeqpacketConnect) isEndpoint()          {}
func (Stdio) isEndpoint()                     {}
func (Exec) isEndpoint()                      {}
func (Cmd) isEndpoint()                       {}
func (MockStreamSocket) isEndpoint()          {}
func (RegistryStreamListen) isEndpoint()      {}
func (RegistryStreamConnect) isEndpoint()     {}
func (LiteralText) isEndpoint()               {}
func (LiteralBase64) isEndpoint()             {}
func (ReadFile) isEndpoint()                  {}
func (WriteFile) isEndpoint()                 {}
func (AppendFile) isEndpoint()                {}
func (Dummy) isEndpoint()                     {}
func (DevNull) isEndpoint()                   {}
func (RandomSource) isEndpoint()              {}
func (ZeroSource) isEndpoint()                {}
func (AsyncFD) isEndpoint()                   {}
func (Socks5Connect) isEndpoint()             {}
func (*SimpleReuserEndpoint) isEndpoint()     {}

// WsURL/WssURL are pre-patch-1 endpoint forms produced directly by
// lowering a ws:// or wss:// specifier; patch 1 rewrites them away.
type WsURL struct{ URI string }
type WssURL struct{ URI string }
type WsListenURL struct{ Addr string }

func (WsURL) isEndpoint()       {}
func (WssURL) isEndpoint()      {}
func (WsListenURL) isEndpoint() {}

// OverlayNode is one layer wrapping a [Stack]'s endpoint, outermost-first.
type OverlayNode interface{ isOverlay() }

type WsUpgrade struct{ URI, Host string }
type WsAccept struct{}
type WsFramer struct{ ClientMode bool }
type TlsClient struct {
	Domain   string
	Insecure bool
}
type Log struct {
	DatagramMode bool
	Hex          bool
	OmitContent  bool
}
type StreamChunksOverlay struct{}
type LineChunksOverlay struct {
	Separator       byte
	SubstituteSpace bool
}
type LengthPrefixedOverlay struct{ NBytes int }
type ReuseRawOverlay struct{}
type ReadChunkLimiterOverlay struct{ N int }
type WriteChunkLimiterOverlay struct{ N int }
type WriteBufferOverlay struct{ Size int }
type TeeOverlay struct{ Targets []string }
type DefragmentOverlay struct{}
type FilterOverlay struct{ Expr string }

// SimpleReuser is the not-yet-materialised overlay form patch 9 consumes.
type SimpleReuser struct{}

// WriteSplitoff is consumed by patch 10; Inner is the parsed write-only
// stack from --write-splitoff.
type WriteSplitoff struct{ Inner *Stack }

func (WsUpgrade) isOverlay()               {}
func (WsAccept) isOverlay()                {}
func (WsFramer) isOverlay()                {}
func (TlsClient) isOverlay()               {}
func (Log) isOverlay()                     {}
func (StreamChunksOverlay) isOverlay()     {}
func (LineChunksOverlay) isOverlay()       {}
func (LengthPrefixedOverlay) isOverlay()   {}
func (ReuseRawOverlay) isOverlay()         {}
func (ReadChunkLimiterOverlay) isOverlay() {}
func (WriteChunkLimiterOverlay) isOverlay() {}
func (WriteBufferOverlay) isOverlay()      {}
func (TeeOverlay) isOverlay()              {}
func (DefragmentOverlay) isOverlay()       {}
func (FilterOverlay) isOverlay()           {}
func (SimpleReuser) isOverlay()            {}
func (WriteSplitoff) isOverlay()           {}

// Stack is a typed, patch-rewritable specifier stack: overlays
// outermost-first wrapping one endpoint.
type Stack struct {
	Overlays []OverlayNode
	Endpoint EndpointNode
}

// PreparatoryAction runs once in the scenario's prelude, before the main
// stacks are materialised.
type PreparatoryAction interface{ isPrep() }

type ResolveHostname struct{ Var, Hostname, Port string }
type CreateTLSConnector struct{ Var string }
type CreateSimpleReuserListener struct {
	Var   string
	Inner *Stack
}

func (ResolveHostname) isPrep()           {}
func (CreateTLSConnector) isPrep()        {}
func (CreateSimpleReuserListener) isPrep() {}

// Plan is the planner's output: two stacks (client/left, server/right —
// spec.md's terminology for the two CLI positional specifiers) plus a
// prelude of one-time setup actions.
type Plan struct {
	Left, Right    *Stack
	Prelude        []PreparatoryAction
	Unidirectional bool
}
