// SPDX-License-Identifier: GPL-3.0-or-later
//
// Compiles a planner.Plan into scenario text: --dump-spec/--dump-spec-phase2
// print the planner's typed IR in this textual form. Grounded on
// spec.md §4.2/§4.3's description of the planner handing its output to the
// scenario executor as a textual scenario.

package scenario

import (
	"fmt"

	"websocat/internal/planner"
)

// Compile renders a [planner.Plan] as one scenario-text expression: the
// prelude actions become nested "let" bindings around a final "copy" of the
// two materialised stacks.
func Compile(p *planner.Plan) Node {
	body := Node{Kind: KindCall, Call: "copy", Opts: optBool("unidirectional", p.Unidirectional), Args: []Node{
		compileStack(p.Left),
		compileStack(p.Right),
	}}
	for i := len(p.Prelude) - 1; i >= 0; i-- {
		body = compilePrelude(p.Prelude[i], body)
	}
	return body
}

func compilePrelude(pa planner.PreparatoryAction, body Node) Node {
	switch a := pa.(type) {
	case planner.ResolveHostname:
		value := Node{Kind: KindCall, Call: "resolve_hostname", Args: []Node{
			strNode(a.Hostname), strNode(a.Port),
		}}
		return letNode(a.Var, value, body)
	case planner.CreateTLSConnector:
		value := Node{Kind: KindCall, Call: "tls_connector"}
		return letNode(a.Var, value, body)
	case planner.CreateSimpleReuserListener:
		innerExpr := compileStack(a.Inner)
		lambda := Node{Kind: KindLambda, LambdaBody: &innerExpr}
		value := Node{Kind: KindCall, Call: "simple_reuser_listener", Args: []Node{lambda}}
		return letNode(a.Var, value, body)
	default:
		return body
	}
}

func letNode(name string, value, body Node) Node {
	return Node{Kind: KindCall, Call: "let", Args: []Node{
		{Kind: KindIdent, Ident: name}, value, body,
	}}
}

func strNode(s string) Node { return Node{Kind: KindString, Str: s} }

func intNode(n int) Node { return Node{Kind: KindInt, Int: int64(n)} }

func compileStack(s *planner.Stack) Node {
	n := compileEndpoint(s.Endpoint)
	for i := len(s.Overlays) - 1; i >= 0; i-- {
		n = compileOverlay(s.Overlays[i], n)
	}
	return n
}

func compileEndpoint(ep planner.EndpointNode) Node {
	switch e := ep.(type) {
	case planner.TCPConnectByLateHostname:
		return Node{Kind: KindCall, Call: "connect_tcp", Opts: optStr("port", e.Port), Args: []Node{strNode(e.Host)}}
	case planner.TCPConnectByEarlyHostname:
		return Node{Kind: KindCall, Call: "connect_tcp", Opts: optStr("port", e.Port), Args: []Node{{Kind: KindIdent, Ident: e.Var}}}
	case planner.TCPConnectByIP:
		return Node{Kind: KindCall, Call: "connect_tcp", Opts: optStr("port", e.Port), Args: []Node{strNode(e.IP)}}
	case planner.TCPListen:
		return Node{Kind: KindCall, Call: "listen_tcp", Args: []Node{strNode(e.Addr)}}
	case planner.UDPConnect:
		return Node{Kind: KindCall, Call: "connect_udp", Args: []Node{strNode(e.Addr)}}
	case planner.UDPBind:
		return Node{Kind: KindCall, Call: "bind_udp", Args: []Node{strNode(e.Addr)}}
	case planner.UDPServer:
		opts := map[string]Node{
			"max_clients": intNode(e.MaxClients),
			"timeout_ms":  {Kind: KindInt, Int: e.TimeoutMS},
		}
		return Node{Kind: KindCall, Call: "udp_server", Opts: opts, Args: []Node{strNode(e.Addr)}}
	case planner.UnixConnect:
		return Node{Kind: KindCall, Call: "connect_unix", Args: []Node{strNode(e.Path)}}
	case planner.UnixListen:
		return Node{Kind: KindCall, Call: "listen_unix", Args: []Node{strNode(e.Path)}}
	case planner.AbstractConnect:
		return Node{Kind: KindCall, Call: "connect_abstract", Args: []Node{strNode(e.Name)}}
	case planner.SeqpacketConnect:
		return Node{Kind: KindCall, Call: "connect_seqpacket", Args: []Node{strNode(e.Path)}}
	case planner.Stdio:
		return Node{Kind: KindCall, Call: "stdio"}
	case planner.Exec:
		args := make([]Node, 0, 1+len(e.Args))
		args = append(args, strNode(e.Prog))
		for _, a := range e.Args {
			args = append(args, strNode(a))
		}
		return Node{Kind: KindCall, Call: "exec", Args: args}
	case planner.Cmd:
		return Node{Kind: KindCall, Call: "cmd", Args: []Node{strNode(e.Line)}}
	case planner.MockStreamSocket:
		return Node{Kind: KindCall, Call: "mock_stream_socket", Args: []Node{strNode(e.Script)}}
	case planner.RegistryStreamListen:
		return Node{Kind: KindCall, Call: "registry_stream_listen", Args: []Node{strNode(e.Name)}}
	case planner.RegistryStreamConnect:
		return Node{Kind: KindCall, Call: "registry_stream_connect", Args: []Node{strNode(e.Name)}}
	case planner.LiteralText:
		return Node{Kind: KindCall, Call: "literal", Args: []Node{strNode(e.Text)}}
	case planner.LiteralBase64:
		return Node{Kind: KindCall, Call: "literal_base64", Args: []Node{strNode(e.B64)}}
	case planner.ReadFile:
		return Node{Kind: KindCall, Call: "readfile", Args: []Node{strNode(e.Path)}}
	case planner.WriteFile:
		return Node{Kind: KindCall, Call: "writefile", Args: []Node{strNode(e.Path)}}
	case planner.AppendFile:
		return Node{Kind: KindCall, Call: "appendfile", Args: []Node{strNode(e.Path)}}
	case planner.Dummy:
		return Node{Kind: KindCall, Call: "dummy"}
	case planner.DevNull:
		return Node{Kind: KindCall, Call: "devnull"}
	case planner.RandomSource:
		return Node{Kind: KindCall, Call: "random"}
	case planner.ZeroSource:
		return Node{Kind: KindCall, Call: "zero"}
	case planner.AsyncFD:
		return Node{Kind: KindCall, Call: "async_fd", Args: []Node{strNode(e.N)}}
	case planner.Socks5Connect:
		opts := optStr("username", e.Username)
		opts["password"] = strNode(e.Password)
		return Node{Kind: KindCall, Call: "socks5_connect", Opts: opts, Args: []Node{strNode(e.ProxyAddr), strNode(e.Target)}}
	case *planner.SimpleReuserEndpoint:
		return Node{Kind: KindCall, Call: "simple_reuser_client", Args: []Node{{Kind: KindIdent, Ident: e.Var}}}
	default:
		return Node{Kind: KindCall, Call: "unsupported", Args: []Node{strNode(fmt.Sprintf("%T", ep))}}
	}
}

func compileOverlay(o planner.OverlayNode, inner Node) Node {
	switch v := o.(type) {
	case planner.WsUpgrade:
		opts := optStr("path", wsUpgradePath(v.URI))
		opts["host"] = strNode(v.Host)
		return Node{Kind: KindCall, Call: "ws_upgrade", Opts: opts, Args: []Node{inner}}
	case planner.WsAccept:
		return Node{Kind: KindCall, Call: "ws_accept", Args: []Node{inner}}
	case planner.WsFramer:
		return Node{Kind: KindCall, Call: "ws_wrap", Opts: optBool("client", v.ClientMode), Args: []Node{inner}}
	case planner.TlsClient:
		opts := optStr("domain", v.Domain)
		opts["insecure"] = Node{Kind: KindBool, Bool: v.Insecure}
		return Node{Kind: KindCall, Call: "tls_client", Opts: opts, Args: []Node{inner}}
	case planner.Log:
		opts := optBool("hex", v.Hex)
		opts["omit_content"] = Node{Kind: KindBool, Bool: v.OmitContent}
		return Node{Kind: KindCall, Call: "log", Opts: opts, Args: []Node{inner}}
	case planner.StreamChunksOverlay:
		return Node{Kind: KindCall, Call: "stream_chunks", Args: []Node{inner}}
	case planner.LineChunksOverlay:
		opts := map[string]Node{"substitute_space": {Kind: KindBool, Bool: v.SubstituteSpace}}
		if v.Separator != 0 {
			opts["separator"] = intNode(int(v.Separator))
		}
		return Node{Kind: KindCall, Call: "line_chunks", Opts: opts, Args: []Node{inner}}
	case planner.LengthPrefixedOverlay:
		return Node{Kind: KindCall, Call: "length_prefixed", Opts: map[string]Node{"nbytes": intNode(v.NBytes)}, Args: []Node{inner}}
	case planner.ReuseRawOverlay:
		return Node{Kind: KindCall, Call: "reuse_raw", Args: []Node{inner}}
	case planner.ReadChunkLimiterOverlay:
		return Node{Kind: KindCall, Call: "read_chunk_limiter", Opts: map[string]Node{"n": intNode(v.N)}, Args: []Node{inner}}
	case planner.WriteChunkLimiterOverlay:
		return Node{Kind: KindCall, Call: "write_chunk_limiter", Opts: map[string]Node{"n": intNode(v.N)}, Args: []Node{inner}}
	case planner.WriteBufferOverlay:
		return Node{Kind: KindCall, Call: "write_buffer", Opts: map[string]Node{"size": intNode(v.Size)}, Args: []Node{inner}}
	case planner.TeeOverlay:
		return Node{Kind: KindCall, Call: "tee", Args: []Node{inner}}
	case planner.DefragmentOverlay:
		return Node{Kind: KindCall, Call: "defragment", Args: []Node{inner}}
	case planner.FilterOverlay:
		return Node{Kind: KindCall, Call: "filter", Opts: optStr("expr", v.Expr), Args: []Node{inner}}
	case planner.WriteSplitoff:
		return Node{Kind: KindCall, Call: "write_splitoff", Args: []Node{inner, compileStack(v.Inner)}}
	default:
		return Node{Kind: KindCall, Call: "unsupported", Args: []Node{strNode(fmt.Sprintf("%T", o)), inner}}
	}
}

// wsUpgradePath extracts the request-target portion of a WsUpgrade.URI
// (authority+path, as produced by patch1URLSplit), defaulting to "/" when
// the URI carries no path component.
func wsUpgradePath(uri string) string {
	for i, c := range uri {
		if c == '/' {
			return uri[i:]
		}
	}
	return "/"
}

func optStr(k, v string) map[string]Node { return map[string]Node{k: strNode(v)} }
func optBool(k string, v bool) map[string]Node {
	return map[string]Node{k: {Kind: KindBool, Bool: v}}
}
