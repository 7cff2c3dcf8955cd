// SPDX-License-Identifier: GPL-3.0-or-later

package scenario

import (
	"websocat/internal/netcfg"
)

// NewDefaultRegistry builds the production [Registry]: every builtin a
// compiled [websocat/internal/planner.Plan] can reference, wired against
// cfg (dialer, logger, error classifier, clock).
func NewDefaultRegistry(cfg *netcfg.Config) Registry {
	b := &builtins{cfg: cfg}
	return Registry{
		"let": nil, // handled specially by Executor.evalLet, never dispatched here

		"copy": builtinCopy,

		"resolve_hostname":       b.resolveHostname,
		"tls_connector":          b.tlsConnector,
		"connect_tcp":            b.connectTCP,
		"listen_tcp":             b.listenTCP,
		"connect_udp":            b.connectUDP,
		"bind_udp":               b.bindUDP,
		"udp_server":             b.udpServer,
		"connect_unix":           b.connectUnix,
		"listen_unix":            b.listenUnix,
		"connect_abstract":       b.connectAbstract,
		"connect_seqpacket":      b.connectSeqpacket,
		"stdio":                   b.stdio,
		"exec":                    b.spawnExec,
		"cmd":                     b.spawnCmd,
		"mock_stream_socket":      b.mockStreamSocket,
		"registry_stream_listen":  b.registryStreamListen,
		"registry_stream_connect": b.registryStreamConnect,
		"literal":                 b.literal,
		"literal_base64":          b.literalBase64,
		"readfile":                b.readfile,
		"writefile":               b.writefile,
		"appendfile":              b.appendfile,
		"dummy":                   b.dummy,
		"devnull":                 b.devnull,
		"random":                  b.random,
		"zero":                    b.zero,
		"async_fd":                b.asyncFD,
		"socks5_connect":          b.socks5Connect,

		"ws_upgrade": b.wsUpgrade,
		"ws_accept":  b.wsAccept,
		"ws_wrap":    b.wsWrap,
		"tls_client": b.tlsClient,
		"log":        b.log,

		"stream_chunks":       b.streamChunks,
		"line_chunks":         b.lineChunks,
		"length_prefixed":     b.lengthPrefixed,
		"reuse_raw":           b.reuseRaw,
		"read_chunk_limiter":  b.readChunkLimiter,
		"write_chunk_limiter": b.writeChunkLimiter,
		"write_buffer":        b.writeBuffer,
		"tee":                 b.tee,
		"defragment":          b.defragment,
		"filter":              b.filter,
		"write_splitoff":      b.writeSplitoff,

		"simple_reuser_listener": b.simpleReuserListener,
		"simple_reuser_client":   b.simpleReuserClient,

		"parallel":   b.parallel,
		"sequential": b.sequential,
		"race":       b.race,
	}
}
