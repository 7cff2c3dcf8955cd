// SPDX-License-Identifier: GPL-3.0-or-later
//
// mock_stream_socket: endpoint, SPEC_FULL.md §C.8 — a scripted peer for
// exercising overlays in tests without touching the network. Grounded on
// spec.md §8's seeded-scenario testing model; the net.Pipe()-backed
// in-process rendezvous follows the same pattern as
// internal/transport/registry.go.

package scenario

import (
	"io"
	"net"
	"strconv"
	"strings"

	"websocat/internal/core"
)

// newMockStreamSocket returns a *core.StreamSocket whose peer plays back
// script: a ';'-separated sequence of "send TEXT", "recv N", or "close"
// commands, run against the hidden remote half of an in-process pipe.
func newMockStreamSocket(script string) *core.StreamSocket {
	client, remote := net.Pipe()
	go playScript(remote, script)
	return streamSocketFromConn(client)
}

func playScript(remote net.Conn, script string) {
	defer remote.Close()
	for _, raw := range strings.Split(script, ";") {
		cmd := strings.Fields(strings.TrimSpace(raw))
		if len(cmd) == 0 {
			continue
		}
		switch cmd[0] {
		case "send":
			remote.Write([]byte(strings.Join(cmd[1:], " ")))
		case "recv":
			if len(cmd) < 2 {
				continue
			}
			n, err := strconv.Atoi(cmd[1])
			if err != nil {
				continue
			}
			io.CopyN(io.Discard, remote, int64(n))
		case "close":
			return
		}
	}
}
