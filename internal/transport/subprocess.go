// SPDX-License-Identifier: GPL-3.0-or-later
//
// New: the exec:/cmd: endpoints (spec.md §6), thin per spec.md §1's
// explicit collaborator list ("subprocess spawn"). Stdin/stdout pipes of a
// spawned process are synchronous os.File pipes, so both halves go through
// [websocat/internal/gateway] exactly like stdio.go.

package transport

import (
	"context"
	"os/exec"

	"websocat/internal/core"
	"websocat/internal/gateway"
)

// SpawnFunc starts a subprocess and wires its stdin/stdout as a
// [core.StreamSocket].
type SpawnFunc struct {
	// Shell, when true, runs argv via "/bin/sh -c" (the `cmd:` form);
	// when false argv is executed directly (the `exec:` form).
	Shell bool
}

// Call spawns program with args (or, if op.Shell, a single shell command
// line) and returns a socket wired to its stdin/stdout through the gateway.
func (op *SpawnFunc) Call(ctx context.Context, program string, args []string) (*core.StreamSocket, error) {
	var cmd *exec.Cmd
	if op.Shell {
		cmd = exec.CommandContext(ctx, "/bin/sh", "-c", program)
	} else {
		cmd = exec.CommandContext(ctx, program, args...)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &core.StreamSocket{
		Read:  &core.StreamRead{Reader: gateway.WrapReader(stdout)},
		Write: &core.StreamWrite{Writer: gateway.WrapWriter(stdin)},
		Hangup: core.HangupFunc(func(context.Context) error {
			return cmd.Wait()
		}),
		FD: -1,
	}, nil
}
