// SPDX-License-Identifier: GPL-3.0-or-later
//
// The websocat CLI entry point: parses flags and positional specifiers
// (spec.md §6), lowers and plans them (internal/planner), compiles the
// resulting plan to scenario text (internal/scenario), and runs it. No
// teacher equivalent exists for this binary (bassosimone-nop ships no
// cmd/ of its own); flag handling follows github.com/spf13/pflag, the
// pack's own CLI-flags dependency, in the same flat-struct-of-options
// style internal/planner.Options already uses.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"websocat/internal/compose"
	"websocat/internal/netcfg"
	"websocat/internal/planner"
	"websocat/internal/scenario"
	"websocat/internal/specifier"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cliOptions is the flat set of flags a single websocat invocation (or one
// leaf of a --compose tree, spec.md §4.12) accepts.
type cliOptions struct {
	binary, text                      bool
	server                             bool
	unidirectional                     bool
	oneshot                            bool // listen_tcp/listen_unix/udp_server already serve exactly one session
	exitAfterOneSession                bool // process always exits when the root copy task completes
	lateResolve                        bool
	insecure                           bool
	tlsDomain                          string
	wsCURI                             string
	separator                          int
	separatorInhibitSubstitution       bool
	readBufferLimit, writeBufferLimit  int
	logTraffic, logVerbose             bool
	logOmitContent, logHex             bool
	udpMaxClients                      int
	udpTimeoutMS                       int64
	execArgs                           []string
	compose                            bool
	dumpSpec, dumpPhase0, dumpPhase1   bool
	dumpPhase2                         bool
	scenarioFile                       string
	stdoutAnnounceListeningPorts       bool
	globalTimeoutMS                    int64
}

// newFlagSet builds a fresh, independently-parseable flag set: used both
// for the top-level invocation and for each leaf of a --compose tree,
// since spec.md §8's compose example gives each sub-invocation its own
// "-bu"/"--oneshot" flags.
func newFlagSet(name string) (*pflag.FlagSet, *cliOptions) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	// Options precede positionals only (spec.md §6: "websocat [opts]
	// <spec1> [<spec2>]"), never interspersed. This alone does not keep a
	// --compose token stream's per-invocation "-bu" flags away from the
	// outer flag set; splitComposeTokens removes that stream before Parse.
	fs.SetInterspersed(false)
	o := &cliOptions{}

	fs.BoolVarP(&o.binary, "binary", "b", false, "treat the pipeline as a raw byte stream")
	fs.BoolVarP(&o.text, "text", "t", false, "treat the pipeline as newline-delimited text messages")
	fs.BoolVarP(&o.server, "server", "s", false, "shorthand: default the missing specifier to stdio")
	fs.BoolVarP(&o.unidirectional, "unidirectional", "u", false, "copy only left-to-right")
	fs.BoolVar(&o.oneshot, "oneshot", false, "serve exactly one session then stop listening")
	fs.BoolVar(&o.exitAfterOneSession, "exit-after-one-session", false, "exit the process once the root copy task completes")
	fs.BoolVar(&o.lateResolve, "late-resolve", false, "skip hostname pre-resolution; resolve when connecting")
	fs.BoolVarP(&o.insecure, "insecure", "k", false, "skip TLS certificate verification")
	fs.StringVar(&o.tlsDomain, "tls-domain", "", "override the TLS SNI/verification domain")
	fs.StringVar(&o.wsCURI, "ws-c-uri", "", "override the ws-c: overlay's request URI")
	fs.IntVar(&o.separator, "separator", 0, "line_chunks: delimiter byte (default '\\n')")
	fs.BoolVar(&o.separatorInhibitSubstitution, "separator-inhibit-substitution", false, "line_chunks: don't escape an in-payload separator byte")
	fs.IntVar(&o.readBufferLimit, "read-buffer-limit", 0, "default size for an unsized read_chunk_limiter: overlay")
	fs.IntVar(&o.writeBufferLimit, "write-buffer-limit", 0, "default size for an unsized write_chunk_limiter:/write_buffer: overlay")
	fs.BoolVar(&o.logTraffic, "log-traffic", false, "log a line per datagram/chunk")
	fs.BoolVar(&o.logVerbose, "log-verbose", false, "raise the logger to Debug level")
	fs.BoolVar(&o.logOmitContent, "log-omit-content", false, "log: omit the payload itself")
	fs.BoolVar(&o.logHex, "log-hex", false, "log: render the payload as hex instead of a string")
	fs.IntVar(&o.udpMaxClients, "udp-max-clients", 0, "udp-server: LRU peer table capacity")
	fs.Int64Var(&o.udpTimeoutMS, "udp-timeout-ms", 0, "udp-server: per-peer idle eviction timeout")
	fs.StringArrayVar(&o.execArgs, "exec-args", nil, "extra argv appended to an exec: endpoint (repeatable)")
	fs.BoolVar(&o.compose, "compose", false, "parse the remaining arguments as a --compose expression")
	fs.BoolVar(&o.dumpSpec, "dump-spec", false, "print the final scenario text and exit without running it")
	fs.BoolVar(&o.dumpPhase0, "dump-spec-phase0", false, "print the post-parse specifier stacks and exit")
	fs.BoolVar(&o.dumpPhase1, "dump-spec-phase1", false, "print the post-patch planner IR and exit")
	fs.BoolVar(&o.dumpPhase2, "dump-spec-phase2", false, "print the final scenario text and exit (same as --dump-spec)")
	fs.StringVarP(&o.scenarioFile, "scenario", "x", "", "run a scenario file directly, bypassing the specifier/planner stage")
	fs.BoolVar(&o.stdoutAnnounceListeningPorts, "stdout-announce-listening-ports", false, "print \"LISTEN proto=...,port=N\" once a listener is ready")
	fs.Int64Var(&o.globalTimeoutMS, "global-timeout-ms", 0, "abort the process after this many milliseconds")

	return fs, o
}

// splitComposeTokens finds a bare "--compose" token in argv and splits it
// into the prefix pflag should parse (global flags only: --dump-spec,
// --scenario, --global-timeout-ms, ...) and the raw token list that follows,
// which internal/compose.Parse owns entirely.
func splitComposeTokens(argv []string) (parseArgv, composeTokens []string, isCompose bool) {
	for i, a := range argv {
		if a == "--compose" {
			return argv[:i], argv[i+1:], true
		}
	}
	return argv, nil, false
}

func run(argv []string, stdout, stderr io.Writer) int {
	// --compose's own argument grammar (operators, nested -bu/--oneshot
	// per sub-invocation) must never be re-interpreted by the outer flag
	// set, so everything from a bare "--compose" token onward is carved
	// out before pflag ever sees it.
	parseArgv, composeTokens, isCompose := splitComposeTokens(argv)

	fs, opts := newFlagSet("websocat")
	fs.SetOutput(stderr)
	if err := fs.Parse(parseArgv); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}
	opts.compose = isCompose
	positional := fs.Args()
	if isCompose {
		positional = composeTokens
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if opts.globalTimeoutMS > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, time.Duration(opts.globalTimeoutMS)*time.Millisecond)
		defer timeoutCancel()
	}

	logger := newLogger(stderr, opts.logVerbose)
	cfg := netcfg.NewConfig()
	cfg.Logger = logger
	cfg.AnnounceListeningPorts = opts.stdoutAnnounceListeningPorts

	if opts.scenarioFile != "" {
		return runScenarioFile(ctx, cfg, opts.scenarioFile, stdout, stderr)
	}

	var root scenario.Node
	if opts.compose {
		tree, err := compose.Parse(positional)
		if err != nil {
			fmt.Fprintf(stderr, "error: %s\n", err)
			return 1
		}
		root, err = compose.Compile(tree, compileComposeLeaf)
		if err != nil {
			fmt.Fprintf(stderr, "error: %s\n", err)
			return 1
		}
	} else {
		specs := withServerShorthand(opts, positional)
		if len(specs) != 2 {
			fmt.Fprintf(stderr, "error: websocat: expected 2 specifiers, got %d\n", len(specs))
			return 1
		}

		leftSpec, rightSpec, err := parseSpecifiers(specs)
		if err != nil {
			fmt.Fprintf(stderr, "error: %s\n", err)
			return 1
		}
		if opts.dumpPhase0 {
			fmt.Fprintf(stdout, "%+v\n%+v\n", leftSpec, rightSpec)
			return 0
		}

		plan, err := buildPlan(opts, leftSpec, rightSpec)
		if err != nil {
			fmt.Fprintf(stderr, "error: %s\n", err)
			return 1
		}
		if opts.dumpPhase1 {
			fmt.Fprintf(stdout, "%#v\n", plan)
			return 0
		}

		root = scenario.Compile(plan)
	}

	if opts.dumpSpec || opts.dumpPhase2 {
		fmt.Fprintln(stdout, scenario.Print(root))
		return 0
	}

	reg := scenario.NewDefaultRegistry(cfg)
	if err := scenario.Run(ctx, reg, root); err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}
	return 0
}

// compileComposeLeaf parses and plans one leaf invocation of a --compose
// tree independently, reusing the exact same flag set and compile path as
// a standalone run (spec.md §8: each sub-invocation carries its own flags).
func compileComposeLeaf(argv []string) (scenario.Node, error) {
	fs, opts := newFlagSet("websocat")
	fs.SetOutput(nil)
	if err := fs.Parse(argv); err != nil {
		return scenario.Node{}, err
	}
	specs := withServerShorthand(opts, fs.Args())
	if len(specs) != 2 {
		return scenario.Node{}, fmt.Errorf("websocat: expected 2 specifiers, got %d", len(specs))
	}
	leftSpec, rightSpec, err := parseSpecifiers(specs)
	if err != nil {
		return scenario.Node{}, err
	}
	plan, err := buildPlan(opts, leftSpec, rightSpec)
	if err != nil {
		return scenario.Node{}, err
	}
	return scenario.Compile(plan), nil
}

// parseSpecifiers parses both positional specifiers of one invocation.
func parseSpecifiers(specs []string) (left, right *specifier.Stack, err error) {
	left, err = specifier.Parse(specs[0])
	if err != nil {
		return nil, nil, fmt.Errorf("parse: %w", err)
	}
	right, err = specifier.Parse(specs[1])
	if err != nil {
		return nil, nil, fmt.Errorf("parse: %w", err)
	}
	return left, right, nil
}

// buildPlan lowers both parsed specifiers and runs the planner's patch
// pipeline plus every CLI-flag post-processing step that sits outside it.
func buildPlan(opts *cliOptions, leftSpec, rightSpec *specifier.Stack) (*planner.Plan, error) {
	left, err := planner.Lower(leftSpec)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	right, err := planner.Lower(rightSpec)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	plannerOpts := planner.Options{
		LateResolve:    opts.lateResolve,
		TLSDomain:      opts.tlsDomain,
		Insecure:       opts.insecure,
		LogTraffic:     opts.logTraffic,
		LogHex:         opts.logHex,
		LogOmitContent: opts.logOmitContent,
		Binary:         opts.binary,
		Text:           opts.text,
		WsCURI:         opts.wsCURI,
		Unidirectional: opts.unidirectional,
	}
	plan, err := planner.Build(left, right, plannerOpts)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	if len(opts.execArgs) > 0 {
		planner.ApplyExecArgs(plan, opts.execArgs)
	}
	sep := byte(0)
	if opts.separator > 0 {
		sep = byte(opts.separator)
	}
	planner.ApplyLineChunksConfig(plan, sep, !opts.separatorInhibitSubstitution)
	planner.ApplyBufferLimits(plan, opts.readBufferLimit, opts.writeBufferLimit)
	planner.ApplyUDPServerConfig(plan, opts.udpMaxClients, opts.udpTimeoutMS)

	return plan, nil
}

// withServerShorthand fills in a missing second specifier with "-" (stdio)
// when --server/-s is given with exactly one positional specifier: the
// CLI's "serve this one thing over stdio" convenience.
func withServerShorthand(opts *cliOptions, positional []string) []string {
	if opts.server && len(positional) == 1 {
		return []string{positional[0], "-"}
	}
	return positional
}

func runScenarioFile(ctx context.Context, cfg *netcfg.Config, path string, stdout, stderr io.Writer) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}
	root, err := scenario.Parse(string(src))
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}
	reg := scenario.NewDefaultRegistry(cfg)
	if err := scenario.Run(ctx, reg, root); err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}
	return 0
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
