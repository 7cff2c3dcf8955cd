// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDumpSpecPrintsScenarioText(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-b", "--dump-spec", "mock_stream_socket:R ABC", "mock_stream_socket:W ABC"}, &stdout, &stderr)

	require.Equal(t, 0, code)
	assert.Empty(t, stderr.String())
	assert.Contains(t, stdout.String(), "mock_stream_socket")
	assert.Contains(t, stdout.String(), "copy")
}

func TestRunDumpSpecPhase0PrintsParsedStacks(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--dump-spec-phase0", "tcp:example.com:80", "-"}, &stdout, &stderr)

	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "tcp")
}

func TestRunDumpSpecPhase1PrintsPlannerIR(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--dump-spec-phase1", "tcp:example.com:80", "-"}, &stdout, &stderr)

	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "Plan")
}

func TestRunRejectsWrongSpecifierCount(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"mock_stream_socket:R ABC"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "error:")
}

func TestRunServerShorthandDefaultsSecondSpecifierToStdio(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-s", "--dump-spec", "tcp-listen:127.0.0.1:0"}, &stdout, &stderr)

	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "stdio")
}

func TestRunUnidirectionalThreadsIntoCompiledCopyCall(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-u", "--dump-spec", "mock_stream_socket:R ABC", "mock_stream_socket:W ABC"}, &stdout, &stderr)

	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "unidirectional")
}

func TestRunComposeParsesAndCompilesTree(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{
		"--dump-spec", "--compose",
		"-bu", "mock_stream_socket:R ABC", "registry-stream-connect:q",
		"&",
		"-bu", "--oneshot", "registry-stream-listen:q", "mock_stream_socket:W ABC",
	}, &stdout, &stderr)

	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "parallel")
}

func TestRunComposeRejectsMixedOperatorsWithoutParens(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{
		"--compose",
		"-b", "mock_stream_socket:R A", "mock_stream_socket:W A",
		"&",
		"-b", "mock_stream_socket:R B", "mock_stream_socket:W B",
		";",
		"-b", "mock_stream_socket:R C", "mock_stream_socket:W C",
	}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.True(t, strings.Contains(stderr.String(), "parentheses"))
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--not-a-real-flag"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
}

func TestWithServerShorthandLeavesTwoSpecifiersAlone(t *testing.T) {
	opts := &cliOptions{server: true}
	got := withServerShorthand(opts, []string{"tcp:a:1", "tcp:b:2"})
	assert.Equal(t, []string{"tcp:a:1", "tcp:b:2"}, got)
}

func TestWithServerShorthandAppendsStdioForOneSpecifier(t *testing.T) {
	opts := &cliOptions{server: true}
	got := withServerShorthand(opts, []string{"tcp-listen:127.0.0.1:0"})
	assert.Equal(t, []string{"tcp-listen:127.0.0.1:0", "-"}, got)
}

func TestWithServerShorthandNoOpWithoutServerFlag(t *testing.T) {
	opts := &cliOptions{server: false}
	got := withServerShorthand(opts, []string{"tcp-listen:127.0.0.1:0"})
	assert.Equal(t, []string{"tcp-listen:127.0.0.1:0"}, got)
}
