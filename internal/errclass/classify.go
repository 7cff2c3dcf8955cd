// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: github.com/bassosimone/nop errclassifier.go and its dead
// local errclass/ subpackage (unix.go, windows.go carried the per-OS errno
// tables but the module never actually defined a classify function on top
// of them, nor imported the package anywhere). New is that missing piece,
// wired in as [websocat/internal/netcfg]'s default ErrClassifier (which
// [websocat/internal/transport] uses) and called directly by
// [websocat/internal/copyengine], so the errClass field of every connectDone/readDone/writeDone span is
// populated instead of always empty.

package errclass

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"syscall"
)

// New classifies err into a short, stable tag suitable for a structured log
// field or a metrics label. It returns "" for a nil error and "unknown" for
// an error it does not recognize, never the raw (locale- and
// platform-dependent) error string.
func New(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return "eof"
	case errors.Is(err, net.ErrClosed):
		return "closed"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsTimeout:
			return "dns_timeout"
		case dnsErr.IsNotFound:
			return "dns_not_found"
		default:
			return "dns_error"
		}
	}

	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return "tls_bad_hostname"
	}
	var unknownAuthorityErr x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthorityErr) {
		return "tls_unknown_authority"
	}
	var certInvalidErr x509.CertificateInvalidError
	if errors.As(err, &certInvalidErr) {
		return "tls_certificate_invalid"
	}
	var recordHdrErr tls.RecordHeaderError
	if errors.As(err, &recordHdrErr) {
		return "tls_record_header"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if tag, ok := classifyErrno(errno); ok {
			return tag
		}
		return "errno"
	}

	return "unknown"
}
