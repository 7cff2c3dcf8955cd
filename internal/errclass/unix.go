//go:build unix

//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: github.com/bassosimone/nop errclass/unix.go
// (itself adapted from https://github.com/rbmk-project/rbmk)
//

package errclass

import (
	"syscall"

	"golang.org/x/sys/unix"
)

const (
	errEADDRNOTAVAIL   = unix.EADDRNOTAVAIL
	errEADDRINUSE      = unix.EADDRINUSE
	errECONNABORTED    = unix.ECONNABORTED
	errECONNREFUSED    = unix.ECONNREFUSED
	errECONNRESET      = unix.ECONNRESET
	errEHOSTUNREACH    = unix.EHOSTUNREACH
	errEINVAL          = unix.EINVAL
	errEINTR           = unix.EINTR
	errENETDOWN        = unix.ENETDOWN
	errENETUNREACH     = unix.ENETUNREACH
	errENOBUFS         = unix.ENOBUFS
	errENOTCONN        = unix.ENOTCONN
	errEPROTONOSUPPORT = unix.EPROTONOSUPPORT
	errETIMEDOUT       = unix.ETIMEDOUT
)

// classifyErrno maps a raw syscall errno, as surfaced by the standard
// library's *os.SyscallError, to the platform-independent tag used by
// [New]. The unix and windows builds each hold their own constant table
// since the numeric values differ per platform; only the Go identifier
// returned is shared.
func classifyErrno(e syscall.Errno) (string, bool) {
	errno := unix.Errno(e)
	switch errno {
	case errEADDRNOTAVAIL:
		return "EADDRNOTAVAIL", true
	case errEADDRINUSE:
		return "EADDRINUSE", true
	case errECONNABORTED:
		return "ECONNABORTED", true
	case errECONNREFUSED:
		return "ECONNREFUSED", true
	case errECONNRESET:
		return "ECONNRESET", true
	case errEHOSTUNREACH:
		return "EHOSTUNREACH", true
	case errEINVAL:
		return "EINVAL", true
	case errEINTR:
		return "EINTR", true
	case errENETDOWN:
		return "ENETDOWN", true
	case errENETUNREACH:
		return "ENETUNREACH", true
	case errENOBUFS:
		return "ENOBUFS", true
	case errENOTCONN:
		return "ENOTCONN", true
	case errEPROTONOSUPPORT:
		return "EPROTONOSUPPORT", true
	case errETIMEDOUT:
		return "ETIMEDOUT", true
	default:
		return "", false
	}
}
