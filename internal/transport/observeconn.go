// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: github.com/bassosimone/nop observeconn.go
//
// Backs the byte-stream side of the Log{datagram_mode} overlay (spec.md
// §4.2 patch 6, --log-traffic/--log-verbose). See logoverlay.go for the
// datagram_mode=true counterpart and the --log-traffic content field.

package transport

import (
	"net"
	"sync"
	"time"

	"github.com/bassosimone/safeconn"

	"log/slog"

	"websocat/internal/logging"
	"websocat/internal/netcfg"
)

// NewObserveConnFunc returns a [*ObserveConnFunc] wired from cfg.
func NewObserveConnFunc(cfg *netcfg.Config) *ObserveConnFunc {
	return &ObserveConnFunc{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        cfg.Logger,
		TimeNow:       cfg.TimeNow,
	}
}

// ObserveConnFunc wraps a [net.Conn] to log every I/O operation.
type ObserveConnFunc struct {
	ErrClassifier netcfg.ErrClassifier
	Logger        interestedLogger
	TimeNow       func() time.Time
}

// Call wraps conn; the wrapper logs closeStart/closeDone at Info and
// read/write/deadline events at Debug.
func (op *ObserveConnFunc) Call(conn net.Conn) net.Conn {
	return &observedConn{
		conn:     conn,
		laddr:    safeconn.LocalAddr(conn),
		op:       op,
		protocol: safeconn.Network(conn),
		raddr:    safeconn.RemoteAddr(conn),
	}
}

type observedConn struct {
	closeonce sync.Once
	conn      net.Conn
	laddr     string
	op        *ObserveConnFunc
	protocol  string
	raddr     string
}

func (c *observedConn) Close() (err error) {
	err = net.ErrClosed
	c.closeonce.Do(func() {
		span := logging.NewSpanID()
		t0 := c.op.TimeNow()
		c.op.Logger.Info("closeStart", slog.String("localAddr", c.laddr), slog.String("protocol", c.protocol), slog.String("remoteAddr", c.raddr), slog.String("span", span), slog.Time("t", t0))
		err = c.conn.Close()
		c.op.Logger.Info(
			"closeDone",
			slog.Any("err", err),
			slog.String("errClass", c.op.ErrClassifier.Classify(err)),
			slog.String("localAddr", c.laddr),
			slog.String("protocol", c.protocol),
			slog.String("remoteAddr", c.raddr),
			slog.String("span", span),
			slog.Time("t0", t0),
			slog.Time("t", c.op.TimeNow()),
		)
	})
	return
}

func (c *observedConn) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *observedConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *observedConn) Read(buf []byte) (int, error) {
	span := logging.NewSpanID()
	t0 := c.op.TimeNow()
	c.op.Logger.Debug("readStart", slog.Int("ioBufferSize", len(buf)), slog.String("localAddr", c.laddr), slog.String("remoteAddr", c.raddr), slog.String("span", span), slog.Time("t", t0))
	n, err := c.conn.Read(buf)
	c.op.Logger.Debug(
		"readDone",
		slog.Int("ioBytesCount", n),
		slog.Any("err", err),
		slog.String("errClass", c.op.ErrClassifier.Classify(err)),
		slog.String("localAddr", c.laddr),
		slog.String("remoteAddr", c.raddr),
		slog.String("span", span),
		slog.Time("t0", t0),
		slog.Time("t", c.op.TimeNow()),
	)
	return n, err
}

func (c *observedConn) Write(data []byte) (int, error) {
	span := logging.NewSpanID()
	t0 := c.op.TimeNow()
	c.op.Logger.Debug("writeStart", slog.Int("ioBufferSize", len(data)), slog.String("localAddr", c.laddr), slog.String("remoteAddr", c.raddr), slog.String("span", span), slog.Time("t", t0))
	n, err := c.conn.Write(data)
	c.op.Logger.Debug(
		"writeDone",
		slog.Int("ioBytesCount", n),
		slog.Any("err", err),
		slog.String("errClass", c.op.ErrClassifier.Classify(err)),
		slog.String("localAddr", c.laddr),
		slog.String("remoteAddr", c.raddr),
		slog.String("span", span),
		slog.Time("t0", t0),
		slog.Time("t", c.op.TimeNow()),
	)
	return n, err
}

func (c *observedConn) SetDeadline(t time.Time) error {
	c.op.Logger.Debug("setDeadline", slog.Time("deadline", t), slog.String("localAddr", c.laddr), slog.Time("t", c.op.TimeNow()))
	return c.conn.SetDeadline(t)
}

func (c *observedConn) SetReadDeadline(t time.Time) error {
	c.op.Logger.Debug("setReadDeadline", slog.Time("deadline", t), slog.String("localAddr", c.laddr), slog.Time("t", c.op.TimeNow()))
	return c.conn.SetReadDeadline(t)
}

func (c *observedConn) SetWriteDeadline(t time.Time) error {
	c.op.Logger.Debug("setWriteDeadline", slog.Time("deadline", t), slog.String("localAddr", c.laddr), slog.Time("t", c.op.TimeNow()))
	return c.conn.SetWriteDeadline(t)
}
