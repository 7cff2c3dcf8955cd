// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/src/scenario_executor/udpserver.rs
// (LRU peer table, per-peer channel + hangup-monitor task, defragmenting
// UdpSend sink). Backs the udp_server builtin, spec.md §4.9. The LRU
// itself is github.com/hashicorp/golang-lru/v2, the pack's LRU dependency
// (bassosimone-nop does not need one; lru is pulled in for this leaf
// specifically, see DESIGN.md).

package udpserver

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"websocat/internal/core"
)

// Config controls [Serve]'s peer-table policy.
type Config struct {
	MaxClients        int
	QueueLen          int
	TimeoutMS         int64 // 0 disables idle eviction
	Backpressure      bool  // block on a full peer queue instead of dropping
	InhibitSendErrors bool  // swallow per-peer send errors instead of aborting the session
	Logger            interestedLogger
}

type interestedLogger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Continuation is invoked once per newly observed peer address with a
// [*core.DatagramSocket] scoped to that peer's session.
type Continuation func(ctx context.Context, peer *net.UDPAddr, socket *core.DatagramSocket)

const vacuumEvery = 1024

// Serve demultiplexes datagrams arriving on conn by peer address, spawning
// one session (and invoking cont) per newly observed peer, until a read
// error occurs (e.g. conn is closed). Canceling ctx ends Serve only while it
// waits on a full peer queue with Backpressure set.
func Serve(ctx context.Context, conn *net.UDPConn, cfg Config, cont Continuation) error {
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	if cfg.QueueLen <= 0 {
		cfg.QueueLen = 64
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = 4096
	}

	cache, err := lru.NewWithEvict[string, *session](cfg.MaxClients, func(key string, s *session) {
		s.terminate()
	})
	if err != nil {
		return err
	}

	buf := make([]byte, 64*1024)
	additions := 0
	for {
		n, addr, rerr := conn.ReadFromUDP(buf)
		if rerr != nil {
			return rerr
		}
		key := addr.String()

		sess, ok := cache.Get(key)
		if !ok {
			sess = newSession(addr, conn, cfg)
			cache.Add(key, sess)
			additions++
			go sess.monitor(ctx, cfg.TimeoutMS)
			go cont(ctx, addr, sess.socket)
			if additions%vacuumEvery == 0 {
				vacuum(cache)
			}
		}
		sess.refreshDeadline(cfg.TimeoutMS)

		payload := append([]byte(nil), buf[:n]...)
		if cfg.Backpressure {
			select {
			case sess.inbound <- payload:
			case <-ctx.Done():
				return ctx.Err()
			}
		} else {
			select {
			case sess.inbound <- payload:
			default:
				cfg.Logger.Warn("udpServerDrop", slog.String("peer", key), slog.Int("n", n))
			}
		}
	}
}

func vacuum(cache *lru.Cache[string, *session]) {
	for _, key := range cache.Keys() {
		if s, ok := cache.Peek(key); ok && s.isDead() {
			cache.Remove(key)
		}
	}
}

type session struct {
	addr     *net.UDPAddr
	conn     *net.UDPConn
	cfg      Config
	inbound  chan []byte
	removed  chan struct{}
	refresh  chan struct{}
	removeMu sync.Once
	socket   *core.DatagramSocket

	deadlineMu sync.Mutex
	deadline   time.Time

	dead atomic.Bool

	sendMu  sync.Mutex
	pending []byte
}

func newSession(addr *net.UDPAddr, conn *net.UDPConn, cfg Config) *session {
	s := &session{
		addr:    addr,
		conn:    conn,
		cfg:     cfg,
		inbound: make(chan []byte, cfg.QueueLen),
		removed: make(chan struct{}),
		refresh: make(chan struct{}, 1),
	}
	s.socket = &core.DatagramSocket{
		Read:  &core.DatagramRead{Src: core.PacketReadFunc(s.read)},
		Write: &core.DatagramWrite{Snk: core.PacketWriteFunc(s.write)},
		FD:    -1,
	}
	return s
}

func (s *session) read(ctx context.Context, buf []byte) (core.PacketReadResult, error) {
	select {
	case payload, ok := <-s.inbound:
		if !ok {
			return core.PacketReadResult{Flags: core.BufferFlags(0).With(core.FlagEof)}, nil
		}
		n := copy(buf, payload)
		return core.PacketReadResult{Length: n}, nil
	case <-s.removed:
		return core.PacketReadResult{Flags: core.BufferFlags(0).With(core.FlagEof)}, nil
	case <-ctx.Done():
		return core.PacketReadResult{}, ctx.Err()
	}
}

// write implements the session's UdpSend sink: defragment NonFinalChunk
// fragments, then issue exactly one sendto per logical message.
func (s *session) write(ctx context.Context, buf []byte, flags core.BufferFlags) error {
	s.sendMu.Lock()
	s.pending = append(s.pending, buf...)
	if flags.Has(core.FlagNonFinalChunk) {
		s.sendMu.Unlock()
		return nil
	}
	payload := s.pending
	s.pending = nil
	s.sendMu.Unlock()

	n, err := s.conn.WriteToUDP(payload, s.addr)
	if err != nil {
		if s.cfg.InhibitSendErrors {
			s.cfg.Logger.Warn("udpServerSendError", slog.String("peer", s.addr.String()), slog.Any("err", err))
			return nil
		}
		return err
	}
	if n != len(payload) {
		s.cfg.Logger.Warn("udpServerShortWrite", slog.String("peer", s.addr.String()), slog.Int("want", len(payload)), slog.Int("got", n))
	}
	return nil
}

func (s *session) refreshDeadline(timeoutMS int64) {
	if timeoutMS <= 0 {
		return
	}
	s.deadlineMu.Lock()
	s.deadline = time.Now().Add(time.Duration(timeoutMS) * time.Millisecond)
	s.deadlineMu.Unlock()
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

func (s *session) remaining() time.Duration {
	s.deadlineMu.Lock()
	defer s.deadlineMu.Unlock()
	return time.Until(s.deadline)
}

// monitor resolves the session when its idle deadline expires or it is
// explicitly terminated (e.g. by LRU eviction).
func (s *session) monitor(ctx context.Context, timeoutMS int64) {
	if timeoutMS <= 0 {
		select {
		case <-ctx.Done():
		case <-s.removed:
		}
		return
	}
	timer := time.NewTimer(s.remaining())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.removed:
			return
		case <-s.refresh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.remaining())
		case <-timer.C:
			s.terminate()
			return
		}
	}
}

func (s *session) terminate() {
	s.removeMu.Do(func() {
		s.dead.Store(true)
		close(s.removed)
	})
}

func (s *session) isDead() bool {
	return s.dead.Load()
}
