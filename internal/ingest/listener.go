// Package ingest owns the UDP socket and drives the engine from it.
// Journey logic lives in the service package; this package only receives,
// decodes, timestamps and hands messages over, one at a time.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Defaults for Config fields left zero.
const (
	DefaultAddr           = "0.0.0.0:12345"
	DefaultBufferSize     = 1024
	DefaultReceiveTimeout = 2 * time.Second
)

// State is the lifecycle state of a Listener.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Processor is the part of the engine the listener feeds.
// *service.Engine satisfies it.
type Processor interface {
	IngestAt(ctx context.Context, at time.Time, message string) error
	Drain(ctx context.Context) error
}

// Config controls the socket and the stop behaviour.
type Config struct {
	// Addr is the UDP host:port bound when no connection is supplied.
	Addr string
	// BufferSize is the largest payload read; longer datagrams are truncated.
	BufferSize int
	// ReceiveTimeout bounds each read so Stop is seen without traffic.
	ReceiveTimeout time.Duration
	// AutoSave finalizes every open journey when the loop ends.
	AutoSave bool
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.ReceiveTimeout <= 0 {
		c.ReceiveTimeout = DefaultReceiveTimeout
	}
	return c
}

// Listener runs the receive loop on its own goroutine.
// Start and Stop may be called from any goroutine.
type Listener struct {
	cfg  Config
	proc Processor
	log  *slog.Logger
	now  func() time.Time

	state atomic.Int32
	stop  atomic.Bool

	mu   sync.Mutex // guards conn, done, err
	conn net.PacketConn
	done chan struct{}
	err  error
}

// Option customises a Listener at construction.
type Option func(*Listener)

// WithConn supplies an already bound connection. It is closed when the loop
// ends; a later Start binds Config.Addr.
func WithConn(conn net.PacketConn) Option {
	return func(l *Listener) { l.conn = conn }
}

// WithLogger sets the logger used for listener diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(l *Listener) { l.log = log }
}

// WithClock replaces time.Now for stamping received messages.
func WithClock(now func() time.Time) Option {
	return func(l *Listener) { l.now = now }
}

// New constructs an idle Listener feeding proc.
func New(cfg Config, proc Processor, opts ...Option) *Listener {
	l := &Listener{
		cfg:  cfg.withDefaults(),
		proc: proc,
		log:  slog.Default(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	closed := make(chan struct{})
	close(closed)
	l.done = closed
	return l
}

// State returns the current lifecycle state.
func (l *Listener) State() State {
	return State(l.state.Load())
}

// Start moves the listener from Idle to Listening, binding Config.Addr if no
// connection was supplied, and starts the receive loop. Calling Start while
// not Idle logs a warning and does nothing. Cancelling ctx has the same
// effect as Stop.
func (l *Listener) Start(ctx context.Context) error {
	if !l.state.CompareAndSwap(int32(StateIdle), int32(StateListening)) {
		l.log.Warn("already listening", "addr", l.Addr())
		return nil
	}

	l.mu.Lock()
	if l.conn == nil {
		conn, err := net.ListenPacket("udp", l.cfg.Addr)
		if err != nil {
			l.stop.Store(false)
			l.state.Store(int32(StateIdle))
			l.mu.Unlock()
			return fmt.Errorf("ingest.Listener.Start: %w", err)
		}
		l.conn = conn
	}
	conn := l.conn
	done := make(chan struct{})
	l.done = done
	l.err = nil
	l.mu.Unlock()

	l.log.Info("listening for UDP messages", "addr", conn.LocalAddr().String())
	go l.run(ctx, conn, done)
	return nil
}

// Stop asks the receive loop to end. It returns immediately; wait on Done
// to know when open journeys are saved. Calling Stop while not listening
// logs a warning and does nothing.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	// run clears the flag and goes Idle under mu, so a Stop that sees
	// Listening here always lands on the current run.
	if l.State() != StateListening {
		l.log.Warn("not currently listening")
		return
	}
	l.stop.Store(true)
}

// Done returns a channel closed when the current run has fully stopped,
// including the auto-save drain. Before the first Start it is already closed.
func (l *Listener) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Err returns the error that ended the last run, or nil after a clean stop.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Addr returns the bound address while a connection is open, Config.Addr otherwise.
func (l *Listener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return l.conn.LocalAddr().String()
	}
	return l.cfg.Addr
}

func (l *Listener) run(ctx context.Context, conn net.PacketConn, done chan struct{}) {
	defer close(done)

	addr := conn.LocalAddr().String()
	buf := make([]byte, l.cfg.BufferSize)
	for !l.stop.Load() && ctx.Err() == nil {
		if err := l.receive(ctx, conn, buf); err != nil {
			l.log.Error("listener terminated", "addr", addr, "error", err)
			l.fail(err)
			l.stop.Store(true)
		}
	}

	l.state.Store(int32(StateStopping))
	l.closeConn()

	if l.cfg.AutoSave {
		l.log.Info("saving open journeys")
		// The drain must finish even when ctx was what stopped the loop.
		if err := l.proc.Drain(context.WithoutCancel(ctx)); err != nil {
			l.log.Error("saving open journeys failed", "error", err)
			l.fail(err)
		}
	}

	l.mu.Lock()
	l.stop.Store(false)
	l.state.Store(int32(StateIdle))
	l.mu.Unlock()
	l.log.Info("no longer listening for UDP messages", "addr", addr)
}

// receive waits at most ReceiveTimeout for one datagram and processes it.
// A timeout is not an error.
func (l *Listener) receive(ctx context.Context, conn net.PacketConn, buf []byte) error {
	if err := conn.SetReadDeadline(time.Now().Add(l.cfg.ReceiveTimeout)); err != nil {
		return fmt.Errorf("ingest.Listener: set deadline: %w", err)
	}

	n, from, err := conn.ReadFrom(buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil
		}
		return fmt.Errorf("ingest.Listener: read: %w", err)
	}

	message, err := DecodeASCII(buf[:n])
	if err != nil {
		return fmt.Errorf("ingest.Listener: decode from %s: %w", from, err)
	}

	at := l.now()
	l.log.Info("received message", "from", from.String(), "message", message)

	// Once received, a message is processed to completion.
	if err := l.proc.IngestAt(context.WithoutCancel(ctx), at, message); err != nil {
		return fmt.Errorf("ingest.Listener: process: %w", err)
	}
	return nil
}

func (l *Listener) closeConn() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return
	}
	if err := l.conn.Close(); err != nil {
		l.log.Warn("could not close udp socket", "error", err)
	}
	l.conn = nil
}

func (l *Listener) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = errors.Join(l.err, err)
}
