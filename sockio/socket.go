package sockio

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// State describes the connection as observed at the time of the call.
type State uint8

const (
	// StateDisconnected indicates no connection handle is held.
	StateDisconnected State = iota

	// StateConnected indicates a live connection.
	StateConnected

	// StateEOF indicates a handle is held but the peer closed the stream.
	StateEOF
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnected:
		return "CONNECTED"
	case StateEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Socket is a TCP client endpoint that reconnects on demand and runs one
// operation at a time.
//
// Every I/O method acquires the socket's gate for its whole duration. If
// auto-reconnect is enabled and the connection is down when the gate is
// acquired, a new connection is opened before the operation runs. Line
// sequences returned by ReadLines, WriteReadLines and WriteLinesReadLines
// hold the gate until the range loop over them ends, including by break.
//
// Thread Safety:
// All methods are safe for concurrent use. Calling a Socket method from
// inside a range loop over one of its own line sequences deadlocks.
type Socket struct {
	host          string
	port          int
	autoReconnect bool
	separator     []byte
	readLimit     int
	dialer        Dialer
	logger        *zap.Logger
	metrics       *Metrics

	// gate serializes every operation touching conn.
	gate *semaphore.Weighted

	// mu guards conn and session for observers outside the gate.
	// Writes happen only while the gate is held.
	mu      sync.Mutex
	conn    Conn
	session uuid.UUID

	counter atomic.Uint64
}

// New creates a disconnected socket for host:port. It does not dial.
func New(host string, port int, opts ...Option) *Socket {
	s := &Socket{
		host:          host,
		port:          port,
		autoReconnect: true,
		separator:     []byte(DefaultSeparator),
		readLimit:     DefaultReadLimit,
		gate:          semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dialer == nil {
		s.dialer = TCPDialer{ReadLimit: s.readLimit}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("addr", s.Addr()))
	return s
}

// Host returns the target host.
func (s *Socket) Host() string { return s.host }

// Port returns the target port.
func (s *Socket) Port() int { return s.port }

// Addr returns the target as "host:port".
func (s *Socket) Addr() string { return Addr(s.host, s.port) }

// Separator returns the line separator used by line reads.
func (s *Socket) Separator() []byte { return append([]byte(nil), s.separator...) }

// AutoReconnect reports whether operations reconnect a dropped connection.
func (s *Socket) AutoReconnect() bool { return s.autoReconnect }

// ConnectionCounter returns the number of successful connection
// establishments over the socket's lifetime.
func (s *Socket) ConnectionCounter() uint64 {
	return s.counter.Load()
}

// Session returns the identifier of the current connection, or uuid.Nil.
func (s *Socket) Session() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Connected reports whether a connection handle exists and the peer has
// not closed the stream. It is evaluated on every call.
func (s *Socket) Connected() bool {
	return s.State() == StateConnected
}

// State returns the current connection state.
func (s *Socket) State() State {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	switch {
	case conn == nil:
		return StateDisconnected
	case conn.AtEOF():
		return StateEOF
	default:
		return StateConnected
	}
}

// Open establishes a new connection. It fails with ErrAlreadyConnected if
// the socket is connected, and with a *ConnectionError if dialing fails.
func (s *Socket) Open(ctx context.Context) error {
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.gate.Release(1)
	return s.open(ctx)
}

// Close releases the connection, if any, and always returns nil: shutdown
// errors are only logged. The handle is closed before the gate is taken,
// so an operation blocked in a read fails with net.ErrClosed instead of
// holding Close up. Calling Close on a disconnected socket does nothing.
func (s *Socket) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			s.logger.Debug("close error ignored", zap.Error(err))
		}
	}

	// Acquire with a background context cannot fail.
	_ = s.gate.Acquire(context.Background(), 1)
	defer s.gate.Release(1)
	s.release()
	return nil
}

// open dials a new connection. Must be called with the gate held.
func (s *Socket) open(ctx context.Context) error {
	if s.Connected() {
		return ErrAlreadyConnected
	}
	// A handle the peer already closed is replaced, not leaked.
	s.release()

	conn, err := s.dialer.Dial(ctx, s.host, s.port)
	if err != nil {
		s.metrics.connectFailed()
		s.logger.Warn("connect failed", zap.Error(err))
		return NewConnectionError(s.Addr(), "dial", err)
	}

	session := uuid.New()
	s.mu.Lock()
	s.conn = conn
	s.session = session
	s.mu.Unlock()

	n := s.counter.Add(1)
	s.metrics.connectionOpened()
	s.logger.Info("connected",
		zap.Stringer("session", session),
		zap.Uint64("connections", n))
	return nil
}

// release closes and forgets the current handle. Must be called with the
// gate held.
func (s *Socket) release() {
	s.mu.Lock()
	conn, session := s.conn, s.session
	s.conn = nil
	s.session = uuid.Nil
	s.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug("close error ignored",
			zap.Stringer("session", session),
			zap.Error(err))
	}
	s.metrics.connectionClosed()
	s.logger.Info("disconnected", zap.Stringer("session", session))
}

// enter acquires the gate and returns the connection to operate on,
// reconnecting first when auto-reconnect is enabled. On success the
// caller owns the gate and must release it.
func (s *Socket) enter(ctx context.Context) (Conn, error) {
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	if s.autoReconnect && !s.Connected() {
		if s.counter.Load() > 0 {
			s.logger.Info("reconnecting")
		}
		if err := s.open(ctx); err != nil && !errors.Is(err, ErrAlreadyConnected) {
			s.gate.Release(1)
			return nil, err
		}
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		s.gate.Release(1)
		return nil, ErrNotConnected
	}
	return conn, nil
}
