package sockio

import (
	"go.uber.org/zap"
)

// Option configures a Socket at construction time.
type Option func(*Socket)

// WithAutoReconnect sets whether operations on a disconnected socket open
// a new connection first. Enabled by default.
func WithAutoReconnect(enabled bool) Option {
	return func(s *Socket) {
		s.autoReconnect = enabled
	}
}

// WithSeparator sets the line separator used by line reads.
// An empty separator keeps DefaultSeparator.
func WithSeparator(sep []byte) Option {
	return func(s *Socket) {
		if len(sep) > 0 {
			s.separator = append([]byte(nil), sep...)
		}
	}
}

// WithReadLimit bounds line and separator reads of the default TCP dialer.
func WithReadLimit(limit int) Option {
	return func(s *Socket) {
		if limit > 0 {
			s.readLimit = limit
		}
	}
}

// WithDialer replaces the TCP dialer.
func WithDialer(d Dialer) Option {
	return func(s *Socket) {
		s.dialer = d
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Socket) {
		s.logger = logger
	}
}

// WithMetrics records connection and operation metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(s *Socket) {
		s.metrics = m
	}
}
