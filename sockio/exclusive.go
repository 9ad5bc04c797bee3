package sockio

import (
	"bytes"
	"context"
	"iter"
)

// withConn runs fn on the connection while holding the gate, reconnecting
// first if needed. The gate is released when fn returns or panics.
func withConn[T any](ctx context.Context, s *Socket, op string, fn func(context.Context, Conn) (T, error)) (T, error) {
	conn, err := s.enter(ctx)
	if err != nil {
		s.metrics.operation(op, outcomeOf(err))
		var zero T
		return zero, err
	}
	defer s.gate.Release(1)

	v, err := fn(ctx, conn)
	s.metrics.operation(op, outcomeOf(err))
	return v, err
}

// streamLines returns a sequence that, once ranged over, acquires the
// gate, reconnects if needed, runs prelude and then yields count lines.
// The gate is held until the sequence ends: after the last line, after
// the first error, or when the consumer stops early.
//
// A line cut short by end of stream is reported as *IncompleteReadError
// and ends the sequence.
func (s *Socket) streamLines(ctx context.Context, op string, prelude func(context.Context, Conn) error, count int) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		conn, err := s.enter(ctx)
		if err != nil {
			s.metrics.operation(op, outcomeOf(err))
			yield(nil, err)
			return
		}
		defer s.gate.Release(1)

		if prelude != nil {
			if err := prelude(ctx, conn); err != nil {
				s.metrics.operation(op, outcomeOf(err))
				yield(nil, err)
				return
			}
		}

		for range count {
			line, err := conn.ReadLine(ctx, s.separator)
			if err == nil && !bytes.HasSuffix(line, s.separator) {
				err = &IncompleteReadError{Partial: line, Expected: -1}
			}
			if err != nil {
				s.metrics.operation(op, outcomeOf(err))
				yield(nil, err)
				return
			}
			if !yield(line, nil) {
				s.metrics.operation(op, OutcomeAbandoned)
				return
			}
		}
		s.metrics.operation(op, OutcomeOK)
	}
}

// CollectLines drains seq. It returns the lines read before the first
// error together with that error.
func CollectLines(seq iter.Seq2[[]byte, error]) ([][]byte, error) {
	var lines [][]byte
	for line, err := range seq {
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}
