package sockio

import (
	"context"
	"iter"
)

// Operation names used as metric labels.
const (
	opRead                = "read"
	opReadLine            = "read_line"
	opReadLines           = "read_lines"
	opReadExactly         = "read_exactly"
	opReadUntil           = "read_until"
	opWrite               = "write"
	opWriteLines          = "write_lines"
	opWriteReadLine       = "write_read_line"
	opWriteReadLines      = "write_read_lines"
	opWriteLinesReadLines = "write_lines_read_lines"
)

// Read returns up to n bytes as soon as any are available. A negative n
// reads until the peer closes the connection. At end of stream Read
// returns an empty slice.
func (s *Socket) Read(ctx context.Context, n int) ([]byte, error) {
	return withConn(ctx, s, opRead, func(ctx context.Context, c Conn) ([]byte, error) {
		return c.Read(ctx, n)
	})
}

// ReadAll reads until the peer closes the connection.
func (s *Socket) ReadAll(ctx context.Context) ([]byte, error) {
	return s.Read(ctx, -1)
}

// ReadLine returns one line including the separator. If the stream ends
// first, the remaining bytes are returned without separator, possibly none.
// A line longer than the read limit fails with ErrLineTooLong and is
// discarded.
func (s *Socket) ReadLine(ctx context.Context) ([]byte, error) {
	return withConn(ctx, s, opReadLine, func(ctx context.Context, c Conn) ([]byte, error) {
		return c.ReadLine(ctx, s.separator)
	})
}

// ReadLines returns a sequence of count lines. The socket is held for the
// whole iteration; breaking out of the loop releases it.
func (s *Socket) ReadLines(ctx context.Context, count int) iter.Seq2[[]byte, error] {
	return s.streamLines(ctx, opReadLines, nil, count)
}

// ReadExactly returns exactly n bytes. If the stream ends first it fails
// with an *IncompleteReadError carrying the bytes read.
func (s *Socket) ReadExactly(ctx context.Context, n int) ([]byte, error) {
	return withConn(ctx, s, opReadExactly, func(ctx context.Context, c Conn) ([]byte, error) {
		return c.ReadExactly(ctx, n)
	})
}

// ReadUntil returns the bytes up to and including sep, which defaults to
// a newline when empty. If the stream ends first it fails with a
// *SeparatorNotFoundError. Unlike ReadLine, ErrLineTooLong leaves the
// data buffered.
func (s *Socket) ReadUntil(ctx context.Context, sep []byte) ([]byte, error) {
	if len(sep) == 0 {
		sep = []byte(DefaultSeparator)
	}
	return withConn(ctx, s, opReadUntil, func(ctx context.Context, c Conn) ([]byte, error) {
		return c.ReadUntil(ctx, sep)
	})
}

// Write sends data and waits for it to be flushed.
func (s *Socket) Write(ctx context.Context, data []byte) error {
	_, err := withConn(ctx, s, opWrite, func(ctx context.Context, c Conn) (struct{}, error) {
		return struct{}{}, writeAll(ctx, c, data)
	})
	return err
}

// WriteLines sends every line in order and flushes once.
func (s *Socket) WriteLines(ctx context.Context, lines [][]byte) error {
	_, err := withConn(ctx, s, opWriteLines, func(ctx context.Context, c Conn) (struct{}, error) {
		return struct{}{}, writeAll(ctx, c, lines...)
	})
	return err
}

// WriteReadLine sends data and returns the first line of the reply.
func (s *Socket) WriteReadLine(ctx context.Context, data []byte) ([]byte, error) {
	return withConn(ctx, s, opWriteReadLine, func(ctx context.Context, c Conn) ([]byte, error) {
		if err := writeAll(ctx, c, data); err != nil {
			return nil, err
		}
		return c.ReadLine(ctx, s.separator)
	})
}

// WriteReadLines sends data and returns a sequence of count reply lines.
// Nothing is written until the sequence is ranged over.
func (s *Socket) WriteReadLines(ctx context.Context, data []byte, count int) iter.Seq2[[]byte, error] {
	return s.streamLines(ctx, opWriteReadLines, func(ctx context.Context, c Conn) error {
		return writeAll(ctx, c, data)
	}, count)
}

// WriteLinesReadLines sends every line, flushes, and returns a sequence of
// count reply lines. A negative count means one reply per line sent.
func (s *Socket) WriteLinesReadLines(ctx context.Context, lines [][]byte, count int) iter.Seq2[[]byte, error] {
	if count < 0 {
		count = len(lines)
	}
	return s.streamLines(ctx, opWriteLinesReadLines, func(ctx context.Context, c Conn) error {
		return writeAll(ctx, c, lines...)
	}, count)
}

func writeAll(ctx context.Context, c Conn, chunks ...[]byte) error {
	for _, chunk := range chunks {
		if err := c.Write(chunk); err != nil {
			return err
		}
	}
	return c.Flush(ctx)
}
