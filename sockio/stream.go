package sockio

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"
)

// streamReader is a byte buffer fed by a pump goroutine reading from the
// connection. Consumers block on the buffer rather than on the socket, so
// end-of-stream can be observed at any time without a read call and waits
// can be abandoned through a context.
type streamReader struct {
	mu    sync.Mutex
	buf   []byte
	eof   bool
	err   error
	limit int

	// dataCh is closed and replaced whenever data, EOF or an error arrives.
	dataCh chan struct{}
	// spaceCh is closed and replaced whenever a consumer drains the buffer.
	spaceCh chan struct{}
	// done is closed by close() to stop the pump.
	done   chan struct{}
	closed bool
}

func newStreamReader(limit int) *streamReader {
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	return &streamReader{
		limit:   limit,
		dataCh:  make(chan struct{}),
		spaceCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// pump copies src into the buffer until src fails. io.EOF marks the end
// of stream; any other error is kept and returned once the buffer is empty.
func (r *streamReader) pump(src io.Reader) {
	chunk := make([]byte, readChunkSize)
	for {
		if !r.waitSpace() {
			return
		}
		n, err := src.Read(chunk)

		r.mu.Lock()
		if n > 0 {
			r.buf = append(r.buf, chunk[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				r.eof = true
			} else if !r.closed {
				r.err = err
			}
		}
		r.wakeLocked()
		r.mu.Unlock()

		if err != nil {
			return
		}
	}
}

// waitSpace blocks while the buffer sits above its high-water mark.
// Returns false once the reader has been closed.
func (r *streamReader) waitSpace() bool {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return false
		}
		if len(r.buf) < 2*r.limit {
			r.mu.Unlock()
			return true
		}
		ch := r.spaceCh
		r.mu.Unlock()

		select {
		case <-ch:
		case <-r.done:
			return false
		}
	}
}

func (r *streamReader) wakeLocked() {
	close(r.dataCh)
	r.dataCh = make(chan struct{})
}

func (r *streamReader) consumeLocked(n int) []byte {
	return r.drainLocked(make([]byte, 0, n), n)
}

// drainLocked moves the first n buffered bytes onto dst and lets the pump
// refill the space.
func (r *streamReader) drainLocked(dst []byte, n int) []byte {
	dst = append(dst, r.buf[:n]...)
	r.buf = r.buf[n:]
	close(r.spaceCh)
	r.spaceCh = make(chan struct{})
	return dst
}

// unreadLocked puts p back in front of the buffer.
func (r *streamReader) unreadLocked(p []byte) {
	if len(p) > 0 {
		r.buf = append(p, r.buf...)
	}
}

// wait blocks until new data arrives, the stream ends or ctx is done.
// Must be called with r.mu held; returns with r.mu held.
func (r *streamReader) wait(ctx context.Context) error {
	if r.closed {
		return net.ErrClosed
	}
	ch := r.dataCh
	r.mu.Unlock()
	defer r.mu.Lock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return net.ErrClosed
	}
}

// atEOF reports whether the peer closed the stream and the buffer is empty.
func (r *streamReader) atEOF() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eof && len(r.buf) == 0
}

// read returns up to n bytes as soon as any are available. A negative n
// reads until end of stream. An empty result with nil error means EOF.
func (r *streamReader) read(ctx context.Context, n int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n == 0 {
		return []byte{}, nil
	}
	if n < 0 {
		return r.readAllLocked(ctx)
	}

	for len(r.buf) == 0 {
		if r.eof {
			return []byte{}, nil
		}
		if r.err != nil {
			return nil, r.err
		}
		if err := r.wait(ctx); err != nil {
			return nil, err
		}
	}
	return r.consumeLocked(min(n, len(r.buf))), nil
}

// readExactly returns exactly n bytes, or an *IncompleteReadError holding
// the consumed bytes if the stream ends first.
func (r *streamReader) readExactly(ctx context.Context, n int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n < 0 {
		return nil, errors.Errorf("negative byte count %d", n)
	}

	// Consume as data arrives so the pump never stalls at the high-water
	// mark. On failure other than EOF the bytes go back to the buffer.
	out := make([]byte, 0, min(n, 2*r.limit))
	for len(out) < n {
		if len(r.buf) > 0 {
			out = r.drainLocked(out, min(n-len(out), len(r.buf)))
			continue
		}
		if r.eof {
			return nil, &IncompleteReadError{Partial: out, Expected: n}
		}
		if r.err != nil {
			r.unreadLocked(out)
			return nil, r.err
		}
		if err := r.wait(ctx); err != nil {
			r.unreadLocked(out)
			return nil, err
		}
	}
	return out, nil
}

// readAllLocked drains the buffer on every wake until end of stream. On
// failure the bytes read so far go back to the buffer.
func (r *streamReader) readAllLocked(ctx context.Context) ([]byte, error) {
	out := []byte{}
	for {
		if len(r.buf) > 0 {
			out = r.drainLocked(out, len(r.buf))
		}
		if r.eof {
			return out, nil
		}
		if r.err != nil {
			r.unreadLocked(out)
			return nil, r.err
		}
		if err := r.wait(ctx); err != nil {
			r.unreadLocked(out)
			return nil, err
		}
	}
}

// readUntil returns the data up to and including sep. If the stream ends
// first the buffered bytes are consumed and returned inside a
// *SeparatorNotFoundError. If the line would exceed the limit,
// ErrLineTooLong is returned and the data is left in place; readLine
// discards it instead.
func (r *streamReader) readUntil(ctx context.Context, sep []byte) ([]byte, error) {
	return r.scan(ctx, sep, false)
}

// readLine is readUntil that returns the partial tail, possibly empty,
// instead of failing at end of stream. An overlong line is dropped through
// its separator, or the whole buffer if none arrived yet, so the next
// call starts on fresh data.
func (r *streamReader) readLine(ctx context.Context, sep []byte) ([]byte, error) {
	line, err := r.scan(ctx, sep, true)
	if err != nil {
		var notFound *SeparatorNotFoundError
		if errors.As(err, &notFound) {
			return notFound.Partial, nil
		}
		return nil, err
	}
	return line, nil
}

func (r *streamReader) scan(ctx context.Context, sep []byte, discard bool) ([]byte, error) {
	if len(sep) == 0 {
		sep = []byte(DefaultSeparator)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tooLong := func(end int) error {
		if discard {
			r.consumeLocked(end)
		}
		return ErrLineTooLong
	}

	offset := 0
	for {
		if i := bytes.Index(r.buf[offset:], sep); i >= 0 {
			end := offset + i + len(sep)
			if end > r.limit {
				return nil, tooLong(end)
			}
			return r.consumeLocked(end), nil
		}
		if r.eof {
			partial := r.consumeLocked(len(r.buf))
			return nil, &SeparatorNotFoundError{Partial: partial, Separator: sep}
		}
		if len(r.buf) > r.limit {
			return nil, tooLong(len(r.buf))
		}
		// The separator may straddle the old and new data.
		offset = max(0, len(r.buf)-len(sep)+1)

		if r.err != nil {
			return nil, r.err
		}
		if err := r.wait(ctx); err != nil {
			return nil, err
		}
	}
}

// close stops the pump and fails pending and future reads.
func (r *streamReader) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.done)
}
