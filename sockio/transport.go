package sockio

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Dialer establishes transports to host:port.
type Dialer interface {
	Dial(ctx context.Context, host string, port int) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, host string, port int) (Conn, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, host string, port int) (Conn, error) {
	return f(ctx, host, port)
}

// Conn is an established duplex byte stream.
//
// Reads follow stream semantics: ReadLine returns the partial tail at end
// of stream, ReadExactly and ReadUntil fail with *IncompleteReadError and
// *SeparatorNotFoundError respectively. Write buffers; Flush sends.
// AtEOF must not block and must be safe to call concurrently with reads.
// Close may be called concurrently with any method, more than once, and
// must make pending reads fail with net.ErrClosed.
type Conn interface {
	Read(ctx context.Context, n int) ([]byte, error)
	ReadLine(ctx context.Context, sep []byte) ([]byte, error)
	ReadExactly(ctx context.Context, n int) ([]byte, error)
	ReadUntil(ctx context.Context, sep []byte) ([]byte, error)
	Write(p []byte) error
	Flush(ctx context.Context) error
	AtEOF() bool
	Close() error
}

// closeFlushTimeout bounds the final flush performed by Close.
const closeFlushTimeout = time.Second

// aLongTimeAgo is a deadline in the past, used to unblock socket calls.
var aLongTimeAgo = time.Unix(1, 0)

// TCPDialer dials plain TCP connections.
type TCPDialer struct {
	// Timeout applies when the dial context carries no deadline.
	// Zero means ConnectionTimeout.
	Timeout time.Duration

	// KeepAlive is the TCP keep-alive period. Zero means KeepAlivePeriod,
	// negative disables keep-alives.
	KeepAlive time.Duration

	// ReadLimit bounds line and separator reads. Zero means DefaultReadLimit.
	ReadLimit int
}

// Dial connects to host:port over TCP.
func (d TCPDialer) Dial(ctx context.Context, host string, port int) (Conn, error) {
	if _, ok := ctx.Deadline(); !ok {
		timeout := d.Timeout
		if timeout <= 0 {
			timeout = ConnectionTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	keepAlive := d.KeepAlive
	if keepAlive == 0 {
		keepAlive = KeepAlivePeriod
	}

	nd := net.Dialer{KeepAlive: keepAlive}
	conn, err := nd.DialContext(ctx, "tcp", Addr(host, port))
	if err != nil {
		return nil, err
	}
	return NewStreamConn(conn, d.ReadLimit), nil
}

// StreamConn implements Conn on top of a net.Conn. Incoming bytes are
// pumped into a buffer by a background goroutine that ends when the
// connection closes.
type StreamConn struct {
	conn   net.Conn
	reader *streamReader

	// wmu guards writer; Close may run while an operation is flushing.
	wmu    sync.Mutex
	writer *bufio.Writer
}

// NewStreamConn wraps an established connection and starts its reader pump.
func NewStreamConn(conn net.Conn, readLimit int) *StreamConn {
	sc := &StreamConn{
		conn:   conn,
		reader: newStreamReader(readLimit),
		writer: bufio.NewWriter(conn),
	}
	go sc.reader.pump(conn)
	return sc
}

// Read returns up to n bytes; n < 0 reads until the peer closes.
func (c *StreamConn) Read(ctx context.Context, n int) ([]byte, error) {
	return c.reader.read(ctx, n)
}

// ReadLine reads through sep, returning the partial tail at end of stream.
func (c *StreamConn) ReadLine(ctx context.Context, sep []byte) ([]byte, error) {
	return c.reader.readLine(ctx, sep)
}

// ReadExactly reads exactly n bytes.
func (c *StreamConn) ReadExactly(ctx context.Context, n int) ([]byte, error) {
	return c.reader.readExactly(ctx, n)
}

// ReadUntil reads through sep.
func (c *StreamConn) ReadUntil(ctx context.Context, sep []byte) ([]byte, error) {
	return c.reader.readUntil(ctx, sep)
}

// Write buffers p. Call Flush to send it.
func (c *StreamConn) Write(p []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.writer.Write(p)
	return errors.Wrap(err, "write")
}

// Flush sends buffered data, honouring ctx deadline and cancellation.
func (c *StreamConn) Flush(ctx context.Context) error {
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return errors.Wrap(err, "set write deadline")
	}
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetWriteDeadline(aLongTimeAgo)
	})
	defer stop()

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.writer.Flush(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.Wrap(err, "flush")
	}
	return nil
}

// AtEOF reports whether the peer closed its side and every byte it sent
// has been consumed.
func (c *StreamConn) AtEOF() bool {
	return c.reader.atEOF()
}

// Close flushes pending writes, closes the connection and stops the pump.
// A flush already in progress is not waited for; closing the connection
// ends it.
func (c *StreamConn) Close() error {
	var err error
	if c.wmu.TryLock() {
		if c.writer.Buffered() > 0 {
			c.conn.SetWriteDeadline(time.Now().Add(closeFlushTimeout))
			err = multierr.Append(err, errors.Wrap(c.writer.Flush(), "flush"))
		}
		c.wmu.Unlock()
	}
	err = multierr.Append(err, errors.Wrap(c.conn.Close(), "close"))
	c.reader.close()
	return err
}
