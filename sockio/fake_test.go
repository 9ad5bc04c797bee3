package sockio

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// overlapTracker records how many transport calls run at the same time.
type overlapTracker struct {
	active atomic.Int32
	max    atomic.Int32
	calls  atomic.Int32
}

func (t *overlapTracker) enter() {
	if t == nil {
		return
	}
	t.calls.Add(1)
	n := t.active.Add(1)
	for {
		m := t.max.Load()
		if n <= m || t.max.CompareAndSwap(m, n) {
			return
		}
	}
}

func (t *overlapTracker) exit() {
	if t == nil {
		return
	}
	t.active.Add(-1)
}

// fakeConn is an in-memory Conn. Bytes handed to feed become readable,
// hangUp simulates the peer closing its side. Flushed writes are passed
// to respond, whose result is fed back as the reply.
type fakeConn struct {
	reader  *streamReader
	tracker *overlapTracker
	delay   time.Duration
	respond func(req []byte) []byte

	mu       sync.Mutex
	pending  []byte
	written  [][]byte
	flushes  int
	closed   bool
	closeErr error
	flushErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{reader: newStreamReader(DefaultReadLimit)}
}

func (c *fakeConn) feed(data string) {
	c.reader.mu.Lock()
	defer c.reader.mu.Unlock()
	c.reader.buf = append(c.reader.buf, data...)
	c.reader.wakeLocked()
}

func (c *fakeConn) hangUp() {
	c.reader.mu.Lock()
	defer c.reader.mu.Unlock()
	c.reader.eof = true
	c.reader.wakeLocked()
}

func (c *fakeConn) call() func() {
	c.tracker.enter()
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return c.tracker.exit
}

func (c *fakeConn) Read(ctx context.Context, n int) ([]byte, error) {
	defer c.call()()
	return c.reader.read(ctx, n)
}

func (c *fakeConn) ReadLine(ctx context.Context, sep []byte) ([]byte, error) {
	defer c.call()()
	return c.reader.readLine(ctx, sep)
}

func (c *fakeConn) ReadExactly(ctx context.Context, n int) ([]byte, error) {
	defer c.call()()
	return c.reader.readExactly(ctx, n)
}

func (c *fakeConn) ReadUntil(ctx context.Context, sep []byte) ([]byte, error) {
	defer c.call()()
	return c.reader.readUntil(ctx, sep)
}

func (c *fakeConn) Write(p []byte) error {
	defer c.call()()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, p...)
	return nil
}

func (c *fakeConn) Flush(ctx context.Context) error {
	defer c.call()()
	c.mu.Lock()
	if c.flushErr != nil {
		c.mu.Unlock()
		return c.flushErr
	}
	data := c.pending
	c.pending = nil
	c.written = append(c.written, data)
	c.flushes++
	respond := c.respond
	c.mu.Unlock()

	if respond != nil {
		if reply := respond(data); len(reply) > 0 {
			c.feed(string(reply))
		}
	}
	return ctx.Err()
}

func (c *fakeConn) AtEOF() bool {
	return c.reader.atEOF()
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	err := c.closeErr
	c.mu.Unlock()
	c.reader.close()
	return err
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) writes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.written))
	for i, w := range c.written {
		out[i] = string(w)
	}
	return out
}

// fakeDialer hands out fakeConns and counts dial attempts.
type fakeDialer struct {
	tracker *overlapTracker
	delay   time.Duration
	respond func(req []byte) []byte
	// preload is fed into each new connection; hangUp closes it afterwards.
	preload string
	hangUp  bool

	mu    sync.Mutex
	dials int
	err   error
	conns []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, host string, port int) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := newFakeConn()
	c.tracker = d.tracker
	c.delay = d.delay
	c.respond = d.respond
	if d.preload != "" {
		c.feed(d.preload)
	}
	if d.hangUp {
		c.hangUp()
	}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// echoReplies answers each request line with the reply configured for it.
func echoReplies(replies map[string]string) func([]byte) []byte {
	return func(req []byte) []byte {
		var out []byte
		for _, line := range splitKeep(string(req)) {
			if reply, ok := replies[line]; ok {
				out = append(out, reply...)
			}
		}
		return out
	}
}

func splitKeep(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func newFakeSocket(d *fakeDialer, opts ...Option) *Socket {
	return New("instrument.local", 5025, append([]Option{WithDialer(d)}, opts...)...)
}

// pipeDialer connects every dial to serve over net.Pipe and wraps the
// client end in a StreamConn with the given read limit.
func pipeDialer(t *testing.T, limit int, serve func(peer net.Conn)) Dialer {
	t.Helper()
	return DialerFunc(func(ctx context.Context, host string, port int) (Conn, error) {
		client, peer := net.Pipe()
		t.Cleanup(func() { peer.Close() })
		go serve(peer)
		return NewStreamConn(client, limit), nil
	})
}
