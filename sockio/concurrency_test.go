package sockio

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// queryReplies answers "Q<n>\n" with "R<n>\n".
func queryReplies(req []byte) []byte {
	var out []byte
	for _, line := range splitKeep(string(req)) {
		if strings.HasPrefix(line, "Q") {
			out = append(out, 'R')
			out = append(out, line[1:]...)
		}
	}
	return out
}

func TestOperationsNeverOverlap(t *testing.T) {
	tracker := &overlapTracker{}
	d := &fakeDialer{tracker: tracker, delay: time.Millisecond, respond: queryReplies}
	s := newFakeSocket(d)
	defer s.Close()

	const workers = 16
	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			req := fmt.Sprintf("Q%d\n", i)
			reply, err := s.WriteReadLine(context.Background(), []byte(req))
			if err != nil {
				return err
			}
			if want := fmt.Sprintf("R%d\n", i); string(reply) != want {
				return fmt.Errorf("request %q got reply %q, want %q", req, reply, want)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), tracker.max.Load(), "transport calls overlapped")
	assert.Equal(t, int32(workers*3), tracker.calls.Load(), "write, flush and read per worker")
}

func TestConcurrentFirstOperationsDialOnce(t *testing.T) {
	d := &fakeDialer{delay: time.Millisecond}
	s := newFakeSocket(d)
	defer s.Close()

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			return s.Write(context.Background(), []byte("*CLS\n"))
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, d.dialCount())
	assert.Equal(t, uint64(1), s.ConnectionCounter())
	assert.Len(t, d.last().writes(), 8)
}

func TestSequenceHoldsGateBetweenLines(t *testing.T) {
	d := &fakeDialer{preload: "a\nb\nc\n"}
	s := newFakeSocket(d)
	require.NoError(t, s.Open(context.Background()))

	writeDone := make(chan error, 1)
	var got []string
	for line, err := range s.ReadLines(context.Background(), 3) {
		require.NoError(t, err)
		got = append(got, string(line))

		if len(got) == 1 {
			go func() {
				writeDone <- s.Write(context.Background(), []byte("PING\n"))
			}()
		}
		select {
		case err := <-writeDone:
			t.Fatalf("write ran while the sequence was active: %v", err)
		case <-time.After(20 * time.Millisecond):
		}
	}

	assert.Equal(t, []string{"a\n", "b\n", "c\n"}, got)
	select {
	case err := <-writeDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("write still blocked after the sequence ended")
	}
	assert.Equal(t, []string{"PING\n"}, d.last().writes())
}

func TestAbandonedSequenceReleasesGate(t *testing.T) {
	d := &fakeDialer{preload: "1\n2\n3\n"}
	s := newFakeSocket(d)

	var first string
	for line, err := range s.ReadLines(context.Background(), 3) {
		require.NoError(t, err)
		first = string(line)
		break
	}
	assert.Equal(t, "1\n", first)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Write(ctx, []byte("PING\n")))
	assert.Equal(t, []string{"PING\n"}, d.last().writes())

	// The unread lines stay buffered on the connection.
	line, err := s.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2\n", string(line))
}

func TestReadLinesPastEOFThenReconnect(t *testing.T) {
	d := &fakeDialer{preload: "a\nb\nc\n", hangUp: true}
	s := newFakeSocket(d)
	ctx := context.Background()

	var items int
	var lastErr error
	for line, err := range s.ReadLines(ctx, 5) {
		if err != nil {
			lastErr = err
			break
		}
		assert.NotEmpty(t, line)
		items++
	}
	assert.Equal(t, 3, items)
	assert.ErrorIs(t, lastErr, ErrIncompleteRead)
	assert.False(t, s.Connected())

	line, err := s.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(line))
	assert.Equal(t, uint64(2), s.ConnectionCounter())
	assert.Equal(t, 2, d.dialCount())
}

func TestGateWaitHonoursContext(t *testing.T) {
	tracker := &overlapTracker{}
	d := &fakeDialer{tracker: tracker}
	s := newFakeSocket(d)
	require.NoError(t, s.Open(context.Background()))

	readCtx, cancelRead := context.WithCancel(context.Background())
	readDone := make(chan error, 1)
	go func() {
		_, err := s.ReadLine(readCtx)
		readDone <- err
	}()
	require.Eventually(t, func() bool { return tracker.active.Load() == 1 },
		time.Second, time.Millisecond, "reader never started")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Write(ctx, []byte("*RST\n"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, d.last().writes(), "write must not reach the transport")

	cancelRead()
	select {
	case err := <-readDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("read ignored cancellation")
	}

	require.NoError(t, s.Write(context.Background(), []byte("*RST\n")))
	assert.True(t, s.Connected(), "cancellation does not drop the connection")
	assert.Equal(t, uint64(1), s.ConnectionCounter())
}

func TestCloseInterruptsBlockedRead(t *testing.T) {
	tracker := &overlapTracker{}
	d := &fakeDialer{tracker: tracker}
	s := newFakeSocket(d)
	require.NoError(t, s.Open(context.Background()))
	conn := d.last()

	readErr := make(chan error, 1)
	go func() {
		_, err := s.ReadLine(context.Background())
		readErr <- err
	}()
	require.Eventually(t, func() bool { return tracker.active.Load() == 1 },
		time.Second, time.Millisecond)

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()

	select {
	case err := <-readErr:
		assert.ErrorIs(t, err, net.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Close did not interrupt the read")
	}
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	assert.True(t, conn.isClosed())
	assert.False(t, s.Connected())
}

func TestCloseEndsPausedReadLines(t *testing.T) {
	d := &fakeDialer{preload: "a\n"}
	s := newFakeSocket(d)
	require.NoError(t, s.Open(context.Background()))

	paused := make(chan struct{})
	resume := make(chan struct{})
	done := make(chan []string, 1)
	var lastErr error
	go func() {
		var got []string
		for line, err := range s.ReadLines(context.Background(), 3) {
			if err != nil {
				lastErr = err
				break
			}
			got = append(got, string(line))
			if len(got) == 1 {
				close(paused)
				<-resume
			}
		}
		done <- got
	}()
	<-paused

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()

	// Close has shut the handle but waits for the sequence to end.
	require.Eventually(t, func() bool { return d.last().isClosed() },
		time.Second, time.Millisecond)
	select {
	case <-closed:
		t.Fatal("Close returned while the sequence held the gate")
	case <-time.After(20 * time.Millisecond):
	}

	close(resume)
	assert.Equal(t, []string{"a\n"}, <-done)
	assert.ErrorIs(t, lastErr, net.ErrClosed)
	<-closed
	assert.False(t, s.Connected())
}

func TestConnectedDoesNotWaitForGate(t *testing.T) {
	tracker := &overlapTracker{}
	d := &fakeDialer{tracker: tracker}
	s := newFakeSocket(d)
	require.NoError(t, s.Open(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.ReadLine(ctx)
	require.Eventually(t, func() bool { return tracker.active.Load() == 1 },
		time.Second, time.Millisecond)

	assert.True(t, s.Connected())
	d.last().hangUp()
	assert.False(t, s.Connected())
}
