package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var errConnClosed = errors.New("use of closed connection")

// fakeConn is an in-memory socket. push delivers a server frame; drop
// simulates the server going away.
type fakeConn struct {
	in   chan []byte
	done chan struct{}

	closeOnce sync.Once
	closed    atomic.Bool

	mu      sync.Mutex
	readErr error
	written []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:   make(chan []byte, 16),
		done: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-f.in:
		return data, nil
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.readErr != nil {
			return nil, f.readErr
		}
		return nil, errConnClosed
	}
}

func (f *fakeConn) WriteMessage(data []byte) error {
	if f.closed.Load() {
		return errConnClosed
	}
	f.mu.Lock()
	f.written = append(f.written, string(data))
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) Close() error {
	f.shut(nil)
	return nil
}

func (f *fakeConn) Alive() bool {
	return !f.closed.Load()
}

func (f *fakeConn) push(frame string) {
	f.in <- []byte(frame)
}

func (f *fakeConn) drop(err error) {
	f.shut(err)
}

func (f *fakeConn) shut(err error) {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.readErr = err
		f.mu.Unlock()
		f.closed.Store(true)
		close(f.done)
	})
}

func (f *fakeConn) frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written...)
}

// fakeDialer hands out fakeConns and records targets.
type fakeDialer struct {
	mu        sync.Mutex
	targets   []string
	conns     []*fakeConn
	fail      error
	gate      chan struct{} // Dial blocks until closed
	ignoreCtx bool          // Dial keeps waiting on gate after ctx is cancelled
}

func (d *fakeDialer) Dial(ctx context.Context, target string) (Conn, error) {
	d.mu.Lock()
	d.targets = append(d.targets, target)
	gate := d.gate
	ignoreCtx := d.ignoreCtx
	d.mu.Unlock()

	if gate != nil {
		if ignoreCtx {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return nil, d.fail
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) setFail(err error) {
	d.mu.Lock()
	d.fail = err
	d.mu.Unlock()
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.targets)
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// fakeScheduler records tasks; tests fire them by hand.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks []*fakeTask
}

type fakeTask struct {
	s       *fakeScheduler
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTask{s: s, delay: d, fn: f}
	s.tasks = append(s.tasks, t)
	return t
}

func (t *fakeTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *fakeScheduler) task(i int) *fakeTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[i]
}

func (s *fakeScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.delay
	}
	return out
}

// fire runs task i as the clock would. force runs it even if stopped, which
// models a timer that fired just before it was cancelled.
func (s *fakeScheduler) fire(i int, force bool) {
	s.mu.Lock()
	t := s.tasks[i]
	if t.stopped && !force {
		s.mu.Unlock()
		return
	}
	t.fired = true
	s.mu.Unlock()
	t.fn()
}

func (t *fakeTask) isStopped() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.stopped
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T) (*Client, *fakeDialer, *fakeScheduler) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.BaseURL = "http://console.test"

	dialer := &fakeDialer{}
	sched := &fakeScheduler{}
	c := NewClient(cfg,
		WithLogger(discardLogger()),
		WithDialer(dialer),
		WithScheduler(sched),
	)
	t.Cleanup(c.Disconnect)

	return c, dialer, sched
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// waitForError drains the diagnostic channel until target matches.
func waitForError(t *testing.T, c *Client, target error) error {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case err := <-c.Errors():
			if errors.Is(err, target) {
				return err
			}
		case <-timeout:
			t.Fatalf("timed out waiting for error %v", target)
			return nil
		}
	}
}
