package streamer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/harun/fdstream/pkg/scheduler"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

func newTestSession(t *testing.T, opts Options) *Session {
	t.Helper()

	loop := scheduler.New(t.Name())
	t.Cleanup(func() {
		loop.Close()
		loop.Wait()
	})

	opts.Loop = loop
	s := New(opts)
	t.Cleanup(func() {
		if !s.State().Open {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		_ = s.CloseWait(ctx)
	})
	return s
}

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func openSession(t *testing.T, s *Session, path string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, s.OpenWait(ctx, path))
}

// recorder captures session signals. Handlers never block the loop.
type recorder struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func record(s *Session, signals ...Signal) *recorder {
	r := &recorder{ch: make(chan Event, 1024)}
	for _, signal := range signals {
		s.On(signal, func(e Event) {
			r.mu.Lock()
			r.events = append(r.events, e)
			r.mu.Unlock()
			select {
			case r.ch <- e:
			default:
			}
		})
	}
	return r
}

func (r *recorder) wait(t *testing.T, signal Signal) Event {
	t.Helper()
	timer := time.NewTimer(waitTimeout)
	defer timer.Stop()
	for {
		select {
		case e := <-r.ch:
			if e.Signal == signal {
				return e
			}
		case <-timer.C:
			t.Fatalf("timeout waiting for %q signal", signal)
			return Event{}
		}
	}
}

func (r *recorder) count(signal Signal) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Signal == signal {
			n++
		}
	}
	return n
}

func (r *recorder) waitCount(t *testing.T, signal Signal, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return r.count(signal) >= n
	}, waitTimeout, 5*time.Millisecond, "waiting for %d %q signals", n, signal)
}

func pattern(size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(i*7 + i/251)
	}
	return b
}
