package streamer

import (
	"io"
	"sync"
)

var (
	_ io.Reader   = (*Stream)(nil)
	_ io.WriterTo = (*Stream)(nil)
	_ io.Closer   = (*Stream)(nil)
)

// Stream is the consumer-facing side of a session's read loop.
//
// The session pushes chunks with Push and ends the stream with SignalEnd or
// Destroy. Consumers drain it through Read or WriteTo. Push reports false once
// HighWaterMark bytes are buffered; draining below that mark fires the
// readiness callback once.
type Stream struct {
	mu   sync.Mutex
	wake *sync.Cond

	chunks        [][]byte
	buffered      int
	highWaterMark int
	needDrain     bool

	ended     bool
	destroyed bool
	err       error

	onReady    func()
	readyHooks []func()
	onDestroy  func(error)

	done     chan struct{}
	doneOnce sync.Once
}

func newStream(highWaterMark int) *Stream {
	st := &Stream{
		highWaterMark: highWaterMark,
		done:          make(chan struct{}),
	}
	st.wake = sync.NewCond(&st.mu)
	return st
}

// Push queues p for the consumer and reports whether more data can be accepted
// without exceeding the high-water mark. Push takes ownership of p.
// Pushing to an ended or destroyed stream drops p and reports false.
func (st *Stream) Push(p []byte) bool {
	_, ready := st.offer(p)
	return ready
}

// offer is Push that also reports whether p was queued at all.
func (st *Stream) offer(p []byte) (accepted, ready bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.ended || st.destroyed {
		return false, false
	}
	if len(p) > 0 {
		st.chunks = append(st.chunks, p)
		st.buffered += len(p)
		st.wake.Broadcast()
	}

	ready = st.buffered < st.highWaterMark
	if !ready {
		st.needDrain = true
	}
	return true, ready
}

// SignalEnd marks the end of data. Buffered chunks remain readable.
func (st *Stream) SignalEnd() {
	st.mu.Lock()
	if st.ended || st.destroyed {
		st.mu.Unlock()
		return
	}
	st.ended = true
	st.mu.Unlock()

	st.wake.Broadcast()
	st.finish()
}

// OnReadinessRestored adds a callback fired when the consumer drains the
// stream below its high-water mark after Push reported false. Callbacks run
// after the session's own resume hook.
func (st *Stream) OnReadinessRestored(fn func()) {
	if fn == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.readyHooks = append(st.readyHooks, fn)
}

// Destroy discards buffered data and makes the consumer see err, or
// io.ErrClosedPipe when err is nil. The stream detaches from its session;
// the descriptor stays open.
func (st *Stream) Destroy(err error) {
	st.mu.Lock()
	if st.destroyed {
		st.mu.Unlock()
		return
	}
	st.destroyed = true
	st.err = err
	st.chunks = nil
	st.buffered = 0
	onDestroy := st.onDestroy
	st.mu.Unlock()

	st.wake.Broadcast()
	st.finish()

	if onDestroy != nil {
		onDestroy(err)
	}
}

func (st *Stream) finish() {
	st.doneOnce.Do(func() {
		close(st.done)
	})
}

// Done is closed once the stream will receive no more data
func (st *Stream) Done() <-chan struct{} {
	return st.done
}

// Err returns the error the stream was destroyed with
func (st *Stream) Err() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.err
}

// Buffered returns the number of bytes pushed but not yet consumed
func (st *Stream) Buffered() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.buffered
}

// HighWaterMark returns the buffered byte count at which Push reports false
func (st *Stream) HighWaterMark() int {
	return st.highWaterMark
}

// Read reads the next bytes of the current chunk. It blocks until data is
// pushed, the stream ends (io.EOF) or it is destroyed.
func (st *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	chunk, err := st.take(len(p))
	if err != nil {
		return 0, err
	}
	return copy(p, chunk), nil
}

// WriteTo writes chunks to w as they arrive until the stream ends.
func (st *Stream) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for {
		chunk, err := st.take(0)
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}

		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, err
		}
		if n != len(chunk) {
			return total, io.ErrShortWrite
		}
	}
}

// Close destroys the stream from the consumer side
func (st *Stream) Close() error {
	st.Destroy(nil)
	return nil
}

// take removes up to limit bytes (a whole chunk when limit is 0) from the head of the queue.
func (st *Stream) take(limit int) ([]byte, error) {
	st.mu.Lock()
	for len(st.chunks) == 0 && !st.ended && !st.destroyed {
		st.wake.Wait()
	}

	if st.destroyed {
		err := st.err
		st.mu.Unlock()
		if err == nil {
			err = io.ErrClosedPipe
		}
		return nil, err
	}
	if len(st.chunks) == 0 {
		st.mu.Unlock()
		return nil, io.EOF
	}

	chunk := st.chunks[0]
	if limit > 0 && len(chunk) > limit {
		st.chunks[0] = chunk[limit:]
		chunk = chunk[:limit]
	} else {
		st.chunks[0] = nil
		st.chunks = st.chunks[1:]
	}
	st.buffered -= len(chunk)

	var notify []func()
	if st.needDrain && st.buffered < st.highWaterMark {
		st.needDrain = false
		if st.onReady != nil {
			notify = append(notify, st.onReady)
		}
		notify = append(notify, st.readyHooks...)
	}
	st.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
	return chunk, nil
}
