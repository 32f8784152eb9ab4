package streamer

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/harun/fdstream/internal/observability"
	"github.com/harun/fdstream/pkg/scheduler"
)

// read schedules one unit of read work for a later loop turn. At most one
// unit is pending at a time.
func (s *Session) read() {
	s.readAfter(0)
}

func (s *Session) readAfter(delay time.Duration) {
	s.mu.Lock()
	if s.scheduled {
		s.mu.Unlock()
		return
	}
	s.scheduled = true
	s.mu.Unlock()

	s.loop.PostAfter(delay, s.readOnce)
}

// readOnce runs on the loop. It is a no-op unless the descriptor is open and a
// stream is attached.
func (s *Session) readOnce() {
	s.mu.Lock()
	s.scheduled = false
	if s.file == nil || s.closing || s.stream == nil || s.inFlight {
		s.mu.Unlock()
		return
	}

	f := s.file
	if p := s.pending; p != nil {
		s.pending = nil
		s.mu.Unlock()
		s.logger.Debug().Int("bytes", p.n).Msg("Replaying cached read")
		s.settle(f, p.n, p.buf, nil, 0, true)
		return
	}

	buf := make([]byte, s.chunkSize)
	s.inFlight = true
	s.mu.Unlock()

	start := time.Now()
	scheduler.Async(s.loop, func() (int, error) {
		n, err := f.Read(buf)
		if errors.Is(err, io.EOF) {
			err = nil
		}
		return n, err
	}, func(n int, err error) {
		s.settle(f, n, buf, err, time.Since(start), false)
	})
}

// settle applies the result of a read from f, or of a cached read being replayed.
func (s *Session) settle(f *os.File, n int, buf []byte, err error, took time.Duration, replay bool) {
	s.mu.Lock()
	if !replay {
		s.inFlight = false
	}
	stopped := s.stoppedPending
	s.stoppedPending = false
	st := s.stream
	path := s.path

	if stopped {
		// The stopped signal waited for this read to settle.
		defer s.emit(SignalStopped, nil)
	}

	if s.file != f || s.closing {
		// f was closed under the read, which is how a parked read is abandoned.
		restart := st != nil && s.file != nil && !s.closing
		s.mu.Unlock()
		observability.RecordRead("discarded", n, took)
		s.logger.Debug().Int("bytes", n).Msg("Discarded read from closed descriptor")
		if restart {
			s.read()
		}
		return
	}

	if err != nil {
		s.mu.Unlock()
		observability.RecordRead("error", 0, took)
		err = newError(ErrIOFailure, "read", path, err)
		s.logger.Error().Err(err).Msg("Read failed")
		if st != nil {
			st.Destroy(err)
		} else {
			s.emit(SignalError, err)
		}
		return
	}

	if st == nil {
		// Detached while the read was in flight; keep the bytes for the next stream.
		s.cacheLocked(n, buf)
		s.mu.Unlock()
		observability.RecordRead("orphaned", n, took)
		s.logger.Debug().Int("bytes", n).Msg("Read cached after detach")
		return
	}

	if n == 0 {
		observability.RecordRead("eof", 0, took)
		if !s.closeOnEndOfFile {
			s.mu.Unlock()
			s.readAfter(s.pollInterval)
			return
		}

		// Detach and close in one step so no stream can attach in between.
		s.logger.Debug().Msg("End of file reached, closing")
		stoppedNow := s.detachLocked()
		target := s.beginCloseLocked()
		s.mu.Unlock()
		st.SignalEnd()
		if stoppedNow {
			s.emit(SignalStopped, nil)
		}
		s.finishClose(nil, target)
		return
	}

	// Push under the session lock so a concurrent Detach cannot end the
	// stream between choosing it and handing it the bytes.
	accepted, ready := st.offer(buf[:n])
	if !accepted {
		// The consumer destroyed st and streamDestroyed has not detached it yet.
		s.cacheLocked(n, buf)
		s.mu.Unlock()
		observability.RecordRead("orphaned", n, took)
		s.logger.Debug().Int("bytes", n).Msg("Read cached after stream destroyed")
		return
	}

	outcome := "data"
	if replay {
		outcome = "replay"
	}
	observability.RecordRead(outcome, n, took)

	if ready {
		s.mu.Unlock()
		s.read()
		return
	}

	s.suspended = true
	s.mu.Unlock()
	observability.RecordPause()
	s.emit(SignalPaused, nil)
}

func (s *Session) cacheLocked(n int, buf []byte) {
	s.pending = &readResult{n: n, buf: buf}
	observability.RecordPendingReadCached()
}

// resume restarts a suspended read loop for st once its consumer has drained it.
func (s *Session) resume(st *Stream) {
	s.mu.Lock()
	if s.stream != st || !s.suspended {
		s.mu.Unlock()
		return
	}
	s.suspended = false
	s.mu.Unlock()

	observability.RecordResume()
	s.emit(SignalReading, nil)
	s.read()
}
