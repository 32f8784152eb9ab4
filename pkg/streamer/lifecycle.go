package streamer

import (
	"context"
	"os"

	"github.com/harun/fdstream/internal/observability"
	"github.com/harun/fdstream/internal/tracing"
	"github.com/harun/fdstream/pkg/scheduler"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "fdstream.streamer"

// deliver hands a lifecycle outcome to cont, or publishes it when cont does
// not cover it. Only call it from the loop goroutine.
func (s *Session) deliver(cont *Continuation, signal Signal, err error) {
	if err != nil {
		if cont != nil && cont.Reject != nil {
			cont.Reject(err)
			return
		}
		s.emit(SignalError, err)
		return
	}

	if cont != nil && cont.Resolve != nil {
		cont.Resolve(s)
		return
	}
	s.emit(signal, nil)
}

func (s *Session) deliverLater(cont *Continuation, signal Signal, err error) {
	s.loop.Post(func() {
		s.deliver(cont, signal, err)
	})
}

func (s *Session) startSpan(name, path string) (context.Context, trace.Span) {
	ctx := tracing.WithSessionID(context.Background(), s.id)
	ctx = tracing.WithPath(ctx, path)
	return tracing.StartSpan(ctx, tracerName, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Open acquires a read-only descriptor for path, or for the configured path
// when path is empty. The watcher is armed or disarmed first, per
// ErrorOnMissing. Open never blocks; the result goes to cont, or to the
// file/ready and error signals.
func (s *Session) Open(path string, cont *Continuation) {
	s.mu.Lock()
	target := path
	if target == "" {
		target = s.path
	}

	switch {
	case s.file != nil || s.opening:
		s.mu.Unlock()
		s.deliverLater(cont, "", newError(ErrAlreadyOpen, "open", target, nil))
		return
	case target == "":
		s.mu.Unlock()
		s.deliverLater(cont, "", newError(ErrInvalidAction, "open", "", nil))
		return
	}
	s.path = target
	s.opening = true
	s.mu.Unlock()

	if s.errorOnMissing {
		s.armWatcher(target)
	} else {
		s.disarmWatcher()
	}

	ctx, span := s.startSpan("streamer.open", target)
	logger := tracing.TraceLogger(ctx, s.logger)

	s.loop.Post(func() {
		scheduler.Async(s.loop, func() (*os.File, error) {
			return os.OpenFile(target, os.O_RDONLY, 0)
		}, func(f *os.File, err error) {
			s.mu.Lock()
			s.opening = false
			if err == nil {
				s.file = f
			}
			s.mu.Unlock()

			observability.RecordLifecycle("open", err == nil)
			if err != nil {
				err = newError(ErrIOFailure, "open", target, err)
				s.disarmWatcher()
				logger.Error().Err(err).Msg("Failed to open file")
				observability.RecordLifecycleAudit(ctx, "open", s.id, err, nil)
				endSpan(span, err)
				s.deliver(cont, "", err)
				return
			}

			observability.SessionOpened()
			observability.RecordLifecycleAudit(ctx, "open", s.id, nil, map[string]interface{}{"path": target})
			logger.Debug().Msg("File opened for streaming")
			endSpan(span, nil)
			s.deliver(cont, SignalFile, nil)
		})
	})
}

// Close releases the descriptor and disarms the watcher. It fails with
// ErrStillStreaming while a stream is attached, leaving the session untouched.
func (s *Session) Close(cont *Continuation) {
	s.mu.Lock()
	err := s.closableLocked()
	s.mu.Unlock()

	if err != nil {
		s.deliverLater(cont, "", err)
		return
	}

	s.loop.Post(func() {
		s.closeNow(cont)
	})
}

func (s *Session) closableLocked() error {
	if s.stream != nil {
		return newError(ErrStillStreaming, "close", s.path, nil)
	}
	if s.file == nil || s.closing {
		return newError(ErrNotOpen, "close", s.path, nil)
	}
	return nil
}

// closeNow runs on the loop.
func (s *Session) closeNow(cont *Continuation) {
	s.mu.Lock()
	if err := s.closableLocked(); err != nil {
		s.mu.Unlock()
		s.deliver(cont, "", err)
		return
	}
	target := s.beginCloseLocked()
	s.mu.Unlock()

	s.finishClose(cont, target)
}

type closeTarget struct {
	file    *os.File
	path    string
	stopped bool
}

// beginCloseLocked marks the session as closing and drops any cached read.
// A read still in flight is not waited for: closing the descriptor makes it
// return and settle discards its result. The stopped signal it was holding
// back is handed to finishClose instead.
func (s *Session) beginCloseLocked() closeTarget {
	s.closing = true
	s.pending = nil
	stopped := s.stoppedPending
	s.stoppedPending = false
	return closeTarget{file: s.file, path: s.path, stopped: stopped}
}

// finishClose runs on the loop and releases the descriptor taken by beginCloseLocked.
func (s *Session) finishClose(cont *Continuation, target closeTarget) {
	if target.stopped {
		s.emit(SignalStopped, nil)
	}

	ctx, span := s.startSpan("streamer.close", target.path)
	logger := tracing.TraceLogger(ctx, s.logger)

	scheduler.Async(s.loop, func() (struct{}, error) {
		return struct{}{}, target.file.Close()
	}, func(_ struct{}, err error) {
		// os.File is unusable after Close even when it reports an error, so
		// the session is reset either way.
		s.mu.Lock()
		s.file = nil
		s.path = ""
		s.closing = false
		s.suspended = false
		s.mu.Unlock()

		s.disarmWatcher()
		observability.SessionClosed()
		observability.RecordLifecycle("close", err == nil)

		if err != nil {
			err = newError(ErrIOFailure, "close", target.path, err)
			logger.Error().Err(err).Msg("Failed to close file")
		} else {
			logger.Debug().Msg("File closed")
		}
		observability.RecordLifecycleAudit(ctx, "close", s.id, err, nil)
		endSpan(span, err)
		s.deliver(cont, SignalClosed, err)
	})
}

// Stream attaches a new consumer stream and starts the read loop. A read
// cached by an earlier detach is delivered first; otherwise reading resumes
// at the descriptor's current offset.
func (s *Session) Stream() (*Stream, error) {
	s.mu.Lock()
	switch {
	case s.file == nil || s.closing:
		s.mu.Unlock()
		return nil, newError(ErrNotOpen, "stream", s.path, nil)
	case s.chunkSize > MaxChunkSize:
		s.mu.Unlock()
		return nil, newError(ErrBufferTooLarge, "stream", s.path, nil)
	case s.stream != nil:
		s.mu.Unlock()
		return nil, newError(ErrStillStreaming, "stream", s.path, nil)
	}

	st := newStream(s.chunkSize)
	st.onReady = func() { s.loop.Post(func() { s.resume(st) }) }
	st.onDestroy = func(err error) { s.streamDestroyed(st, err) }
	s.stream = st
	s.suspended = false
	path := s.path
	s.mu.Unlock()

	observability.StreamAttached()
	observability.RecordLifecycleAudit(context.Background(), "stream", s.id, nil, map[string]interface{}{
		"path":       path,
		"chunk_size": st.highWaterMark,
	})
	s.logger.Debug().Int("chunk_size", st.highWaterMark).Msg("Stream attached")

	s.emitLater(SignalReading, nil)
	s.read()
	return st, nil
}

// Detach ends the attached stream without closing the descriptor. The
// consumer can still drain what was already pushed. Detaching twice is a
// no-op; stopped is emitted once per attached-to-detached transition.
func (s *Session) Detach() {
	s.mu.Lock()
	st := s.stream
	if st == nil {
		s.mu.Unlock()
		return
	}
	stoppedNow := s.detachLocked()
	s.mu.Unlock()

	st.SignalEnd()
	observability.RecordLifecycleAudit(context.Background(), "detach", s.id, nil, nil)
	s.logger.Debug().Msg("Stream detached")
	if stoppedNow {
		s.emitLater(SignalStopped, nil)
	}
}

// detachLocked clears the stream and reports whether stopped can be emitted
// right away, which is not the case while a read is in flight.
func (s *Session) detachLocked() bool {
	s.stream = nil
	s.suspended = false
	observability.StreamDetached()

	if s.inFlight {
		s.stoppedPending = true
		return false
	}
	return true
}

func (s *Session) streamDestroyed(st *Stream, err error) {
	s.mu.Lock()
	if s.stream != st {
		s.mu.Unlock()
		return
	}
	stoppedNow := s.detachLocked()
	s.mu.Unlock()

	observability.RecordLifecycleAudit(context.Background(), "detach", s.id, err, map[string]interface{}{
		"reason": "destroyed",
	})
	if err != nil {
		observability.RecordStreamError()
		s.logger.Warn().Err(err).Msg("Stream destroyed with error")
	} else {
		s.logger.Debug().Msg("Stream destroyed by consumer")
	}
	if stoppedNow {
		s.emitLater(SignalStopped, nil)
	}
}
