package streamer

import (
	"os"
	"sync"
	"time"

	"github.com/harun/fdstream/internal/tracing"
	"github.com/harun/fdstream/pkg/scheduler"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// readResult is a completed read that no stream was attached to receive
type readResult struct {
	n   int
	buf []byte
}

// Session streams one file or named pipe
type Session struct {
	id     string
	loop   *scheduler.Loop
	logger zerolog.Logger
	events *Emitter

	errorOnMissing   bool
	closeOnEndOfFile bool
	pollInterval     time.Duration

	mu        sync.Mutex
	path      string
	file      *os.File
	chunkSize int
	opening   bool
	closing   bool
	suspended bool
	pending   *readResult
	inFlight  bool
	scheduled bool
	// stoppedPending defers the stopped signal until the in-flight read settles
	stoppedPending bool
	watcher        *staleWatcher
	stream         *Stream
}

// New creates a session. Nothing is opened until Open is called.
func New(opts Options) *Session {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = MaxChunkSize
	}

	loop := opts.Loop
	if loop == nil {
		loop = scheduler.Default()
	}

	id := tracing.NewSessionID()
	base := log.Logger
	if opts.Logger != nil {
		base = *opts.Logger
	}

	return &Session{
		id:               id,
		loop:             loop,
		logger:           base.With().Str("session_id", id).Logger(),
		events:           NewEmitter(),
		errorOnMissing:   opts.ErrorOnMissing,
		closeOnEndOfFile: opts.CloseOnEndOfFile,
		pollInterval:     opts.PollInterval,
		path:             opts.Path,
		chunkSize:        chunkSize,
	}
}

// ID returns the session's correlation id
func (s *Session) ID() string {
	return s.id
}

// Path returns the current target path
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// ChunkSize returns the number of bytes requested per read
func (s *Session) ChunkSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunkSize
}

// SetChunkSize changes the read size used by streams created afterwards
func (s *Session) SetChunkSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.chunkSize = n
	}
}

// State returns a snapshot of the session
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:          s.id,
		Path:        s.path,
		ChunkSize:   s.chunkSize,
		Open:        s.file != nil,
		Streaming:   s.stream != nil,
		Suspended:   s.suspended,
		PendingRead: s.pending != nil,
		InFlight:    s.inFlight,
		Watching:    s.watcher != nil,
	}
}

// On subscribes handler to signal
func (s *Session) On(signal Signal, handler Handler) uint64 {
	return s.events.On(signal, handler)
}

// Once subscribes handler to the next occurrence of signal
func (s *Session) Once(signal Signal, handler Handler) uint64 {
	return s.events.Once(signal, handler)
}

// Off removes a handler registered with On or Once
func (s *Session) Off(signal Signal, id uint64) {
	s.events.Off(signal, id)
}

// RemoveAllListeners drops every signal handler
func (s *Session) RemoveAllListeners() {
	s.events.RemoveAllListeners()
}

// emit runs handlers for the signal. Only call it from the loop goroutine.
func (s *Session) emit(signal Signal, err error) {
	n := s.events.Emit(Event{Signal: signal, Session: s, Err: err})

	if err != nil {
		if n == 0 {
			s.logger.Warn().Err(err).Str("signal", string(signal)).Msg("Unhandled session error")
		} else {
			s.logger.Debug().Err(err).Str("signal", string(signal)).Msg("Session error emitted")
		}
		return
	}
	s.logger.Debug().Str("signal", string(signal)).Int("listeners", n).Msg("Session signal emitted")
}

// emitLater emits from the next loop turn; safe from any goroutine
func (s *Session) emitLater(signal Signal, err error) {
	s.loop.Post(func() {
		s.emit(signal, err)
	})
}
