package streamer

import (
	"time"

	"github.com/harun/fdstream/pkg/scheduler"
	"github.com/rs/zerolog"
)

// MaxChunkSize is the largest chunk a streamed read may request
const MaxChunkSize = 16384

// Signal names a notification published on a session's channel
type Signal string

const (
	SignalReading Signal = "reading" // read loop started or resumed
	SignalPaused  Signal = "paused"  // consumer not ready, read loop halted
	SignalStopped Signal = "stopped" // stream detached and read loop quiesced
	SignalClosed  Signal = "closed"  // descriptor released
	SignalError   Signal = "error"   // asynchronous failure
	SignalFile    Signal = "file"    // descriptor opened
	SignalReady   Signal = "ready"   // alias of SignalFile
)

// Event is delivered to signal handlers
type Event struct {
	Signal  Signal
	Session *Session
	Err     error
}

// Handler handles a session signal
type Handler func(Event)

// Continuation receives the result of a lifecycle operation instead of the signal channel.
// A nil Resolve or Reject falls back to the corresponding signal.
type Continuation struct {
	Resolve func(*Session)
	Reject  func(error)
}

// Action names a lifecycle operation for Do
type Action string

const (
	ActionOpen  Action = "open"
	ActionClose Action = "close"
)

// Options configures a Session
type Options struct {
	Path             string        // default path, overridden by a non-empty path passed to Open
	ChunkSize        int           // bytes per read (default: MaxChunkSize)
	ErrorOnMissing   bool          // arm the staleness watcher while open
	CloseOnEndOfFile bool          // detach and close on a zero-byte read
	PollInterval     time.Duration // delay before re-reading at end of data (default: next loop turn)
	Loop             *scheduler.Loop
	Logger           *zerolog.Logger
}

// State is a snapshot of a session
type State struct {
	ID          string
	Path        string
	ChunkSize   int
	Open        bool
	Streaming   bool
	Suspended   bool
	PendingRead bool
	InFlight    bool
	Watching    bool
}
