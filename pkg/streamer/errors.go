package streamer

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned when the session has no open descriptor
	ErrNotOpen = errors.New("no file descriptor available")

	// ErrBufferTooLarge is returned when the chunk size exceeds MaxChunkSize
	ErrBufferTooLarge = fmt.Errorf("chunk size must not exceed %d bytes for streamed reads", MaxChunkSize)

	// ErrStillStreaming is returned when a stream is still attached to the session
	ErrStillStreaming = errors.New("stream is still attached, detach first")

	// ErrIOFailure wraps open, read and close failures
	ErrIOFailure = errors.New("file i/o failed")

	// ErrWatchFailure is reported when the watched file is no longer accessible
	ErrWatchFailure = errors.New("watched file is no longer accessible")

	// ErrInvalidAction is returned for lifecycle actions without a recognized target
	ErrInvalidAction = errors.New("invalid lifecycle action")

	// ErrAlreadyOpen is returned when opening a session that already holds a descriptor
	ErrAlreadyOpen = errors.New("session already has an open file")
)

// Error carries the operation and path that failed alongside the error category.
// errors.Is matches both Kind and the underlying cause.
type Error struct {
	Kind error
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op, path string, err error) error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}
