package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/harun/fdstream/pkg/streamer"
	"github.com/rs/zerolog/log"
)

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// watchedSession is a session whose lifecycle signals are logged and whose
// errors are collected on a channel.
type watchedSession struct {
	*streamer.Session
	closed chan struct{}
	errs   chan error
}

func newWatchedSession(opts streamer.Options) *watchedSession {
	logger := log.With().Str("path", opts.Path).Logger()
	opts.Logger = &logger

	ws := &watchedSession{
		Session: streamer.New(opts),
		closed:  make(chan struct{}, 1),
		errs:    make(chan error, 8),
	}

	for _, sig := range []streamer.Signal{streamer.SignalReading, streamer.SignalPaused, streamer.SignalStopped} {
		ws.On(sig, func(e streamer.Event) {
			log.Debug().Str("path", e.Session.Path()).Str("signal", string(e.Signal)).Msg("Session signal")
		})
	}
	ws.On(streamer.SignalClosed, func(streamer.Event) {
		select {
		case ws.closed <- struct{}{}:
		default:
		}
	})
	ws.On(streamer.SignalError, func(e streamer.Event) {
		log.Warn().Err(e.Err).Msg("Session error")
		select {
		case ws.errs <- e.Err:
		default:
		}
	})
	return ws
}

// copyStream attaches a stream and copies it to w until the stream ends or ctx
// is cancelled, in which case the stream is detached.
func (ws *watchedSession) copyStream(ctx context.Context, w io.Writer) (int64, error) {
	st, err := ws.Stream()
	if err != nil {
		return 0, err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ws.Detach()
		case <-done:
		}
	}()

	n, err := io.Copy(w, st)
	if err != nil {
		return n, fmt.Errorf("failed to copy %s: %w", ws.Path(), err)
	}
	return n, nil
}

// waitClosed waits for the closed signal, a session error or ctx
func (ws *watchedSession) waitClosed(ctx context.Context) error {
	select {
	case <-ws.closed:
		return nil
	case err := <-ws.errs:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shutdown releases the descriptor if the session still holds one
func (ws *watchedSession) shutdown() error {
	if !ws.State().Open {
		return nil
	}
	err := ws.CloseWait(context.Background())
	if errors.Is(err, streamer.ErrNotOpen) {
		return nil
	}
	return err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
