package streamer

import (
	"context"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/harun/fdstream/internal/observability"
)

// staleWatcher watches one path for content-change notifications
type staleWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(*staleWatcher)
	onError  func(*staleWatcher, error)
	done     chan struct{}
	stopOnce sync.Once
}

func newStaleWatcher(path string, onChange func(*staleWatcher), onError func(*staleWatcher, error)) (*staleWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch file: %w", err)
	}

	w := &staleWatcher{
		path:     path,
		watcher:  watcher,
		onChange: onChange,
		onError:  onError,
		done:     make(chan struct{}),
	}
	go w.eventLoop()
	return w, nil
}

func (w *staleWatcher) stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		if cerr := w.watcher.Close(); cerr != nil {
			err = fmt.Errorf("failed to close watcher: %w", cerr)
		}
	})
	return err
}

func (w *staleWatcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if isContentChange(event) {
				w.onChange(w)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.onError(w, err)

		case <-w.done:
			return
		}
	}
}

// isContentChange reports whether event belongs to the change class. Unlinking
// a file shows up as Chmod (its link count changed). Create, Remove and Rename
// are not reliable deletion signals across platforms and are ignored.
func isContentChange(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod)
}

// armWatcher starts watching path. Arming an armed session is a no-op.
func (s *Session) armWatcher(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return
	}

	w, err := newStaleWatcher(path, s.watchNotified, s.watchErrored)
	if err != nil {
		observability.RecordWatchFailure()
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to arm staleness watcher")
		s.emitLater(SignalError, newError(ErrWatchFailure, "watch", path, err))
		return
	}
	s.watcher = w
	s.logger.Debug().Str("path", path).Msg("Staleness watcher armed")
}

// disarmWatcher stops the watcher. Disarming an unarmed session is a no-op.
func (s *Session) disarmWatcher() {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if w == nil {
		return
	}
	if err := w.stop(); err != nil {
		s.emitLater(SignalError, newError(ErrWatchFailure, "unwatch", w.path, err))
		return
	}
	s.logger.Debug().Str("path", w.path).Msg("Staleness watcher disarmed")
}

// watchNotified runs on the fsnotify goroutine. The accessibility check is
// queued ahead of pending reads so a vanished file is reported promptly.
func (s *Session) watchNotified(w *staleWatcher) {
	s.loop.PostUrgent(func() {
		go func() {
			if err := checkAccess(w.path); err != nil {
				s.loop.PostUrgent(func() {
					s.watchFailed(w, err)
				})
			}
		}()
	})
}

func (s *Session) watchErrored(w *staleWatcher, err error) {
	observability.RecordWatchFailure()
	s.emitLater(SignalError, newError(ErrWatchFailure, "watch", w.path, err))
}

// watchFailed runs on the loop. Only the first failure of the armed watcher is reported.
func (s *Session) watchFailed(w *staleWatcher, err error) {
	s.mu.Lock()
	if s.watcher != w {
		s.mu.Unlock()
		return
	}
	s.watcher = nil
	s.mu.Unlock()

	if stopErr := w.stop(); stopErr != nil {
		s.logger.Warn().Err(stopErr).Msg("Failed to stop staleness watcher")
	}

	observability.RecordWatchFailure()
	err = newError(ErrWatchFailure, "access", w.path, err)
	observability.RecordLifecycleAudit(context.Background(), "watch", s.id, err, map[string]interface{}{"path": w.path})
	s.logger.Warn().Err(err).Msg("Watched file is no longer accessible")
	s.emit(SignalError, err)
}
