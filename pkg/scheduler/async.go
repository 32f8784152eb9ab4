package scheduler

import "github.com/rs/zerolog/log"

// Async runs work on its own goroutine and posts done with the result back onto the loop.
// If the loop has been closed by the time work returns, the result is dropped.
func Async[T any](l *Loop, work func() (T, error), done func(T, error)) {
	go func() {
		value, err := work()
		if !l.Post(func() { done(value, err) }) {
			log.Warn().Str("loop", l.name).Err(err).Msg("Async result dropped, loop closed")
		}
	}()
}
