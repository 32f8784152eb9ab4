// Package scheduler provides a single-goroutine cooperative task loop.
//
// Invariants:
// - Tasks run one at a time, to completion, on the loop goroutine.
// - Urgent tasks run before any ordinary task that is already queued.
// - Ordinary tasks run in FIFO order.
// - Blocking work started with Async never runs on the loop goroutine; only its
//   continuation does.
//
// Usage:
//
//	loop := scheduler.New("files")
//	defer loop.Close()
//	scheduler.Async(loop, func() (int, error) {
//		return f.Read(buf)
//	}, func(n int, err error) {
//		// runs on the loop goroutine
//	})
package scheduler
