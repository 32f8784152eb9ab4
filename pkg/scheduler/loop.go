package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/harun/fdstream/internal/observability"
	"github.com/rs/zerolog/log"
)

// Task is a unit of work run on the loop goroutine
type Task func()

// Stats is a snapshot of loop activity
type Stats struct {
	Queued int
	Urgent int
	Ran    uint64
	Closed bool
}

// Loop runs posted tasks sequentially on a single goroutine
type Loop struct {
	name   string
	mu     sync.Mutex
	wake   *sync.Cond
	urgent []Task
	queue  []Task
	ran    uint64
	closed bool
	done   chan struct{}
}

var (
	defaultOnce sync.Once
	defaultLoop *Loop
)

// Default returns the process-wide loop. It is started on first use and never closed.
func Default() *Loop {
	defaultOnce.Do(func() {
		defaultLoop = New("default")
	})
	return defaultLoop
}

// New creates and starts a loop
func New(name string) *Loop {
	observability.EnsureRegistered()

	l := &Loop{
		name: name,
		done: make(chan struct{}),
	}
	l.wake = sync.NewCond(&l.mu)

	go l.run()

	log.Debug().Str("loop", name).Msg("Scheduler loop started")
	return l
}

// Name returns the loop name used in logs and metrics
func (l *Loop) Name() string {
	return l.name
}

// Post queues a task for a later turn of the loop.
// It returns false if the loop is closed and the task was dropped.
func (l *Loop) Post(task Task) bool {
	return l.enqueue(task, false)
}

// PostUrgent queues a task ahead of every ordinary task.
func (l *Loop) PostUrgent(task Task) bool {
	return l.enqueue(task, true)
}

// PostAfter posts task once d has elapsed. A non-positive d is the same as Post.
func (l *Loop) PostAfter(d time.Duration, task Task) {
	if d <= 0 {
		l.Post(task)
		return
	}
	time.AfterFunc(d, func() {
		l.Post(task)
	})
}

func (l *Loop) enqueue(task Task, urgent bool) bool {
	if task == nil {
		return false
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		log.Debug().Str("loop", l.name).Msg("Task dropped, loop closed")
		return false
	}
	if urgent {
		l.urgent = append(l.urgent, task)
	} else {
		l.queue = append(l.queue, task)
	}
	depth := len(l.queue) + len(l.urgent)
	l.mu.Unlock()

	l.wake.Signal()
	observability.SetLoopQueueDepth(l.name, depth)
	return true
}

// Close stops accepting tasks. Tasks already queued still run; use Wait to block
// until the loop has drained and exited.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.wake.Broadcast()
}

// Wait blocks until the loop goroutine has exited
func (l *Loop) Wait() {
	<-l.done
}

// Done is closed once the loop has exited
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Stats returns a snapshot of the loop state
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Queued: len(l.queue),
		Urgent: len(l.urgent),
		Ran:    l.ran,
		Closed: l.closed,
	}
}

func (l *Loop) run() {
	defer close(l.done)

	for {
		task, ok := l.next()
		if !ok {
			log.Debug().Str("loop", l.name).Msg("Scheduler loop stopped")
			return
		}
		l.execute(task)
	}
}

// next blocks until a task is available. Urgent tasks win.
func (l *Loop) next() (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for len(l.urgent) == 0 && len(l.queue) == 0 {
		if l.closed {
			return nil, false
		}
		l.wake.Wait()
	}

	var task Task
	if len(l.urgent) > 0 {
		task = l.urgent[0]
		l.urgent[0] = nil
		l.urgent = l.urgent[1:]
	} else {
		task = l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
	}
	l.ran++
	observability.SetLoopQueueDepth(l.name, len(l.queue)+len(l.urgent))
	return task, true
}

func (l *Loop) execute(task Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("task panicked: %v", r)
			log.Error().Err(err).Str("loop", l.name).Msg("Scheduler task failed")
			observability.RecordLoopTask(l.name, time.Since(start), false)
			return
		}
		observability.RecordLoopTask(l.name, time.Since(start), true)
	}()

	task()
}
