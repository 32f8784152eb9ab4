package streamer

import "sync"

type listener struct {
	id   uint64
	fn   Handler
	once bool
}

// Emitter dispatches session signals to subscribers
type Emitter struct {
	mu        sync.RWMutex
	seq       uint64
	listeners map[Signal][]listener
}

// NewEmitter creates a new emitter
func NewEmitter() *Emitter {
	return &Emitter{
		listeners: make(map[Signal][]listener),
	}
}

// canonical folds signal aliases onto one name
func canonical(signal Signal) Signal {
	if signal == SignalReady {
		return SignalFile
	}
	return signal
}

// On registers a handler and returns an id usable with Off
func (e *Emitter) On(signal Signal, handler Handler) uint64 {
	return e.add(signal, handler, false)
}

// Once registers a handler that is removed after its first call
func (e *Emitter) Once(signal Signal, handler Handler) uint64 {
	return e.add(signal, handler, true)
}

func (e *Emitter) add(signal Signal, handler Handler, once bool) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	signal = canonical(signal)
	e.listeners[signal] = append(e.listeners[signal], listener{id: e.seq, fn: handler, once: once})
	return e.seq
}

// Off removes the handler registered under id
func (e *Emitter) Off(signal Signal, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	signal = canonical(signal)
	e.listeners[signal] = removeListener(e.listeners[signal], id)
}

func removeListener(list []listener, id uint64) []listener {
	for i, l := range list {
		if l.id == id {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// Emit calls every handler for the event's signal synchronously, in registration order.
// It returns the number of handlers called.
func (e *Emitter) Emit(event Event) int {
	signal := canonical(event.Signal)

	e.mu.Lock()
	handlers := append([]listener(nil), e.listeners[signal]...)
	for _, l := range handlers {
		if l.once {
			e.listeners[signal] = removeListener(e.listeners[signal], l.id)
		}
	}
	e.mu.Unlock()

	for _, l := range handlers {
		l.fn(event)
	}
	return len(handlers)
}

// ListenerCount returns the number of handlers registered for signal
func (e *Emitter) ListenerCount(signal Signal) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[canonical(signal)])
}

// RemoveAllListeners removes all event listeners
func (e *Emitter) RemoveAllListeners() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = make(map[Signal][]listener)
}
