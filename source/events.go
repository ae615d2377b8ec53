package source

import (
	"sync"

	"github.com/gogpu/chromakey"
)

// eventHub is the shared lifecycle-event fanout embedded by the concrete
// tracks. Listeners are called synchronously from the emitting goroutine;
// they must be cheap (the compositor's listener only logs).
type eventHub struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(chromakey.Event)
}

// Subscribe registers a listener and returns its removal function.
func (h *eventHub) Subscribe(fn func(chromakey.Event)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listeners == nil {
		h.listeners = make(map[int]func(chromakey.Event))
	}
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// emit delivers an event to all current listeners.
func (h *eventHub) emit(ev chromakey.Event) {
	h.mu.Lock()
	fns := make([]func(chromakey.Event), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
