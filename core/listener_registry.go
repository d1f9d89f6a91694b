package core

import (
	"fmt"
	"sync"
)

// ListenerRegistry owns the mapping from (actor, signal) to the set
// of handler handles. Rows under SignalDefault hold wildcard
// subscriptions. Entries are non-owning: nothing is removed when an
// actor becomes invalid; Ignore is the only removal path.
type ListenerRegistry struct {
	mu        sync.RWMutex
	listeners map[Actor]map[Signal]map[Handler]struct{}
}

// NewListenerRegistry creates an empty listener registry.
func NewListenerRegistry() *ListenerRegistry {
	return &ListenerRegistry{
		listeners: make(map[Actor]map[Signal]map[Handler]struct{}),
	}
}

// Listen registers handler under (actor, sig). The wildcard
// SignalDefault subscribes the handler to every signal delivered to
// the actor. Registering the same handle twice is idempotent.
func (r *ListenerRegistry) Listen(sig Signal, actor Actor, handler Handler) error {
	if sig != SignalDefault && !sig.Valid() {
		return fmt.Errorf("%w: '%s'", ErrInvalidSignal, sig)
	}
	if actor == nil || !actor.Valid() {
		return fmt.Errorf("%w: listen '%s'", ErrInvalidActor, sig)
	}
	if handler == nil {
		return fmt.Errorf("%w: listen '%s'", ErrInvalidHandler, sig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	signals, ok := r.listeners[actor]
	if !ok {
		signals = make(map[Signal]map[Handler]struct{})
		r.listeners[actor] = signals
	}

	set, ok := signals[sig]
	if !ok {
		set = make(map[Handler]struct{})
		signals[sig] = set
	}

	set[handler] = struct{}{}
	return nil
}

// Ignore removes handler from (actor, sig). Unknown actors, signals
// and handlers are a silent no-op; only a malformed signal is an
// error, matching Listen's validation.
func (r *ListenerRegistry) Ignore(sig Signal, actor Actor, handler Handler) error {
	if sig != SignalDefault && !sig.Valid() {
		return fmt.Errorf("%w: '%s'", ErrInvalidSignal, sig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	signals, ok := r.listeners[actor]
	if !ok {
		return nil
	}

	set, ok := signals[sig]
	if !ok {
		return nil
	}

	delete(set, handler)

	// Drop empty rows; an empty set is indistinguishable from a
	// missing one.
	if len(set) == 0 {
		delete(signals, sig)
	}
	if len(signals) == 0 {
		delete(r.listeners, actor)
	}
	return nil
}

// Handlers returns stable copies of the handler sets registered under
// (actor, sig) and under the actor's wildcard row. Missing rows yield
// nil slices.
func (r *ListenerRegistry) Handlers(actor Actor, sig Signal) (exact, wildcard []Handler) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	signals, ok := r.listeners[actor]
	if !ok {
		return nil, nil
	}

	return copyHandlers(signals[sig]), copyHandlers(signals[SignalDefault])
}

// HandlerCount returns the number of handles registered under
// (actor, sig).
func (r *ListenerRegistry) HandlerCount(actor Actor, sig Signal) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.listeners[actor][sig])
}

// copyHandlers snapshots a handler set into a slice.
func copyHandlers(set map[Handler]struct{}) []Handler {
	if len(set) == 0 {
		return nil
	}
	handlers := make([]Handler, 0, len(set))
	for h := range set {
		handlers = append(handlers, h)
	}
	return handlers
}
