package core

// Actor is an opaque, externally owned identity that can send and
// receive signals. The routing core never creates or destroys actors;
// registries hold non-owning references that outlive the actor's
// validity until explicitly removed. Implementations must be
// comparable with == (pointer types satisfy this) because actors are
// used as registry keys.
type Actor interface {
	// Valid reports whether the actor still exists in the host.
	Valid() bool

	// Owner returns the identity namespacing the actor's private
	// groups. It is queried at call time, never cached.
	Owner() Owner
}

// Handler is an opaque callback handle invoked for signals delivered
// to an actor. Handles are compared by identity, so implementations
// must be comparable with ==; registering the same handle twice for
// one (actor, signal) pair is idempotent. A returned error marks the
// invocation failed; Send counts it and never propagates it.
type Handler interface {
	// HandleSignal processes a single delivered signal.
	// It should return an error if processing fails.
	HandleSignal(sig Signal, data Value, sender Actor) error
}

// HandlerFunc adapts an ordinary function to the Handler interface.
// Every value constructed by NewHandlerFunc is a distinct handle,
// even when wrapping the same function.
type HandlerFunc struct {
	fn func(sig Signal, data Value, sender Actor) error
}

// NewHandlerFunc wraps fn as a Handler handle.
func NewHandlerFunc(fn func(sig Signal, data Value, sender Actor) error) *HandlerFunc {
	return &HandlerFunc{fn: fn}
}

// HandleSignal invokes the wrapped function.
func (h *HandlerFunc) HandleSignal(sig Signal, data Value, sender Actor) error {
	return h.fn(sig, data, sender)
}
