package core

import (
	"github.com/rs/zerolog"
)

// System bundles a GroupRegistry, a ListenerRegistry and a Dispatcher
// wired to them behind a single facade. It is the intended entry
// point for embedders; the registries remain reachable for direct
// use. A System lives for the duration of the process or session and
// needs no explicit teardown.
type System struct {
	groups     *GroupRegistry
	listeners  *ListenerRegistry
	dispatcher *Dispatcher
	logger     zerolog.Logger
}

// NewSystem creates a System with default options.
func NewSystem() *System {
	return NewSystemWithOptions(DefaultSystemOptions())
}

// NewSystemWithOptions creates a System with explicit options.
func NewSystemWithOptions(opts SystemOptions) *System {
	groups := NewGroupRegistry()
	listeners := NewListenerRegistry()

	return &System{
		groups:     groups,
		listeners:  listeners,
		dispatcher: NewDispatcherWithOptions(groups, listeners, opts),
		logger:     opts.Logger,
	}
}

// Groups returns the group registry.
func (s *System) Groups() *GroupRegistry {
	return s.groups
}

// Listeners returns the listener registry.
func (s *System) Listeners() *ListenerRegistry {
	return s.listeners
}

// Join adds actor to the group named by the raw group string.
func (s *System) Join(group string, actor Actor) error {
	if err := s.groups.Join(group, actor); err != nil {
		return err
	}

	s.logger.Debug().Str("group", group).Msg("actor joined group")
	return nil
}

// Leave removes actor from the group named by the raw group string.
func (s *System) Leave(group string, actor Actor) error {
	if err := s.groups.Leave(group, actor); err != nil {
		return err
	}

	s.logger.Debug().Str("group", group).Msg("actor left group")
	return nil
}

// Listen registers handler for sig on actor. SignalDefault subscribes
// the handler to every signal delivered to the actor.
func (s *System) Listen(sig Signal, actor Actor, handler Handler) error {
	if err := s.listeners.Listen(sig, actor, handler); err != nil {
		return err
	}

	s.logger.Debug().Str("signal", string(sig)).Msg("listener registered")
	return nil
}

// Ignore removes handler from (actor, sig). Unknown entries are a
// silent no-op.
func (s *System) Ignore(sig Signal, actor Actor, handler Handler) error {
	if err := s.listeners.Ignore(sig, actor, handler); err != nil {
		return err
	}

	s.logger.Debug().Str("signal", string(sig)).Msg("listener removed")
	return nil
}

// Send delivers sig with payload data to every recipient reachable
// from target, on behalf of sender. It returns the count of handler
// invocations that failed.
func (s *System) Send(target Target, sig Signal, data Value, sender Actor) (int, error) {
	return s.dispatcher.Send(target, sig, data, sender)
}

// GroupMembers parses the raw group string and returns a copy of the
// group's member set, resolved under owner for private scope.
func (s *System) GroupMembers(group string, owner Owner) ([]Actor, error) {
	name, err := ParseGroupName(group)
	if err != nil {
		return nil, err
	}
	return s.groups.Members(name, owner), nil
}

// ListenerCount returns the number of handles registered under
// (actor, sig).
func (s *System) ListenerCount(actor Actor, sig Signal) int {
	return s.listeners.HandlerCount(actor, sig)
}

// Stats returns a snapshot of the cumulative dispatch counters.
func (s *System) Stats() DispatchStats {
	return s.dispatcher.Stats()
}
