package core

import (
	"fmt"
	"sync"
)

// GroupRegistry owns the mapping from (scope, owner, group name) to
// the set of member actors. Private groups are namespaced per owner;
// public groups share a single namespace. Member sets hold non-owning
// references: an actor that becomes invalid stays a member until it
// explicitly leaves.
type GroupRegistry struct {
	mu sync.RWMutex

	// Private groups keyed by owner, then by name
	private map[Owner]map[string]map[Actor]struct{}

	// Public groups keyed by name
	public map[string]map[Actor]struct{}
}

// NewGroupRegistry creates an empty group registry.
func NewGroupRegistry() *GroupRegistry {
	return &GroupRegistry{
		private: make(map[Owner]map[string]map[Actor]struct{}),
		public:  make(map[string]map[Actor]struct{}),
	}
}

// Join adds actor to the group named by raw, lazily creating the
// group. Private groups resolve under the actor's owner. Re-joining
// an existing member is a no-op.
func (r *GroupRegistry) Join(raw string, actor Actor) error {
	name, err := ParseGroupName(raw)
	if err != nil {
		return err
	}
	if actor == nil || !actor.Valid() {
		return fmt.Errorf("%w: join '%s'", ErrInvalidActor, raw)
	}

	var owner Owner
	if name.Scope == ScopePrivate {
		owner = actor.Owner()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.memberSet(name, owner, true)[actor] = struct{}{}
	return nil
}

// Leave removes actor from the group named by raw. The group string
// and actor are validated exactly as in Join; removing a non-member
// is a silent no-op.
func (r *GroupRegistry) Leave(raw string, actor Actor) error {
	name, err := ParseGroupName(raw)
	if err != nil {
		return err
	}
	if actor == nil || !actor.Valid() {
		return fmt.Errorf("%w: leave '%s'", ErrInvalidActor, raw)
	}

	var owner Owner
	if name.Scope == ScopePrivate {
		owner = actor.Owner()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if set := r.memberSet(name, owner, false); set != nil {
		delete(set, actor)
	}
	return nil
}

// Members returns a stable copy of the member set for name, resolved
// under owner for private scope. A missing group yields nil, which is
// indistinguishable from an empty one. Membership is reported as
// stored, including actors that have since become invalid.
func (r *GroupRegistry) Members(name GroupName, owner Owner) []Actor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.memberSet(name, owner, false)
	if len(set) == 0 {
		return nil
	}

	members := make([]Actor, 0, len(set))
	for actor := range set {
		members = append(members, actor)
	}
	return members
}

// MemberCount returns the current size of the named group.
func (r *GroupRegistry) MemberCount(name GroupName, owner Owner) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.memberSet(name, owner, false))
}

// memberSet returns the member set for name, creating missing tables
// when create is set. Callers must hold mu, the write lock when
// create is set.
func (r *GroupRegistry) memberSet(name GroupName, owner Owner, create bool) map[Actor]struct{} {
	if name.Scope == ScopePublic {
		set, ok := r.public[name.Name]
		if !ok && create {
			set = make(map[Actor]struct{})
			r.public[name.Name] = set
		}
		return set
	}

	groups, ok := r.private[owner]
	if !ok {
		if !create {
			return nil
		}
		groups = make(map[string]map[Actor]struct{})
		r.private[owner] = groups
	}

	set, ok := groups[name.Name]
	if !ok && create {
		set = make(map[Actor]struct{})
		groups[name.Name] = set
	}
	return set
}
