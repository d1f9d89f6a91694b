package core

// TargetKind identifies the variant of a send target.
type TargetKind uint8

const (
	// TargetInvalid is the kind of the zero Target; Send rejects it
	TargetInvalid TargetKind = iota

	// TargetActor addresses one actor directly
	TargetActor

	// TargetGroup addresses the current members of a named group
	TargetGroup

	// TargetList addresses an ordered collection of nested targets
	TargetList
)

// String returns the string representation of TargetKind.
func (k TargetKind) String() string {
	switch k {
	case TargetActor:
		return "actor"
	case TargetGroup:
		return "group"
	case TargetList:
		return "list"
	default:
		return "invalid"
	}
}

// Target identifies the recipients of a Send, a tagged variant over a
// single actor, a raw group-name string, or an ordered collection of
// nested targets. Targets are built through the constructors; the
// zero Target is invalid.
type Target struct {
	kind  TargetKind
	actor Actor
	group string
	list  []Target
}

// ActorTarget addresses a single actor.
func ActorTarget(a Actor) Target {
	return Target{kind: TargetActor, actor: a}
}

// GroupTarget addresses the members of the group named by the raw
// group string. Private scope resolves under the sender's owner at
// send time.
func GroupTarget(group string) Target {
	return Target{kind: TargetGroup, group: group}
}

// MultiTarget addresses every recipient of the nested targets, in
// order. An actor reachable through more than one branch is delivered
// once. An empty collection is valid and resolves to no recipients.
func MultiTarget(targets ...Target) Target {
	return Target{kind: TargetList, list: targets}
}

// Kind returns the target variant.
func (t Target) Kind() TargetKind {
	return t.kind
}
