package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Signal is a short named message kind exchanged between chips.
type Signal string

// SignalDefault is the reserved wildcard subscription name. A handler
// registered under it receives every signal delivered to its actor.
// It is accepted by Listen and Ignore but never sendable.
const SignalDefault Signal = "$default"

// MaxSignalLen is the maximum length of a signal name.
const MaxSignalLen = 20

// Valid reports whether s matches the signal grammar: 1 to 20
// characters drawn from [A-Za-z0-9_]. SignalDefault does not match.
func (s Signal) Valid() bool {
	if len(s) == 0 || len(s) > MaxSignalLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isWordByte(s[i]) {
			return false
		}
	}
	return true
}

// isWordByte reports whether c is alphanumeric or underscore.
func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

// Scope selects the namespace a group lives in.
type Scope uint8

const (
	// ScopePrivate namespaces the group under its resolving owner
	ScopePrivate Scope = iota

	// ScopePublic places the group in the single shared namespace
	ScopePublic
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopePrivate:
		return "private"
	case ScopePublic:
		return "public"
	default:
		return "unknown"
	}
}

// GroupName identifies a group after parsing. Equal names under
// different scopes, or under different owners for private scope,
// denote disjoint groups.
type GroupName struct {
	// Name is the bare group name
	Name string

	// Scope is the namespace the group lives in
	Scope Scope
}

// String returns the canonical "<name>:<scope>" form.
func (g GroupName) String() string {
	return g.Name + ":" + g.Scope.String()
}

// ParseGroupName parses a raw group string of the form "<name>" or
// "<name>:<scope>". The name must match [A-Za-z0-9_]+ and the scope
// literal, when present, must be "public" or "private". A missing
// literal defaults to private.
func ParseGroupName(raw string) (GroupName, error) {
	name := raw
	literal := ""
	hasLiteral := false

	if i := strings.IndexByte(raw, ':'); i >= 0 {
		name = raw[:i]
		literal = raw[i+1:]
		hasLiteral = true
	}

	if !validGroupName(name) {
		return GroupName{}, fmt.Errorf("%w: '%s'", ErrInvalidGroupName, raw)
	}

	scope := ScopePrivate
	if hasLiteral {
		switch literal {
		case "public":
			scope = ScopePublic
		case "private":
			scope = ScopePrivate
		default:
			return GroupName{}, fmt.Errorf("%w: '%s'", ErrInvalidScope, literal)
		}
	}

	return GroupName{Name: name, Scope: scope}, nil
}

// validGroupName reports whether name is a non-empty run of word
// characters. Group names carry no length cap.
func validGroupName(name string) bool {
	if len(name) == 0 {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isWordByte(name[i]) {
			return false
		}
	}
	return true
}

// Owner is the opaque identity that namespaces private groups. Owner
// values are compared with == and used as map keys, so the dynamic
// type must be comparable. An owner is obtained from its actor at
// call time and never cached between calls.
type Owner any

// SystemOptions contains configuration options for creating a System.
type SystemOptions struct {
	// Logger receives registry and dispatch traces
	Logger zerolog.Logger

	// SlowHandlerWarn flags handler invocations slower than this;
	// zero disables the check
	SlowHandlerWarn time.Duration

	// LogHandlerFailures emits a warning per failed handler invocation
	LogHandlerFailures bool
}

// DefaultSystemOptions returns sensible default options.
func DefaultSystemOptions() SystemOptions {
	return SystemOptions{
		Logger:             zerolog.Nop(),
		SlowHandlerWarn:    0,
		LogHandlerFailures: true,
	}
}

// DispatchStats contains cumulative dispatch counters for a System.
type DispatchStats struct {
	// Sends is the number of Send calls that passed validation
	Sends uint64

	// Rejected is the number of Send calls that failed validation
	Rejected uint64

	// Deliveries is the number of handler invocations attempted
	Deliveries uint64

	// Failures is the number of handler invocations that failed
	Failures uint64
}
