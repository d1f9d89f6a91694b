package core

import (
	"fmt"
	"strconv"
)

// Kind identifies the payload variant carried by a Value.
type Kind uint8

const (
	// KindInvalid is the kind of the zero Value; Send rejects it
	KindInvalid Kind = iota

	// KindNil carries no payload
	KindNil

	// KindBoolean carries a bool
	KindBoolean

	// KindNumber carries a float64
	KindNumber

	// KindString carries a string
	KindString

	// KindVector carries a Vector
	KindVector

	// KindAngle carries an Angle
	KindAngle

	// KindActorRef carries a generic actor reference
	KindActorRef

	// KindNPCRef carries an NPC actor reference
	KindNPCRef

	// KindPlayerRef carries a player actor reference
	KindPlayerRef
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindVector:
		return "vector"
	case KindAngle:
		return "angle"
	case KindActorRef:
		return "actor"
	case KindNPCRef:
		return "npc"
	case KindPlayerRef:
		return "player"
	default:
		return "invalid"
	}
}

// Vector is a three component spatial payload.
type Vector struct {
	X float64
	Y float64
	Z float64
}

// Angle is a three component orientation payload.
type Angle struct {
	Pitch float64
	Yaw   float64
	Roll  float64
}

// Value is the payload carried alongside a signal, a closed tagged
// union over the nine allowed kinds. Values are built through the
// per-kind constructors; the zero Value has KindInvalid and fails
// Send's payload validation.
type Value struct {
	kind  Kind
	b     bool
	num   float64
	str   string
	vec   Vector
	ang   Angle
	actor Actor
}

// NilValue returns the nil payload.
func NilValue() Value {
	return Value{kind: KindNil}
}

// BoolValue returns a boolean payload.
func BoolValue(b bool) Value {
	return Value{kind: KindBoolean, b: b}
}

// NumberValue returns a numeric payload.
func NumberValue(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// StringValue returns a string payload.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// VectorValue returns a vector payload.
func VectorValue(v Vector) Value {
	return Value{kind: KindVector, vec: v}
}

// AngleValue returns an angle payload.
func AngleValue(a Angle) Value {
	return Value{kind: KindAngle, ang: a}
}

// ActorRef returns a generic actor reference payload.
func ActorRef(a Actor) Value {
	return Value{kind: KindActorRef, actor: a}
}

// NPCRef returns an NPC reference payload.
func NPCRef(a Actor) Value {
	return Value{kind: KindNPCRef, actor: a}
}

// PlayerRef returns a player reference payload.
func PlayerRef(a Actor) Value {
	return Value{kind: KindPlayerRef, actor: a}
}

// Kind returns the payload variant.
func (v Value) Kind() Kind {
	return v.kind
}

// Valid reports whether the value was built by a kind constructor.
func (v Value) Valid() bool {
	return v.kind != KindInvalid
}

// IsNil reports whether the value carries the nil payload.
func (v Value) IsNil() bool {
	return v.kind == KindNil
}

// AsBool returns the boolean payload and whether the value carries one.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBoolean
}

// AsNumber returns the numeric payload and whether the value carries one.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AsString returns the string payload and whether the value carries one.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsVector returns the vector payload and whether the value carries one.
func (v Value) AsVector() (Vector, bool) {
	return v.vec, v.kind == KindVector
}

// AsAngle returns the angle payload and whether the value carries one.
func (v Value) AsAngle() (Angle, bool) {
	return v.ang, v.kind == KindAngle
}

// AsActor returns the referenced actor for any of the actor-like
// kinds (actor, NPC, player) and whether the value carries one.
func (v Value) AsActor() (Actor, bool) {
	switch v.kind {
	case KindActorRef, KindNPCRef, KindPlayerRef:
		return v.actor, true
	default:
		return nil, false
	}
}

// String returns a short printable form used in logs.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return v.str
	case KindVector:
		return fmt.Sprintf("vector(%g, %g, %g)", v.vec.X, v.vec.Y, v.vec.Z)
	case KindAngle:
		return fmt.Sprintf("angle(%g, %g, %g)", v.ang.Pitch, v.ang.Yaw, v.ang.Roll)
	case KindActorRef, KindNPCRef, KindPlayerRef:
		return fmt.Sprintf("%s(%v)", v.kind, v.actor)
	default:
		return "invalid"
	}
}
