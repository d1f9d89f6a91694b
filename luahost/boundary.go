package luahost

import (
	"fmt"

	"github.com/Shopify/go-lua"

	"github.com/signalgrid/signalgrid/core"
)

const (
	vectorTypeName = "signalgrid.vector"
	angleTypeName  = "signalgrid.angle"
	actorTypeName  = "signalgrid.actor"
)

// actorRef wraps an actor reference crossing the Lua boundary. The
// kind tag distinguishes actor, NPC and player references and
// survives round trips through scripts.
type actorRef struct {
	actor core.Actor
	kind  core.Kind
}

// registerBoundaryTypes installs the vector, angle and actor
// metatables plus their constructor globals into a chip state.
func registerBoundaryTypes(l *lua.State) {
	registerVectorType(l)
	registerAngleType(l)
	registerActorType(l)
	registerConstructors(l)
}

func registerVectorType(l *lua.State) {
	lua.NewMetaTable(l, vectorTypeName)
	l.NewTable()
	lua.SetFunctions(l, vectorMethods, 0)
	l.SetField(-2, "__index")
	l.PushGoFunction(vectorToString)
	l.SetField(-2, "__tostring")
	l.Pop(1)
}

func registerAngleType(l *lua.State) {
	lua.NewMetaTable(l, angleTypeName)
	l.NewTable()
	lua.SetFunctions(l, angleMethods, 0)
	l.SetField(-2, "__index")
	l.PushGoFunction(angleToString)
	l.SetField(-2, "__tostring")
	l.Pop(1)
}

func registerActorType(l *lua.State) {
	lua.NewMetaTable(l, actorTypeName)
	l.NewTable()
	lua.SetFunctions(l, actorMethods, 0)
	l.SetField(-2, "__index")
	l.PushGoFunction(actorToString)
	l.SetField(-2, "__tostring")
	l.Pop(1)
}

func registerConstructors(l *lua.State) {
	l.PushGoFunction(vectorNew)
	l.SetGlobal("Vector")
	l.PushGoFunction(angleNew)
	l.SetGlobal("Angle")
}

var vectorMethods = []lua.RegistryFunction{
	{Name: "x", Function: vectorX},
	{Name: "y", Function: vectorY},
	{Name: "z", Function: vectorZ},
}

var angleMethods = []lua.RegistryFunction{
	{Name: "pitch", Function: anglePitch},
	{Name: "yaw", Function: angleYaw},
	{Name: "roll", Function: angleRoll},
}

var actorMethods = []lua.RegistryFunction{
	{Name: "valid", Function: actorValid},
	{Name: "kind", Function: actorKind},
	{Name: "owner", Function: actorOwner},
}

func vectorNew(l *lua.State) int {
	v := &core.Vector{
		X: lua.OptNumber(l, 1, 0),
		Y: lua.OptNumber(l, 2, 0),
		Z: lua.OptNumber(l, 3, 0),
	}
	l.PushUserData(v)
	lua.SetMetaTableNamed(l, vectorTypeName)
	return 1
}

func angleNew(l *lua.State) int {
	a := &core.Angle{
		Pitch: lua.OptNumber(l, 1, 0),
		Yaw:   lua.OptNumber(l, 2, 0),
		Roll:  lua.OptNumber(l, 3, 0),
	}
	l.PushUserData(a)
	lua.SetMetaTableNamed(l, angleTypeName)
	return 1
}

func checkVector(l *lua.State) *core.Vector {
	ud := lua.CheckUserData(l, 1, vectorTypeName)
	if v, ok := ud.(*core.Vector); ok && v != nil {
		return v
	}
	lua.ArgumentError(l, 1, "vector expected")
	return nil
}

func checkAngle(l *lua.State) *core.Angle {
	ud := lua.CheckUserData(l, 1, angleTypeName)
	if a, ok := ud.(*core.Angle); ok && a != nil {
		return a
	}
	lua.ArgumentError(l, 1, "angle expected")
	return nil
}

func checkActor(l *lua.State) *actorRef {
	ud := lua.CheckUserData(l, 1, actorTypeName)
	if ref, ok := ud.(*actorRef); ok && ref != nil {
		return ref
	}
	lua.ArgumentError(l, 1, "actor expected")
	return nil
}

func vectorX(l *lua.State) int {
	l.PushNumber(checkVector(l).X)
	return 1
}

func vectorY(l *lua.State) int {
	l.PushNumber(checkVector(l).Y)
	return 1
}

func vectorZ(l *lua.State) int {
	l.PushNumber(checkVector(l).Z)
	return 1
}

func vectorToString(l *lua.State) int {
	v := checkVector(l)
	l.PushString(fmt.Sprintf("vector(%g, %g, %g)", v.X, v.Y, v.Z))
	return 1
}

func anglePitch(l *lua.State) int {
	l.PushNumber(checkAngle(l).Pitch)
	return 1
}

func angleYaw(l *lua.State) int {
	l.PushNumber(checkAngle(l).Yaw)
	return 1
}

func angleRoll(l *lua.State) int {
	l.PushNumber(checkAngle(l).Roll)
	return 1
}

func angleToString(l *lua.State) int {
	a := checkAngle(l)
	l.PushString(fmt.Sprintf("angle(%g, %g, %g)", a.Pitch, a.Yaw, a.Roll))
	return 1
}

func actorValid(l *lua.State) int {
	ref := checkActor(l)
	l.PushBoolean(ref.actor != nil && ref.actor.Valid())
	return 1
}

func actorKind(l *lua.State) int {
	l.PushString(checkActor(l).kind.String())
	return 1
}

func actorOwner(l *lua.State) int {
	ref := checkActor(l)
	if ref.actor == nil {
		l.PushNil()
		return 1
	}
	l.PushString(fmt.Sprint(ref.actor.Owner()))
	return 1
}

func actorToString(l *lua.State) int {
	ref := checkActor(l)
	l.PushString(fmt.Sprintf("%s(%v)", ref.kind, ref.actor))
	return 1
}

// pushActor pushes an actor reference userdata with the given kind tag.
func pushActor(l *lua.State, actor core.Actor, kind core.Kind) {
	l.PushUserData(&actorRef{actor: actor, kind: kind})
	lua.SetMetaTableNamed(l, actorTypeName)
}

func pushVector(l *lua.State, v core.Vector) {
	l.PushUserData(&v)
	lua.SetMetaTableNamed(l, vectorTypeName)
}

func pushAngle(l *lua.State, a core.Angle) {
	l.PushUserData(&a)
	lua.SetMetaTableNamed(l, angleTypeName)
}

// pushValue marshals a payload into its Lua representation. Send has
// already validated the value, so every kind maps cleanly.
func pushValue(l *lua.State, v core.Value) {
	switch v.Kind() {
	case core.KindNil:
		l.PushNil()
	case core.KindBoolean:
		b, _ := v.AsBool()
		l.PushBoolean(b)
	case core.KindNumber:
		n, _ := v.AsNumber()
		l.PushNumber(n)
	case core.KindString:
		s, _ := v.AsString()
		l.PushString(s)
	case core.KindVector:
		vec, _ := v.AsVector()
		pushVector(l, vec)
	case core.KindAngle:
		ang, _ := v.AsAngle()
		pushAngle(l, ang)
	case core.KindActorRef, core.KindNPCRef, core.KindPlayerRef:
		actor, _ := v.AsActor()
		pushActor(l, actor, v.Kind())
	default:
		l.PushNil()
	}
}

// toValue marshals the Lua value at index into a payload. Functions,
// tables and foreign userdata have no payload representation.
func toValue(l *lua.State, index int) (core.Value, error) {
	switch l.TypeOf(index) {
	case lua.TypeNone, lua.TypeNil:
		return core.NilValue(), nil
	case lua.TypeBoolean:
		return core.BoolValue(l.ToBoolean(index)), nil
	case lua.TypeNumber:
		n, _ := l.ToNumber(index)
		return core.NumberValue(n), nil
	case lua.TypeString:
		s, _ := l.ToString(index)
		return core.StringValue(s), nil
	case lua.TypeUserData:
		switch ud := l.ToUserData(index).(type) {
		case *core.Vector:
			return core.VectorValue(*ud), nil
		case *core.Angle:
			return core.AngleValue(*ud), nil
		case *actorRef:
			switch ud.kind {
			case core.KindNPCRef:
				return core.NPCRef(ud.actor), nil
			case core.KindPlayerRef:
				return core.PlayerRef(ud.actor), nil
			default:
				return core.ActorRef(ud.actor), nil
			}
		default:
			return core.Value{}, fmt.Errorf("%w: foreign userdata", core.ErrInvalidDataType)
		}
	default:
		return core.Value{}, fmt.Errorf("%w: lua %s", core.ErrInvalidDataType, lua.TypeNameOf(l, index))
	}
}

// toTarget marshals the Lua value at index into a send target. Strings
// name groups, actor userdata addresses a single chip or exposed
// actor, and sequence tables become ordered collections, recursively.
func toTarget(l *lua.State, index int) (core.Target, error) {
	switch l.TypeOf(index) {
	case lua.TypeString:
		s, _ := l.ToString(index)
		return core.GroupTarget(s), nil
	case lua.TypeUserData:
		if ref, ok := l.ToUserData(index).(*actorRef); ok {
			return core.ActorTarget(ref.actor), nil
		}
		return core.Target{}, fmt.Errorf("%w: foreign userdata", core.ErrInvalidTarget)
	case lua.TypeTable:
		index = l.AbsIndex(index)
		length := l.RawLength(index)
		targets := make([]core.Target, 0, length)
		for i := 1; i <= length; i++ {
			l.RawGetInt(index, i)
			target, err := toTarget(l, -1)
			l.Pop(1)
			if err != nil {
				return core.Target{}, err
			}
			targets = append(targets, target)
		}
		return core.MultiTarget(targets...), nil
	default:
		return core.Target{}, fmt.Errorf("%w: lua %s", core.ErrInvalidTarget, lua.TypeNameOf(l, index))
	}
}
