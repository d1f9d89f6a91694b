package luahost

import (
	"fmt"
	"sync/atomic"

	"github.com/Shopify/go-lua"

	"github.com/signalgrid/signalgrid/core"
)

// handlerTableKey is the registry slot holding a chip's pinned Lua
// handler functions, keyed by pin id.
const handlerTableKey = "signalgrid.handlers"

// Chip is a Lua scripted actor. Each chip owns an isolated Lua state
// and participates in the grid through the signal API installed into
// that state.
//
// A chip's Lua state is not goroutine safe: load it, send to it, and
// unload it from one goroutine at a time. Chips are compared by
// pointer identity, so a *Chip is a valid registry key.
type Chip struct {
	name  string
	owner string
	state *lua.State
	host  *Host
	valid atomic.Bool

	// Pinned handler trampolines, reused across listen calls so the
	// same Lua function maps to the same handle.
	handlers []*luaHandler
	nextRef  int
}

// Name returns the chip name.
func (c *Chip) Name() string {
	return c.name
}

// Valid reports whether the chip is still loaded.
func (c *Chip) Valid() bool {
	return c.valid.Load()
}

// Owner returns the chip's owner key.
func (c *Chip) Owner() core.Owner {
	return c.owner
}

// State returns the chip's Lua state.
func (c *Chip) State() *lua.State {
	return c.state
}

func (c *Chip) String() string {
	return fmt.Sprintf("chip(%s)", c.name)
}

// invalidate clears the validity flag. Listener and membership
// entries referencing the chip stay behind until explicitly removed.
func (c *Chip) invalidate() {
	c.valid.Store(false)
}

// installSignalAPI publishes the signal table into the chip state.
func (c *Chip) installSignalAPI() {
	l := c.state
	fns := []lua.RegistryFunction{
		{Name: "join", Function: c.luaJoin},
		{Name: "leave", Function: c.luaLeave},
		{Name: "listen", Function: c.luaListen},
		{Name: "ignore", Function: c.luaIgnore},
		{Name: "send", Function: c.luaSend},
		{Name: "self", Function: c.luaSelf},
	}
	l.NewTable()
	lua.SetFunctions(l, fns, 0)
	l.PushString(string(core.SignalDefault))
	l.SetField(-2, "DEFAULT")
	l.SetGlobal("signal")
}

func (c *Chip) luaJoin(l *lua.State) int {
	group := lua.CheckString(l, 1)
	if err := c.host.system.Join(group, c); err != nil {
		return pushFailure(l, err)
	}
	l.PushBoolean(true)
	return 1
}

func (c *Chip) luaLeave(l *lua.State) int {
	group := lua.CheckString(l, 1)
	if err := c.host.system.Leave(group, c); err != nil {
		return pushFailure(l, err)
	}
	l.PushBoolean(true)
	return 1
}

func (c *Chip) luaListen(l *lua.State) int {
	sig := lua.CheckString(l, 1)
	lua.CheckType(l, 2, lua.TypeFunction)
	handler := c.handlerFor(2)
	if err := c.host.system.Listen(core.Signal(sig), c, handler); err != nil {
		return pushFailure(l, err)
	}
	l.PushBoolean(true)
	return 1
}

func (c *Chip) luaIgnore(l *lua.State) int {
	sig := lua.CheckString(l, 1)
	lua.CheckType(l, 2, lua.TypeFunction)

	// An unpinned function was never registered; the signal grammar
	// still gets checked, matching ignore's silent-on-absent contract.
	var handler core.Handler
	if found := c.findHandler(2); found != nil {
		handler = found
	}
	if err := c.host.system.Ignore(core.Signal(sig), c, handler); err != nil {
		return pushFailure(l, err)
	}
	l.PushBoolean(true)
	return 1
}

func (c *Chip) luaSend(l *lua.State) int {
	target, err := toTarget(l, 1)
	if err != nil {
		return pushFailure(l, err)
	}
	sig := lua.CheckString(l, 2)
	data := core.NilValue()
	if !l.IsNoneOrNil(3) {
		data, err = toValue(l, 3)
		if err != nil {
			return pushFailure(l, err)
		}
	}

	failed, err := c.host.system.Send(target, core.Signal(sig), data, c)
	if err != nil {
		return pushFailure(l, err)
	}
	l.PushInteger(failed)
	return 1
}

func (c *Chip) luaSelf(l *lua.State) int {
	pushActor(l, c, core.KindActorRef)
	return 1
}

// pushFailure pushes the nil-plus-message error convention.
func pushFailure(l *lua.State, err error) int {
	l.PushNil()
	l.PushString(err.Error())
	return 2
}

// findHandler returns the pinned trampoline for the Lua function at
// index, or nil if the function was never pinned.
func (c *Chip) findHandler(index int) *luaHandler {
	l := c.state
	index = l.AbsIndex(index)
	l.Field(lua.RegistryIndex, handlerTableKey)
	defer l.Pop(1)
	for _, h := range c.handlers {
		l.RawGetInt(-1, h.ref)
		same := l.RawEqual(-1, index)
		l.Pop(1)
		if same {
			return h
		}
	}
	return nil
}

// handlerFor returns the trampoline for the Lua function at index,
// pinning the function in the registry on first sight. Raw equality
// keys the lookup, so re-listening the same function yields the same
// handle and stays idempotent through the core.
func (c *Chip) handlerFor(index int) *luaHandler {
	if h := c.findHandler(index); h != nil {
		return h
	}
	l := c.state
	index = l.AbsIndex(index)
	c.nextRef++
	l.Field(lua.RegistryIndex, handlerTableKey)
	l.PushValue(index)
	l.RawSetInt(-2, c.nextRef)
	l.Pop(1)
	h := &luaHandler{chip: c, ref: c.nextRef}
	c.handlers = append(c.handlers, h)
	return h
}

// luaHandler adapts a pinned Lua function to the core handler
// contract. One trampoline exists per distinct Lua function per chip.
type luaHandler struct {
	chip *Chip
	ref  int
}

// HandleSignal pushes the pinned function and the marshaled delivery
// onto the chip's stack and runs it in a protected call. A Lua error
// comes back as a Go error for the dispatcher to count.
func (h *luaHandler) HandleSignal(sig core.Signal, data core.Value, sender core.Actor) error {
	l := h.chip.state
	l.Field(lua.RegistryIndex, handlerTableKey)
	l.RawGetInt(-1, h.ref)
	l.Remove(-2)
	if l.TypeOf(-1) != lua.TypeFunction {
		l.Pop(1)
		return fmt.Errorf("chip '%s': handler %d is not pinned", h.chip.name, h.ref)
	}

	l.PushString(string(sig))
	pushValue(l, data)
	pushActor(l, sender, core.KindActorRef)
	if err := l.ProtectedCall(3, 0, 0); err != nil {
		return fmt.Errorf("chip '%s' handler: %w", h.chip.name, err)
	}
	return nil
}
