package luahost

import (
	"strings"
	"testing"

	"github.com/signalgrid/signalgrid/core"
)

// probeChip loads a chip that records the Lua-side type and printable
// form of every payload delivered under PROBE.
func probeChip(t *testing.T, host *Host) *Chip {
	t.Helper()
	chip, err := host.LoadChipScript("probe", "alice", `
signal.listen("PROBE", function(sig, data)
	data_type = type(data)
	data_repr = tostring(data)
end)
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}
	return chip
}

func TestPayloadsIntoLua(t *testing.T) {
	host, system := newTestHost()
	chip := probeChip(t, host)
	sender := &gridActor{name: "tower", owner: "ops"}

	tests := []struct {
		name     string
		data     core.Value
		wantType string
		wantRepr string
	}{
		{"nil", core.NilValue(), "nil", "nil"},
		{"boolean", core.BoolValue(true), "boolean", "true"},
		{"number", core.NumberValue(4.5), "number", "4.5"},
		{"string", core.StringValue("hello"), "string", "hello"},
		{"vector", core.VectorValue(core.Vector{X: 1, Y: 2, Z: 3}), "userdata", "vector(1, 2, 3)"},
		{"angle", core.AngleValue(core.Angle{Pitch: 10, Yaw: 20, Roll: 30}), "userdata", "angle(10, 20, 30)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := system.Send(core.ActorTarget(chip), "PROBE", tt.data, sender); err != nil {
				t.Fatalf("Send failed: %v", err)
			}
			if got := globalString(t, chip, "data_type"); got != tt.wantType {
				t.Errorf("Expected lua type '%s', got '%s'", tt.wantType, got)
			}
			if got := globalString(t, chip, "data_repr"); got != tt.wantRepr {
				t.Errorf("Expected repr '%s', got '%s'", tt.wantRepr, got)
			}
		})
	}
}

func TestVectorAccessorsInLua(t *testing.T) {
	host, system := newTestHost()

	chip, err := host.LoadChipScript("geo", "alice", `
signal.listen("VEC", function(sig, data)
	vx, vy, vz = data:x(), data:y(), data:z()
end)
signal.listen("ANG", function(sig, data)
	ap, ay, ar = data:pitch(), data:yaw(), data:roll()
end)
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}
	sender := &gridActor{name: "tower", owner: "ops"}

	if _, err := system.Send(core.ActorTarget(chip), "VEC", core.VectorValue(core.Vector{X: 1.5, Y: -2, Z: 3}), sender); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := globalNumber(t, chip, "vx"); got != 1.5 {
		t.Errorf("Expected x 1.5, got %g", got)
	}
	if got := globalNumber(t, chip, "vy"); got != -2 {
		t.Errorf("Expected y -2, got %g", got)
	}
	if got := globalNumber(t, chip, "vz"); got != 3 {
		t.Errorf("Expected z 3, got %g", got)
	}

	if _, err := system.Send(core.ActorTarget(chip), "ANG", core.AngleValue(core.Angle{Pitch: 45, Yaw: 90, Roll: 180}), sender); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := globalNumber(t, chip, "ap"); got != 45 {
		t.Errorf("Expected pitch 45, got %g", got)
	}
	if got := globalNumber(t, chip, "ay"); got != 90 {
		t.Errorf("Expected yaw 90, got %g", got)
	}
	if got := globalNumber(t, chip, "ar"); got != 180 {
		t.Errorf("Expected roll 180, got %g", got)
	}
}

func TestLuaConstructedPayloads(t *testing.T) {
	host, system := newTestHost()

	hub := &gridActor{name: "hub", owner: "ops"}
	recorder := &captureHandler{}
	if err := system.Listen(core.SignalDefault, hub, recorder); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if err := host.ExposeActor("hub", hub); err != nil {
		t.Fatalf("ExposeActor failed: %v", err)
	}

	_, err := host.LoadChipScript("builder", "alice", `
assert(signal.send(hub, "VEC", Vector(1, 2, 3)))
assert(signal.send(hub, "ANG", Angle(10, 20, 30)))
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}

	if recorder.calls != 2 {
		t.Fatalf("Expected 2 deliveries, got %d", recorder.calls)
	}

	// Last delivery carried the angle
	ang, ok := recorder.data.AsAngle()
	if !ok {
		t.Fatalf("Expected angle payload, got %s", recorder.data.Kind())
	}
	if ang.Pitch != 10 || ang.Yaw != 20 || ang.Roll != 30 {
		t.Errorf("Expected angle(10, 20, 30), got %v", ang)
	}
}

func TestActorRefTagsSurviveRoundTrip(t *testing.T) {
	host, system := newTestHost()

	hub := &gridActor{name: "hub", owner: "ops"}
	recorder := &captureHandler{}
	if err := system.Listen("ECHO", hub, recorder); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if err := host.ExposeActor("hub", hub); err != nil {
		t.Fatalf("ExposeActor failed: %v", err)
	}

	chip, err := host.LoadChipScript("relay", "alice", `
signal.listen("TAG", function(sig, data)
	seen_kind = data:kind()
	assert(signal.send(hub, "ECHO", data))
end)
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}

	npc := &gridActor{name: "guard", owner: "world"}
	sender := &gridActor{name: "tower", owner: "ops"}
	if _, err := system.Send(core.ActorTarget(chip), "TAG", core.NPCRef(npc), sender); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if got := globalString(t, chip, "seen_kind"); got != "npc" {
		t.Errorf("Expected kind 'npc', got '%s'", got)
	}
	if recorder.data.Kind() != core.KindNPCRef {
		t.Errorf("Expected echoed payload to stay an npc ref, got %s", recorder.data.Kind())
	}
	if ref, _ := recorder.data.AsActor(); ref != core.Actor(npc) {
		t.Errorf("Expected the same npc back, got %v", ref)
	}

	if _, err := system.Send(core.ActorTarget(chip), "TAG", core.PlayerRef(npc), sender); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := globalString(t, chip, "seen_kind"); got != "player" {
		t.Errorf("Expected kind 'player', got '%s'", got)
	}
	if recorder.data.Kind() != core.KindPlayerRef {
		t.Errorf("Expected echoed payload to stay a player ref, got %s", recorder.data.Kind())
	}
}

func TestListTargetsFromLua(t *testing.T) {
	host, system := newTestHost()

	hub := &gridActor{name: "hub", owner: "ops"}
	peer := &gridActor{name: "peer", owner: "ops"}
	hubRec := &captureHandler{}
	peerRec := &captureHandler{}
	if err := system.Listen("SWEEP", hub, hubRec); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if err := system.Listen("SWEEP", peer, peerRec); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if err := system.Join("crew:public", hub); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := host.ExposeActor("hub", hub); err != nil {
		t.Fatalf("ExposeActor failed: %v", err)
	}
	if err := host.ExposeActor("peer", peer); err != nil {
		t.Fatalf("ExposeActor failed: %v", err)
	}

	// hub appears directly and through the group; dedup delivers once
	_, err := host.LoadChipScript("sweeper", "alice", `
sent = assert(signal.send({hub, "crew:public", {peer}}, "SWEEP"))
empty = assert(signal.send({}, "SWEEP"))
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}

	if hubRec.calls != 1 {
		t.Errorf("Expected hub to be swept once, got %d", hubRec.calls)
	}
	if peerRec.calls != 1 {
		t.Errorf("Expected peer to be swept once, got %d", peerRec.calls)
	}
}

func TestBoundaryRejections(t *testing.T) {
	host, _ := newTestHost()

	chip, err := host.LoadChipScript("radar", "alice", `
target_ok, target_err = signal.send(42, "PING")
data_ok, data_err = signal.send("crew:public", "PING", {1, 2})
nested_ok, nested_err = signal.send({"crew:public", true}, "PING")
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}

	if !globalIsNil(t, chip, "target_ok") {
		t.Error("Expected numeric target to be rejected")
	}
	if got := globalString(t, chip, "target_err"); !strings.Contains(got, "invalid target") {
		t.Errorf("Expected invalid target message, got '%s'", got)
	}

	if !globalIsNil(t, chip, "data_ok") {
		t.Error("Expected table payload to be rejected")
	}
	if got := globalString(t, chip, "data_err"); !strings.Contains(got, "invalid data type") {
		t.Errorf("Expected invalid data type message, got '%s'", got)
	}

	if !globalIsNil(t, chip, "nested_ok") {
		t.Error("Expected invalid nested target to be rejected")
	}
	if got := globalString(t, chip, "nested_err"); !strings.Contains(got, "invalid target") {
		t.Errorf("Expected invalid target message, got '%s'", got)
	}
}

func TestNilPayloadDefault(t *testing.T) {
	host, system := newTestHost()

	hub := &gridActor{name: "hub", owner: "ops"}
	recorder := &captureHandler{}
	if err := system.Listen("PING", hub, recorder); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if err := host.ExposeActor("hub", hub); err != nil {
		t.Fatalf("ExposeActor failed: %v", err)
	}

	_, err := host.LoadChipScript("radar", "alice", `
assert(signal.send(hub, "PING"))
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}

	if recorder.calls != 1 {
		t.Fatalf("Expected 1 delivery, got %d", recorder.calls)
	}
	if !recorder.data.IsNil() {
		t.Errorf("Expected nil payload, got %s", recorder.data.Kind())
	}
}
