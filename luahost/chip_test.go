package luahost

import (
	"strings"
	"testing"

	"github.com/signalgrid/signalgrid/core"
)

func TestChipReceivesGroupSignal(t *testing.T) {
	host, system := newTestHost()

	chip, err := host.LoadChipScript("radar", "alice", `
count = 0
signal.join("crew:public")
signal.listen("PING", function(sig, data, sender)
	count = count + 1
	got_sig = sig
	got_data = data
	sender_valid = sender:valid()
end)
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}

	sender := &gridActor{name: "tower", owner: "ops"}
	failed, err := system.Send(core.GroupTarget("crew:public"), "PING", core.StringValue("hello"), sender)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if failed != 0 {
		t.Errorf("Expected 0 failed deliveries, got %d", failed)
	}

	if got := globalNumber(t, chip, "count"); got != 1 {
		t.Errorf("Expected count 1, got %g", got)
	}
	if got := globalString(t, chip, "got_sig"); got != "PING" {
		t.Errorf("Expected signal 'PING', got '%s'", got)
	}
	if got := globalString(t, chip, "got_data"); got != "hello" {
		t.Errorf("Expected payload 'hello', got '%s'", got)
	}
	if !globalBool(t, chip, "sender_valid") {
		t.Error("Expected sender reference to be valid")
	}
}

func TestChipToChip(t *testing.T) {
	host, _ := newTestHost()

	listener, err := host.LoadChipScript("listener", "alice", `
heard = ""
signal.join("net:public")
signal.listen("CHAT", function(sig, data, sender) heard = data end)
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}

	speaker, err := host.LoadChipScript("speaker", "bob", `
sent = assert(signal.send("net:public", "CHAT", "hi there"))
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}

	if got := globalNumber(t, speaker, "sent"); got != 0 {
		t.Errorf("Expected 0 failed deliveries, got %g", got)
	}
	if got := globalString(t, listener, "heard"); got != "hi there" {
		t.Errorf("Expected 'hi there', got '%s'", got)
	}
}

func TestListenSameFunctionIsIdempotent(t *testing.T) {
	host, system := newTestHost()

	chip, err := host.LoadChipScript("radar", "alice", `
hits = 0
local function on_ping() hits = hits + 1 end
signal.listen("PING", on_ping)
signal.listen("PING", on_ping)
signal.listen("PING", function() hits = hits + 1 end)
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}

	// Same function registers once; a distinct function adds a handle
	if n := system.ListenerCount(chip, "PING"); n != 2 {
		t.Errorf("Expected 2 registered handles, got %d", n)
	}

	sender := &gridActor{name: "tower", owner: "ops"}
	if _, err := system.Send(core.ActorTarget(chip), "PING", core.NilValue(), sender); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := globalNumber(t, chip, "hits"); got != 2 {
		t.Errorf("Expected 2 hits, got %g", got)
	}
}

func TestWildcardListener(t *testing.T) {
	host, system := newTestHost()

	chip, err := host.LoadChipScript("monitor", "alice", `
any = 0
exact = 0
signal.listen(signal.DEFAULT, function() any = any + 1 end)
signal.listen("PING", function() exact = exact + 1 end)
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}

	sender := &gridActor{name: "tower", owner: "ops"}
	if _, err := system.Send(core.ActorTarget(chip), "PING", core.NilValue(), sender); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, err := system.Send(core.ActorTarget(chip), "STATUS", core.NilValue(), sender); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if got := globalNumber(t, chip, "any"); got != 2 {
		t.Errorf("Expected wildcard to see 2 signals, got %g", got)
	}
	if got := globalNumber(t, chip, "exact"); got != 1 {
		t.Errorf("Expected exact listener to see 1 signal, got %g", got)
	}
}

func TestIgnoreFromLua(t *testing.T) {
	host, system := newTestHost()

	chip, err := host.LoadChipScript("radar", "alice", `
hits = 0
function on_ping() hits = hits + 1 end
signal.listen("PING", on_ping)
signal.ignore("PING", on_ping)

-- Grammar violations surface, absent entries stay silent
bad_ok, bad_err = signal.ignore("no spaces", on_ping)
absent_ok = signal.ignore("NEVER", function() end)
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}

	if n := system.ListenerCount(chip, "PING"); n != 0 {
		t.Errorf("Expected 0 handles after ignore, got %d", n)
	}

	sender := &gridActor{name: "tower", owner: "ops"}
	if _, err := system.Send(core.ActorTarget(chip), "PING", core.NilValue(), sender); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := globalNumber(t, chip, "hits"); got != 0 {
		t.Errorf("Expected 0 hits after ignore, got %g", got)
	}

	if !globalIsNil(t, chip, "bad_ok") {
		t.Error("Expected grammar violation to return nil")
	}
	if got := globalString(t, chip, "bad_err"); !strings.Contains(got, "invalid signal") {
		t.Errorf("Expected invalid signal message, got '%s'", got)
	}
	if !globalBool(t, chip, "absent_ok") {
		t.Error("Expected ignoring an absent entry to succeed")
	}
}

func TestLeaveFromLua(t *testing.T) {
	host, system := newTestHost()

	chip, err := host.LoadChipScript("radar", "alice", `
signal.join("crew:public")
signal.leave("crew:public")
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}
	_ = chip

	members, err := system.GroupMembers("crew:public", nil)
	if err != nil {
		t.Fatalf("GroupMembers failed: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("Expected 0 members after leave, got %d", len(members))
	}
}

func TestJoinValidationFromLua(t *testing.T) {
	host, _ := newTestHost()

	chip, err := host.LoadChipScript("radar", "alice", `
ok, err = signal.join("bad name!")
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}

	if !globalIsNil(t, chip, "ok") {
		t.Error("Expected join with bad group name to return nil")
	}
	if got := globalString(t, chip, "err"); !strings.Contains(got, "invalid group name") {
		t.Errorf("Expected invalid group name message, got '%s'", got)
	}
}

func TestPrivateGroupIsolationAcrossChips(t *testing.T) {
	host, _ := newTestHost()

	alice, err := host.LoadChipScript("alice-chip", "alice", `
mine = 0
signal.join("team")
signal.listen("RALLY", function() mine = mine + 1 end)
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}

	bob, err := host.LoadChipScript("bob-chip", "bob", `
mine = 0
signal.join("team")
signal.listen("RALLY", function() mine = mine + 1 end)
sent = assert(signal.send("team", "RALLY"))
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}

	// Bob's private send rallies only bob's namespace
	if got := globalNumber(t, bob, "mine"); got != 1 {
		t.Errorf("Expected bob's chip to hear its own rally, got %g", got)
	}
	if got := globalNumber(t, alice, "mine"); got != 0 {
		t.Errorf("Expected alice's chip to hear nothing, got %g", got)
	}
}

func TestHandlerErrorBecomesCountedFailure(t *testing.T) {
	host, system := newTestHost()

	_, err := host.LoadChipScript("fragile", "alice", `
signal.join("ops:public")
signal.listen("BOOM", function() error("kaput") end)
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}

	before := system.Stats()
	sender := &gridActor{name: "tower", owner: "ops"}
	failed, err := system.Send(core.GroupTarget("ops:public"), "BOOM", core.NilValue(), sender)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if failed != 1 {
		t.Errorf("Expected 1 failed delivery, got %d", failed)
	}

	after := system.Stats()
	if after.Deliveries-before.Deliveries != 1 {
		t.Errorf("Expected 1 delivery, got %d", after.Deliveries-before.Deliveries)
	}
	if after.Failures-before.Failures != 1 {
		t.Errorf("Expected 1 counted failure, got %d", after.Failures-before.Failures)
	}
}

func TestReentrantSendFromHandler(t *testing.T) {
	host, system := newTestHost()

	_, err := host.LoadChipScript("echo", "alice", `
signal.listen("PING", function(sig, data, sender)
	assert(signal.send(sender, "PONG", data))
end)
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}
	chip, _ := host.Chip("echo")

	tower := &gridActor{name: "tower", owner: "ops"}
	pongs := &captureHandler{}
	if err := system.Listen("PONG", tower, pongs); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	failed, err := system.Send(core.ActorTarget(chip), "PING", core.NumberValue(7), tower)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if failed != 0 {
		t.Errorf("Expected 0 failed deliveries, got %d", failed)
	}
	if pongs.calls != 1 {
		t.Fatalf("Expected 1 PONG back, got %d", pongs.calls)
	}
	if got, _ := pongs.data.AsNumber(); got != 7 {
		t.Errorf("Expected echoed payload 7, got %g", got)
	}
}

func TestSelfReference(t *testing.T) {
	host, system := newTestHost()

	chip, err := host.LoadChipScript("loop", "alice", `
count = 0
signal.listen("TICK", function() count = count + 1 end)
sent = assert(signal.send(signal.self(), "TICK"))
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}
	_ = system

	if got := globalNumber(t, chip, "count"); got != 1 {
		t.Errorf("Expected self-send to deliver, count = %g", got)
	}
}

func TestSendValidationFromLua(t *testing.T) {
	host, _ := newTestHost()

	chip, err := host.LoadChipScript("radar", "alice", `
sig_ok, sig_err = signal.send("crew:public", "$default")
scope_ok, scope_err = signal.send("crew:shared", "PING")
`)
	if err != nil {
		t.Fatalf("LoadChipScript failed: %v", err)
	}

	if !globalIsNil(t, chip, "sig_ok") {
		t.Error("Expected sending the wildcard name to fail")
	}
	if got := globalString(t, chip, "sig_err"); !strings.Contains(got, "invalid signal") {
		t.Errorf("Expected invalid signal message, got '%s'", got)
	}
	if !globalIsNil(t, chip, "scope_ok") {
		t.Error("Expected unknown scope to fail")
	}
	if got := globalString(t, chip, "scope_err"); !strings.Contains(got, "invalid group scope") {
		t.Errorf("Expected invalid group scope message, got '%s'", got)
	}
}
