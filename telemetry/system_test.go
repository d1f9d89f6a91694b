package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/signalgrid/signalgrid/core"
)

// towerActor is a minimal valid actor for wrapper tests.
type towerActor struct {
	name  string
	owner string
}

func (a *towerActor) Valid() bool       { return true }
func (a *towerActor) Owner() core.Owner { return a.owner }

// countHandler records deliveries; failing instances return an error.
type countHandler struct {
	calls int
	fail  bool
}

func (h *countHandler) HandleSignal(sig core.Signal, data core.Value, sender core.Actor) error {
	h.calls++
	if h.fail {
		return errors.New("handler failed")
	}
	return nil
}

// newTracedSystem builds a wrapper recording spans in memory.
func newTracedSystem() (*System, *core.System, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	system := core.NewSystem()
	traced := NewSystemWithOptions(system, SystemOptions{TracerProvider: provider})
	return traced, system, recorder
}

func attrValue(t *testing.T, span sdktrace.ReadOnlySpan, key attribute.Key) attribute.Value {
	t.Helper()
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value
		}
	}
	t.Fatalf("Expected attribute %s on span %s", key, span.Name())
	return attribute.Value{}
}

func TestTracedSend(t *testing.T) {
	traced, system, recorder := newTracedSystem()

	chip := &towerActor{name: "chip", owner: "alice"}
	good := &countHandler{}
	bad := &countHandler{fail: true}
	if err := system.Listen("PING", chip, good); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if err := system.Listen("PING", chip, bad); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	sender := &towerActor{name: "tower", owner: "ops"}
	failed, err := traced.Send(context.Background(), core.ActorTarget(chip), "PING", core.NumberValue(7), sender)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if failed != 1 {
		t.Errorf("Expected 1 failed invocation, got %d", failed)
	}
	if good.calls != 1 || bad.calls != 1 {
		t.Errorf("Expected both handlers invoked once, got %d and %d", good.calls, bad.calls)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "signal.send" {
		t.Errorf("Expected span 'signal.send', got '%s'", span.Name())
	}
	if got := attrValue(t, span, "signal.name").AsString(); got != "PING" {
		t.Errorf("Expected signal.name 'PING', got '%s'", got)
	}
	if got := attrValue(t, span, "signal.data_kind").AsString(); got != "number" {
		t.Errorf("Expected signal.data_kind 'number', got '%s'", got)
	}
	if got := attrValue(t, span, "signal.failed").AsInt64(); got != 1 {
		t.Errorf("Expected signal.failed 1, got %d", got)
	}
	if span.Status().Code == codes.Error {
		t.Error("Expected counted handler failures to leave the span unmarked")
	}
}

func TestTracedSendError(t *testing.T) {
	traced, _, recorder := newTracedSystem()

	sender := &towerActor{name: "tower", owner: "ops"}
	failed, err := traced.Send(context.Background(), core.GroupTarget("crew:public"), "bad sig", core.NilValue(), sender)
	if !errors.Is(err, core.ErrInvalidSignal) {
		t.Fatalf("Expected ErrInvalidSignal, got %v", err)
	}
	if failed != 0 {
		t.Errorf("Expected 0 failed on rejected send, got %d", failed)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	status := spans[0].Status()
	if status.Code != codes.Error {
		t.Errorf("Expected error status, got %v", status.Code)
	}
	if !strings.Contains(status.Description, "invalid signal") {
		t.Errorf("Expected the validation message in the status, got '%s'", status.Description)
	}
}

func TestTracedRegistryOperations(t *testing.T) {
	traced, system, recorder := newTracedSystem()
	ctx := context.Background()

	chip := &towerActor{name: "chip", owner: "alice"}
	handler := &countHandler{}

	if err := traced.Join(ctx, "crew:public", chip); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := traced.Listen(ctx, "PING", chip, handler); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if count := system.ListenerCount(chip, "PING"); count != 1 {
		t.Errorf("Expected 1 listener on the wrapped system, got %d", count)
	}
	if err := traced.Leave(ctx, "crew:public", chip); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if err := traced.Ignore(ctx, "PING", chip, handler); err != nil {
		t.Fatalf("Ignore failed: %v", err)
	}
	if count := traced.ListenerCount(chip, "PING"); count != 0 {
		t.Errorf("Expected 0 listeners after ignore, got %d", count)
	}

	want := []string{"signal.join", "signal.listen", "signal.leave", "signal.ignore"}
	spans := recorder.Ended()
	if len(spans) != len(want) {
		t.Fatalf("Expected %d spans, got %d", len(want), len(spans))
	}
	for i, name := range want {
		if spans[i].Name() != name {
			t.Errorf("Expected span %d to be '%s', got '%s'", i, name, spans[i].Name())
		}
	}
	if got := attrValue(t, spans[0], "signal.group").AsString(); got != "crew:public" {
		t.Errorf("Expected signal.group 'crew:public', got '%s'", got)
	}
}

func TestTracedJoinError(t *testing.T) {
	traced, _, recorder := newTracedSystem()

	chip := &towerActor{name: "chip", owner: "alice"}
	if err := traced.Join(context.Background(), "bad name!", chip); !errors.Is(err, core.ErrInvalidGroupName) {
		t.Fatalf("Expected ErrInvalidGroupName, got %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("Expected error status, got %v", spans[0].Status().Code)
	}
}

func TestTracedPassThroughs(t *testing.T) {
	traced, system, _ := newTracedSystem()
	ctx := context.Background()

	if traced.Unwrap() != system {
		t.Error("Expected Unwrap to return the wrapped system")
	}

	chip := &towerActor{name: "chip", owner: "alice"}
	if err := traced.Join(ctx, "crew:public", chip); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	members, err := traced.GroupMembers("crew:public", nil)
	if err != nil {
		t.Fatalf("GroupMembers failed: %v", err)
	}
	if len(members) != 1 || members[0] != core.Actor(chip) {
		t.Errorf("Expected the joined chip as sole member, got %v", members)
	}

	sender := &towerActor{name: "tower", owner: "ops"}
	if _, err := traced.Send(ctx, core.GroupTarget("crew:public"), "PING", core.NilValue(), sender); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if stats := traced.Stats(); stats.Sends != system.Stats().Sends {
		t.Errorf("Expected pass-through stats, got %+v vs %+v", stats, system.Stats())
	}
}
