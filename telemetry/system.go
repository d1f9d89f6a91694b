package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalgrid/signalgrid/core"
)

// tracerName identifies spans produced by this package.
const tracerName = "github.com/signalgrid/signalgrid/telemetry"

// System wraps a core.System so every registry mutation and send opens
// a span. Results pass through unchanged; wrapping never alters
// dispatch semantics. Read-only introspection delegates without
// tracing.
type System struct {
	system *core.System
	tracer trace.Tracer
}

// SystemOptions configures a traced System.
type SystemOptions struct {
	// TracerProvider supplies the tracer. Nil selects the global
	// provider registered by Setup.
	TracerProvider trace.TracerProvider
}

// DefaultSystemOptions returns options selecting the global provider.
func DefaultSystemOptions() SystemOptions {
	return SystemOptions{}
}

// NewSystem wraps system using the global tracer provider.
func NewSystem(system *core.System) *System {
	return NewSystemWithOptions(system, DefaultSystemOptions())
}

// NewSystemWithOptions wraps system with explicit options.
func NewSystemWithOptions(system *core.System, opts SystemOptions) *System {
	provider := opts.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}

	return &System{
		system: system,
		tracer: provider.Tracer(tracerName),
	}
}

// Unwrap returns the wrapped system.
func (s *System) Unwrap() *core.System {
	return s.system
}

// Join adds actor to the group named by the raw group string.
func (s *System) Join(ctx context.Context, group string, actor core.Actor) error {
	_, span := s.tracer.Start(ctx, "signal.join",
		trace.WithAttributes(attribute.String("signal.group", group)))
	defer span.End()

	return recordResult(span, s.system.Join(group, actor))
}

// Leave removes actor from the group named by the raw group string.
func (s *System) Leave(ctx context.Context, group string, actor core.Actor) error {
	_, span := s.tracer.Start(ctx, "signal.leave",
		trace.WithAttributes(attribute.String("signal.group", group)))
	defer span.End()

	return recordResult(span, s.system.Leave(group, actor))
}

// Listen registers handler for sig on actor.
func (s *System) Listen(ctx context.Context, sig core.Signal, actor core.Actor, handler core.Handler) error {
	_, span := s.tracer.Start(ctx, "signal.listen",
		trace.WithAttributes(attribute.String("signal.name", string(sig))))
	defer span.End()

	return recordResult(span, s.system.Listen(sig, actor, handler))
}

// Ignore removes handler from (actor, sig).
func (s *System) Ignore(ctx context.Context, sig core.Signal, actor core.Actor, handler core.Handler) error {
	_, span := s.tracer.Start(ctx, "signal.ignore",
		trace.WithAttributes(attribute.String("signal.name", string(sig))))
	defer span.End()

	return recordResult(span, s.system.Ignore(sig, actor, handler))
}

// Send delivers sig to every recipient reachable from target and
// returns the count of handler invocations that failed, exactly as the
// wrapped system does. The span carries the signal name, the payload
// kind and the failed count.
func (s *System) Send(ctx context.Context, target core.Target, sig core.Signal, data core.Value, sender core.Actor) (int, error) {
	_, span := s.tracer.Start(ctx, "signal.send",
		trace.WithAttributes(
			attribute.String("signal.name", string(sig)),
			attribute.String("signal.data_kind", data.Kind().String()),
		))
	defer span.End()

	failed, err := s.system.Send(target, sig, data, sender)
	span.SetAttributes(attribute.Int("signal.failed", failed))
	return failed, recordResult(span, err)
}

// GroupMembers returns a copy of the group's member set, resolved
// under owner for private scope.
func (s *System) GroupMembers(group string, owner core.Owner) ([]core.Actor, error) {
	return s.system.GroupMembers(group, owner)
}

// ListenerCount returns the number of handles registered under
// (actor, sig).
func (s *System) ListenerCount(actor core.Actor, sig core.Signal) int {
	return s.system.ListenerCount(actor, sig)
}

// Stats returns a snapshot of the wrapped system's dispatch counters.
func (s *System) Stats() core.DispatchStats {
	return s.system.Stats()
}

// recordResult marks span failed when err is non-nil and passes err
// through.
func recordResult(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
