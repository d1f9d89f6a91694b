package core

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Dispatcher resolves send targets into concrete recipients and fans
// signals out to their listeners. It reads both registries but owns
// no routing state of its own; every Send is a one-shot resolve and
// deliver pass over the registries' current contents.
type Dispatcher struct {
	groups    *GroupRegistry
	listeners *ListenerRegistry
	logger    zerolog.Logger

	slowWarn    time.Duration
	logFailures bool

	// Cumulative counters, exposed via Stats
	sends      atomic.Uint64
	rejected   atomic.Uint64
	deliveries atomic.Uint64
	failures   atomic.Uint64
}

// NewDispatcher creates a dispatcher reading from the given registries.
func NewDispatcher(groups *GroupRegistry, listeners *ListenerRegistry) *Dispatcher {
	return NewDispatcherWithOptions(groups, listeners, DefaultSystemOptions())
}

// NewDispatcherWithOptions creates a dispatcher with explicit options.
func NewDispatcherWithOptions(groups *GroupRegistry, listeners *ListenerRegistry, opts SystemOptions) *Dispatcher {
	return &Dispatcher{
		groups:      groups,
		listeners:   listeners,
		logger:      opts.Logger,
		slowWarn:    opts.SlowHandlerWarn,
		logFailures: opts.LogHandlerFailures,
	}
}

// Send delivers sig with payload data to every recipient reachable
// from target, on behalf of sender. The whole target tree is resolved
// and validated before the first delivery, so a returned error means
// nothing was delivered. The returned count is the number of handler
// invocations that failed; individual failures never abort delivery
// to the remaining listeners and recipients.
func (d *Dispatcher) Send(target Target, sig Signal, data Value, sender Actor) (int, error) {
	if !sig.Valid() {
		d.rejected.Add(1)
		return 0, fmt.Errorf("%w: '%s'", ErrInvalidSignal, sig)
	}
	if !data.Valid() {
		d.rejected.Add(1)
		return 0, fmt.Errorf("%w: %s", ErrInvalidDataType, data.Kind())
	}
	if sender == nil || !sender.Valid() {
		d.rejected.Add(1)
		return 0, fmt.Errorf("%w: send '%s'", ErrInvalidSender, sig)
	}

	recipients, err := d.resolve(target, sender)
	if err != nil {
		d.rejected.Add(1)
		return 0, err
	}

	d.sends.Add(1)

	failed := 0
	for _, actor := range recipients {
		exact, wildcard := d.listeners.Handlers(actor, sig)
		for _, h := range exact {
			if !d.invoke(h, sig, data, sender) {
				failed++
			}
		}
		for _, h := range wildcard {
			if !d.invoke(h, sig, data, sender) {
				failed++
			}
		}
	}

	d.logger.Debug().
		Str("signal", string(sig)).
		Int("recipients", len(recipients)).
		Int("failed", failed).
		Msg("signal dispatched")

	return failed, nil
}

// resolve flattens target into the ordered recipient list, recursing
// through group names and nested collections. Duplicates keep their
// first occurrence. Group member sets are snapshotted here, before
// any delivery, so listeners that mutate membership mid-dispatch
// cannot affect the in-flight pass.
func (d *Dispatcher) resolve(target Target, sender Actor) ([]Actor, error) {
	var recipients []Actor
	seen := make(map[Actor]struct{})

	if err := d.resolveInto(target, sender, seen, &recipients); err != nil {
		return nil, err
	}
	return recipients, nil
}

// resolveInto appends target's recipients to out, skipping actors
// already in seen.
func (d *Dispatcher) resolveInto(target Target, sender Actor, seen map[Actor]struct{}, out *[]Actor) error {
	switch target.kind {
	case TargetActor:
		if target.actor == nil {
			return fmt.Errorf("%w: nil actor", ErrInvalidTarget)
		}
		if _, dup := seen[target.actor]; !dup {
			seen[target.actor] = struct{}{}
			*out = append(*out, target.actor)
		}
		return nil

	case TargetGroup:
		name, err := ParseGroupName(target.group)
		if err != nil {
			return err
		}

		// A sender resolves private groups under its own owner only.
		var owner Owner
		if name.Scope == ScopePrivate {
			owner = sender.Owner()
		}

		for _, member := range d.groups.Members(name, owner) {
			if _, dup := seen[member]; !dup {
				seen[member] = struct{}{}
				*out = append(*out, member)
			}
		}
		return nil

	case TargetList:
		for _, nested := range target.list {
			if err := d.resolveInto(nested, sender, seen, out); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrInvalidTarget, target.kind)
	}
}

// invoke runs a single handler, converting a returned error or a
// panic into a counted failure. It reports whether the invocation
// succeeded.
func (d *Dispatcher) invoke(h Handler, sig Signal, data Value, sender Actor) (ok bool) {
	d.deliveries.Add(1)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			ok = false
			d.failures.Add(1)
			if d.logFailures {
				d.logger.Warn().
					Str("signal", string(sig)).
					Interface("panic", r).
					Msg("handler panicked")
			}
		}
		if d.slowWarn > 0 {
			if elapsed := time.Since(start); elapsed > d.slowWarn {
				d.logger.Warn().
					Str("signal", string(sig)).
					Dur("elapsed", elapsed).
					Msg("slow handler")
			}
		}
	}()

	if err := h.HandleSignal(sig, data, sender); err != nil {
		d.failures.Add(1)
		if d.logFailures {
			d.logger.Warn().
				Str("signal", string(sig)).
				Err(err).
				Msg("handler failed")
		}
		return false
	}
	return true
}

// Stats returns a snapshot of the cumulative dispatch counters.
func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Sends:      d.sends.Load(),
		Rejected:   d.rejected.Load(),
		Deliveries: d.deliveries.Load(),
		Failures:   d.failures.Load(),
	}
}
