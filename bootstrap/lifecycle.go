// Package bootstrap provides dependency-ordered service lifecycle management
package bootstrap

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LifecycleManager starts registered services in dependency order,
// stops them in reverse start order and fans lifecycle events out to
// subscribers.
type LifecycleManager struct {
	// services holds all registered services
	services map[string]Service

	// dependencies maps a service to the names it needs started first
	dependencies map[string][]string

	// startOrder records the order services actually started in
	startOrder []string

	// container shared between services
	container *Container

	// logger for lifecycle traces
	logger zerolog.Logger

	// mutex protects concurrent access
	mutex sync.RWMutex

	started  bool
	stopping bool

	// eventChan broadcasts lifecycle events; a full channel drops
	eventChan chan LifecycleEvent

	// listeners receive every event on their own goroutine
	listeners []func(LifecycleEvent)

	// timeout bounds each service start and stop call
	timeout time.Duration
}

// NewLifecycleManager creates a lifecycle manager over container.
func NewLifecycleManager(container *Container) *LifecycleManager {
	return &LifecycleManager{
		services:     make(map[string]Service),
		dependencies: make(map[string][]string),
		container:    container,
		logger:       zerolog.Nop(),
		eventChan:    make(chan LifecycleEvent, 100),
		timeout:      30 * time.Second,
	}
}

// SetLogger sets the logger for lifecycle traces.
func (lm *LifecycleManager) SetLogger(logger zerolog.Logger) *LifecycleManager {
	lm.logger = logger
	return lm
}

// SetTimeout sets the per-service start and stop timeout.
func (lm *LifecycleManager) SetTimeout(timeout time.Duration) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	lm.timeout = timeout
}

// Register adds service under name, started after every name in deps.
// Registration closes once the lifecycle starts.
func (lm *LifecycleManager) Register(name string, service Service, deps ...string) error {
	if name == "" {
		return ErrEmptyServiceName
	}
	if service == nil {
		return fmt.Errorf("%w: '%s'", ErrNilService, name)
	}

	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.started {
		return fmt.Errorf("%w: register '%s'", ErrAlreadyStarted, name)
	}
	if _, exists := lm.services[name]; exists {
		return fmt.Errorf("%w: '%s'", ErrServiceExists, name)
	}

	lm.services[name] = service
	lm.dependencies[name] = deps

	lm.broadcast(LifecycleEvent{
		Type:      "service.registered",
		Service:   name,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"dependencies": deps},
	})

	return nil
}

// Start starts every registered service in dependency order. A start
// failure stops the services already started, in reverse order, and
// returns the failure.
func (lm *LifecycleManager) Start(ctx context.Context) error {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.started {
		return ErrAlreadyStarted
	}

	order, err := lm.topoOrder()
	if err != nil {
		return err
	}

	lm.broadcast(LifecycleEvent{
		Type:      "lifecycle.starting",
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"order": order},
	})

	for _, name := range order {
		service := lm.services[name]

		lm.broadcast(LifecycleEvent{
			Type:      "service.starting",
			Service:   name,
			Timestamp: time.Now(),
		})

		startCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := service.Start(startCtx)
		cancel()

		if err != nil {
			lm.broadcast(LifecycleEvent{
				Type:      "service.start_failed",
				Service:   name,
				Timestamp: time.Now(),
				Error:     err,
			})
			lm.rollback(ctx)
			return fmt.Errorf("start service '%s': %w", name, err)
		}

		lm.startOrder = append(lm.startOrder, name)
		lm.logger.Info().Str("service", name).Msg("service started")

		lm.broadcast(LifecycleEvent{
			Type:      "service.started",
			Service:   name,
			Timestamp: time.Now(),
		})
	}

	lm.started = true

	lm.broadcast(LifecycleEvent{
		Type:      "lifecycle.started",
		Timestamp: time.Now(),
	})

	return nil
}

// Stop stops all services in reverse start order. Stop failures are
// logged and broadcast; the last one is returned after every service
// had its chance to stop.
func (lm *LifecycleManager) Stop(ctx context.Context) error {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if !lm.started {
		return nil
	}
	if lm.stopping {
		return ErrAlreadyStopping
	}
	lm.stopping = true

	lm.broadcast(LifecycleEvent{
		Type:      "lifecycle.stopping",
		Timestamp: time.Now(),
	})

	var lastError error

	for i := len(lm.startOrder) - 1; i >= 0; i-- {
		name := lm.startOrder[i]
		service := lm.services[name]

		lm.broadcast(LifecycleEvent{
			Type:      "service.stopping",
			Service:   name,
			Timestamp: time.Now(),
		})

		stopCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := service.Stop(stopCtx)
		cancel()

		if err != nil {
			lastError = fmt.Errorf("stop service '%s': %w", name, err)
			lm.logger.Warn().Err(err).Str("service", name).Msg("service stop failed")
			lm.broadcast(LifecycleEvent{
				Type:      "service.stop_failed",
				Service:   name,
				Timestamp: time.Now(),
				Error:     err,
			})
			continue
		}

		lm.logger.Info().Str("service", name).Msg("service stopped")
		lm.broadcast(LifecycleEvent{
			Type:      "service.stopped",
			Service:   name,
			Timestamp: time.Now(),
		})
	}

	lm.started = false
	lm.stopping = false
	lm.startOrder = nil

	lm.broadcast(LifecycleEvent{
		Type:      "lifecycle.stopped",
		Timestamp: time.Now(),
	})

	return lastError
}

// rollback stops services started by a failed Start pass, in reverse
// order. Callers hold the lock.
func (lm *LifecycleManager) rollback(ctx context.Context) {
	for i := len(lm.startOrder) - 1; i >= 0; i-- {
		name := lm.startOrder[i]

		stopCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		if err := lm.services[name].Stop(stopCtx); err != nil {
			lm.logger.Warn().Err(err).Str("service", name).Msg("rollback stop failed")
		}
		cancel()
	}
	lm.startOrder = nil
}

// Health collects the health of every registered service. A Health
// call that itself errors is reported as unhealthy.
func (lm *LifecycleManager) Health(ctx context.Context) (map[string]HealthStatus, error) {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	health := make(map[string]HealthStatus, len(lm.services))

	for name, service := range lm.services {
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		status, err := service.Health(healthCtx)
		cancel()

		if err != nil {
			health[name] = HealthStatus{
				State:   HealthUnhealthy,
				Message: err.Error(),
			}
			continue
		}
		health[name] = status
	}

	return health, nil
}

// Services returns all registered service names, sorted.
func (lm *LifecycleManager) Services() []string {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	names := make([]string, 0, len(lm.services))
	for name := range lm.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Service returns the registered service under name.
func (lm *LifecycleManager) Service(name string) (Service, bool) {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	service, exists := lm.services[name]
	return service, exists
}

// Dependencies returns a copy of the dependency list for name.
func (lm *LifecycleManager) Dependencies(name string) ([]string, bool) {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	deps, exists := lm.dependencies[name]
	if !exists {
		return nil, false
	}

	result := make([]string, len(deps))
	copy(result, deps)
	return result, true
}

// IsStarted reports whether the lifecycle has started.
func (lm *LifecycleManager) IsStarted() bool {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()
	return lm.started
}

// Events returns the lifecycle event channel.
func (lm *LifecycleManager) Events() <-chan LifecycleEvent {
	return lm.eventChan
}

// AddListener subscribes listener to every lifecycle event. Listeners
// run on their own goroutines; panics are contained.
func (lm *LifecycleManager) AddListener(listener func(LifecycleEvent)) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	lm.listeners = append(lm.listeners, listener)
}

// topoOrder computes a start order honoring dependencies, ties broken
// alphabetically. Callers hold the lock.
func (lm *LifecycleManager) topoOrder() ([]string, error) {
	inDegree := make(map[string]int, len(lm.services))
	dependents := make(map[string][]string, len(lm.services))

	for name := range lm.services {
		inDegree[name] = 0
	}

	for name, deps := range lm.dependencies {
		for _, dep := range deps {
			if _, exists := lm.services[dep]; !exists {
				return nil, fmt.Errorf("%w: '%s' needs '%s'", ErrUnknownDependency, name, dep)
			}
			dependents[dep] = append(dependents[dep], name)
			inDegree[name]++
		}
	}

	ready := make([]string, 0, len(lm.services))
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(lm.services))
	for len(ready) > 0 {
		sort.Strings(ready)
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		for _, dependent := range dependents[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(lm.services) {
		return nil, ErrDependencyCycle
	}

	return order, nil
}

// broadcast sends event to the channel and every listener. A full
// channel drops the event rather than block a lifecycle pass.
func (lm *LifecycleManager) broadcast(event LifecycleEvent) {
	select {
	case lm.eventChan <- event:
	default:
	}

	for _, listener := range lm.listeners {
		go func(l func(LifecycleEvent)) {
			defer func() {
				if r := recover(); r != nil {
					lm.logger.Error().Interface("panic", r).Msg("lifecycle listener panicked")
				}
			}()
			l(event)
		}(listener)
	}
}
