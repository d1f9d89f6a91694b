// Package bootstrap provides application assembly and service lifecycle management
package bootstrap

import (
	"context"
	"time"
)

// Service is a unit managed by the lifecycle manager: started in
// dependency order, stopped in reverse start order, health-checked on
// demand.
type Service interface {
	// Start brings the service up. Long running work belongs in
	// goroutines the service owns; Start should return promptly.
	Start(ctx context.Context) error

	// Stop tears the service down and releases its resources.
	Stop(ctx context.Context) error

	// Health reports the service's current condition.
	Health(ctx context.Context) (HealthStatus, error)

	// Name returns the service name.
	Name() string
}

// HealthStatus describes one service's condition.
type HealthStatus struct {
	// State classifies the condition
	State HealthState `json:"state"`

	// Message carries human-readable detail
	Message string `json:"message,omitempty"`

	// Data carries service-specific readings
	Data map[string]interface{} `json:"data,omitempty"`
}

// HealthState classifies a service's condition.
type HealthState string

const (
	// HealthUnknown indicates the condition cannot be determined
	HealthUnknown HealthState = "unknown"

	// HealthHealthy indicates the service is operational
	HealthHealthy HealthState = "healthy"

	// HealthUnhealthy indicates the service is degraded or failing
	HealthUnhealthy HealthState = "unhealthy"

	// HealthStopped indicates the service is not running
	HealthStopped HealthState = "stopped"
)

// LifecycleEvent records one step of the managed lifecycle.
type LifecycleEvent struct {
	Type      string                 `json:"type"`
	Service   string                 `json:"service,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Error     error                  `json:"error,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
