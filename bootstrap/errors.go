// Package bootstrap provides error definitions for application assembly
package bootstrap

import "errors"

// Container and registration errors
var (
	// ErrEmptyServiceName is returned when a service is registered without a name
	ErrEmptyServiceName = errors.New("empty service name")

	// ErrNilService is returned when a nil service, factory or instance is registered
	ErrNilService = errors.New("nil service")

	// ErrServiceExists is returned when a service name is already taken
	ErrServiceExists = errors.New("service already registered")

	// ErrServiceNotFound is returned when resolving an unknown service
	ErrServiceNotFound = errors.New("service not registered")

	// ErrNotAssignable is returned when a resolved service cannot fill the target
	ErrNotAssignable = errors.New("service type not assignable")
)

// Lifecycle errors
var (
	// ErrAlreadyStarted is returned when starting a running lifecycle
	ErrAlreadyStarted = errors.New("lifecycle already started")

	// ErrAlreadyStopping is returned when stopping a lifecycle twice
	ErrAlreadyStopping = errors.New("lifecycle already stopping")

	// ErrUnknownDependency is returned when a service depends on an unregistered name
	ErrUnknownDependency = errors.New("unknown service dependency")

	// ErrDependencyCycle is returned when service dependencies form a cycle
	ErrDependencyCycle = errors.New("service dependency cycle")
)
