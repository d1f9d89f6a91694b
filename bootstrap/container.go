// Package bootstrap provides a small dependency container shared between services
package bootstrap

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Factory creates a service instance on first resolve.
type Factory func(c *Container) (interface{}, error)

// Container holds named instances and lazy factories shared between
// managed services. A factory runs at most one successful time; the
// produced instance is cached under its name.
type Container struct {
	// factories holds registered lazy constructors
	factories map[string]Factory

	// instances holds resolved or directly registered values
	instances map[string]interface{}

	// mutex protects concurrent access
	mutex sync.RWMutex
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{
		factories: make(map[string]Factory),
		instances: make(map[string]interface{}),
	}
}

// Register registers a lazy factory under name.
func (c *Container) Register(name string, factory Factory) error {
	if name == "" {
		return ErrEmptyServiceName
	}
	if factory == nil {
		return fmt.Errorf("%w: factory '%s'", ErrNilService, name)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.has(name) {
		return fmt.Errorf("%w: '%s'", ErrServiceExists, name)
	}

	c.factories[name] = factory
	return nil
}

// RegisterInstance registers a ready instance under name.
func (c *Container) RegisterInstance(name string, instance interface{}) error {
	if name == "" {
		return ErrEmptyServiceName
	}
	if instance == nil {
		return fmt.Errorf("%w: instance '%s'", ErrNilService, name)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.has(name) {
		return fmt.Errorf("%w: '%s'", ErrServiceExists, name)
	}

	c.instances[name] = instance
	return nil
}

// Resolve returns the instance registered under name, running its
// factory on first use.
func (c *Container) Resolve(name string) (interface{}, error) {
	c.mutex.RLock()
	if instance, exists := c.instances[name]; exists {
		c.mutex.RUnlock()
		return instance, nil
	}
	factory, exists := c.factories[name]
	c.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: '%s'", ErrServiceNotFound, name)
	}

	// The factory runs unlocked so it can resolve its own
	// dependencies. When two goroutines race on the same name the
	// first stored result wins.
	instance, err := factory(c)
	if err != nil {
		return nil, fmt.Errorf("create service '%s': %w", name, err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if cached, exists := c.instances[name]; exists {
		return cached, nil
	}
	c.instances[name] = instance
	return instance, nil
}

// ResolveAs resolves name and stores the instance into target, which
// must be a non-nil pointer to a compatible type.
func (c *Container) ResolveAs(name string, target interface{}) error {
	instance, err := c.Resolve(name)
	if err != nil {
		return err
	}

	targetValue := reflect.ValueOf(target)
	if targetValue.Kind() != reflect.Ptr || targetValue.IsNil() {
		return fmt.Errorf("%w: target must be a non-nil pointer", ErrNotAssignable)
	}

	instanceValue := reflect.ValueOf(instance)
	targetType := targetValue.Elem().Type()
	if !instanceValue.Type().AssignableTo(targetType) {
		return fmt.Errorf("%w: '%s' is %s, want %s",
			ErrNotAssignable, name, instanceValue.Type(), targetType)
	}

	targetValue.Elem().Set(instanceValue)
	return nil
}

// Has reports whether name is registered as a factory or an instance.
func (c *Container) Has(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.has(name)
}

// has reports whether name is taken. Callers hold the lock.
func (c *Container) has(name string) bool {
	_, factory := c.factories[name]
	_, instance := c.instances[name]
	return factory || instance
}

// Names returns all registered names, sorted.
func (c *Container) Names() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	seen := make(map[string]bool, len(c.factories)+len(c.instances))
	for name := range c.factories {
		seen[name] = true
	}
	for name := range c.instances {
		seen[name] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemoveInstance drops the cached instance under name. A registered
// factory stays and runs again on the next resolve.
func (c *Container) RemoveInstance(name string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.instances, name)
}

// Clear removes every factory and instance.
func (c *Container) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.factories = make(map[string]Factory)
	c.instances = make(map[string]interface{})
}
