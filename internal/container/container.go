// Package container implements a named registry of backend services
// with lazy construction and ordered teardown.
//
// This is the composition root's toolbox: services are registered once
// at startup (either as ready instances or as factories resolved on
// first use) and disposed in reverse registration order at shutdown.
// Registration is a setup/teardown-phase activity; only Get runs on
// the hot path.
package container

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Sentinel errors for registration and lookup failures. They are fatal
// to the triggering call only and never corrupt container state.
var (
	ErrDuplicateService = errors.New("service already registered")
	ErrServiceNotFound  = errors.New("service not registered")
)

// Factory builds a service instance on first resolution. It is
// invoked at most once per registration; a returned error is
// propagated to the Get caller and the factory stays eligible for a
// later retry. A factory may Get other services from the same
// container, but a cyclic dependency between factories deadlocks.
type Factory func() (any, error)

// Closer is the optional teardown hook a service may implement.
// Dispose calls it for every constructed instance.
type Closer interface {
	Close() error
}

type registration struct {
	name string

	// resolveMu serializes first-use construction so a factory can
	// Get other services without holding the container lock.
	resolveMu   sync.Mutex
	factory     Factory
	instance    any
	initialized bool
}

// Container is a dependency-injection registry. Construct one at
// startup, pass it by reference through the process lifetime, and
// Dispose it at shutdown. No ambient singletons.
type Container struct {
	mu    sync.Mutex
	order []*registration
	byKey map[string]*registration
}

// New creates an empty container.
func New() *Container {
	return &Container{byKey: make(map[string]*registration)}
}

// Register stores a ready-made instance under name. Fails with
// ErrDuplicateService unless overwrite is set.
func (c *Container) Register(name string, instance any, overwrite bool) error {
	return c.add(&registration{name: name, instance: instance, initialized: true}, overwrite)
}

// RegisterFactory stores a factory resolved lazily on first Get.
// Fails with ErrDuplicateService unless overwrite is set.
func (c *Container) RegisterFactory(name string, factory Factory, overwrite bool) error {
	return c.add(&registration{name: name, factory: factory}, overwrite)
}

func (c *Container) add(reg *registration, overwrite bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.byKey[reg.name]; ok {
		if !overwrite {
			return fmt.Errorf("%w: %q", ErrDuplicateService, reg.name)
		}
		// Replace in place so teardown order still reflects the
		// original registration position.
		prev.resolveMu.Lock()
		prev.factory = reg.factory
		prev.instance = reg.instance
		prev.initialized = reg.initialized
		prev.resolveMu.Unlock()
		return nil
	}

	c.byKey[reg.name] = reg
	c.order = append(c.order, reg)
	return nil
}

// Get resolves the service registered under name, invoking and
// memoizing its factory on first use. Concurrent callers racing on
// the same factory construct the instance once. The factory runs
// outside the container lock, so it may Get its own dependencies.
func (c *Container) Get(name string) (any, error) {
	c.mu.Lock()
	reg, ok := c.byKey[name]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrServiceNotFound, name)
	}

	reg.resolveMu.Lock()
	defer reg.resolveMu.Unlock()

	if reg.initialized {
		return reg.instance, nil
	}
	instance, err := reg.factory()
	if err != nil {
		return nil, fmt.Errorf("constructing service %q: %w", name, err)
	}
	reg.instance = instance
	reg.initialized = true
	return instance, nil
}

// Has reports whether name is registered, without resolving it.
func (c *Container) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.byKey[name]
	return ok
}

// Dispose tears services down in reverse registration order, calling
// Close on every constructed instance that implements Closer. One
// failing service never blocks cleanup of the others; all errors are
// collected and returned together. The container is empty afterward.
func (c *Container) Dispose() error {
	c.mu.Lock()
	regs := c.order
	c.order = nil
	c.byKey = make(map[string]*registration)
	c.mu.Unlock()

	var errs *multierror.Error
	for i := len(regs) - 1; i >= 0; i-- {
		reg := regs[i]
		reg.resolveMu.Lock()
		initialized, instance := reg.initialized, reg.instance
		reg.resolveMu.Unlock()
		if !initialized {
			continue // never constructed, nothing to release
		}
		if closer, ok := instance.(Closer); ok {
			if err := closer.Close(); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("disposing %q: %w", reg.name, err))
			}
		}
	}
	return errs.ErrorOrNil()
}
