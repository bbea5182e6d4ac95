package cleanioc

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"
)

var _ Resolver = new(Container)
var _ Resolver = new(Scope)

// ContainerConfiguration carries the knobs New accepts.
type ContainerConfiguration struct {
	Logger *slog.Logger
}

type ContainerOption func(*ContainerConfiguration)

// WithLogger routes the container's own logging (failure-tolerant
// pre-configurations, bundle warnings, cleanup panics) to the given
// logger.
func WithLogger(l *slog.Logger) ContainerOption {
	return func(conf *ContainerConfiguration) { conf.Logger = l }
}

// Container is the root of a registration and resolution hierarchy: it
// owns the root registry, the singleton cache and the finalizers of
// singleton instances.
type Container struct {
	registry   *registry
	logger     *slog.Logger
	buildLocks sync.Map

	mu             sync.Mutex
	singletons     map[RegistrationID]*Node
	teardowns      []teardownRecord
	cleanups       []Cleanup
	appliedBundles map[uintptr]bool
	closed         bool
}

// New returns an empty container. The container registers itself, so
// constructors can depend on *Container or Resolver.
func New(opts ...ContainerOption) *Container {
	conf := ContainerConfiguration{}
	for _, opt := range opts {
		opt(&conf)
	}

	c := &Container{
		registry:       newRegistry(),
		logger:         conf.Logger,
		singletons:     make(map[RegistrationID]*Node),
		appliedBundles: make(map[uintptr]bool),
	}

	c.registry.addRegistration(mustInstanceRegistration(reflect.TypeOf(c), c, Singleton))
	c.registry.addRegistration(mustInstanceRegistration(resolverInterface, c, Singleton))

	return c
}

func (c *Container) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}

	return logger()
}

// NewScope opens a scope under the container.
func (c *Container) NewScope() *Scope {
	return newScope(c, nil)
}

func (c *Container) singletonNode(id RegistrationID) *Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.singletons[id]
}

func (c *Container) storeSingleton(r *Registration, node *Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.singletons[r.ID] = node

	if r.scopedTeardown != nil {
		c.teardowns = append(c.teardowns, teardownRecord{node: node, fn: r.scopedTeardown})
	}
}

func (c *Container) addCleanup(fn Cleanup) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanups = append(c.cleanups, fn)
}

func (c *Container) bundleApplied(key uintptr) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.appliedBundles[key]
}

func (c *Container) markBundleApplied(key uintptr) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.appliedBundles[key] = true
}

// Close runs singleton teardown callbacks, then unwinds singleton
// cleanups in reverse creation order. The container cannot be used
// after.
func (c *Container) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrContainerClosed
	}

	c.closed = true
	teardowns := c.teardowns
	cleanups := c.cleanups
	c.teardowns = nil
	c.cleanups = nil
	c.mu.Unlock()

	var errs []error
	for _, td := range teardowns {
		if err := td.fn.call(ctx, td.node.Instance()); err != nil {
			errs = append(errs, err)
		}
	}

	runCleanups(cleanups, Singleton)

	return errors.Join(errs...)
}

func (c *Container) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *Container) resolve(ctx context.Context, t reflect.Type, filter RegistrationFilter) (any, *Node, error) {
	if c.isClosed() {
		return nil, nil, ErrContainerClosed
	}

	return resolveInScope(ctx, c, nil, t, filter)
}

func (c *Container) has(t reflect.Type, filter RegistrationFilter) bool {
	return c.registry.hasRegistration(t, filter)
}

func (c *Container) defaultLifespan() Lifespan {
	return OncePerGraph
}

func (c *Container) addRegistration(r *Registration) error {
	if c.isClosed() {
		return newRegistrationError(ErrContainerClosed, r.ServiceType)
	}

	c.registry.addRegistration(r)

	return nil
}

func (c *Container) addDecorator(serviceType reflect.Type, d *Decorator) error {
	if c.isClosed() {
		return newRegistrationError(ErrContainerClosed, serviceType)
	}

	c.registry.addDecorator(serviceType, d)

	return nil
}

func (c *Container) addPreConfiguration(p *PreConfiguration) error {
	if c.isClosed() {
		return newRegistrationError(ErrContainerClosed, p.ServiceType)
	}

	c.registry.addPreConfiguration(p)

	return nil
}

func (c *Container) addOpenGeneric(origin string, r *Registration) error {
	if c.isClosed() {
		return newRegistrationError(ErrContainerClosed, r.ServiceType)
	}

	c.registry.addOpenGeneric(origin, r)

	return nil
}

func (c *Container) addGenericFallback(origin string, r *Registration) error {
	if c.isClosed() {
		return newRegistrationError(ErrContainerClosed, r.ServiceType)
	}

	c.registry.addGenericFallback(origin, r)

	return nil
}

func (c *Container) addGenericDecorator(origin string, d *Decorator) error {
	if c.isClosed() {
		return newRegistrationError(ErrContainerClosed, nil)
	}

	c.registry.addGenericDecorator(origin, d)

	return nil
}
