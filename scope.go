package cleanioc

import (
	"context"
	"errors"
	"reflect"
	"sync"
)

// teardownRecord pairs a cached node with the teardown its
// registration declared.
type teardownRecord struct {
	node *Node
	fn   *teardownFunc
}

// Scope is a unit of sharing and disposal nested under a container (or
// another scope). Scoped services built through it are cached on it
// and torn down when it closes; its own registrations shadow outer
// ones for calls resolved through it.
type Scope struct {
	container  *Container
	parent     *Scope
	registry   *registry
	buildLocks sync.Map

	mu        sync.Mutex
	instances map[RegistrationID]*Node
	teardowns []teardownRecord
	cleanups  []Cleanup
	closed    bool
}

func newScope(c *Container, parent *Scope) *Scope {
	s := &Scope{
		container: c,
		parent:    parent,
		registry:  newRegistry(),
		instances: make(map[RegistrationID]*Node),
	}

	// A scope can hand itself out as a dependency.
	s.registry.addRegistration(mustInstanceRegistration(reflect.TypeOf(s), s, Scoped))
	s.registry.addRegistration(mustInstanceRegistration(resolverInterface, s, Scoped))

	return s
}

// Container returns the container the scope chain hangs off.
func (s *Scope) Container() *Container {
	return s.container
}

// NewScope opens a scope nested under this one. Inner registrations
// and caches shadow outer ones.
func (s *Scope) NewScope() *Scope {
	return newScope(s.container, s)
}

func (s *Scope) scopedInstance(id RegistrationID) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.instances[id]
}

func (s *Scope) storeScoped(r *Registration, node *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.instances[r.ID] = node

	if r.scopedTeardown != nil {
		s.teardowns = append(s.teardowns, teardownRecord{node: node, fn: r.scopedTeardown})
	}
}

func (s *Scope) addCleanup(fn Cleanup) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanups = append(s.cleanups, fn)
}

// Close runs the scope's teardown callbacks, then unwinds constructor
// cleanups in reverse creation order. The scope cannot be used after.
func (s *Scope) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrScopeClosed
	}

	s.closed = true
	teardowns := s.teardowns
	cleanups := s.cleanups
	s.teardowns = nil
	s.cleanups = nil
	s.mu.Unlock()

	var errs []error
	for _, td := range teardowns {
		if err := td.fn.call(ctx, td.node.Instance()); err != nil {
			errs = append(errs, err)
		}
	}

	runCleanups(cleanups, Scoped)

	return errors.Join(errs...)
}

func (s *Scope) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

func (s *Scope) resolve(ctx context.Context, t reflect.Type, filter RegistrationFilter) (any, *Node, error) {
	if s.isClosed() {
		return nil, nil, ErrScopeClosed
	}

	return resolveInScope(ctx, s.container, s, t, filter)
}

func (s *Scope) has(t reflect.Type, filter RegistrationFilter) bool {
	for scope := s; scope != nil; scope = scope.parent {
		if scope.registry.hasRegistration(t, filter) {
			return true
		}
	}

	return s.container.registry.hasRegistration(t, filter)
}

func (s *Scope) defaultLifespan() Lifespan {
	return Scoped
}

func (s *Scope) addRegistration(r *Registration) error {
	if s.isClosed() {
		return newRegistrationError(ErrScopeClosed, r.ServiceType)
	}

	if r.Lifespan == Singleton {
		return newRegistrationError(ErrSingletonOnScope, r.ServiceType)
	}

	s.registry.addRegistration(r)

	return nil
}

func (s *Scope) addDecorator(serviceType reflect.Type, d *Decorator) error {
	if s.isClosed() {
		return newRegistrationError(ErrScopeClosed, serviceType)
	}

	s.registry.addDecorator(serviceType, d)

	return nil
}

func (s *Scope) addPreConfiguration(p *PreConfiguration) error {
	if s.isClosed() {
		return newRegistrationError(ErrScopeClosed, p.ServiceType)
	}

	s.registry.addPreConfiguration(p)

	return nil
}

func (s *Scope) addOpenGeneric(origin string, r *Registration) error {
	if s.isClosed() {
		return newRegistrationError(ErrScopeClosed, r.ServiceType)
	}

	if r.Lifespan == Singleton {
		return newRegistrationError(ErrSingletonOnScope, r.ServiceType)
	}

	s.registry.addOpenGeneric(origin, r)

	return nil
}

func (s *Scope) addGenericFallback(origin string, r *Registration) error {
	if s.isClosed() {
		return newRegistrationError(ErrScopeClosed, r.ServiceType)
	}

	if r.Lifespan == Singleton {
		return newRegistrationError(ErrSingletonOnScope, r.ServiceType)
	}

	s.registry.addGenericFallback(origin, r)

	return nil
}

func (s *Scope) addGenericDecorator(origin string, d *Decorator) error {
	if s.isClosed() {
		return newRegistrationError(ErrScopeClosed, nil)
	}

	s.registry.addGenericDecorator(origin, d)

	return nil
}
