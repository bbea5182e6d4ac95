package cleanioc

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
)

// resolvingContext carries the per-call state of one resolve: the
// per-call dependency cache, the stack of registrations currently
// building (for cycle detection) and the scope chain the call runs in.
type resolvingContext struct {
	container *Container
	scope     *Scope
	cache     map[RegistrationID]*Node
	building  map[RegistrationID]bool
}

func newResolvingContext(c *Container, s *Scope) *resolvingContext {
	return &resolvingContext{
		container: c,
		scope:     s,
		cache:     make(map[RegistrationID]*Node),
		building:  make(map[RegistrationID]bool),
	}
}

func (rctx *resolvingContext) log() *slog.Logger {
	return rctx.container.log()
}

func (rctx *resolvingContext) isBuilding(id RegistrationID) bool {
	return rctx.building[id]
}

func (rctx *resolvingContext) startBuilding(id RegistrationID) {
	rctx.building[id] = true
}

func (rctx *resolvingContext) finishBuilding(id RegistrationID) {
	delete(rctx.building, id)
}

// cachedNode looks an instance up through the caching tiers: the
// per-call cache, the scope chain innermost first, then container
// singletons. Hits from outer tiers are memoized for the call.
func (rctx *resolvingContext) cachedNode(r *Registration) *Node {
	if node, ok := rctx.cache[r.ID]; ok {
		return node
	}

	for s := rctx.scope; s != nil; s = s.parent {
		if node := s.scopedInstance(r.ID); node != nil {
			rctx.cache[r.ID] = node
			return node
		}
	}

	if node := rctx.container.singletonNode(r.ID); node != nil {
		rctx.cache[r.ID] = node
		return node
	}

	return nil
}

// instanceCreated routes a freshly built node to its caching tier.
// Scoped instances land on the innermost scope; built without one they
// degrade to per-call sharing.
func (rctx *resolvingContext) instanceCreated(r *Registration, node *Node) {
	switch {
	case r.Lifespan == Singleton:
		rctx.container.storeSingleton(r, node)
		rctx.cache[r.ID] = node
	case r.Lifespan == Scoped:
		if rctx.scope != nil {
			rctx.scope.storeScoped(r, node)
		}

		rctx.cache[r.ID] = node
	case r.Lifespan == OncePerGraph:
		rctx.cache[r.ID] = node
	}
}

// lockRegistration serializes the first build of a shared instance.
func (rctx *resolvingContext) lockRegistration(r *Registration) func() {
	var locks *sync.Map

	switch {
	case r.Lifespan == Singleton:
		locks = &rctx.container.buildLocks
	case r.Lifespan == Scoped && rctx.scope != nil:
		locks = &rctx.scope.buildLocks
	default:
		return func() {}
	}

	muVal, _ := locks.LoadOrStore(r.ID, new(sync.Mutex))
	mu := muVal.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}

// addCleanup hands a constructor cleanup to whoever outlives the
// instance: the container for singletons (and scope-less calls), the
// innermost scope otherwise.
func (rctx *resolvingContext) addCleanup(lifespan Lifespan, fn Cleanup) {
	if lifespan == Singleton || rctx.scope == nil {
		rctx.container.addCleanup(fn)
		return
	}

	rctx.scope.addCleanup(fn)
}

func (rctx *resolvingContext) allRegistrationsFor(t reflect.Type) []*Registration {
	var out []*Registration

	for s := rctx.scope; s != nil; s = s.parent {
		out = append(out, s.registry.registrationsFor(t)...)
	}

	return append(out, rctx.container.registry.registrationsFor(t)...)
}

// findRegistration picks the single registration serving a dependency:
// the most recently registered match walking the scope chain outwards.
// When the exact lookup misses and the type is a closed instantiation
// of a generic origin, the origin's open registrations are retried.
func (rctx *resolvingContext) findRegistration(t reflect.Type, filter RegistrationFilter, parent *Node) (*Registration, error) {
	for _, reg := range rctx.allRegistrationsFor(t) {
		if filter(reg) && reg.matchesParent(parent) {
			return reg, nil
		}
	}

	if origin, _, ok := parseGenericType(t); ok {
		for _, reg := range rctx.allOpenGenericsFor(origin, t) {
			if reg.matchesParent(parent) {
				return reg, nil
			}
		}
	}

	return nil, newCannotResolveError(t)
}

func (rctx *resolvingContext) allOpenGenericsFor(origin string, requested reflect.Type) []*Registration {
	var out []*Registration

	for s := rctx.scope; s != nil; s = s.parent {
		out = append(out, s.registry.openGenericsFor(origin, requested)...)
	}

	return append(out, rctx.container.registry.openGenericsFor(origin, requested)...)
}

// findRegistrations collects every matching registration for a
// collection, most recently registered first, folding the accepted
// list through the reduction filter.
func (rctx *resolvingContext) findRegistrations(
	t reflect.Type,
	filter RegistrationFilter,
	reduction ListReductionFilter,
	parent *Node,
) []*Registration {
	var accepted []*Registration

	for _, reg := range rctx.allRegistrationsFor(t) {
		if !filter(reg) || !reg.matchesParent(parent) {
			continue
		}

		if !reduction(reg, accepted) {
			continue
		}

		accepted = append(accepted, reg)
	}

	return accepted
}

func (rctx *resolvingContext) findPreConfigurations(r *Registration) []*PreConfiguration {
	var out []*PreConfiguration

	for s := rctx.scope; s != nil; s = s.parent {
		for _, pc := range s.registry.preConfigurationsFor(r.ServiceType) {
			if pc.matches(r) {
				out = append(out, pc)
			}
		}
	}

	for _, pc := range rctx.container.registry.preConfigurationsFor(r.ServiceType) {
		if pc.matches(r) {
			out = append(out, pc)
		}
	}

	return out
}

func (rctx *resolvingContext) findDecorators(r *Registration, node *Node) []*Decorator {
	var out []*Decorator

	for s := rctx.scope; s != nil; s = s.parent {
		for _, dec := range s.registry.decoratorsFor(r) {
			if dec.matches(r, node) {
				out = append(out, dec)
			}
		}
	}

	for _, dec := range rctx.container.registry.decoratorsFor(r) {
		if dec.matches(r, node) {
			out = append(out, dec)
		}
	}

	return orderDecorators(out)
}

// release unparents every node the call spliced from longer-lived
// caches, so no cached node keeps pointing into a discarded graph.
func (rctx *resolvingContext) release() {
	for _, node := range rctx.cache {
		node.Unparent()
	}
}

// graphRoot marks the implementation slot of dependency-graph roots.
func graphRoot() {}

// resolveInScope runs one full resolution: a fresh dependency graph
// rooted at the requested type, resolved through the scope chain.
func resolveInScope(
	ctx context.Context,
	c *Container,
	s *Scope,
	t reflect.Type,
	filter RegistrationFilter,
) (any, *Node, error) {
	root := newNode(t, graphRoot, OncePerGraph)
	dep := newDependency("root", t, DependencySettings{Filter: filter}, nil)

	rctx := newResolvingContext(c, s)
	defer rctx.release()

	instance, err := dep.resolve(ctx, rctx, root)
	if err != nil {
		return nil, nil, err
	}

	root.SetInstance(instance)

	return instance, root, nil
}
