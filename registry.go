package cleanioc

import (
	"reflect"
	"sync"
)

// registry is the per-scope store of registrations, decorators and
// pre-configurations. Lists are kept most recently registered first,
// so the newest registration wins single lookups and leads collections.
type registry struct {
	mu                sync.RWMutex
	registrations     map[reflect.Type][]*Registration
	decorators        map[reflect.Type][]*Decorator
	preConfigurations map[reflect.Type][]*PreConfiguration
	openGenerics      map[string][]*Registration
	genericFallbacks  map[string][]*Registration
	genericDecorators map[string][]*Decorator
}

func newRegistry() *registry {
	return &registry{
		registrations:     make(map[reflect.Type][]*Registration),
		decorators:        make(map[reflect.Type][]*Decorator),
		preConfigurations: make(map[reflect.Type][]*PreConfiguration),
		openGenerics:      make(map[string][]*Registration),
		genericFallbacks:  make(map[string][]*Registration),
		genericDecorators: make(map[string][]*Decorator),
	}
}

func (g *registry) addRegistration(r *Registration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.registrations[r.ServiceType] = append([]*Registration{r}, g.registrations[r.ServiceType]...)
}

func (g *registry) addDecorator(serviceType reflect.Type, d *Decorator) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.decorators[serviceType] = append([]*Decorator{d}, g.decorators[serviceType]...)
}

func (g *registry) addPreConfiguration(p *PreConfiguration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.preConfigurations[p.ServiceType] = append(g.preConfigurations[p.ServiceType], p)
}

func (g *registry) addOpenGeneric(origin string, r *Registration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.openGenerics[origin] = append([]*Registration{r}, g.openGenerics[origin]...)
}

func (g *registry) addGenericFallback(origin string, r *Registration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.genericFallbacks[origin] = append([]*Registration{r}, g.genericFallbacks[origin]...)
}

func (g *registry) addGenericDecorator(origin string, d *Decorator) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.genericDecorators[origin] = append([]*Decorator{d}, g.genericDecorators[origin]...)
}

func (g *registry) registrationsFor(t reflect.Type) []*Registration {
	g.mu.RLock()
	defer g.mu.RUnlock()

	regs := g.registrations[t]
	out := make([]*Registration, len(regs))
	copy(out, regs)

	return out
}

// openGenericsFor returns the origin's open registrations able to
// serve the requested closed type, then its fallbacks unchecked.
func (g *registry) openGenericsFor(origin string, requested reflect.Type) []*Registration {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*Registration
	for _, r := range g.openGenerics[origin] {
		if r.ImplementationType().AssignableTo(requested) {
			out = append(out, r)
		}
	}

	out = append(out, g.genericFallbacks[origin]...)

	return out
}

func (g *registry) decoratorsFor(r *Registration) []*Decorator {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*Decorator
	out = append(out, g.decorators[r.ServiceType]...)

	for origin, decorators := range g.genericDecorators {
		if matchesOrigin(r, origin) {
			out = append(out, decorators...)
		}
	}

	return out
}

func (g *registry) preConfigurationsFor(t reflect.Type) []*PreConfiguration {
	g.mu.RLock()
	defer g.mu.RUnlock()

	pcs := g.preConfigurations[t]
	out := make([]*PreConfiguration, len(pcs))
	copy(out, pcs)

	return out
}

func (g *registry) hasRegistration(t reflect.Type, filter RegistrationFilter) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, r := range g.registrations[t] {
		if filter(r) {
			return true
		}
	}

	return false
}
