package cleanioc

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"
)

// RegistrationID identifies a registration for the lifetime of the
// process. Ids are handed back by Register and usable with the WithID
// filter.
type RegistrationID int64

var registrationIDCounter atomic.Int64

func newRegistrationID() RegistrationID {
	return RegistrationID(registrationIDCounter.Add(1))
}

// Registration binds a service type to one way of producing it.
type Registration struct {
	ID             RegistrationID
	ServiceType    reflect.Type
	Implementation any
	Lifespan       Lifespan
	Name           string
	Tags           []Tag

	creator          *activator
	parentNodeFilter NodeFilter
	scopedTeardown   *teardownFunc
	genericOrigin    string
	wasUsed          atomic.Bool
}

// ImplementationType returns the concrete type the registration
// produces.
func (r *Registration) ImplementationType() reflect.Type {
	return r.creator.info.produces
}

// IsNamed reports whether the registration carries a name.
func (r *Registration) IsNamed() bool {
	return r.Name != ""
}

// HasTag reports whether the registration carries a tag with the name.
func (r *Registration) HasTag(name string) bool {
	for _, tag := range r.Tags {
		if tag.Name == name {
			return true
		}
	}

	return false
}

// HasTagValue reports whether the registration carries the exact tag.
func (r *Registration) HasTagValue(name, value string) bool {
	for _, tag := range r.Tags {
		if tag.Name == name && tag.Value == value {
			return true
		}
	}

	return false
}

// WasUsed reports whether the registration ever built an instance.
func (r *Registration) WasUsed() bool {
	return r.wasUsed.Load()
}

func (r *Registration) matchesParent(parent *Node) bool {
	if r.parentNodeFilter == nil {
		return true
	}

	return r.parentNodeFilter(parent)
}

// build realizes the registration under the given parent node:
// cache check, pre-configure, activate, decorate, cache. A cached hit
// splices the existing node under the new parent and returns its
// instance untouched.
func (r *Registration) build(ctx context.Context, rctx *resolvingContext, parent *Node) (any, error) {
	if node := rctx.cachedNode(r); node != nil {
		parent.AddChild(node)
		return node.Instance(), nil
	}

	// The cycle check must run before taking the build lock: a
	// registration reached again in the same call would deadlock on
	// its own lock otherwise.
	if rctx.isBuilding(r.ID) {
		return nil, newCircularDependencyError(r.ServiceType, r.Implementation)
	}

	if r.Lifespan >= Scoped {
		// First build of a shared instance races across goroutines;
		// serialize per registration and re-check the cache.
		unlock := rctx.lockRegistration(r)
		defer unlock()

		if node := rctx.cachedNode(r); node != nil {
			parent.AddChild(node)
			return node.Instance(), nil
		}
	}

	rctx.startBuilding(r.ID)
	defer rctx.finishBuilding(r.ID)

	node := newNode(r.ServiceType, r.Implementation, r.Lifespan)
	node.RegistrationName = r.Name
	node.RegistrationTags = r.Tags
	node.implType = r.ImplementationType()
	parent.AddChild(node)

	for _, pc := range rctx.findPreConfigurations(r) {
		if err := pc.run(ctx, rctx, node); err != nil {
			return nil, err
		}
	}

	instance, err := r.creator.create(ctx, rctx, node, nil)
	if err != nil {
		return nil, err
	}

	node.SetInstance(instance)

	top := node
	for _, dec := range rctx.findDecorators(r, node) {
		decoratorNode := newNode(r.ServiceType, dec.Implementation, r.Lifespan)
		decoratorNode.RegistrationName = r.Name
		decoratorNode.RegistrationTags = r.Tags
		decoratorNode.implType = dec.creator.info.produces
		top.AddDecorator(decoratorNode)

		instance, err = dec.decorate(ctx, rctx, decoratorNode, instance)
		if err != nil {
			return nil, err
		}

		decoratorNode.SetInstance(instance)
		top = decoratorNode
	}

	rctx.instanceCreated(r, top)
	r.wasUsed.Store(true)

	return instance, nil
}

func (r *Registration) String() string {
	if r.Name == "" {
		return fmt.Sprintf("%s (%s)", r.ServiceType, r.Lifespan)
	}

	return fmt.Sprintf("%s %q (%s)", r.ServiceType, r.Name, r.Lifespan)
}
