package cleanioc

import (
	"context"
	"reflect"
)

// Decorator wraps instances of a service type as they are built. The
// wrapped instance is handed to the decorator constructor in place of
// one of its parameters; everything else resolves normally.
type Decorator struct {
	ServiceType    reflect.Type
	Implementation any

	creator            *activator
	registrationFilter RegistrationFilter
	nodeFilter         NodeFilter
	position           int
	decoratedArg       int
}

// matches reports whether the decorator applies to the registration and
// the node it just realized.
func (d *Decorator) matches(r *Registration, node *Node) bool {
	if d.registrationFilter != nil && !d.registrationFilter(r) {
		return false
	}

	if d.nodeFilter != nil && !d.nodeFilter(node) {
		return false
	}

	return true
}

func (d *Decorator) decorate(ctx context.Context, rctx *resolvingContext, node *Node, decorated any) (any, error) {
	instance, err := d.creator.create(ctx, rctx, node, map[int]any{d.decoratedArg: decorated})
	if err != nil {
		return nil, err
	}

	// Origin-keyed generic decorators cannot be shape-checked at
	// registration time, so the produced instance is checked here.
	if err := checkProduced(node.ServiceType, instance); err != nil {
		return nil, newServiceBuilderError(err, node.Lifespan, typeName(node.ServiceType))
	}

	return instance, nil
}

// detectDecoratedArg finds the constructor parameter that receives the
// wrapped instance. An explicit position wins; otherwise the first
// parameter the service type is assignable to is used. Origin-keyed
// decorators pass a nil service type and match the first empty
// interface parameter.
func detectDecoratedArg(info *constructorInfo, serviceType reflect.Type, explicit int, hasExplicit bool) (int, error) {
	if hasExplicit {
		if explicit < 0 || explicit >= len(info.params) {
			return 0, ErrDecoratorBadDependency
		}

		return explicit, nil
	}

	for i, param := range info.params {
		if serviceType != nil {
			if serviceType.AssignableTo(param) {
				return i, nil
			}

			continue
		}

		if param.Kind() == reflect.Interface && param.NumMethod() == 0 {
			return i, nil
		}
	}

	return 0, ErrDecoratorBadDependency
}

// orderDecorators returns the application order, innermost first.
// Decorator lists are kept most recently registered first; a stable
// sort by descending position then applies low positions last, leaving
// them outermost.
func orderDecorators(decorators []*Decorator) []*Decorator {
	ordered := make([]*Decorator, len(decorators))
	copy(ordered, decorators)

	// insertion sort keeps registration order within equal positions
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j-1].position < ordered[j].position; j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}

	return ordered
}
