package cleanioc

import (
	"context"
	"fmt"
	"reflect"
)

// activator realizes one registration source: it resolves the declared
// dependencies, invokes the source and normalizes the result.
type activator struct {
	info *constructorInfo
	deps []*Dependency
}

func newActivator(info *constructorInfo, dependencyConfig map[int]DependencySettings) *activator {
	a := &activator{info: info}

	for i, paramType := range info.params {
		a.deps = append(a.deps, newDependency(info.paramNames[i], paramType, dependencyConfig[i], info))
	}

	return a
}

// create builds the instance for the node. Overrides short-circuit
// resolution for specific parameter positions (decorators use this to
// hand the wrapped instance in). Panics inside constructors surface as
// builder errors instead of tearing the resolve call down.
func (a *activator) create(
	ctx context.Context,
	rctx *resolvingContext,
	node *Node,
	overrides map[int]any,
) (instance any, err error) {
	defer func() {
		if rp := recover(); rp != nil {
			err = newServiceBuilderError(
				newConstructorError(fmt.Errorf("recovered from panic: %v", rp)),
				node.Lifespan,
				typeName(node.ServiceType),
			)
		}
	}()

	switch a.info.kind {
	case instanceValue:
		return a.info.instance, nil
	case resolutionGuard:
		return nil, a.info.guardErr
	case structValue, structPointer:
		return a.fillStruct(ctx, rctx, node, overrides)
	default:
		return a.callFunc(ctx, rctx, node, overrides)
	}
}

func (a *activator) fillStruct(
	ctx context.Context,
	rctx *resolvingContext,
	node *Node,
	overrides map[int]any,
) (any, error) {
	value := reflect.New(a.info.structType).Elem()

	for i, dep := range a.deps {
		resolved, err := a.argValue(ctx, rctx, node, overrides, i, dep)
		if err != nil {
			return nil, err
		}

		fieldValue, err := conformingValue(dep.ServiceType, resolved)
		if err != nil {
			return nil, newServiceBuilderError(err, node.Lifespan, typeName(node.ServiceType))
		}

		value.Field(a.info.fieldIndex[i]).Set(fieldValue)
	}

	if a.info.kind == structPointer {
		return value.Addr().Interface(), nil
	}

	return value.Interface(), nil
}

func (a *activator) callFunc(
	ctx context.Context,
	rctx *resolvingContext,
	node *Node,
	overrides map[int]any,
) (any, error) {
	args := make([]reflect.Value, 0, len(a.deps)+1)

	if a.info.wantsContext {
		args = append(args, reflect.ValueOf(ctx))
	}

	for i, dep := range a.deps {
		resolved, err := a.argValue(ctx, rctx, node, overrides, i, dep)
		if err != nil {
			return nil, err
		}

		argValue, err := conformingValue(dep.ServiceType, resolved)
		if err != nil {
			return nil, newServiceBuilderError(err, node.Lifespan, typeName(node.ServiceType))
		}

		args = append(args, argValue)
	}

	values := a.info.fn.Call(args)

	if a.info.kind == onlyService && len(values) != 1 ||
		a.info.kind == withError && len(values) != 2 ||
		a.info.kind == withErrorAndCleanUp && len(values) != 3 ||
		a.info.kind == sideEffectWithError && len(values) != 1 {
		return nil, newServiceBuilderError(
			newConstructorError(newUnexpectedResultError(values)),
			node.Lifespan,
			typeName(node.ServiceType),
		)
	}

	switch a.info.kind {
	case sideEffect:
		return nil, nil
	case sideEffectWithError:
		if err, ok := values[0].Interface().(error); ok && err != nil {
			return nil, newServiceBuilderError(
				newConstructorError(err),
				node.Lifespan,
				typeName(node.ServiceType),
			)
		}

		return nil, nil
	case onlyService:
		return values[0].Interface(), nil
	case withError:
		serviceV, errV := values[0], values[1]
		if err, ok := errV.Interface().(error); ok && err != nil {
			return nil, newServiceBuilderError(
				newConstructorError(err),
				node.Lifespan,
				typeName(node.ServiceType),
			)
		}

		return serviceV.Interface(), nil
	case withErrorAndCleanUp:
		serviceV, cleanUpV, errV := values[0], values[1], values[2]
		if err, ok := errV.Interface().(error); ok && err != nil {
			return nil, newServiceBuilderError(
				newConstructorError(err),
				node.Lifespan,
				typeName(node.ServiceType),
			)
		}

		if !cleanUpV.IsNil() {
			rctx.addCleanup(node.Lifespan, func() { cleanUpV.Call(nil) })
		}

		return serviceV.Interface(), nil
	default:
		return nil, newServiceBuilderError(
			newConstructorUnsupportedError(a.info.fn.Type(), node.Lifespan),
			node.Lifespan,
			typeName(node.ServiceType),
		)
	}
}

func (a *activator) argValue(
	ctx context.Context,
	rctx *resolvingContext,
	node *Node,
	overrides map[int]any,
	index int,
	dep *Dependency,
) (any, error) {
	if overrides != nil {
		if value, ok := overrides[index]; ok {
			return value, nil
		}
	}

	return dep.resolve(ctx, rctx, node)
}
