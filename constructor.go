package cleanioc

import (
	"context"
	"fmt"
	"reflect"
)

type constructorKind int

const (
	onlyService constructorKind = iota
	withError
	withErrorAndCleanUp
	sideEffect
	sideEffectWithError
	instanceValue
	structValue
	structPointer
	resolutionGuard
)

// constructorInfo is the analyzed shape of a registration source: a
// constructor function, a ready instance, a self-constructing struct
// type, or a resolution guard.
type constructorInfo struct {
	kind         constructorKind
	fn           reflect.Value
	instance     any
	guardErr     error
	structType   reflect.Type
	fieldIndex   []int
	wantsContext bool
	params       []reflect.Type
	paramNames   []string
	produces     reflect.Type
}

// analyzeConstructor validates a constructor function against the
// supported templates for the lifespan and records its injectable
// parameters. Supported result shapes are T, (T, error) and
// (T, Cleanup, error); a leading context.Context parameter is allowed
// for every lifespan but Singleton, whose instances outlive any call.
func analyzeConstructor(constructor any, lifespan Lifespan) (*constructorInfo, error) {
	t := reflect.TypeOf(constructor)

	if t == nil || t.Kind() != reflect.Func {
		return nil, newBadConstructorError(ErrConstructorNotAFunction, t)
	}

	if t.IsVariadic() {
		return nil, newBadConstructorError(ErrVariadicConstructor, t)
	}

	info := &constructorInfo{kind: onlyService, fn: reflect.ValueOf(constructor)}

	switch t.NumOut() {
	case 1:
		if out := t.Out(0); out.Implements(errorInterface) {
			return nil, newConstructorUnsupportedError(t, lifespan)
		}
	case 2:
		info.kind = withError

		if errType := t.Out(1); !errType.Implements(errorInterface) {
			return nil, newConstructorUnsupportedError(t, lifespan)
		}
	case 3:
		info.kind = withErrorAndCleanUp

		if cleanupType := t.Out(1); !cleanupType.AssignableTo(cleanUpType) {
			return nil, newConstructorUnsupportedError(t, lifespan)
		}

		if errType := t.Out(2); !errType.Implements(errorInterface) {
			return nil, newConstructorUnsupportedError(t, lifespan)
		}

		// A Transient instance has no cache slot, so nothing would ever
		// own its cleanup.
		if lifespan == Transient {
			return nil, newConstructorUnsupportedError(t, lifespan)
		}
	default:
		return nil, newConstructorUnsupportedError(t, lifespan)
	}

	info.produces = t.Out(0)

	if err := fillParams(info, t, lifespan); err != nil {
		return nil, err
	}

	return info, nil
}

// analyzeConfiguration validates a side-effecting function used by
// pre-configurations: func(deps...) or func(deps...) error, with an
// optional leading context.Context.
func analyzeConfiguration(fn any) (*constructorInfo, error) {
	t := reflect.TypeOf(fn)

	if t == nil || t.Kind() != reflect.Func {
		return nil, newBadConstructorError(ErrConstructorNotAFunction, t)
	}

	if t.IsVariadic() {
		return nil, newBadConstructorError(ErrVariadicConstructor, t)
	}

	info := &constructorInfo{kind: sideEffect, fn: reflect.ValueOf(fn)}

	switch t.NumOut() {
	case 0:
	case 1:
		info.kind = sideEffectWithError

		if errType := t.Out(0); !errType.Implements(errorInterface) {
			return nil, newConstructorUnsupportedError(t, OncePerGraph)
		}
	default:
		return nil, newConstructorUnsupportedError(t, OncePerGraph)
	}

	if err := fillParams(info, t, OncePerGraph); err != nil {
		return nil, err
	}

	return info, nil
}

func fillParams(info *constructorInfo, t reflect.Type, lifespan Lifespan) error {
	numIn := t.NumIn()
	for i := 0; i < numIn; i++ {
		argT := t.In(i)

		if argT.Implements(contextInterface) {
			if i > 0 {
				return newConstructorUnsupportedError(t, lifespan)
			}

			if lifespan == Singleton && info.produces != nil {
				return newConstructorUnsupportedError(t, lifespan)
			}

			info.wantsContext = true

			continue
		}

		info.params = append(info.params, argT)
		info.paramNames = append(info.paramNames, fmt.Sprintf("arg%d", len(info.params)-1))
	}

	return nil
}

// analyzeStructType lets a struct type act as its own constructor: its
// exported fields become dependencies and a fresh value (or pointer)
// with the fields filled is the instance.
func analyzeStructType(t reflect.Type) (*constructorInfo, error) {
	info := &constructorInfo{kind: structValue, produces: t}

	structType := t
	if t.Kind() == reflect.Pointer {
		info.kind = structPointer
		structType = t.Elem()
	}

	if structType.Kind() != reflect.Struct {
		return nil, ErrNoRegistrationSource
	}

	info.structType = structType

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() {
			continue
		}

		info.params = append(info.params, field.Type)
		info.paramNames = append(info.paramNames, field.Name)
		info.fieldIndex = append(info.fieldIndex, i)
	}

	return info, nil
}

func newInstanceInfo(instance any) (*constructorInfo, error) {
	if instance == nil {
		return nil, ErrNoRegistrationSource
	}

	return &constructorInfo{
		kind:     instanceValue,
		instance: instance,
		produces: reflect.TypeOf(instance),
	}, nil
}

func newGuardInfo(produces reflect.Type, guardErr error) *constructorInfo {
	return &constructorInfo{
		kind:     resolutionGuard,
		guardErr: guardErr,
		produces: produces,
	}
}

// teardownFunc is an analyzed scoped-teardown callback. Accepted forms
// are func(T), func(T) error, func(context.Context, T) and
// func(context.Context, T) error, where the service type is assignable
// to T.
type teardownFunc struct {
	fn           reflect.Value
	wantsContext bool
	returnsError bool
}

func analyzeTeardown(fn any, serviceType reflect.Type) (*teardownFunc, error) {
	t := reflect.TypeOf(fn)

	if t == nil || t.Kind() != reflect.Func {
		return nil, newBadConstructorError(ErrConstructorNotAFunction, t)
	}

	if t.IsVariadic() {
		return nil, newBadConstructorError(ErrVariadicConstructor, t)
	}

	td := &teardownFunc{fn: reflect.ValueOf(fn)}

	switch t.NumOut() {
	case 0:
	case 1:
		td.returnsError = true

		if !t.Out(0).Implements(errorInterface) {
			return nil, newBadConstructorError(ErrTeardownLifespan, t)
		}
	default:
		return nil, newBadConstructorError(ErrTeardownLifespan, t)
	}

	serviceParam := 0
	switch t.NumIn() {
	case 1:
	case 2:
		if !t.In(0).Implements(contextInterface) {
			return nil, newBadConstructorError(ErrTeardownLifespan, t)
		}

		td.wantsContext = true
		serviceParam = 1
	default:
		return nil, newBadConstructorError(ErrTeardownLifespan, t)
	}

	if !serviceType.AssignableTo(t.In(serviceParam)) {
		return nil, newBadConstructorError(ErrTeardownLifespan, t)
	}

	return td, nil
}

func (td *teardownFunc) call(ctx context.Context, instance any) error {
	serviceParam := td.fn.Type().NumIn() - 1

	args := make([]reflect.Value, 0, 2)
	if td.wantsContext {
		args = append(args, reflect.ValueOf(ctx))
	}

	value, err := conformingValue(td.fn.Type().In(serviceParam), instance)
	if err != nil {
		return err
	}

	args = append(args, value)

	results := td.fn.Call(args)
	if td.returnsError && !results[0].IsNil() {
		return results[0].Interface().(error)
	}

	return nil
}

// conformingValue adapts an instance to the expected reflect type,
// substituting a zero value for nil.
func conformingValue(expected reflect.Type, instance any) (reflect.Value, error) {
	if instance == nil {
		return reflect.Zero(expected), nil
	}

	value := reflect.ValueOf(instance)
	if !value.Type().AssignableTo(expected) {
		return reflect.Value{}, newConstructorError(
			fmt.Errorf("%s is not assignable to %s", value.Type(), expected),
		)
	}

	return value, nil
}
