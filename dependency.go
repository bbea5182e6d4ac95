package cleanioc

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
)

// DependencyContext describes the position a single dependency is being
// resolved for: which service needs it, which implementation is under
// construction and where that sits in the graph. Constructors may
// declare a DependencyContext parameter to receive it.
type DependencyContext struct {
	Name           string
	ServiceType    reflect.Type
	Implementation any
	Parent         *Node
	Decorated      *Node
}

var dependencyContextType = reflect.TypeOf(DependencyContext{})

// DependencyValueFactory can supply a dependency's value directly,
// bypassing container lookup. Returning Empty declines and lets normal
// resolution proceed.
type DependencyValueFactory func(defaultValue any, ctx DependencyContext) any

// UseDefaultValue is the default factory: it offers the default value,
// which is Empty unless a registration configured one.
func UseDefaultValue(defaultValue any, _ DependencyContext) any {
	return defaultValue
}

// DontUseDefaultValue declines even a configured default value.
func DontUseDefaultValue(any, DependencyContext) any {
	return Empty
}

// SetValue always supplies the given value.
func SetValue(value any) DependencyValueFactory {
	return func(any, DependencyContext) any { return value }
}

// DependencySettings tunes how one constructor parameter resolves.
type DependencySettings struct {
	ValueFactory        DependencyValueFactory
	Filter              RegistrationFilter
	ListReductionFilter ListReductionFilter
}

func (s DependencySettings) withDefaults(collection bool) DependencySettings {
	if s.ValueFactory == nil {
		s.ValueFactory = UseDefaultValue
	}

	if s.Filter == nil {
		// Named registrations opt out of anonymous lookup but stay
		// visible to collections.
		if collection {
			s.Filter = AllRegistrations
		} else {
			s.Filter = Unnamed
		}
	}

	if s.ListReductionFilter == nil {
		s.ListReductionFilter = AllItems
	}

	return s
}

// Dependency is one constructor parameter (or struct field) awaiting
// resolution.
type Dependency struct {
	Name           string
	ServiceType    reflect.Type
	Settings       DependencySettings
	DefaultValue   any
	parentInfo     *constructorInfo
	isDepContext   bool
	collectionElem reflect.Type
}

func newDependency(name string, serviceType reflect.Type, settings DependencySettings, parentInfo *constructorInfo) *Dependency {
	d := &Dependency{
		Name:         name,
		ServiceType:  serviceType,
		DefaultValue: Empty,
		parentInfo:   parentInfo,
	}

	if serviceType == dependencyContextType {
		d.isDepContext = true
	}

	if serviceType.Kind() == reflect.Slice && serviceType.Elem().Kind() != reflect.Uint8 {
		d.collectionElem = serviceType.Elem()
	}

	d.Settings = settings.withDefaults(d.collectionElem != nil)

	return d
}

// resolve produces the dependency's value for the given node, in order
// of precedence: value-factory override, DependencyContext injection,
// collection expansion, then single registration lookup and build.
func (d *Dependency) resolve(ctx context.Context, rctx *resolvingContext, node *Node) (any, error) {
	depCtx := DependencyContext{
		Name:           d.Name,
		ServiceType:    node.ServiceType,
		Implementation: node.Implementation,
		Parent:         node.Parent,
		Decorated:      node.Decorated,
	}

	if value := d.Settings.ValueFactory(d.DefaultValue, depCtx); value != Empty {
		return value, nil
	}

	if d.isDepContext {
		return depCtx, nil
	}

	if d.collectionElem != nil {
		return d.resolveCollection(ctx, rctx, node)
	}

	reg, err := rctx.findRegistration(d.ServiceType, d.Settings.Filter, node)
	if err != nil {
		return nil, d.wrapChainError(err, node)
	}

	instance, err := reg.build(ctx, rctx, node)
	if err != nil {
		return nil, d.wrapChainError(err, node)
	}

	if err := checkProduced(d.ServiceType, instance); err != nil {
		return nil, newServiceBuilderError(err, reg.Lifespan, typeName(d.ServiceType))
	}

	return instance, nil
}

// resolveCollection builds every matching registration, most recently
// registered first, into a slice hung off a synthetic node.
func (d *Dependency) resolveCollection(ctx context.Context, rctx *resolvingContext, node *Node) (any, error) {
	regs := rctx.findRegistrations(d.collectionElem, d.Settings.Filter, d.Settings.ListReductionFilter, node)

	collectionNode := newNode(d.ServiceType, sliceOf{elem: d.collectionElem}, Transient)
	node.AddChild(collectionNode)

	out := reflect.MakeSlice(d.ServiceType, 0, len(regs))
	for _, reg := range regs {
		instance, err := reg.build(ctx, rctx, collectionNode)
		if err != nil {
			return nil, d.wrapChainError(err, node)
		}

		value, err := conformingValue(d.collectionElem, instance)
		if err != nil {
			return nil, newServiceBuilderError(err, reg.Lifespan, typeName(d.ServiceType))
		}

		out = reflect.Append(out, value)
	}

	collection := out.Interface()
	collectionNode.SetInstance(collection)

	return collection, nil
}

func (d *Dependency) wrapChainError(err error, node *Node) error {
	if cannotResolve, ok := err.(*CannotResolveError); ok {
		cannotResolve.addFrame(DependencyFrame{
			Implementation: implementationName(node.Implementation),
			DependencyName: d.Name,
			ServiceType:    typeName(d.ServiceType),
		})
	}

	return err
}

// sliceOf is the implementation recorded on synthetic collection nodes.
type sliceOf struct {
	elem reflect.Type
}

func (s sliceOf) String() string {
	return fmt.Sprintf("[]%s", s.elem)
}

func checkProduced(expected reflect.Type, instance any) error {
	if instance == nil {
		return nil
	}

	if t := reflect.TypeOf(instance); !t.AssignableTo(expected) {
		return newConstructorError(fmt.Errorf("%s is not assignable to %s", t, expected))
	}

	return nil
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	return t.String()
}

func implementationName(implementation any) string {
	if implementation == nil {
		return "<nil>"
	}

	value := reflect.ValueOf(implementation)
	if value.Kind() == reflect.Func {
		if fn := runtime.FuncForPC(value.Pointer()); fn != nil {
			return fn.Name()
		}
	}

	return fmt.Sprintf("%T", implementation)
}
