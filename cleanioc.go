package cleanioc

import (
	"context"
	"fmt"
	"reflect"
)

// TypeOf returns the reflect.Type of T, interfaces included.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Registrar accepts registrations. *Container and *Scope implement it;
// registrations on a scope shadow outer ones and die with the scope.
// This interface is sealed.
type Registrar interface {
	addRegistration(*Registration) error
	addDecorator(reflect.Type, *Decorator) error
	addPreConfiguration(*PreConfiguration) error
	addOpenGeneric(string, *Registration) error
	addGenericFallback(string, *Registration) error
	addGenericDecorator(string, *Decorator) error
	defaultLifespan() Lifespan
}

// Resolver resolves services. *Container and *Scope implement it, and
// both register themselves, so constructors can take a Resolver
// dependency to open scopes or resolve late.
// This interface is sealed.
type Resolver interface {
	NewScope() *Scope
	resolve(ctx context.Context, serviceType reflect.Type, filter RegistrationFilter) (any, *Node, error)
	has(serviceType reflect.Type, filter RegistrationFilter) bool
}

var resolverInterface = reflect.TypeOf((*Resolver)(nil)).Elem()

type registrationConfig struct {
	constructor      any
	instance         any
	hasInstance      bool
	lifespan         Lifespan
	lifespanSet      bool
	name             string
	tags             []Tag
	dependencyConfig map[int]DependencySettings
	parentNodeFilter NodeFilter
	teardown         any
}

type RegistrationOption func(*registrationConfig)

// WithConstructor sources the registration from a constructor
// function: func(deps...) T, (T, error) or (T, Cleanup, error), with an
// optional leading context.Context.
func WithConstructor(constructor any) RegistrationOption {
	return func(cfg *registrationConfig) { cfg.constructor = constructor }
}

// WithInstance sources the registration from a ready instance. The
// registration defaults to Singleton (Scoped when registered on a
// scope).
func WithInstance(instance any) RegistrationOption {
	return func(cfg *registrationConfig) {
		cfg.instance = instance
		cfg.hasInstance = true
	}
}

// WithLifespan overrides the registrar's default lifespan
// (OncePerGraph on a container, Scoped on a scope).
func WithLifespan(lifespan Lifespan) RegistrationOption {
	return func(cfg *registrationConfig) {
		cfg.lifespan = lifespan
		cfg.lifespanSet = true
	}
}

// WithName names the registration. Named registrations are skipped by
// unfiltered single lookups but stay visible to collections and named
// filters.
func WithName(name string) RegistrationOption {
	return func(cfg *registrationConfig) { cfg.name = name }
}

// WithTags attaches tags for filters to match on.
func WithTags(tags ...Tag) RegistrationOption {
	return func(cfg *registrationConfig) { cfg.tags = append(cfg.tags, tags...) }
}

// WithDependencyConfig tunes how the constructor parameter at the
// given position resolves. Positions count injectable parameters only;
// a leading context.Context does not count.
func WithDependencyConfig(position int, settings DependencySettings) RegistrationOption {
	return func(cfg *registrationConfig) {
		if cfg.dependencyConfig == nil {
			cfg.dependencyConfig = make(map[int]DependencySettings)
		}

		cfg.dependencyConfig[position] = settings
	}
}

// WithParentNodeFilter restricts the registration to dependants whose
// node passes the filter, e.g. only under a specific implementation.
func WithParentNodeFilter(filter NodeFilter) RegistrationOption {
	return func(cfg *registrationConfig) { cfg.parentNodeFilter = filter }
}

// WithScopedTeardown runs fn with the built instance when the owning
// scope (or container, for singletons) closes. Requires a Scoped or
// Singleton lifespan. Accepted forms: func(T), func(T) error,
// func(context.Context, T) and func(context.Context, T) error.
func WithScopedTeardown(fn any) RegistrationOption {
	return func(cfg *registrationConfig) { cfg.teardown = fn }
}

// Register binds service type T on the registrar. The source is the
// constructor or instance given through options; with neither, a
// struct T (or *T) constructs itself by resolving its exported fields.
func Register[T any](r Registrar, opts ...RegistrationOption) (RegistrationID, error) {
	serviceType := TypeOf[T]()

	cfg := registrationConfig{lifespan: r.defaultLifespan()}
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		info *constructorInfo
		impl any
		err  error
	)

	switch {
	case cfg.hasInstance && cfg.constructor != nil:
		return 0, newRegistrationError(ErrConflictingSources, serviceType)
	case cfg.hasInstance:
		if !cfg.lifespanSet {
			cfg.lifespan = Singleton
			if _, onScope := r.(*Scope); onScope {
				cfg.lifespan = Scoped
			}
		}

		info, err = newInstanceInfo(cfg.instance)
		impl = cfg.instance
	case cfg.constructor != nil:
		info, err = analyzeConstructor(cfg.constructor, cfg.lifespan)
		impl = cfg.constructor
	default:
		info, err = analyzeStructType(serviceType)
		impl = serviceType
	}

	if err != nil {
		return 0, newRegistrationError(err, serviceType)
	}

	reg, err := assembleRegistration(serviceType, impl, info, &cfg)
	if err != nil {
		return 0, err
	}

	if err := r.addRegistration(reg); err != nil {
		return 0, err
	}

	return reg.ID, nil
}

func assembleRegistration(serviceType reflect.Type, impl any, info *constructorInfo, cfg *registrationConfig) (*Registration, error) {
	if !info.produces.AssignableTo(serviceType) {
		return nil, newRegistrationError(
			fmt.Errorf("%s is not assignable to %s", info.produces, serviceType),
			serviceType,
		)
	}

	reg := &Registration{
		ID:               newRegistrationID(),
		ServiceType:      serviceType,
		Implementation:   impl,
		Lifespan:         cfg.lifespan,
		Name:             cfg.name,
		Tags:             cfg.tags,
		creator:          newActivator(info, cfg.dependencyConfig),
		parentNodeFilter: cfg.parentNodeFilter,
	}

	if cfg.teardown != nil {
		if cfg.lifespan != Scoped && cfg.lifespan != Singleton {
			return nil, newRegistrationError(ErrTeardownLifespan, serviceType)
		}

		td, err := analyzeTeardown(cfg.teardown, serviceType)
		if err != nil {
			return nil, newRegistrationError(err, serviceType)
		}

		reg.scopedTeardown = td
	}

	return reg, nil
}

func mustInstanceRegistration(serviceType reflect.Type, instance any, lifespan Lifespan) *Registration {
	info, err := newInstanceInfo(instance)
	if err != nil {
		panic(err)
	}

	return &Registration{
		ID:             newRegistrationID(),
		ServiceType:    serviceType,
		Implementation: instance,
		Lifespan:       lifespan,
		creator:        newActivator(info, nil),
	}
}

type decoratorConfig struct {
	registrationFilter RegistrationFilter
	nodeFilter         NodeFilter
	dependencyConfig   map[int]DependencySettings
	position           int
	decoratedArg       int
	hasDecoratedArg    bool
}

type DecoratorOption func(*decoratorConfig)

// WithRegistrationFilter restricts which registrations the decorator
// wraps. Without it, unnamed registrations are wrapped.
func WithRegistrationFilter(filter RegistrationFilter) DecoratorOption {
	return func(cfg *decoratorConfig) { cfg.registrationFilter = filter }
}

// WithDecoratorNodeFilter restricts decoration by where the built node
// sits in the graph.
func WithDecoratorNodeFilter(filter NodeFilter) DecoratorOption {
	return func(cfg *decoratorConfig) { cfg.nodeFilter = filter }
}

// WithDecoratedArg pins which constructor parameter receives the
// wrapped instance instead of auto-detecting it.
func WithDecoratedArg(position int) DecoratorOption {
	return func(cfg *decoratorConfig) {
		cfg.decoratedArg = position
		cfg.hasDecoratedArg = true
	}
}

// WithDecoratorDependencyConfig tunes how the decorator constructor's
// parameter at the given position resolves.
func WithDecoratorDependencyConfig(position int, settings DependencySettings) DecoratorOption {
	return func(cfg *decoratorConfig) {
		if cfg.dependencyConfig == nil {
			cfg.dependencyConfig = make(map[int]DependencySettings)
		}

		cfg.dependencyConfig[position] = settings
	}
}

// WithPosition orders decorators explicitly: the lowest position ends
// up outermost. Decorators sharing a position nest by recency, the
// most recently registered innermost.
func WithPosition(position int) DecoratorOption {
	return func(cfg *decoratorConfig) { cfg.position = position }
}

// RegisterDecorator wraps every matching instance of T as it is built.
// The constructor receives the wrapped instance in place of its first
// parameter T is assignable to (or the position given with
// WithDecoratedArg); its other parameters resolve normally.
func RegisterDecorator[T any](r Registrar, ctor any, opts ...DecoratorOption) error {
	serviceType := TypeOf[T]()

	cfg := decoratorConfig{registrationFilter: Unnamed}
	for _, opt := range opts {
		opt(&cfg)
	}

	info, err := analyzeConstructor(ctor, OncePerGraph)
	if err != nil {
		return newRegistrationError(err, serviceType)
	}

	if !info.produces.AssignableTo(serviceType) {
		return newRegistrationError(
			fmt.Errorf("%s is not assignable to %s", info.produces, serviceType),
			serviceType,
		)
	}

	decoratedArg, err := detectDecoratedArg(info, serviceType, cfg.decoratedArg, cfg.hasDecoratedArg)
	if err != nil {
		return newRegistrationError(newBadConstructorError(err, reflect.TypeOf(ctor)), serviceType)
	}

	dec := &Decorator{
		ServiceType:        serviceType,
		Implementation:     ctor,
		creator:            newActivator(info, cfg.dependencyConfig),
		registrationFilter: cfg.registrationFilter,
		nodeFilter:         cfg.nodeFilter,
		position:           cfg.position,
		decoratedArg:       decoratedArg,
	}

	return r.addDecorator(serviceType, dec)
}

type preConfigurationConfig struct {
	filter            RegistrationFilter
	dependencyConfig  map[int]DependencySettings
	continueOnFailure bool
}

type PreConfigurationOption func(*preConfigurationConfig)

// WithPreConfigurationFilter restricts which registrations trigger the
// pre-configuration. Without it, unnamed registrations trigger it.
func WithPreConfigurationFilter(filter RegistrationFilter) PreConfigurationOption {
	return func(cfg *preConfigurationConfig) { cfg.filter = filter }
}

// WithPreConfigurationDependencyConfig tunes how the configuration
// function's parameter at the given position resolves.
func WithPreConfigurationDependencyConfig(position int, settings DependencySettings) PreConfigurationOption {
	return func(cfg *preConfigurationConfig) {
		if cfg.dependencyConfig == nil {
			cfg.dependencyConfig = make(map[int]DependencySettings)
		}

		cfg.dependencyConfig[position] = settings
	}
}

// ContinueOnFailure keeps the triggering build going when the
// pre-configuration fails: the failure is logged and the
// pre-configuration still counts as ran.
var ContinueOnFailure PreConfigurationOption = func(cfg *preConfigurationConfig) {
	cfg.continueOnFailure = true
}

// PreConfigure runs fn once, before the first instance of T is
// activated. fn may take dependencies of its own (and an optional
// leading context.Context) and return nothing or an error.
func PreConfigure[T any](r Registrar, fn any, opts ...PreConfigurationOption) error {
	return preConfigureType(r, TypeOf[T](), fn, opts)
}

// PreConfigureEach files the same configuration function once per
// service type, each with its own run-once state.
func PreConfigureEach(r Registrar, fn any, types []reflect.Type, opts ...PreConfigurationOption) error {
	for _, t := range types {
		if err := preConfigureType(r, t, fn, opts); err != nil {
			return err
		}
	}

	return nil
}

func preConfigureType(r Registrar, serviceType reflect.Type, fn any, opts []PreConfigurationOption) error {
	cfg := preConfigurationConfig{filter: Unnamed}
	for _, opt := range opts {
		opt(&cfg)
	}

	info, err := analyzeConfiguration(fn)
	if err != nil {
		return newRegistrationError(err, serviceType)
	}

	return r.addPreConfiguration(&PreConfiguration{
		ServiceType:       serviceType,
		Implementation:    fn,
		creator:           newActivator(info, cfg.dependencyConfig),
		filter:            cfg.filter,
		continueOnFailure: cfg.continueOnFailure,
	})
}

// Resolve builds (or fetches from cache) the most recently registered
// unnamed T. Filters narrow the lookup; several are combined with And.
func Resolve[T any](ctx context.Context, r Resolver, filters ...RegistrationFilter) (T, error) {
	var zero T

	instance, _, err := r.resolve(ctx, TypeOf[T](), combineRegistrationFilters(filters, Unnamed))
	if err != nil {
		return zero, err
	}

	if instance == nil {
		return zero, nil
	}

	return instance.(T), nil
}

// MustResolve is Resolve panicking on error.
func MustResolve[T any](ctx context.Context, r Resolver, filters ...RegistrationFilter) T {
	instance, err := Resolve[T](ctx, r, filters...)
	if err != nil {
		panic(err)
	}

	return instance
}

// ResolveAll builds every matching registration of T, named ones
// included, most recently registered first.
func ResolveAll[T any](ctx context.Context, r Resolver, filters ...RegistrationFilter) ([]T, error) {
	instance, _, err := r.resolve(ctx, TypeOf[[]T](), combineRegistrationFilters(filters, AllRegistrations))
	if err != nil {
		return nil, err
	}

	return instance.([]T), nil
}

// ResolveGraph resolves T and returns the root of the dependency graph
// realized by the call, for diagnostics.
func ResolveGraph[T any](ctx context.Context, r Resolver, filters ...RegistrationFilter) (*Node, error) {
	_, root, err := r.resolve(ctx, TypeOf[T](), combineRegistrationFilters(filters, Unnamed))
	if err != nil {
		return nil, err
	}

	return root, nil
}

// HasRegistration reports whether a matching registration for T exists
// without building anything. Like Resolve it only sees unnamed
// registrations unless a filter widens the lookup.
func HasRegistration[T any](r Resolver, filters ...RegistrationFilter) bool {
	return r.has(TypeOf[T](), combineRegistrationFilters(filters, Unnamed))
}

// ExpectToBeScoped declares that T must be registered and resolved
// within a scope: resolving it through the container (or through a
// scope that never registered it) fails with
// NeedsScopedRegistrationError instead of silently serving a
// container-wide instance.
func ExpectToBeScoped[T any](c *Container, name string) error {
	serviceType := TypeOf[T]()

	guard := &Registration{
		ID:          newRegistrationID(),
		ServiceType: serviceType,
		Lifespan:    Transient,
		Name:        name,
		creator: newActivator(
			newGuardInfo(serviceType, newNeedsScopedRegistrationError(serviceType, name)),
			nil,
		),
	}

	return c.addRegistration(guard)
}
