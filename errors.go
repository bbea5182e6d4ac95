package cleanioc

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"
)

const (
	constructorTypeStr            string = "func(T1, ...) [T|(T, error)|(T, Cleanup, error)]"
	constructorWithContextTypeStr string = "func(context.Context, T1, ...) [T|(T, error)|(T, Cleanup, error)]"

	singletonPossibleConstructor string = constructorTypeStr
	scopedPossibleConstructor    string = constructorTypeStr + " | " + constructorWithContextTypeStr
	transientPossibleConstructor string = "func(T1, ...) [T|(T, error)]" + " | " + "func(context.Context, T1, ...) [T|(T, error)]"
)

var (
	errorInterface   = reflect.TypeOf((*error)(nil)).Elem()
	cleanUpType      = reflect.TypeOf((*func())(nil)).Elem()
	contextInterface = reflect.TypeOf((*context.Context)(nil)).Elem()

	ErrVariadicConstructor     = fmt.Errorf("variadic constructor is not supported")
	ErrConstructorNotAFunction = fmt.Errorf("constructor must be a function")
	ErrNoRegistrationSource    = fmt.Errorf("no constructor or instance given and service type cannot construct itself")
	ErrConflictingSources      = fmt.Errorf("a registration takes a constructor or an instance, not both")
	ErrDecoratorBadDependency  = fmt.Errorf("decorator constructor must accept the decorated service as a parameter")
	ErrTeardownLifespan        = fmt.Errorf("scoped teardown requires a Scoped or Singleton lifespan")
	ErrSingletonOnScope        = fmt.Errorf("Singleton services cannot be registered on a scope")
	ErrScopeClosed             = fmt.Errorf("scope is already closed")
	ErrContainerClosed         = fmt.Errorf("container is already closed")
)

func newConstructorUnsupportedError(constructorType reflect.Type, lifespan Lifespan) error {
	switch lifespan {
	case Singleton:
		return newBadConstructorError(
			&ConstructorTemplateError{
				Lifespan:                      lifespan,
				SupportedConstructorTemplates: singletonPossibleConstructor,
			},
			constructorType,
		)
	case Scoped, OncePerGraph:
		return newBadConstructorError(
			&ConstructorTemplateError{
				Lifespan:                      lifespan,
				SupportedConstructorTemplates: scopedPossibleConstructor,
			},
			constructorType,
		)
	case Transient:
		return newBadConstructorError(
			&ConstructorTemplateError{
				Lifespan:                      lifespan,
				SupportedConstructorTemplates: transientPossibleConstructor,
			},
			constructorType,
		)
	default:
		return LifespanUnsupportedError(lifespan.String())
	}
}

type LifespanUnsupportedError string

func (lifespan LifespanUnsupportedError) Error() string {
	return fmt.Sprintf("%s Lifespan is unsupported", string(lifespan))
}

func newBadConstructorError(cause error, constructorType reflect.Type) error {
	return &BadConstructorError{
		cause:           cause,
		ConstructorType: constructorType,
	}
}

type BadConstructorError struct {
	cause           error
	ConstructorType reflect.Type
}

func (err *BadConstructorError) Error() string {
	return fmt.Sprintf("bad constructor %s: %s", err.ConstructorType, err.cause)
}

func (err *BadConstructorError) Unwrap() error {
	return err.cause
}

type ConstructorTemplateError struct {
	SupportedConstructorTemplates string
	Lifespan                      Lifespan
}

func (err *ConstructorTemplateError) Error() string {
	return fmt.Sprintf(
		"only %s can be used for %s",
		err.SupportedConstructorTemplates,
		err.Lifespan,
	)
}

func newRegistrationError(cause error, serviceType reflect.Type) error {
	return &RegistrationError{cause: cause, ServiceType: serviceType}
}

type RegistrationError struct {
	cause       error
	ServiceType reflect.Type
}

func (err *RegistrationError) Error() string {
	return fmt.Sprintf("cannot register %s: %s", err.ServiceType, err.cause)
}

func (err *RegistrationError) Unwrap() error {
	return err.cause
}

// DependencyFrame is one hop of a failed resolution chain.
type DependencyFrame struct {
	Implementation string
	DependencyName string
	ServiceType    string
}

func newCannotResolveError(serviceType reflect.Type) error {
	return &CannotResolveError{ServiceType: serviceType}
}

// CannotResolveError reports a lookup that found no registration.
// As the failure unwinds through the dependency chain each dependant
// appends its frame, so frames end up ordered leaf to root.
type CannotResolveError struct {
	ServiceType reflect.Type
	frames      []DependencyFrame
}

func (err *CannotResolveError) addFrame(frame DependencyFrame) {
	err.frames = append(err.frames, frame)
}

// Frames returns the failed chain ordered root to leaf.
func (err *CannotResolveError) Frames() []DependencyFrame {
	frames := make([]DependencyFrame, len(err.frames))
	for i, frame := range err.frames {
		frames[len(err.frames)-1-i] = frame
	}

	return frames
}

func (err *CannotResolveError) Error() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "could not find registration for %s", err.ServiceType)

	frames := err.Frames()
	if len(frames) == 0 {
		return sb.String()
	}

	sb.WriteString("\n")

	width := frameWidth(frames)
	for i, frame := range frames {
		if i > 0 {
			sb.WriteString(centered("↓", width+2))
			sb.WriteString("\n")
		}

		writeFrame(&sb, frame, width)
	}

	return sb.String()
}

func frameWidth(frames []DependencyFrame) int {
	width := 0
	for _, frame := range frames {
		for _, line := range frameLines(frame) {
			if n := utf8.RuneCountInString(line); n > width {
				width = n
			}
		}
	}

	return width
}

func frameLines(frame DependencyFrame) []string {
	return []string{
		"service:        " + frame.ServiceType,
		"implementation: " + frame.Implementation,
		"dependency:     " + frame.DependencyName,
	}
}

func writeFrame(sb *strings.Builder, frame DependencyFrame, width int) {
	sb.WriteString("┌" + strings.Repeat("─", width+2) + "┐\n")
	for _, line := range frameLines(frame) {
		pad := width - utf8.RuneCountInString(line)
		sb.WriteString("│ " + line + strings.Repeat(" ", pad) + " │\n")
	}
	sb.WriteString("└" + strings.Repeat("─", width+2) + "┘\n")
}

func centered(s string, width int) string {
	pad := width - utf8.RuneCountInString(s)
	if pad < 0 {
		pad = 0
	}

	return strings.Repeat(" ", pad/2+1) + s
}

func newNeedsScopedRegistrationError(serviceType reflect.Type, name string) error {
	return &NeedsScopedRegistrationError{ServiceType: serviceType, Name: name}
}

type NeedsScopedRegistrationError struct {
	ServiceType reflect.Type
	Name        string
}

func (err *NeedsScopedRegistrationError) Error() string {
	if err.Name == "" {
		return fmt.Sprintf("%s must be resolved within a scope", err.ServiceType)
	}

	return fmt.Sprintf("%s (%q) must be resolved within a scope", err.ServiceType, err.Name)
}

func newCircularDependencyError(serviceType reflect.Type, implementation any) error {
	return &CircularDependencyError{
		ServiceType:    serviceType,
		Implementation: implementation,
	}
}

type CircularDependencyError struct {
	ServiceType    reflect.Type
	Implementation any
}

func (err *CircularDependencyError) Error() string {
	return fmt.Sprintf("%s is dependant on itself through %T", err.ServiceType, err.Implementation)
}

func newServiceBuilderError(cause error, lifespan Lifespan, typeName string) error {
	return &ServiceBuilderError{
		cause:    cause,
		Lifespan: lifespan,
		TypeName: typeName,
	}
}

type ServiceBuilderError struct {
	cause    error
	TypeName string
	Lifespan Lifespan
}

func (err *ServiceBuilderError) Error() string {
	return fmt.Sprintf("cannot build %s %s: %s", err.Lifespan, err.TypeName, err.cause)
}

func (err *ServiceBuilderError) Unwrap() error {
	return err.cause
}

func newConstructorError(cause error) error {
	return &ConstructorError{
		cause: cause,
	}
}

type ConstructorError struct {
	cause error
}

func (err *ConstructorError) Error() string {
	return fmt.Sprintf("constructor returned an error: %s", err.cause)
}

func (err *ConstructorError) Unwrap() error {
	return err.cause
}

func newUnexpectedResultError(values []reflect.Value) error {
	return &UnexpectedResultError{
		Result: values,
	}
}

type UnexpectedResultError struct {
	Result []reflect.Value
}

func (err *UnexpectedResultError) Error() string {
	return fmt.Sprintf("unexpected result: %#v", err.Result)
}
