package cleanioc

import (
	"reflect"
	"strings"
)

// GenericOrigin names an uninstantiated generic type, e.g.
// "pkg.Repository". Closed instantiations such as pkg.Repository[int]
// parse back to it.
type GenericOrigin string

// GenericOriginOf returns the origin of T. For a closed instantiation
// like Repository[int] that is "pkg.Repository"; a non-generic type
// yields its plain type string.
func GenericOriginOf[T any]() GenericOrigin {
	t := TypeOf[T]()

	origin, _, ok := parseGenericType(t)
	if !ok {
		return GenericOrigin(t.String())
	}

	return GenericOrigin(origin)
}

// parseGenericType splits a closed instantiation's type string into its
// origin and positional type arguments. Nested instantiations keep
// their full argument text. Import paths inside arguments are trimmed
// to their last element, mirroring the package-qualified form the type
// itself renders with.
func parseGenericType(t reflect.Type) (origin string, args []string, ok bool) {
	if t == nil {
		return "", nil, false
	}

	s := t.String()

	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.HasSuffix(s, "]") {
		return "", nil, false
	}

	origin = s[:open]
	inner := s[open+1 : len(s)-1]

	depth := 0
	start := 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, shortenTypePath(strings.TrimSpace(inner[start:i])))
				start = i + 1
			}
		}
	}

	args = append(args, shortenTypePath(strings.TrimSpace(inner[start:])))

	return origin, args, true
}

// shortenTypePath trims every import path in a type string to its last
// element: "github.com/acme/repo.User" becomes "repo.User". Named type
// arguments render with their full import path inside generic brackets,
// unlike the type they instantiate.
func shortenTypePath(s string) string {
	if !strings.ContainsRune(s, '/') {
		return s
	}

	var sb strings.Builder
	start := 0
	for i := 0; i <= len(s); i++ {
		if i < len(s) && !isTypeTokenSep(s[i]) {
			continue
		}

		token := s[start:i]
		if slash := strings.LastIndexByte(token, '/'); slash >= 0 {
			token = token[slash+1:]
		}

		sb.WriteString(token)
		if i < len(s) {
			sb.WriteByte(s[i])
		}

		start = i + 1
	}

	return sb.String()
}

func isTypeTokenSep(c byte) bool {
	switch c {
	case '[', ']', ',', ' ', '*', '(', ')', ';':
		return true
	}

	return false
}

// genericArgsOf returns the type arguments of a registration, taken
// from its service type or, for open registrations, its produced
// implementation type.
func genericArgsOf(r *Registration) []string {
	if _, args, ok := parseGenericType(r.ServiceType); ok {
		return args
	}

	if _, args, ok := parseGenericType(r.ImplementationType()); ok {
		return args
	}

	return nil
}

// HasGenericArgMatching accepts registrations whose type argument at
// the given position has the given type string, e.g. "int" or
// "mypkg.User". Named types match by the last element of their import
// path, so a type from "example.com/lib/mypkg" matches as "mypkg.User".
func HasGenericArgMatching(position int, typeName string) RegistrationFilter {
	return func(r *Registration) bool {
		args := genericArgsOf(r)
		if position < 0 || position >= len(args) {
			return false
		}

		return args[position] == typeName
	}
}

// RegisterGenericSubclasses files constructors under a generic origin
// instead of a concrete service type. When an exact lookup for a
// closed instantiation of the origin misses, the origin's constructors
// are scanned most recently registered first and the first one whose
// produced type satisfies the requested instantiation serves it.
func RegisterGenericSubclasses(r Registrar, origin GenericOrigin, ctors []any, opts ...RegistrationOption) error {
	for _, ctor := range ctors {
		reg, err := buildOpenRegistration(r, origin, ctor, opts)
		if err != nil {
			return err
		}

		if err := r.addOpenGeneric(string(origin), reg); err != nil {
			return err
		}
	}

	return nil
}

// RegisterGenericFallback files one last-resort constructor for a
// generic origin. It is consulted after the origin's subclass
// constructors, without the produced-type pre-check: a mismatch
// surfaces as a builder error at injection time. Because the fallback
// is a single registration it owns a single cache slot, so every
// instantiation it serves shares the same non-transient instance.
func RegisterGenericFallback(r Registrar, origin GenericOrigin, ctor any, opts ...RegistrationOption) error {
	reg, err := buildOpenRegistration(r, origin, ctor, opts)
	if err != nil {
		return err
	}

	return r.addGenericFallback(string(origin), reg)
}

// RegisterGenericDecorator files a decorator applied to every
// registration whose service (or implementation) type is an
// instantiation of the origin. The decorated instance arrives through
// the constructor's empty-interface parameter, or the position given
// with WithDecoratedArg; the produced value is checked against the
// service type when the decorator runs.
func RegisterGenericDecorator(r Registrar, origin GenericOrigin, ctor any, opts ...DecoratorOption) error {
	cfg := decoratorConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	info, err := analyzeConstructor(ctor, OncePerGraph)
	if err != nil {
		return err
	}

	decoratedArg, err := detectDecoratedArg(info, nil, cfg.decoratedArg, cfg.hasDecoratedArg)
	if err != nil {
		return newBadConstructorError(err, reflect.TypeOf(ctor))
	}

	dec := &Decorator{
		Implementation:     ctor,
		creator:            newActivator(info, cfg.dependencyConfig),
		registrationFilter: cfg.registrationFilter,
		nodeFilter:         cfg.nodeFilter,
		position:           cfg.position,
		decoratedArg:       decoratedArg,
	}

	return r.addGenericDecorator(string(origin), dec)
}

// matchesOrigin reports whether the registration is an instantiation
// of the generic origin, or was filed under it as an open registration.
func matchesOrigin(r *Registration, origin string) bool {
	if r.genericOrigin == origin {
		return true
	}

	if o, _, ok := parseGenericType(r.ServiceType); ok && o == origin {
		return true
	}

	if o, _, ok := parseGenericType(r.ImplementationType()); ok && o == origin {
		return true
	}

	return false
}

func buildOpenRegistration(r Registrar, origin GenericOrigin, ctor any, opts []RegistrationOption) (*Registration, error) {
	cfg := registrationConfig{lifespan: r.defaultLifespan()}
	for _, opt := range opts {
		opt(&cfg)
	}

	// the constructor arrives as an argument, not through options
	if cfg.instance != nil || cfg.constructor != nil {
		return nil, newRegistrationError(ErrConflictingSources, nil)
	}

	cfg.constructor = ctor

	info, err := analyzeConstructor(ctor, cfg.lifespan)
	if err != nil {
		return nil, err
	}

	// The produced type stands in as service type until a closed
	// request picks the registration.
	reg, err := assembleRegistration(info.produces, ctor, info, &cfg)
	if err != nil {
		return nil, err
	}

	reg.genericOrigin = string(origin)

	return reg, nil
}
