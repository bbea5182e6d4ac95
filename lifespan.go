package cleanioc

// Lifespan controls how long a built instance is reused.
// The order of the constants matters: a longer-lived service must not
// depend on lookup rules that only shorter-lived caches can satisfy,
// and caching tiers are selected by comparing Lifespan values.
type Lifespan int

const (
	// Transient services are built fresh for every dependant.
	Transient Lifespan = iota
	// OncePerGraph services are shared within a single resolve call.
	OncePerGraph
	// Scoped services are shared within the scope that first built them.
	Scoped
	// Singleton services are shared for the lifetime of the container.
	Singleton
)

func (l Lifespan) String() string {
	switch l {
	case Transient:
		return "Transient"
	case OncePerGraph:
		return "OncePerGraph"
	case Scoped:
		return "Scoped"
	case Singleton:
		return "Singleton"
	default:
		return "UnknownLifespan"
	}
}

// Tag is a label attached to a registration. Tags never change lookup
// semantics on their own; filters opt into them.
type Tag struct {
	Name  string
	Value string
}

// NewTag returns a valueless tag.
func NewTag(name string) Tag {
	return Tag{Name: name}
}
