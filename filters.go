package cleanioc

import (
	"reflect"
	"strings"
)

// Predicate is a composable boolean test.
type Predicate[T any] func(T) bool

func (p Predicate[T]) And(other Predicate[T]) Predicate[T] {
	return func(v T) bool { return p(v) && other(v) }
}

func (p Predicate[T]) Or(other Predicate[T]) Predicate[T] {
	return func(v T) bool { return p(v) || other(v) }
}

func (p Predicate[T]) Xor(other Predicate[T]) Predicate[T] {
	return func(v T) bool { return p(v) != other(v) }
}

func (p Predicate[T]) Not() Predicate[T] {
	return func(v T) bool { return !p(v) }
}

// RegistrationFilter selects candidate registrations during lookup.
type RegistrationFilter = Predicate[*Registration]

// NodeFilter tests a realized node, either the prospective parent of a
// registration or the node a decorator is about to wrap.
type NodeFilter = Predicate[*Node]

// ListReductionFilter decides whether a registration joins a collection
// given the ones accepted so far.
type ListReductionFilter func(r *Registration, accepted []*Registration) bool

var (
	// AllRegistrations accepts everything.
	AllRegistrations RegistrationFilter = func(*Registration) bool { return true }

	// AnyName accepts named and unnamed registrations alike.
	AnyName RegistrationFilter = func(*Registration) bool { return true }

	// Unnamed accepts only registrations without a name. Single lookups
	// use it when no filter is given.
	Unnamed RegistrationFilter = func(r *Registration) bool { return r.Name == "" }

	// IsNamed accepts only registrations that carry a name.
	IsNamed RegistrationFilter = func(r *Registration) bool { return r.Name != "" }
)

// NameIs accepts registrations with exactly the given name.
func NameIs(name string) RegistrationFilter {
	return func(r *Registration) bool { return r.Name == name }
}

// NamePrefix accepts registrations whose name starts with prefix.
func NamePrefix(prefix string) RegistrationFilter {
	return func(r *Registration) bool { return r.Name != "" && strings.HasPrefix(r.Name, prefix) }
}

// NameSuffix accepts registrations whose name ends with suffix.
func NameSuffix(suffix string) RegistrationFilter {
	return func(r *Registration) bool { return r.Name != "" && strings.HasSuffix(r.Name, suffix) }
}

// ImplementationIs accepts registrations whose implementation produces
// the given concrete type.
func ImplementationIs(t reflect.Type) RegistrationFilter {
	return func(r *Registration) bool { return r.ImplementationType() == t }
}

// HasTag accepts registrations tagged with the given name, any value.
func HasTag(name string) RegistrationFilter {
	return func(r *Registration) bool { return r.HasTag(name) }
}

// HasTagValue accepts registrations tagged with the exact name and value.
func HasTagValue(name, value string) RegistrationFilter {
	return func(r *Registration) bool { return r.HasTagValue(name, value) }
}

// WithID accepts the single registration carrying the given id.
func WithID(id RegistrationID) RegistrationFilter {
	return func(r *Registration) bool { return r.ID == id }
}

var (
	// AllItems keeps every matching registration in a collection.
	AllItems ListReductionFilter = func(*Registration, []*Registration) bool { return true }

	// DistinctImplementations drops registrations whose implementation
	// type was already accepted.
	DistinctImplementations ListReductionFilter = func(r *Registration, accepted []*Registration) bool {
		for _, a := range accepted {
			if a.ImplementationType() == r.ImplementationType() {
				return false
			}
		}

		return true
	}

	// DistinctNames drops registrations whose name was already accepted.
	DistinctNames ListReductionFilter = func(r *Registration, accepted []*Registration) bool {
		for _, a := range accepted {
			if a.Name == r.Name {
				return false
			}
		}

		return true
	}
)

// AnyNode accepts every node.
var AnyNode NodeFilter = func(*Node) bool { return true }

// ServiceTypeIs accepts nodes realizing the given service type.
func ServiceTypeIs(t reflect.Type) NodeFilter {
	return func(n *Node) bool { return n.ServiceType == t }
}

// ImplementationTypeIs accepts nodes whose implementation is of the
// given concrete type.
func ImplementationTypeIs(t reflect.Type) NodeFilter {
	return func(n *Node) bool { return n.ImplementationType() == t }
}

// RegistrationNameIs accepts nodes built from a registration with the
// given name.
func RegistrationNameIs(name string) NodeFilter {
	return func(n *Node) bool { return n.RegistrationName == name }
}

// NodeHasTag accepts nodes built from a registration carrying the tag.
// An empty value matches any value.
func NodeHasTag(name, value string) NodeFilter {
	return func(n *Node) bool { return n.HasRegistrationTag(name, value) }
}

// HasDependantServiceType accepts nodes whose subtree contains a
// dependency realized for the given service type.
func HasDependantServiceType(t reflect.Type) NodeFilter {
	return func(n *Node) bool { return n.HasDependantServiceType(t) }
}

// HasDependantImplementationType accepts nodes whose subtree contains a
// dependency implemented by the given concrete type.
func HasDependantImplementationType(t reflect.Type) NodeFilter {
	return func(n *Node) bool { return n.HasDependantImplementationType(t) }
}

// HasDependantInstanceType accepts nodes whose subtree contains a built
// instance of the given concrete type.
func HasDependantInstanceType(t reflect.Type) NodeFilter {
	return func(n *Node) bool { return n.HasDependantInstanceType(t) }
}

// JumpParent applies the filter one level up the graph.
func JumpParent(filter NodeFilter) NodeFilter {
	return func(n *Node) bool { return filter(n.Parent) }
}

func combineRegistrationFilters(filters []RegistrationFilter, fallback RegistrationFilter) RegistrationFilter {
	if len(filters) == 0 {
		return fallback
	}

	combined := filters[0]
	for _, f := range filters[1:] {
		combined = combined.And(f)
	}

	return combined
}
