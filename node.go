package cleanioc

import (
	"fmt"
	"reflect"
)

type marker struct{ name string }

func (m *marker) String() string { return m.name }

var (
	// Empty marks the absence of a value where nil is legitimate.
	// Value factories return it to decline supplying a value.
	Empty any = &marker{name: "<empty>"}

	unset any = &marker{name: "<unset>"}
)

// Node is one realized position in a dependency graph: which service
// type was requested, which implementation satisfied it, and how it
// connects to its dependants and dependencies. A fresh node is created
// for every position in every resolve call; cached instances are
// spliced in by re-parenting their node.
type Node struct {
	ServiceType      reflect.Type
	Implementation   any
	Lifespan         Lifespan
	RegistrationName string
	RegistrationTags []Tag

	Parent          *Node
	Decorator       *Node
	Decorated       *Node
	PreConfiguredBy *Node
	PreConfigures   *Node

	children []*Node
	instance any
	implType reflect.Type
}

// emptyNode terminates every link so traversals never chase nil.
var emptyNode = func() *Node {
	n := &Node{instance: Empty}
	n.Parent = n
	n.Decorator = n
	n.Decorated = n
	n.PreConfiguredBy = n
	n.PreConfigures = n

	return n
}()

func newNode(serviceType reflect.Type, implementation any, lifespan Lifespan) *Node {
	return &Node{
		ServiceType:     serviceType,
		Implementation:  implementation,
		Lifespan:        lifespan,
		Parent:          emptyNode,
		Decorator:       emptyNode,
		Decorated:       emptyNode,
		PreConfiguredBy: emptyNode,
		PreConfigures:   emptyNode,
		instance:        unset,
	}
}

// IsEmpty reports whether the node is the shared terminator.
func (n *Node) IsEmpty() bool {
	return n == emptyNode
}

// Instance returns the built instance, or nil if none was set yet.
func (n *Node) Instance() any {
	if n.instance == unset {
		return nil
	}

	return n.instance
}

// HasInstance reports whether the node realized its instance.
func (n *Node) HasInstance() bool {
	return n.instance != unset && !n.IsEmpty()
}

// SetInstance records the built instance. A node realizes exactly one
// instance; setting it twice is a defect and panics.
func (n *Node) SetInstance(instance any) {
	if n.IsEmpty() {
		return
	}

	if n.instance != unset {
		panic(fmt.Sprintf("instance already set for node %s", n))
	}

	n.instance = instance
}

func (n *Node) Children() []*Node {
	return n.children
}

// AddChild links a dependency node under this node. A cached node
// spliced under a new dependant gets re-parented here.
func (n *Node) AddChild(child *Node) {
	if n.IsEmpty() || child.IsEmpty() {
		return
	}

	n.children = append(n.children, child)
	child.Parent = n
}

// AddDecorator splices a decorator node between this node and its
// parent: the decorator takes this node's place in the parent's
// children and this node becomes the decorator's only child.
func (n *Node) AddDecorator(decorator *Node) {
	if n.IsEmpty() || decorator.IsEmpty() {
		return
	}

	parent := n.Parent
	if !parent.IsEmpty() {
		for i, child := range parent.children {
			if child == n {
				parent.children[i] = decorator
				break
			}
		}
	}

	decorator.Parent = parent
	decorator.children = append(decorator.children, n)
	n.Parent = decorator
	n.Decorator = decorator
	decorator.Decorated = n
}

// AddPreConfiguration links the node that ran a pre-configuration for
// this node's registration.
func (n *Node) AddPreConfiguration(preConfiguration *Node) {
	if n.IsEmpty() || preConfiguration.IsEmpty() {
		return
	}

	n.PreConfiguredBy = preConfiguration
	preConfiguration.PreConfigures = n
}

// Unparent detaches the node (and its decorator chain) from the graph
// it was last spliced into. Cached nodes are unparented when a resolve
// call releases so a stale Parent never leaks across calls.
func (n *Node) Unparent() {
	if n.IsEmpty() {
		return
	}

	n.Parent = emptyNode

	if !n.Decorated.IsEmpty() {
		n.Decorated.Unparent()
	}

	if !n.PreConfiguredBy.IsEmpty() {
		n.PreConfiguredBy.PreConfigures = emptyNode
		n.PreConfiguredBy = emptyNode
	}
}

// ImplementationType returns the concrete type the node's
// implementation produces.
func (n *Node) ImplementationType() reflect.Type {
	if n.implType != nil {
		return n.implType
	}

	if n.Implementation == nil {
		return nil
	}

	return reflect.TypeOf(n.Implementation)
}

// InstanceType returns the concrete type of the built instance, or nil
// before realization.
func (n *Node) InstanceType() reflect.Type {
	if !n.HasInstance() {
		return nil
	}

	return reflect.TypeOf(n.instance)
}

// HasRegistrationTag reports whether the originating registration
// carries the tag. An empty value matches any value.
func (n *Node) HasRegistrationTag(name, value string) bool {
	for _, tag := range n.RegistrationTags {
		if tag.Name == name && (value == "" || tag.Value == value) {
			return true
		}
	}

	return false
}

// HasDependantServiceType searches the node's subtree depth-first for
// a dependency realized for the service type.
func (n *Node) HasDependantServiceType(t reflect.Type) bool {
	return n.findDependant(func(dependant *Node) bool {
		return dependant.ServiceType == t
	})
}

// HasDependantImplementationType searches the node's subtree for a
// dependency implemented by the given concrete type.
func (n *Node) HasDependantImplementationType(t reflect.Type) bool {
	return n.findDependant(func(dependant *Node) bool {
		return dependant.ImplementationType() == t
	})
}

// HasDependantInstanceType searches the node's subtree for a realized
// instance of the given concrete type.
func (n *Node) HasDependantInstanceType(t reflect.Type) bool {
	return n.findDependant(func(dependant *Node) bool {
		return dependant.InstanceType() == t
	})
}

func (n *Node) findDependant(match func(*Node) bool) bool {
	for _, child := range n.children {
		if match(child) {
			return true
		}

		if child.findDependant(match) {
			return true
		}
	}

	return false
}

// BottomDecorated returns the innermost node of a decorator chain, the
// one realized directly from the registration.
func (n *Node) BottomDecorated() *Node {
	current := n
	for !current.Decorated.IsEmpty() {
		current = current.Decorated
	}

	return current
}

// TopDecorated returns the outermost node of a decorator chain.
func (n *Node) TopDecorated() *Node {
	current := n
	for !current.Decorator.IsEmpty() {
		current = current.Decorator
	}

	return current
}

func (n *Node) String() string {
	if n.IsEmpty() {
		return "<empty node>"
	}

	return fmt.Sprintf("%s--%T", n.ServiceType, n.Implementation)
}
