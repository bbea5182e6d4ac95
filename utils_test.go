package cleanioc_test

import (
	"fmt"
	"sync/atomic"
)

type NameService interface {
	Name() string
}

type NameProvider string

func (s NameProvider) Name() string {
	return string(s)
}

func nameProviderConstructor() (NameService, error) {
	return NameProvider("Bob"), nil
}

type HelloService interface {
	Hello() string
}

type helloService struct {
	names NameService
}

func (s *helloService) Hello() string {
	return "Hello " + s.names.Name()
}

func helloServiceConstructor(names NameService) HelloService {
	return &helloService{names: names}
}

type ServiceWithPublicFields struct {
	Dependency NameService
}

func (s ServiceWithPublicFields) Hello() string {
	return "Hello " + s.Dependency.Name()
}

type NameServiceDecorator struct {
	inner  NameService
	prefix string
}

func (s *NameServiceDecorator) Name() string {
	return s.prefix + "(" + s.inner.Name() + ")"
}

func nameServiceDecoratorConstructor(prefix string) func(NameService) NameService {
	return func(inner NameService) NameService {
		return &NameServiceDecorator{inner: inner, prefix: prefix}
	}
}

// countedService instances carry a distinct serial number, so specs can
// tell whether two resolutions shared one instance.
type countedService struct {
	serial int64
}

func countedServiceConstructor() func() *countedService {
	var counter atomic.Int64

	return func() *countedService {
		return &countedService{serial: counter.Add(1)}
	}
}

// pairService depends on the same service twice, to observe per-graph
// sharing.
type pairService struct {
	first  *countedService
	second *countedService
}

func pairServiceConstructor(first, second *countedService) *pairService {
	return &pairService{first: first, second: second}
}

type serviceA struct{ b *serviceB }
type serviceB struct{ c *serviceC }
type serviceC struct{}

func serviceAConstructor(b *serviceB) *serviceA { return &serviceA{b: b} }
func serviceBConstructor(c *serviceC) *serviceB { return &serviceB{c: c} }

type cyclicX struct{ y *cyclicY }
type cyclicY struct{ x *cyclicX }

func cyclicXConstructor(y *cyclicY) *cyclicX { return &cyclicX{y: y} }
func cyclicYConstructor(x *cyclicX) *cyclicY { return &cyclicY{x: x} }

func failingConstructor() (NameService, error) {
	return nil, fmt.Errorf("boom")
}

func panickyConstructor() NameService {
	panic("boom")
}
