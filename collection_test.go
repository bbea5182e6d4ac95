package cleanioc_test

import (
	"context"
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	cleanioc "github.com/peter-daly/clean-ioc"
)

var _ = Describe("Collections", func() {
	var (
		ctx context.Context
		c   *cleanioc.Container
	)

	BeforeEach(func() {
		ctx = context.Background()
		c = cleanioc.New()
	})

	It("should return every registration, most recent first", func() {
		for _, v := range []int{5, 10, 15} {
			_, err := cleanioc.Register[int](c, cleanioc.WithInstance(v))
			Expect(err).ShouldNot(HaveOccurred())
		}

		all, err := cleanioc.ResolveAll[int](ctx, c)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(all).Should(Equal([]int{15, 10, 5}))
	})

	It("should include named and unnamed registrations", func() {
		_, err := cleanioc.Register[NameService](c, cleanioc.WithInstance(NameProvider("Bob")))
		Expect(err).ShouldNot(HaveOccurred())

		_, err = cleanioc.Register[NameService](c,
			cleanioc.WithInstance(NameProvider("Alice")),
			cleanioc.WithName("alice"),
		)
		Expect(err).ShouldNot(HaveOccurred())

		all, err := cleanioc.ResolveAll[NameService](ctx, c)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(all).Should(HaveLen(2))
		Expect(all[0].Name()).Should(Equal("Alice"))
		Expect(all[1].Name()).Should(Equal("Bob"))
	})

	It("should narrow collections with filters", func() {
		_, err := cleanioc.Register[NameService](c, cleanioc.WithInstance(NameProvider("Bob")))
		Expect(err).ShouldNot(HaveOccurred())

		_, err = cleanioc.Register[NameService](c,
			cleanioc.WithInstance(NameProvider("Alice")),
			cleanioc.WithName("alice"),
		)
		Expect(err).ShouldNot(HaveOccurred())

		named, err := cleanioc.ResolveAll[NameService](ctx, c, cleanioc.IsNamed)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(named).Should(HaveLen(1))
		Expect(named[0].Name()).Should(Equal("Alice"))
	})

	It("should inject slice dependencies into constructors", func() {
		for _, name := range []string{"Bob", "Alice"} {
			_, err := cleanioc.Register[NameService](c, cleanioc.WithInstance(NameProvider(name)))
			Expect(err).ShouldNot(HaveOccurred())
		}

		type roster struct{ names []NameService }

		_, err := cleanioc.Register[*roster](c,
			cleanioc.WithConstructor(func(names []NameService) *roster { return &roster{names: names} }),
		)
		Expect(err).ShouldNot(HaveOccurred())

		r, err := cleanioc.Resolve[*roster](ctx, c)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(r.names).Should(HaveLen(2))
		Expect(r.names[0].Name()).Should(Equal("Alice"))
		Expect(r.names[1].Name()).Should(Equal("Bob"))
	})

	It("should deduplicate implementations with a list reduction filter", func() {
		_, err := cleanioc.Register[NameService](c, cleanioc.WithConstructor(nameProviderConstructor))
		Expect(err).ShouldNot(HaveOccurred())
		_, err = cleanioc.Register[NameService](c, cleanioc.WithConstructor(nameProviderConstructor))
		Expect(err).ShouldNot(HaveOccurred())

		type roster struct{ names []NameService }

		_, err = cleanioc.Register[*roster](c,
			cleanioc.WithConstructor(func(names []NameService) *roster { return &roster{names: names} }),
			cleanioc.WithDependencyConfig(0, cleanioc.DependencySettings{
				ListReductionFilter: cleanioc.DistinctImplementations,
			}),
		)
		Expect(err).ShouldNot(HaveOccurred())

		r, err := cleanioc.Resolve[*roster](ctx, c)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(r.names).Should(HaveLen(1))
	})

	It("should return an empty slice when nothing matches", func() {
		all, err := cleanioc.ResolveAll[NameService](ctx, c)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(all).Should(BeEmpty())
	})
})

var _ = Describe("Dependency value factories", func() {
	var (
		ctx context.Context
		c   *cleanioc.Container
	)

	BeforeEach(func() {
		ctx = context.Background()
		c = cleanioc.New()
	})

	It("should supply a dependency value directly", func() {
		_, err := cleanioc.Register[HelloService](c,
			cleanioc.WithConstructor(helloServiceConstructor),
			cleanioc.WithDependencyConfig(0, cleanioc.DependencySettings{
				ValueFactory: cleanioc.SetValue(NameProvider("Override")),
			}),
		)
		Expect(err).ShouldNot(HaveOccurred())

		s, err := cleanioc.Resolve[HelloService](ctx, c)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(s.Hello()).Should(Equal("Hello Override"))
	})

	It("should fall through to lookup when the factory declines", func() {
		_, err := cleanioc.Register[NameService](c, cleanioc.WithInstance(NameProvider("Bob")))
		Expect(err).ShouldNot(HaveOccurred())

		_, err = cleanioc.Register[HelloService](c,
			cleanioc.WithConstructor(helloServiceConstructor),
			cleanioc.WithDependencyConfig(0, cleanioc.DependencySettings{
				ValueFactory: cleanioc.DontUseDefaultValue,
			}),
		)
		Expect(err).ShouldNot(HaveOccurred())

		s, err := cleanioc.Resolve[HelloService](ctx, c)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(s.Hello()).Should(Equal("Hello Bob"))
	})

	It("should inject a DependencyContext parameter", func() {
		type introspective struct {
			depCtx cleanioc.DependencyContext
		}

		constructor := func(depCtx cleanioc.DependencyContext) *introspective {
			return &introspective{depCtx: depCtx}
		}

		_, err := cleanioc.Register[*introspective](c, cleanioc.WithConstructor(constructor))
		Expect(err).ShouldNot(HaveOccurred())

		s, err := cleanioc.Resolve[*introspective](ctx, c)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(s.depCtx.ServiceType).Should(Equal(cleanioc.TypeOf[*introspective]()))
		Expect(s.depCtx.Parent).ShouldNot(BeNil())

		Expect(reflect.ValueOf(s.depCtx.Implementation).Pointer()).
			Should(Equal(reflect.ValueOf(constructor).Pointer()))
	})
})
