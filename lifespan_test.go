package cleanioc_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	cleanioc "github.com/peter-daly/clean-ioc"
)

var _ = Describe("Lifespans", func() {
	var (
		ctx context.Context
		c   *cleanioc.Container
	)

	BeforeEach(func() {
		ctx = context.Background()
		c = cleanioc.New()
	})

	registerCounted := func(r cleanioc.Registrar, lifespan cleanioc.Lifespan) {
		_, err := cleanioc.Register[*countedService](r,
			cleanioc.WithConstructor(countedServiceConstructor()),
			cleanioc.WithLifespan(lifespan),
		)
		Expect(err).ShouldNot(HaveOccurred())
	}

	registerPair := func(r cleanioc.Registrar) {
		_, err := cleanioc.Register[*pairService](r, cleanioc.WithConstructor(pairServiceConstructor))
		Expect(err).ShouldNot(HaveOccurred())
	}

	Context("Transient", func() {
		It("should build a fresh instance for every occurrence", func() {
			registerCounted(c, cleanioc.Transient)
			registerPair(c)

			pair, err := cleanioc.Resolve[*pairService](ctx, c)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(pair.first.serial).ShouldNot(Equal(pair.second.serial))
		})
	})

	Context("OncePerGraph", func() {
		It("should share one instance within a single graph", func() {
			registerCounted(c, cleanioc.OncePerGraph)
			registerPair(c)

			pair, err := cleanioc.Resolve[*pairService](ctx, c)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(pair.first.serial).Should(Equal(pair.second.serial))
		})

		It("should build a fresh instance per resolve call", func() {
			registerCounted(c, cleanioc.OncePerGraph)

			first, err := cleanioc.Resolve[*countedService](ctx, c)
			Expect(err).ShouldNot(HaveOccurred())

			second, err := cleanioc.Resolve[*countedService](ctx, c)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(first.serial).ShouldNot(Equal(second.serial))
		})
	})

	Context("Scoped", func() {
		It("should share one instance across calls within a scope", func() {
			registerCounted(c, cleanioc.Scoped)

			scope := c.NewScope()
			defer scope.Close(ctx)

			first, err := cleanioc.Resolve[*countedService](ctx, scope)
			Expect(err).ShouldNot(HaveOccurred())

			second, err := cleanioc.Resolve[*countedService](ctx, scope)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(first).Should(BeIdenticalTo(second))
		})

		It("should build distinct instances in sibling scopes", func() {
			registerCounted(c, cleanioc.Scoped)

			first := c.NewScope()
			defer first.Close(ctx)
			second := c.NewScope()
			defer second.Close(ctx)

			a, err := cleanioc.Resolve[*countedService](ctx, first)
			Expect(err).ShouldNot(HaveOccurred())

			b, err := cleanioc.Resolve[*countedService](ctx, second)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(a.serial).ShouldNot(Equal(b.serial))
		})

		It("should fall back to per-graph sharing without a scope", func() {
			registerCounted(c, cleanioc.Scoped)
			registerPair(c)

			pair, err := cleanioc.Resolve[*pairService](ctx, c)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(pair.first.serial).Should(Equal(pair.second.serial))

			again, err := cleanioc.Resolve[*pairService](ctx, c)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(again.first.serial).ShouldNot(Equal(pair.first.serial))
		})
	})

	Context("Singleton", func() {
		It("should share one instance everywhere", func() {
			registerCounted(c, cleanioc.Singleton)

			direct, err := cleanioc.Resolve[*countedService](ctx, c)
			Expect(err).ShouldNot(HaveOccurred())

			scope := c.NewScope()
			defer scope.Close(ctx)

			scoped, err := cleanioc.Resolve[*countedService](ctx, scope)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(direct).Should(BeIdenticalTo(scoped))
		})
	})

	It("should serve the most recent registration", func() {
		_, err := cleanioc.Register[int](c, cleanioc.WithInstance(5))
		Expect(err).ShouldNot(HaveOccurred())
		_, err = cleanioc.Register[int](c, cleanioc.WithInstance(10))
		Expect(err).ShouldNot(HaveOccurred())
		_, err = cleanioc.Register[int](c, cleanioc.WithInstance(15))
		Expect(err).ShouldNot(HaveOccurred())

		v, err := cleanioc.Resolve[int](ctx, c)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(v).Should(Equal(15))
	})
})
