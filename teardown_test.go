package cleanioc_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	cleanioc "github.com/peter-daly/clean-ioc"
)

type trackedService struct {
	label string
}

var _ = Describe("Cleanups", func() {
	var (
		ctx context.Context
		c   *cleanioc.Container
	)

	BeforeEach(func() {
		ctx = context.Background()
		c = cleanioc.New()
	})

	It("should unwind scope cleanups in reverse creation order", func() {
		var order []string

		trackedConstructor := func(label string) func() (*trackedService, cleanioc.Cleanup, error) {
			return func() (*trackedService, cleanioc.Cleanup, error) {
				return &trackedService{label: label}, func() { order = append(order, label) }, nil
			}
		}

		_, err := cleanioc.Register[*trackedService](c,
			cleanioc.WithConstructor(trackedConstructor("first")),
			cleanioc.WithLifespan(cleanioc.Scoped),
		)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = cleanioc.Register[*trackedService](c,
			cleanioc.WithConstructor(trackedConstructor("second")),
			cleanioc.WithLifespan(cleanioc.Scoped),
			cleanioc.WithName("second"),
		)
		Expect(err).ShouldNot(HaveOccurred())

		scope := c.NewScope()

		_, err = cleanioc.Resolve[*trackedService](ctx, scope)
		Expect(err).ShouldNot(HaveOccurred())
		_, err = cleanioc.Resolve[*trackedService](ctx, scope, cleanioc.NameIs("second"))
		Expect(err).ShouldNot(HaveOccurred())

		Expect(order).Should(BeEmpty())
		Expect(scope.Close(ctx)).Should(Succeed())
		Expect(order).Should(Equal([]string{"second", "first"}))
	})

	It("should defer singleton cleanups to the container", func() {
		var cleaned bool

		_, err := cleanioc.Register[*trackedService](c,
			cleanioc.WithConstructor(func() (*trackedService, cleanioc.Cleanup, error) {
				return &trackedService{label: "singleton"}, func() { cleaned = true }, nil
			}),
			cleanioc.WithLifespan(cleanioc.Singleton),
		)
		Expect(err).ShouldNot(HaveOccurred())

		scope := c.NewScope()

		_, err = cleanioc.Resolve[*trackedService](ctx, scope)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(scope.Close(ctx)).Should(Succeed())
		Expect(cleaned).Should(BeFalse())

		Expect(c.Close(ctx)).Should(Succeed())
		Expect(cleaned).Should(BeTrue())
	})

	It("should recover a panicking cleanup and keep unwinding", func() {
		var order []string

		_, err := cleanioc.Register[*trackedService](c,
			cleanioc.WithConstructor(func() (*trackedService, cleanioc.Cleanup, error) {
				return &trackedService{label: "calm"}, func() { order = append(order, "calm") }, nil
			}),
			cleanioc.WithLifespan(cleanioc.Scoped),
		)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = cleanioc.Register[*trackedService](c,
			cleanioc.WithConstructor(func() (*trackedService, cleanioc.Cleanup, error) {
				return &trackedService{label: "angry"}, func() { panic("cleanup blew up") }, nil
			}),
			cleanioc.WithLifespan(cleanioc.Scoped),
			cleanioc.WithName("angry"),
		)
		Expect(err).ShouldNot(HaveOccurred())

		scope := c.NewScope()

		_, err = cleanioc.Resolve[*trackedService](ctx, scope)
		Expect(err).ShouldNot(HaveOccurred())
		_, err = cleanioc.Resolve[*trackedService](ctx, scope, cleanioc.NameIs("angry"))
		Expect(err).ShouldNot(HaveOccurred())

		Expect(func() { _ = scope.Close(ctx) }).ShouldNot(Panic())
		Expect(order).Should(Equal([]string{"calm"}))
	})
})

var _ = Describe("Scoped teardowns", func() {
	var (
		ctx context.Context
		c   *cleanioc.Container
	)

	BeforeEach(func() {
		ctx = context.Background()
		c = cleanioc.New()
	})

	It("should hand the built instance to the teardown", func() {
		var tornDown *trackedService

		_, err := cleanioc.Register[*trackedService](c,
			cleanioc.WithConstructor(func() *trackedService { return &trackedService{label: "scoped"} }),
			cleanioc.WithLifespan(cleanioc.Scoped),
			cleanioc.WithScopedTeardown(func(s *trackedService) { tornDown = s }),
		)
		Expect(err).ShouldNot(HaveOccurred())

		scope := c.NewScope()

		built, err := cleanioc.Resolve[*trackedService](ctx, scope)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(scope.Close(ctx)).Should(Succeed())
		Expect(tornDown).Should(BeIdenticalTo(built))
	})

	It("should pass the closing context and join errors", func() {
		type key struct{}

		_, err := cleanioc.Register[*trackedService](c,
			cleanioc.WithConstructor(func() *trackedService { return &trackedService{label: "a"} }),
			cleanioc.WithLifespan(cleanioc.Scoped),
			cleanioc.WithScopedTeardown(func(ctx context.Context, _ *trackedService) error {
				Expect(ctx.Value(key{})).Should(Equal("closing"))
				return fmt.Errorf("flush a failed")
			}),
		)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = cleanioc.Register[*trackedService](c,
			cleanioc.WithConstructor(func() *trackedService { return &trackedService{label: "b"} }),
			cleanioc.WithLifespan(cleanioc.Scoped),
			cleanioc.WithName("b"),
			cleanioc.WithScopedTeardown(func(*trackedService) error {
				return fmt.Errorf("flush b failed")
			}),
		)
		Expect(err).ShouldNot(HaveOccurred())

		scope := c.NewScope()

		_, err = cleanioc.Resolve[*trackedService](ctx, scope)
		Expect(err).ShouldNot(HaveOccurred())
		_, err = cleanioc.Resolve[*trackedService](ctx, scope, cleanioc.NameIs("b"))
		Expect(err).ShouldNot(HaveOccurred())

		closeErr := scope.Close(context.WithValue(ctx, key{}, "closing"))
		Expect(closeErr).Should(HaveOccurred())
		Expect(closeErr.Error()).Should(ContainSubstring("flush a failed"))
		Expect(closeErr.Error()).Should(ContainSubstring("flush b failed"))
	})

	It("should run singleton teardowns on container Close", func() {
		var tornDown bool

		_, err := cleanioc.Register[*trackedService](c,
			cleanioc.WithConstructor(func() *trackedService { return &trackedService{label: "singleton"} }),
			cleanioc.WithLifespan(cleanioc.Singleton),
			cleanioc.WithScopedTeardown(func(*trackedService) { tornDown = true }),
		)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = cleanioc.Resolve[*trackedService](ctx, c)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(c.Close(ctx)).Should(Succeed())
		Expect(tornDown).Should(BeTrue())
	})
})
