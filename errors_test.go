package cleanioc_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	cleanioc "github.com/peter-daly/clean-ioc"
)

var _ = Describe("Resolution errors", func() {
	var (
		ctx context.Context
		c   *cleanioc.Container
	)

	BeforeEach(func() {
		ctx = context.Background()
		c = cleanioc.New()
	})

	It("should report an unregistered type", func() {
		_, err := cleanioc.Resolve[NameService](ctx, c)
		Expect(err).Should(HaveOccurred())

		var cannotResolve *cleanioc.CannotResolveError
		Expect(errors.As(err, &cannotResolve)).Should(BeTrue())
		Expect(cannotResolve.ServiceType).Should(Equal(cleanioc.TypeOf[NameService]()))
	})

	It("should record the dependency chain root to leaf", func() {
		_, err := cleanioc.Register[*serviceA](c, cleanioc.WithConstructor(serviceAConstructor))
		Expect(err).ShouldNot(HaveOccurred())
		_, err = cleanioc.Register[*serviceB](c, cleanioc.WithConstructor(serviceBConstructor))
		Expect(err).ShouldNot(HaveOccurred())

		_, err = cleanioc.Resolve[*serviceA](ctx, c)
		Expect(err).Should(HaveOccurred())

		var cannotResolve *cleanioc.CannotResolveError
		Expect(errors.As(err, &cannotResolve)).Should(BeTrue())
		Expect(cannotResolve.ServiceType).Should(Equal(cleanioc.TypeOf[*serviceC]()))

		frames := cannotResolve.Frames()
		Expect(frames).Should(HaveLen(3))
		Expect(frames[0].ServiceType).Should(Equal("*cleanioc_test.serviceA"))
		Expect(frames[1].ServiceType).Should(Equal("*cleanioc_test.serviceB"))
		Expect(frames[2].ServiceType).Should(Equal("*cleanioc_test.serviceC"))
		Expect(frames[1].Implementation).Should(ContainSubstring("serviceAConstructor"))
		Expect(frames[2].Implementation).Should(ContainSubstring("serviceBConstructor"))
	})

	It("should detect a dependency cycle", func() {
		_, err := cleanioc.Register[*cyclicX](c, cleanioc.WithConstructor(cyclicXConstructor))
		Expect(err).ShouldNot(HaveOccurred())
		_, err = cleanioc.Register[*cyclicY](c, cleanioc.WithConstructor(cyclicYConstructor))
		Expect(err).ShouldNot(HaveOccurred())

		_, err = cleanioc.Resolve[*cyclicX](ctx, c)
		Expect(err).Should(HaveOccurred())

		var circular *cleanioc.CircularDependencyError
		Expect(errors.As(err, &circular)).Should(BeTrue())
		Expect(circular.ServiceType).Should(Equal(cleanioc.TypeOf[*cyclicX]()))
	})

	It("should detect a self cycle", func() {
		_, err := cleanioc.Register[*cyclicX](c,
			cleanioc.WithConstructor(func(x *cyclicX) *cyclicX { return x }),
		)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = cleanioc.Resolve[*cyclicX](ctx, c)
		Expect(err).Should(HaveOccurred())

		var circular *cleanioc.CircularDependencyError
		Expect(errors.As(err, &circular)).Should(BeTrue())
	})

	It("should wrap a constructor error", func() {
		_, err := cleanioc.Register[NameService](c, cleanioc.WithConstructor(failingConstructor))
		Expect(err).ShouldNot(HaveOccurred())

		_, err = cleanioc.Resolve[NameService](ctx, c)
		Expect(err).Should(HaveOccurred())

		var builderErr *cleanioc.ServiceBuilderError
		Expect(errors.As(err, &builderErr)).Should(BeTrue())

		var constructorErr *cleanioc.ConstructorError
		Expect(errors.As(err, &constructorErr)).Should(BeTrue())
		Expect(err.Error()).Should(ContainSubstring("boom"))
	})

	It("should recover a panicking constructor", func() {
		_, err := cleanioc.Register[NameService](c, cleanioc.WithConstructor(panickyConstructor))
		Expect(err).ShouldNot(HaveOccurred())

		var resolveErr error
		Expect(func() {
			_, resolveErr = cleanioc.Resolve[NameService](ctx, c)
		}).ShouldNot(Panic())

		Expect(resolveErr).Should(HaveOccurred())

		var builderErr *cleanioc.ServiceBuilderError
		Expect(errors.As(resolveErr, &builderErr)).Should(BeTrue())
		Expect(resolveErr.Error()).Should(ContainSubstring("boom"))
	})

	It("should panic from MustResolve", func() {
		Expect(func() {
			cleanioc.MustResolve[NameService](ctx, c)
		}).Should(Panic())
	})
})
