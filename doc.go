/*
Package cleanioc is an IOC container built around explicit dependency
graphs: every resolve call records which service types were requested,
which implementations satisfied them and how the instances connect.

To install cleanioc:

	go get -u github.com/peter-daly/clean-ioc

How to use:

	type Clock interface {
		Now() time.Time
	}

	type EmailServer interface {
		Send(to, body string) error
	}

	c := cleanioc.New()

	cleanioc.Register[Clock](c, cleanioc.WithConstructor(newSystemClock))
	cleanioc.Register[EmailServer](c,
		cleanioc.WithConstructor(func(clock Clock) (EmailServer, error) {
			return newSMTPServer(clock)
		}),
		cleanioc.WithLifespan(cleanioc.Singleton),
	)

	server, err := cleanioc.Resolve[EmailServer](ctx, c)
	if err != nil {
		// handle error
	}

Scopes share and dispose instances per unit of work:

	scope := c.NewScope()
	defer scope.Close(ctx)

	service, err := cleanioc.Resolve[RequestService](ctx, scope)

Functions:
  - cleanioc.New
  - cleanioc.Register
  - cleanioc.RegisterDecorator
  - cleanioc.PreConfigure
  - cleanioc.Resolve
  - cleanioc.MustResolve
  - cleanioc.ResolveAll
  - cleanioc.ResolveGraph
  - cleanioc.ApplyBundle
  - cleanioc.SetDefaultLogger

Lifespan constants:

	cleanioc.Transient
	cleanioc.OncePerGraph
	cleanioc.Scoped
	cleanioc.Singleton

Constructor types that can be used:
  - func(T1, T2, ...) [T|(T, error)|(T, Cleanup, error)] - for every lifespan (the Cleanup form not for Transient)
  - func(context.Context, T1, T2, ...) [T|(T, error)|(T, Cleanup, error)] - for every lifespan but Singleton

A struct service type registered without a constructor or instance
constructs itself: its exported fields are resolved and filled.
*/
package cleanioc
