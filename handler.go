package cleanioc

import (
	"context"
	"net/http"
)

type scopeContextKey struct{}

// ScopeMiddleware opens a scope per request, stores it on the request
// context and closes it when the handler returns. Scoped services
// resolved through it live exactly as long as the request.
func ScopeMiddleware(c *Container) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			scope := c.NewScope()
			defer func() {
				if err := scope.Close(req.Context()); err != nil {
					c.log().Error("failed to close request scope", "error", err)
				}
			}()

			ctx := context.WithValue(req.Context(), scopeContextKey{}, scope)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// ScopeFromContext returns the request scope stored by
// ScopeMiddleware.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return scope, ok
}

// DecorateHandler wraps a single handler with ScopeMiddleware.
func DecorateHandler(c *Container, handler http.Handler) http.Handler {
	return ScopeMiddleware(c)(handler)
}
