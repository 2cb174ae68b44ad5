package obs

import (
	"context"

	"github.com/go-chi/chi/v5"
)

type routeKey struct{}

// WithRoutePattern pins the route label for everything downstream of ctx.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routeKey{}, pattern)
}

// RoutePatternFromContext returns the pinned route label, falling back to what chi has
// matched so far. Read it after the handler ran to get the full pattern of a mounted route.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if pattern, ok := ctx.Value(routeKey{}).(string); ok && pattern != "" {
		return pattern
	}
	if rc := chi.RouteContext(ctx); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}
