package obs

import "context"

type contextKey int

const routePatternCtxKey contextKey = iota

// WithRoutePattern records the matched chi route pattern so log lines and
// metric labels carry "/api/v1/orders/{id}" instead of a high-cardinality
// concrete path.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if pattern == "" {
		return ctx
	}
	return context.WithValue(ctx, routePatternCtxKey, pattern)
}

// RoutePattern returns the recorded route pattern, or "" when none matched.
func RoutePattern(ctx context.Context) string {
	v, _ := ctx.Value(routePatternCtxKey).(string)
	return v
}
