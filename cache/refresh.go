package cache

import "context"

type forceRefreshContextKey struct{}

// WithForceRefresh marks the context so EnsureFresh bypasses fresh cached
// data and always consults the source of truth. Used for explicit refresh
// actions and post-commit refetches. In-flight deduplication still applies.
func WithForceRefresh(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, forceRefreshContextKey{}, true)
}

func forceRefreshFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	force, ok := ctx.Value(forceRefreshContextKey{}).(bool)
	return ok && force
}
