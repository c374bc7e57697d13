package credential

import "context"

type contextKey struct{}

// WithCredential returns a context carrying the given API key. The HTTP
// auth middleware attaches the session-bound key here so tool handlers can
// resolve it without touching transport state.
func WithCredential(ctx context.Context, apiKey string) context.Context {
	return context.WithValue(ctx, contextKey{}, apiKey)
}

// FromContext returns the API key carried on the context, if any.
func FromContext(ctx context.Context) (string, bool) {
	apiKey, ok := ctx.Value(contextKey{}).(string)
	if !ok || apiKey == "" {
		return "", false
	}
	return apiKey, true
}
