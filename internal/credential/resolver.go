package credential

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingCredential indicates that no API key could be resolved for the
// invocation. Callers detect it with errors.Is and must not contact the
// upstream API when it is returned.
var ErrMissingCredential = errors.New("no Fathom API key available")

// Resolver yields the API key to use for one tool invocation. args are the
// raw tool arguments; resolvers that do not read arguments ignore them.
type Resolver interface {
	Resolve(ctx context.Context, args map[string]any) (string, error)
}

// StaticResolver returns a key fixed at startup, typically from the
// FATHOM_API_KEY environment variable. Used by the stdio transport where
// the process serves exactly one principal.
type StaticResolver struct {
	apiKey string
}

// NewStaticResolver creates a resolver around a fixed key. An empty key is
// rejected at construction so misconfiguration surfaces at startup instead
// of on the first tool call.
func NewStaticResolver(apiKey string) (*StaticResolver, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("static credential: %w", ErrMissingCredential)
	}
	return &StaticResolver{apiKey: apiKey}, nil
}

// Resolve returns the fixed key.
func (r *StaticResolver) Resolve(_ context.Context, _ map[string]any) (string, error) {
	return r.apiKey, nil
}

// ExplicitResolver reads the key from the api_key tool argument on every
// call. Nothing is cached between invocations.
type ExplicitResolver struct{}

// Resolve returns the api_key argument, or ErrMissingCredential when the
// argument is absent or empty.
func (ExplicitResolver) Resolve(_ context.Context, args map[string]any) (string, error) {
	apiKey, _ := args["api_key"].(string)
	if apiKey == "" {
		return "", fmt.Errorf("api_key argument: %w", ErrMissingCredential)
	}
	return apiKey, nil
}

// SessionResolver reads the session-bound key that the auth middleware
// attached to the request context.
type SessionResolver struct{}

// Resolve returns the context-carried key, or ErrMissingCredential when the
// request reached the handler without an authenticated session.
func (SessionResolver) Resolve(ctx context.Context, _ map[string]any) (string, error) {
	apiKey, ok := FromContext(ctx)
	if !ok {
		return "", fmt.Errorf("session credential: %w", ErrMissingCredential)
	}
	return apiKey, nil
}
