package credential

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticResolver(t *testing.T) {
	r, err := NewStaticResolver("env-key")
	require.NoError(t, err)

	key, err := r.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "env-key", key)
}

func TestStaticResolverRejectsEmptyKey(t *testing.T) {
	// Misconfiguration must surface at startup, not on the first call.
	_, err := NewStaticResolver("")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestExplicitResolver(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		key     string
		wantErr bool
	}{
		{name: "present", args: map[string]any{"api_key": "arg-key"}, key: "arg-key"},
		{name: "absent", args: map[string]any{}, wantErr: true},
		{name: "empty", args: map[string]any{"api_key": ""}, wantErr: true},
		{name: "wrong type", args: map[string]any{"api_key": 42}, wantErr: true},
		{name: "nil args", args: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ExplicitResolver{}.Resolve(context.Background(), tt.args)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingCredential)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestSessionResolver(t *testing.T) {
	ctx := WithCredential(context.Background(), "session-key")

	key, err := SessionResolver{}.Resolve(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "session-key", key)
}

func TestSessionResolverWithoutSession(t *testing.T) {
	_, err := SessionResolver{}.Resolve(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestFromContextIgnoresEmptyKey(t *testing.T) {
	ctx := WithCredential(context.Background(), "")
	_, ok := FromContext(ctx)
	assert.False(t, ok, "empty key must not count as a credential")
}
