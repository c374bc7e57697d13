package oauth

import (
	"errors"
	"testing"
)

func TestStateRoundTrip(t *testing.T) {
	req := AuthorizationRequest{
		ClientID:            "client-1",
		RedirectURI:         "https://client.example/callback",
		State:               "client-opaque-state",
		Scope:               "read",
		CodeChallenge:       "abc123",
		CodeChallengeMethod: "S256",
	}

	encoded, err := EncodeState(req)
	if err != nil {
		t.Fatalf("EncodeState failed: %v", err)
	}

	decoded, err := DecodeState(encoded)
	if err != nil {
		t.Fatalf("DecodeState failed: %v", err)
	}
	if *decoded != req {
		t.Errorf("round trip changed the request: %+v != %+v", *decoded, req)
	}
}

func TestDecodeStateRejectsGarbage(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{name: "empty", encoded: ""},
		{name: "not base64url", encoded: "!!!not-base64!!!"},
		{name: "base64 of non-JSON", encoded: "bm90LWpzb24"},
		{name: "JSON without client_id", encoded: "e30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeState(tt.encoded)
			var stateErr *StateError
			if !errors.As(err, &stateErr) {
				t.Errorf("expected *StateError, got %v", err)
			}
		})
	}
}
