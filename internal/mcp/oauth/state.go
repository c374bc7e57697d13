package oauth

import (
	"encoding/base64"
	"encoding/json"
)

// EncodeState serializes an AuthorizationRequest into the opaque value that
// rides through the credential form as a hidden field.
func EncodeState(req AuthorizationRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", &StateError{Reason: "encoding failed", Err: err}
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeState recovers the AuthorizationRequest from an encoded state
// value. Callers that re-render the form must keep the original encoded
// string rather than re-encoding the result, so the client's state survives
// byte for byte.
func DecodeState(encoded string) (*AuthorizationRequest, error) {
	if encoded == "" {
		return nil, &StateError{Reason: "state is empty"}
	}

	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &StateError{Reason: "not valid base64url", Err: err}
	}

	var req AuthorizationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &StateError{Reason: "not a valid request payload", Err: err}
	}
	if req.ClientID == "" {
		return nil, &StateError{Reason: "client_id missing from payload"}
	}
	return &req, nil
}
