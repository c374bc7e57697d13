package oauth

import "fmt"

// StateError indicates that an authorization request carried a state value
// that could not be decoded back into an AuthorizationRequest. It always
// maps to a 400 response, never to a redirect, because a corrupt state
// leaves no trustworthy redirect target.
type StateError struct {
	Reason string
	Err    error
}

func (e *StateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid authorization state: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid authorization state: %s", e.Reason)
}

func (e *StateError) Unwrap() error {
	return e.Err
}
