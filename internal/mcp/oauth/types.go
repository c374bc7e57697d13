package oauth

import (
	"context"
	"time"
)

// AuthorizationRequest captures the client parameters of one authorization
// attempt. It survives form re-renders inside the encoded state value, so
// a failed key submission keeps the original redirect target and PKCE
// challenge intact.
type AuthorizationRequest struct {
	ClientID            string `json:"client_id"`
	RedirectURI         string `json:"redirect_uri"`
	State               string `json:"state,omitempty"`
	Scope               string `json:"scope,omitempty"`
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`
}

// Session is one authenticated principal. The Fathom API key lives here and
// nowhere else; tool handlers receive it through the request context.
type Session struct {
	UserID     string
	Scopes     []string
	Credential string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the session is past its lifetime.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Client is a dynamically registered OAuth client.
type Client struct {
	ID           string    `json:"client_id"`
	Name         string    `json:"client_name,omitempty"`
	RedirectURIs []string  `json:"redirect_uris,omitempty"`
	CreatedAt    time.Time `json:"-"`
}

// authorizationCode is a single-use code binding an authorization attempt
// to its pending session. The validated credential rides here between the
// form submission and the token exchange.
type authorizationCode struct {
	Code          string
	ClientID      string
	RedirectURI   string
	UserID        string
	Scopes        []string
	Credential    string
	CodeChallenge string
	ChallengeMode string
	ExpiresAt     time.Time
}

// CredentialValidator checks an API key against the upstream before a
// session is created. Implemented by the Fathom client.
type CredentialValidator interface {
	ValidateKey(ctx context.Context, apiKey string) error
}

// ErrorResponse is the standard OAuth error JSON body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// TokenResponse is the body of a successful token exchange.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}
