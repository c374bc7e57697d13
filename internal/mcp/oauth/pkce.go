package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// GenerateCodeVerifier generates a random PKCE code verifier. 32 bytes of
// entropy yields the RFC 7636 minimum of 43 characters when base64url
// encoded.
func GenerateCodeVerifier() (string, error) {
	return randomToken(32)
}

// GenerateCodeChallenge derives the S256 challenge from a code verifier:
// BASE64URL(SHA256(ASCII(code_verifier))).
func GenerateCodeChallenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// ValidateCodeChallenge checks a verifier against the challenge recorded at
// authorization time. An empty method defaults to plain per RFC 7636.
func ValidateCodeChallenge(verifier, challenge, method string) bool {
	switch method {
	case "S256":
		return GenerateCodeChallenge(verifier) == challenge
	case "plain", "":
		return verifier == challenge
	default:
		return false
	}
}

// randomToken returns n bytes of cryptographic randomness, base64url
// encoded without padding. Used for authorization codes, access tokens and
// client IDs.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
