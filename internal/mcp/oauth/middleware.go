package oauth

import (
	"context"
	"net/http"
	"strings"

	"github.com/teemow/fathom-mcp/internal/credential"
	"github.com/teemow/fathom-mcp/internal/logging"
)

type sessionContextKey struct{}

// SessionFromContext returns the authenticated session attached by
// ValidateToken.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(*Session)
	return session, ok
}

// ValidateToken guards an HTTP handler with bearer authentication. A valid
// token attaches the session and its Fathom credential to the request
// context; anything else is answered with 401 and a WWW-Authenticate
// challenge pointing at the discovery metadata.
func (h *Handler) ValidateToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			h.unauthorized(w, "missing bearer token")
			return
		}

		session, ok := h.store.GetSession(token)
		if !ok {
			h.logger.Debug("rejected bearer token", "token", logging.SanitizeToken(token))
			h.unauthorized(w, "token is invalid or expired")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
		ctx = credential.WithCredential(ctx, session.Credential)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	return auth[len(prefix):], true
}

func (h *Handler) unauthorized(w http.ResponseWriter, description string) {
	challenge := `Bearer resource_metadata="` + h.baseURL + `/.well-known/oauth-protected-resource"`
	w.Header().Set("WWW-Authenticate", challenge)
	h.writeError(w, http.StatusUnauthorized, "invalid_token", description)
}
