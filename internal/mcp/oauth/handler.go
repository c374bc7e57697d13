package oauth

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/fathom-mcp/internal/instrumentation"
	"github.com/teemow/fathom-mcp/internal/logging"
)

const (
	defaultSessionTTL = 24 * time.Hour
	defaultCodeTTL    = 5 * time.Minute
)

// Config carries the handler dependencies.
type Config struct {
	// BaseURL is the externally visible base URL of this server, used in
	// the discovery metadata.
	BaseURL string

	// Validator checks submitted API keys against the upstream. Required.
	Validator CredentialValidator

	// Store holds clients, codes and sessions. A fresh in-memory store is
	// created when nil.
	Store *Store

	// SessionTTL bounds session lifetime. Defaults to 24 hours.
	SessionTTL time.Duration

	// CodeTTL bounds how long an authorization code may stay unexchanged.
	// Defaults to 5 minutes.
	CodeTTL time.Duration

	// DefaultScopes apply when the client requests none.
	DefaultScopes []string

	// Metrics records authorization attempts and session counts. Nil is a
	// no-op recorder.
	Metrics *instrumentation.Metrics

	Logger *slog.Logger
}

// Handler serves the authorization endpoints: the credential form, the
// token exchange and dynamic client registration.
type Handler struct {
	baseURL       string
	validator     CredentialValidator
	store         *Store
	sessionTTL    time.Duration
	codeTTL       time.Duration
	defaultScopes []string
	metrics       *instrumentation.Metrics
	logger        *slog.Logger
}

// NewHandler creates a Handler from the config, applying defaults.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Validator == nil {
		return nil, fmt.Errorf("oauth: config requires a credential validator")
	}

	h := &Handler{
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		validator:     cfg.Validator,
		store:         cfg.Store,
		sessionTTL:    cfg.SessionTTL,
		codeTTL:       cfg.CodeTTL,
		defaultScopes: cfg.DefaultScopes,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
	}
	if h.store == nil {
		h.store = NewStore()
	}
	h.store.SetMetrics(cfg.Metrics)
	if h.sessionTTL <= 0 {
		h.sessionTTL = defaultSessionTTL
	}
	if h.codeTTL <= 0 {
		h.codeTTL = defaultCodeTTL
	}
	if len(h.defaultScopes) == 0 {
		h.defaultScopes = []string{"read"}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h, nil
}

// Store exposes the session store for the bearer middleware.
func (h *Handler) Store() *Store {
	return h.store
}

// credentialForm is the page where the user pastes their Fathom API key.
// The encoded authorization state travels through it as a hidden field,
// untouched, so a failed attempt re-renders with the client's original
// parameters intact.
var credentialForm = template.Must(template.New("authorize").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>Connect Fathom</title>
  <style>
    body { font-family: sans-serif; max-width: 28rem; margin: 4rem auto; padding: 0 1rem; }
    input[type=password] { width: 100%; padding: 0.5rem; margin: 0.5rem 0 1rem; }
    button { padding: 0.5rem 1.5rem; }
    .error { color: #b00020; margin-bottom: 1rem; }
  </style>
</head>
<body>
  <h1>Connect your Fathom account</h1>
  <p>Enter your Fathom API key to let this client read your meetings and transcripts.</p>
  {{if .Error}}<p class="error">{{.Error}}</p>{{end}}
  <form method="post" action="authorize">
    <input type="hidden" name="state" value="{{.State}}">
    <label for="api_key">Fathom API key</label>
    <input type="password" id="api_key" name="api_key" autocomplete="off" autofocus>
    <button type="submit">Authorize</button>
  </form>
</body>
</html>
`))

type formData struct {
	State string
	Error string
}

// ServeAuthorize handles GET (render the credential form) and POST (verify
// the submitted key and redirect back to the client).
func (h *Handler) ServeAuthorize(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.renderAuthorizePage(w, r)
	case http.MethodPost:
		h.handleCredentialSubmit(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		h.writeError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed")
	}
}

func (h *Handler) renderAuthorizePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := AuthorizationRequest{
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		State:               q.Get("state"),
		Scope:               q.Get("scope"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	}
	if req.ClientID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "client_id is required")
		return
	}
	if req.RedirectURI == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "redirect_uri is required")
		return
	}

	encoded, err := EncodeState(req)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "server_error", "failed to encode request state")
		return
	}

	h.renderForm(w, http.StatusOK, formData{State: encoded})
}

func (h *Handler) handleCredentialSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	// The encoded state is replayed verbatim on every re-render and never
	// re-encoded, so the client's own state survives byte for byte.
	encoded := r.PostFormValue("state")
	req, err := DecodeState(encoded)
	if err != nil {
		h.logger.Warn("authorization state rejected", logging.Err(err))
		h.writeError(w, http.StatusBadRequest, "invalid_request", "authorization state is invalid; restart the flow")
		return
	}

	apiKey := r.PostFormValue("api_key")
	if apiKey == "" {
		h.renderForm(w, http.StatusOK, formData{State: encoded, Error: "Please enter your Fathom API key."})
		return
	}

	if err := h.validator.ValidateKey(r.Context(), apiKey); err != nil {
		h.logger.Info("credential validation failed", "client_id", req.ClientID, logging.Err(err))
		h.metrics.RecordOAuthAuth(r.Context(), instrumentation.AuthResultFailure)
		h.renderForm(w, http.StatusOK, formData{State: encoded, Error: "Fathom rejected that API key. Check the key and try again."})
		return
	}

	code, err := randomToken(32)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "server_error", "failed to mint authorization code")
		return
	}

	pending := &authorizationCode{
		Code:          code,
		ClientID:      req.ClientID,
		RedirectURI:   req.RedirectURI,
		UserID:        uuid.NewString(),
		Scopes:        h.scopesFor(req.Scope),
		Credential:    apiKey,
		CodeChallenge: req.CodeChallenge,
		ChallengeMode: req.CodeChallengeMethod,
		ExpiresAt:     time.Now().Add(h.codeTTL),
	}
	if err := h.store.SaveCode(pending); err != nil {
		h.writeError(w, http.StatusInternalServerError, "server_error", "failed to store authorization code")
		return
	}

	redirect, err := url.Parse(req.RedirectURI)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not a valid URL")
		return
	}
	q := redirect.Query()
	q.Set("code", code)
	if req.State != "" {
		q.Set("state", req.State)
	}
	redirect.RawQuery = q.Encode()

	h.logger.Info("authorization granted", "client_id", req.ClientID, "user_id", pending.UserID)
	h.metrics.RecordOAuthAuth(r.Context(), instrumentation.AuthResultSuccess)
	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

// ServeToken exchanges an authorization code for a bearer token.
func (h *Handler) ServeToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		h.writeError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	if grant := r.PostFormValue("grant_type"); grant != "authorization_code" {
		h.writeError(w, http.StatusBadRequest, "unsupported_grant_type", "only authorization_code is supported")
		return
	}

	pending, err := h.store.ConsumeCode(r.PostFormValue("code"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_grant", "authorization code is invalid or expired")
		return
	}

	if clientID := r.PostFormValue("client_id"); clientID != "" && clientID != pending.ClientID {
		h.writeError(w, http.StatusBadRequest, "invalid_grant", "client_id does not match the authorization")
		return
	}
	if redirectURI := r.PostFormValue("redirect_uri"); redirectURI != "" && redirectURI != pending.RedirectURI {
		h.writeError(w, http.StatusBadRequest, "invalid_grant", "redirect_uri does not match the authorization")
		return
	}
	if pending.CodeChallenge != "" {
		verifier := r.PostFormValue("code_verifier")
		if !ValidateCodeChallenge(verifier, pending.CodeChallenge, pending.ChallengeMode) {
			h.writeError(w, http.StatusBadRequest, "invalid_grant", "PKCE verification failed")
			return
		}
	}

	token, err := randomToken(32)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "server_error", "failed to mint access token")
		return
	}

	now := time.Now()
	session := &Session{
		UserID:     pending.UserID,
		Scopes:     pending.Scopes,
		Credential: pending.Credential,
		CreatedAt:  now,
		ExpiresAt:  now.Add(h.sessionTTL),
	}
	if err := h.store.SaveSession(token, session); err != nil {
		h.writeError(w, http.StatusInternalServerError, "server_error", "failed to store session")
		return
	}

	h.logger.Info("session created", "user_id", session.UserID, "expires_at", session.ExpiresAt)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	_ = json.NewEncoder(w).Encode(TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.sessionTTL.Seconds()),
		Scope:       strings.Join(session.Scopes, " "),
	})
}

// ServeRegister implements dynamic client registration (RFC 7591). Any
// client may register; the issued client_id only scopes authorization
// attempts, it is not a secret.
func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		h.writeError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed")
		return
	}

	var req struct {
		ClientName   string   `json:"client_name"`
		RedirectURIs []string `json:"redirect_uris"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_client_metadata", "request body is not valid JSON")
		return
	}

	clientID, err := randomToken(16)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "server_error", "failed to mint client_id")
		return
	}

	client := &Client{
		ID:           clientID,
		Name:         req.ClientName,
		RedirectURIs: req.RedirectURIs,
		CreatedAt:    time.Now(),
	}
	if err := h.store.SaveClient(client); err != nil {
		h.writeError(w, http.StatusInternalServerError, "server_error", "failed to store client")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(client)
}

// ServeMetadata serves the authorization server discovery document.
func (h *Handler) ServeMetadata(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"issuer":                                h.baseURL,
		"authorization_endpoint":                h.baseURL + "/authorize",
		"token_endpoint":                        h.baseURL + "/token",
		"registration_endpoint":                 h.baseURL + "/register",
		"response_types_supported":              []string{"code"},
		"grant_types_supported":                 []string{"authorization_code"},
		"code_challenge_methods_supported":      []string{"S256", "plain"},
		"token_endpoint_auth_methods_supported": []string{"none"},
		"scopes_supported":                      h.defaultScopes,
	})
}

// ServeProtectedResource serves the protected resource metadata (RFC 9728)
// that points clients at this server's authorization endpoints.
func (h *Handler) ServeProtectedResource(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"resource":              h.baseURL,
		"authorization_servers": []string{h.baseURL},
		"bearer_methods_supported": []string{
			"header",
		},
		"scopes_supported": h.defaultScopes,
	})
}

func (h *Handler) scopesFor(requested string) []string {
	fields := strings.Fields(requested)
	if len(fields) == 0 {
		return h.defaultScopes
	}
	return fields
}

func (h *Handler) renderForm(w http.ResponseWriter, status int, data formData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := credentialForm.Execute(w, data); err != nil {
		h.logger.Error("failed to render credential form", logging.Err(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: code, ErrorDescription: description})
}
