package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/fathom-mcp/internal/instrumentation"
	"github.com/teemow/fathom-mcp/internal/mcp/oauth"
)

type acceptAllValidator struct{}

func (acceptAllValidator) ValidateKey(context.Context, string) error { return nil }

func newTestHTTPServer(t *testing.T, withOAuth bool) *HTTPServer {
	t.Helper()

	mcpSrv := mcpserver.NewMCPServer("fathom-mcp", "test",
		mcpserver.WithToolCapabilities(true),
	)

	var oauthHandler *oauth.Handler
	if withOAuth {
		store := oauth.NewStoreWithInterval(time.Hour)
		t.Cleanup(store.Stop)
		var err error
		oauthHandler, err = oauth.NewHandler(oauth.Config{
			BaseURL:   "http://localhost:8080",
			Validator: acceptAllValidator{},
			Store:     store,
		})
		if err != nil {
			t.Fatalf("NewHandler failed: %v", err)
		}
	}

	srv, err := NewHTTPServer(HTTPServerConfig{
		MCPServer:    mcpSrv,
		OAuthHandler: oauthHandler,
		Health:       NewHealthChecker(newTestContext(t), testStatus()),
		BaseURL:      "http://localhost:8080",
	})
	if err != nil {
		t.Fatalf("NewHTTPServer failed: %v", err)
	}
	return srv
}

func TestHTTPServerStatusRoutes(t *testing.T) {
	handler := newTestHTTPServer(t, false).Handler()

	for _, path := range []string{"/", "/health", "/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}
}

func TestHTTPServerOAuthModeGuardsMCP(t *testing.T) {
	handler := newTestHTTPServer(t, true).Handler()

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated /mcp = %d, expected 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("401 is missing the WWW-Authenticate challenge")
	}
}

func TestHTTPServerOAuthRoutes(t *testing.T) {
	handler := newTestHTTPServer(t, true).Handler()

	paths := []string{
		"/.well-known/oauth-authorization-server",
		"/.well-known/oauth-protected-resource",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}

	// The authorize endpoint is routed; a bare GET is a 400, not a 404.
	req := httptest.NewRequest(http.MethodGet, "/authorize", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET /authorize without params = %d", rec.Code)
	}
}

func TestHTTPServerExplicitModeOmitsOAuthRoutes(t *testing.T) {
	handler := newTestHTTPServer(t, false).Handler()

	req := httptest.NewRequest(http.MethodGet, "/authorize", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /authorize in explicit mode = %d, expected 404", rec.Code)
	}
}

func TestNewHTTPServerRequiresHTTPSForOAuth(t *testing.T) {
	mcpSrv := mcpserver.NewMCPServer("fathom-mcp", "test")
	store := oauth.NewStoreWithInterval(time.Hour)
	defer store.Stop()
	oauthHandler, err := oauth.NewHandler(oauth.Config{
		BaseURL:   "http://mcp.example",
		Validator: acceptAllValidator{},
		Store:     store,
	})
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}

	_, err = NewHTTPServer(HTTPServerConfig{
		MCPServer:    mcpSrv,
		OAuthHandler: oauthHandler,
		Health:       NewHealthChecker(nil, testStatus()),
		BaseURL:      "http://mcp.example",
	})
	if err == nil {
		t.Fatal("plain HTTP on a non-loopback host must be rejected in OAuth mode")
	}
}

func TestValidateHTTPSRequirement(t *testing.T) {
	tests := []struct {
		baseURL string
		wantErr bool
	}{
		{baseURL: "https://mcp.example", wantErr: false},
		{baseURL: "http://localhost:8080", wantErr: false},
		{baseURL: "http://127.0.0.1:8080", wantErr: false},
		{baseURL: "http://mcp.example", wantErr: true},
		{baseURL: "ftp://mcp.example", wantErr: true},
		{baseURL: "", wantErr: true},
	}

	for _, tt := range tests {
		err := validateHTTPSRequirement(tt.baseURL)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateHTTPSRequirement(%q) = %v", tt.baseURL, err)
		}
	}
}

func TestHTTPServerShutdownWithoutStart(t *testing.T) {
	srv := newTestHTTPServer(t, false)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Shutdown without Start failed: %v", err)
	}
}

func TestHandlerRequestMetricsPreservesStatus(t *testing.T) {
	mcpSrv := mcpserver.NewMCPServer("fathom-mcp", "test",
		mcpserver.WithToolCapabilities(true),
	)
	srv, err := NewHTTPServer(HTTPServerConfig{
		MCPServer: mcpSrv,
		Health:    NewHealthChecker(newTestContext(t), testStatus()),
		BaseURL:   "http://localhost:8080",
		Metrics:   &instrumentation.Metrics{},
	})
	if err != nil {
		t.Fatalf("NewHTTPServer failed: %v", err)
	}
	handler := srv.Handler()

	tests := []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/", http.StatusOK},
		{"/does-not-exist", http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}
}

func TestStatusRecorderForwardsFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

	var _ http.Flusher = wrapped
	wrapped.Flush()
	if !rec.Flushed {
		t.Error("Flush not forwarded to the underlying writer")
	}
}
