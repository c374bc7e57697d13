package oauth

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/teemow/fathom-mcp/internal/credential"
)

func TestValidateTokenAttachesSessionAndCredential(t *testing.T) {
	h, _ := newTestHandler(t)
	_ = h.Store().SaveSession("tok-1", &Session{
		UserID:     "u1",
		Credential: "session-key",
		ExpiresAt:  time.Now().Add(time.Hour),
	})

	var sawSession *Session
	var sawKey string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSession, _ = SessionFromContext(r.Context())
		sawKey, _ = credential.FromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	h.ValidateToken(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if sawSession == nil || sawSession.UserID != "u1" {
		t.Errorf("session = %+v", sawSession)
	}
	if sawKey != "session-key" {
		t.Errorf("context credential = %q", sawKey)
	}
}

func TestValidateTokenRejections(t *testing.T) {
	h, _ := newTestHandler(t)
	_ = h.Store().SaveSession("tok-expired", &Session{
		UserID:    "u1",
		ExpiresAt: time.Now().Add(-time.Second),
	})

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "not bearer", header: "Basic dXNlcjpwYXNz"},
		{name: "unknown token", header: "Bearer nope"},
		{name: "expired session", header: "Bearer tok-expired"},
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without a valid token")
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ValidateToken(next).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d", rec.Code)
			}
			challenge := rec.Header().Get("WWW-Authenticate")
			if !strings.HasPrefix(challenge, "Bearer ") {
				t.Errorf("WWW-Authenticate = %q", challenge)
			}
		})
	}
}

func TestValidateTokenLogsSanitizedToken(t *testing.T) {
	store := NewStoreWithInterval(time.Hour)
	t.Cleanup(store.Stop)

	var buf bytes.Buffer
	h, err := NewHandler(Config{
		BaseURL:   "https://mcp.example",
		Validator: &fakeValidator{accepted: "good-key"},
		Store:     store,
		Logger:    slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer secret-bearer-token")
	rec := httptest.NewRecorder()
	h.ValidateToken(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	out := buf.String()
	if strings.Contains(out, "secret-bearer-token") {
		t.Errorf("raw token leaked into logs: %s", out)
	}
	if !strings.Contains(out, "[token:19 chars]") {
		t.Errorf("sanitized token marker missing: %s", out)
	}
}
