package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/fathom-mcp/internal/instrumentation"
	"github.com/teemow/fathom-mcp/internal/mcp/oauth"
)

// HTTPServerConfig holds the pieces of the HTTP front.
type HTTPServerConfig struct {
	// MCPServer is the tool server exposed on /mcp. Required.
	MCPServer *mcpserver.MCPServer

	// OAuthHandler enables the authorization endpoints and bearer
	// protection of /mcp. Nil runs the server in explicit-credential mode
	// where /mcp is open and each tool call carries its own key.
	OAuthHandler *oauth.Handler

	// Health serves the status document and probes. Required.
	Health *HealthChecker

	// BaseURL is the externally visible base URL, checked for HTTPS
	// compliance when OAuth is enabled.
	BaseURL string

	// DisableStreaming makes /mcp answer plain JSON responses instead of
	// SSE streams.
	DisableStreaming bool

	// Metrics records per-request counters and latencies. Nil disables
	// request metrics.
	Metrics *instrumentation.Metrics
}

// HTTPServer hosts the streamable HTTP transport together with the status,
// probe and authorization endpoints on one listener.
type HTTPServer struct {
	mcpServer    *mcpserver.MCPServer
	oauthHandler *oauth.Handler
	health       *HealthChecker
	baseURL      string
	metrics      *instrumentation.Metrics
	streamable   *mcpserver.StreamableHTTPServer
	httpServer   *http.Server
}

// NewHTTPServer assembles the HTTP front from the config.
func NewHTTPServer(cfg HTTPServerConfig) (*HTTPServer, error) {
	if cfg.MCPServer == nil {
		return nil, fmt.Errorf("MCP server is required")
	}
	if cfg.Health == nil {
		return nil, fmt.Errorf("health checker is required")
	}
	if cfg.OAuthHandler != nil {
		if err := validateHTTPSRequirement(cfg.BaseURL); err != nil {
			return nil, err
		}
	}

	opts := []mcpserver.StreamableHTTPOption{
		mcpserver.WithEndpointPath("/mcp"),
	}
	if cfg.DisableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}

	return &HTTPServer{
		mcpServer:    cfg.MCPServer,
		oauthHandler: cfg.OAuthHandler,
		health:       cfg.Health,
		baseURL:      cfg.BaseURL,
		metrics:      cfg.Metrics,
		streamable:   mcpserver.NewStreamableHTTPServer(cfg.MCPServer, opts...),
	}, nil
}

// Handler builds the route table. Exposed separately from Start so tests
// can drive the full surface without a listener.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	s.health.RegisterHealthEndpoints(mux)

	var mcpHandler http.Handler = s.streamable
	if s.oauthHandler != nil {
		mux.HandleFunc("/authorize", s.oauthHandler.ServeAuthorize)
		mux.HandleFunc("/token", s.oauthHandler.ServeToken)
		mux.HandleFunc("/register", s.oauthHandler.ServeRegister)
		mux.HandleFunc("/.well-known/oauth-authorization-server", s.oauthHandler.ServeMetadata)
		mux.HandleFunc("/.well-known/oauth-protected-resource", s.oauthHandler.ServeProtectedResource)

		mcpHandler = s.oauthHandler.ValidateToken(mcpHandler)
	}
	mux.Handle("/mcp", mcpHandler)

	if s.metrics != nil {
		return requestMetrics(s.metrics, mux)
	}
	return mux
}

// statusRecorder captures the response status for request metrics. Flush is
// forwarded so SSE streaming on /mcp keeps working behind the wrapper.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// requestMetrics records one observation per request with method, path and
// final status.
func requestMetrics(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, recorder.status, time.Since(start))
	})
}

// Start serves on addr until Shutdown or failure.
func (s *HTTPServer) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// validateHTTPSRequirement ensures OAuth 2.1 HTTPS compliance.
// Allows HTTP only for loopback addresses (localhost, 127.0.0.1, ::1).
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	// Allow HTTP only for loopback addresses
	if u.Scheme == "http" {
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("OAuth 2.1 requires HTTPS for production (got: %s). Use HTTPS or localhost for development", baseURL)
		}
	} else if u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}

	return nil
}
