package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/fathom-mcp/internal/credential"
	"github.com/teemow/fathom-mcp/internal/fathom"
	"github.com/teemow/fathom-mcp/internal/instrumentation"
	"github.com/teemow/fathom-mcp/internal/logging"
	"github.com/teemow/fathom-mcp/internal/mcp/oauth"
	"github.com/teemow/fathom-mcp/internal/server"
	"github.com/teemow/fathom-mcp/internal/tools/fathom_tools"
)

// MetricsConfig holds metrics server configuration from flags/env.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

const (
	credentialModeExplicit = "explicit"
	credentialModeOAuth    = "oauth"
)

func newServeCmd() *cobra.Command {
	var (
		debugMode        bool
		transport        string
		httpAddr         string
		credentialMode   string
		disableStreaming bool
		baseURL          string
		metricsEnabled   bool
		metricsAddr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Fathom MCP server to expose meetings, transcripts, and meeting
details as tools for AI assistants.

The server supports two transport types:
  - stdio: Standard input/output transport (default). The Fathom API key is
    read once from the FATHOM_API_KEY environment variable and the server
    refuses to start without it.
  - streamable-http: HTTP transport with streamable responses.

With the HTTP transport the credential strategy is selected via
--credential-mode:
  - explicit: every tool exposes an api_key argument and each call brings
    its own key. The /mcp endpoint is unauthenticated.
  - oauth: clients go through an authorization flow where the user pastes
    their Fathom API key into a form. The key is held in a server-side
    session bound to a bearer token and /mcp requires that token.

Examples:
  # Local stdio server
  FATHOM_API_KEY=... fathom-mcp serve

  # HTTP server, per-call keys
  fathom-mcp serve --transport streamable-http --http-addr :8080

  # HTTP server behind the authorization flow
  fathom-mcp serve --transport streamable-http --credential-mode oauth \
    --base-url https://fathom-mcp.example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if credentialMode != credentialModeExplicit && credentialMode != credentialModeOAuth {
				return fmt.Errorf("unsupported credential mode: %s (supported: explicit, oauth)", credentialMode)
			}

			metricsConfig := MetricsConfig{
				Enabled: metricsEnabled,
				Addr:    metricsAddr,
			}

			return runServe(transport, debugMode, httpAddr, credentialMode, disableStreaming, baseURL, metricsConfig)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().StringVar(&credentialMode, "credential-mode", credentialModeExplicit, "Credential strategy for the HTTP transport: explicit or oauth")
	cmd.Flags().BoolVar(&disableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public base URL for the authorization flow (HTTP transport only). Required for deployed instances. Can also use MCP_BASE_URL env var. Example: https://mcp.example.com")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(transport string, debugMode bool, httpAddr, credentialMode string, disableStreaming bool, baseURL string, metricsConfig MetricsConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Logs go to stderr so stdio transport keeps stdout for the protocol.
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	// Load metrics config from environment if not set via flags
	if !metricsConfig.Enabled {
		if os.Getenv("METRICS_ENABLED") == "true" {
			metricsConfig.Enabled = true
		}
	}
	if metricsConfig.Addr == "" || metricsConfig.Addr == server.DefaultMetricsAddr {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			metricsConfig.Addr = addr
		}
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			if transport != "stdio" {
				log.Printf("Error during instrumentation shutdown: %v", err)
			}
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if transport != "stdio" && metricsConfig.Enabled && provider.Enabled() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsConfig.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			logger.Info("metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	// Fathom API client, optionally pointed at a different base URL for
	// testing against a fake upstream.
	var fathomClient *fathom.Client
	if upstream := os.Getenv("FATHOM_BASE_URL"); upstream != "" {
		fathomClient = fathom.NewClientWithBaseURL(upstream)
	} else {
		fathomClient = fathom.NewClient()
	}
	fathomClient.SetLogger(logger)

	// Pick the credential strategy for the transport. Stdio reads the key
	// once at startup and refuses to run without it; the HTTP strategies
	// resolve per call.
	var resolver credential.Resolver
	switch {
	case transport == "stdio":
		resolver, err = credential.NewStaticResolver(os.Getenv("FATHOM_API_KEY"))
		if err != nil {
			return fmt.Errorf("stdio transport requires the FATHOM_API_KEY environment variable: %w", err)
		}
		logger.Debug("loaded static credential", "api_key", logging.SanitizeToken(os.Getenv("FATHOM_API_KEY")))
	case credentialMode == credentialModeOAuth:
		resolver = credential.SessionResolver{}
	default:
		resolver = credential.ExplicitResolver{}
	}

	serverContext := server.NewServerContext(shutdownCtx, fathomClient, resolver)
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		fathomClient.SetMetrics(provider.Metrics())
	}
	defer func() {
		// Shutdown metrics server first
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("Error during metrics server shutdown: %v", err)
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			if transport != "stdio" {
				log.Printf("Error during server context shutdown: %v", err)
			}
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("fathom-mcp", version,
		mcpserver.WithToolCapabilities(true),
	)

	explicitKey := transport != "stdio" && credentialMode == credentialModeExplicit
	fathom_tools.RegisterFathomTools(mcpSrv, serverContext, explicitKey)

	switch transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "streamable-http":
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, httpAddr, credentialMode, disableStreaming, baseURL, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", transport)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// autodetectBaseURL derives a local development base URL from the listen
// address. A bare port maps to localhost; anything unusable falls through
// to the listener's own bind error instead of failing here.
func autodetectBaseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, serverContext *server.ServerContext, addr, credentialMode string, disableStreaming bool, baseURL string, logger *slog.Logger) error {
	// Determine base URL from flag, environment variable, or auto-detection
	if baseURL == "" {
		baseURL = os.Getenv("MCP_BASE_URL")
	}
	if baseURL == "" {
		// Fall back to auto-detection for local development
		baseURL = autodetectBaseURL(addr)
		logger.Info("no base URL configured, using auto-detected", "base_url", baseURL)
		logger.Info("for deployed instances, set --base-url flag or MCP_BASE_URL env var")
	} else {
		logger.Info("using configured base URL", "base_url", baseURL)
	}

	// The authorization flow validates pasted keys against the live Fathom
	// API before minting a session.
	var oauthHandler *oauth.Handler
	if credentialMode == credentialModeOAuth {
		var err error
		oauthHandler, err = oauth.NewHandler(oauth.Config{
			BaseURL:   baseURL,
			Validator: serverContext.FathomClient(),
			Metrics:   serverContext.Metrics(),
			Logger:    logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create OAuth handler: %w", err)
		}
		defer oauthHandler.Store().Stop()
	}

	health := server.NewHealthChecker(serverContext, server.StatusDocument{
		Name:      "fathom-mcp",
		Version:   version,
		Transport: "streamable-http",
		Endpoint:  "/mcp",
	})

	httpServer, err := server.NewHTTPServer(server.HTTPServerConfig{
		MCPServer:        mcpSrv,
		OAuthHandler:     oauthHandler,
		Health:           health,
		BaseURL:          baseURL,
		DisableStreaming: disableStreaming,
		Metrics:          serverContext.Metrics(),
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	logger.Info("starting MCP server",
		"transport", "streamable-http",
		"addr", addr,
		"credential_mode", credentialMode,
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		health.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during server shutdown: %w", err)
		}
		return nil
	}
}
