package server

import (
	"context"
	"sync"

	"github.com/teemow/fathom-mcp/internal/credential"
	"github.com/teemow/fathom-mcp/internal/fathom"
	"github.com/teemow/fathom-mcp/internal/instrumentation"
)

// ServerContext holds the shared dependencies of the MCP server: the
// upstream client, the credential resolution strategy and the metrics
// recorder.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	client   *fathom.Client
	resolver credential.Resolver
	metrics  *instrumentation.Metrics
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a server context around the given upstream
// client and resolver.
func NewServerContext(ctx context.Context, client *fathom.Client, resolver credential.Resolver) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		client:   client,
		resolver: resolver,
	}
}

// Context returns the server lifetime context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// FathomClient returns the upstream API client.
func (sc *ServerContext) FathomClient() *fathom.Client {
	return sc.client
}

// Resolver returns the credential resolution strategy.
func (sc *ServerContext) Resolver() credential.Resolver {
	return sc.resolver
}

// Metrics returns the metrics recorder, which may be nil when
// instrumentation is disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics attaches a metrics recorder.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context. Idempotent.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
