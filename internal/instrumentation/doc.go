// Package instrumentation provides OpenTelemetry instrumentation for the
// Fathom MCP server.
//
// # Metrics
//
// Server/HTTP metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - active_sessions: Gauge of active authorized sessions
//
// Upstream API metrics:
//   - fathom_api_requests_total: Counter of Fathom API requests by operation and status
//   - fathom_api_request_duration_seconds: Histogram of Fathom API request durations
//
// Authorization metrics:
//   - oauth_auth_total: Counter of authorization attempts by result
//
// MCP tool metrics:
//   - mcp_tool_invocations_total: Counter of tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of tool execution durations
//
// # Tracing
//
// Spans are created for tool invocations (tool.<name>) and upstream API
// calls (fathom.<operation>).
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - TRACING_EXPORTER: Tracing exporter type (stdout, none, default: none)
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: fathom-mcp)
//
// Metrics are always exported through the Prometheus reader and scraped
// from the dedicated metrics port.
package instrumentation
