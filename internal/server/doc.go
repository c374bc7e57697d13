// Package server provides the server context, health surface, and the
// HTTP front for the Fathom MCP server.
//
// ServerContext bundles the Fathom API client, the credential resolver and
// the metrics recorder for tool handlers. HTTPServer hosts the streamable
// HTTP transport together with the status document, health probes and,
// when enabled, the credential-entry authorization endpoints. MetricsServer
// serves Prometheus metrics on a dedicated port so operational data never
// shares a listener with client traffic.
package server
