// Package logging provides structured logging utilities for the Fathom MCP
// server.
//
// This package centralizes logging patterns to ensure consistent, structured
// logging throughout the codebase using the standard library's slog package.
//
// # Security Considerations
//
// API keys and bearer tokens are never logged directly; SanitizeToken
// reduces them to a length indicator when a log line needs to acknowledge a
// credential at all.
package logging
