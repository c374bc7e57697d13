// Package cmd implements the command-line interface for fathom-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server that proxies the Fathom meeting API
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
