// Package fathom_tools registers the Fathom meeting tools with the MCP
// server: listing meetings, fetching transcripts and fetching raw meeting
// details.
//
// Every handler resolves the API key through the server's credential
// strategy before anything else; when no key can be resolved the tool
// returns an authentication error without touching the upstream API.
package fathom_tools
