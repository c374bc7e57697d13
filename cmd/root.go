package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the fathom-mcp application
var rootCmd = &cobra.Command{
	Use:   "fathom-mcp",
	Short: "MCP server for Fathom meeting recordings and transcripts",
	Long: `fathom-mcp exposes Fathom.video meetings, transcripts, and meeting details
as MCP (Model Context Protocol) tools for AI assistants.

It can run as:
  - A local stdio MCP server authenticated via the FATHOM_API_KEY env var
  - A streamable HTTP server where callers pass their own API key per tool call
  - A streamable HTTP server protected by an OAuth authorization flow`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "fathom-mcp version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
