// Package cmd implements the command-line interface for kaigibot.
//
// This package provides the following commands:
//   - serve: Start the Slack chat bot HTTP server
//   - mcp: Start the MCP server on stdio for AI assistants
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
