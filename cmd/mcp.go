package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kaigibot/kaigibot/internal/google"
	"github.com/kaigibot/kaigibot/internal/logging"
	"github.com/kaigibot/kaigibot/internal/mcptools"
	"github.com/kaigibot/kaigibot/internal/secrets"
	"github.com/kaigibot/kaigibot/internal/store"
	"github.com/kaigibot/kaigibot/internal/tools"
)

func newMCPCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Long: `Start a Model Context Protocol (MCP) server on standard input/output,
exposing the calendar scheduling tools to AI assistants:

  calendar_search_free_slots  - find free time for a set of attendees
  calendar_create_event       - create an event and invite attendees
  calendar_reschedule_event   - move an event to a new time
  calendar_suggest_reschedule - propose alternative slots for an event

Calendar access uses the OAuth tokens stored by the serve command; the
"account" tool argument selects whose credentials to use (default:
'default'). Google client credentials come from the configured secrets
source and are needed for token refresh.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: search standard locations)")

	return cmd
}

func runMCP(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Logs go to stderr; stdout carries the MCP transport.
	logger := logging.Setup(cfg.LogLevel)

	source, err := secretsSource(cfg)
	if err != nil {
		return err
	}
	googleCreds, err := secrets.Google(context.Background(), source)
	if err != nil {
		return err
	}

	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close store", logging.Err(err))
		}
	}()

	oauthConfig := google.NewConfig(googleCreds.ClientID, googleCreds.ClientSecret,
		cfg.OAuth.BaseURL+"/oauth/google/callback")
	tokens := google.NewTokenService(oauthConfig, st, logger)

	executor := tools.NewExecutor(calendarResolver(tokens, logger), logger, nil)

	mcpSrv := mcpserver.NewMCPServer("kaigibot", version,
		mcpserver.WithToolCapabilities(true),
	)

	if err := mcptools.Register(mcpSrv, executor); err != nil {
		return fmt.Errorf("failed to register scheduling tools: %w", err)
	}

	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}
