package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kaigibot/kaigibot/internal/agent"
	"github.com/kaigibot/kaigibot/internal/calendar"
	"github.com/kaigibot/kaigibot/internal/chat"
	"github.com/kaigibot/kaigibot/internal/config"
	"github.com/kaigibot/kaigibot/internal/google"
	"github.com/kaigibot/kaigibot/internal/instrumentation"
	"github.com/kaigibot/kaigibot/internal/llm"
	"github.com/kaigibot/kaigibot/internal/logging"
	"github.com/kaigibot/kaigibot/internal/secrets"
	"github.com/kaigibot/kaigibot/internal/server"
	"github.com/kaigibot/kaigibot/internal/store"
	"github.com/kaigibot/kaigibot/internal/tools"
)

// envPrefix namespaces the environment variables the env secrets source
// reads, e.g. KAIGIBOT_SLACK_BOT_TOKEN.
const envPrefix = "KAIGIBOT_"

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Slack chat bot server",
		Long: `Start the HTTP server that receives Slack events and interactions,
handles the Google OAuth callback, and serves Prometheus metrics on a
dedicated port.

Configuration is read from a YAML file (see --config). Credentials come
from the configured secrets source:

  env:  KAIGIBOT_SLACK_BOT_TOKEN, KAIGIBOT_SLACK_SIGNING_SECRET,
        KAIGIBOT_GOOGLE_CLIENT_ID, KAIGIBOT_GOOGLE_CLIENT_SECRET,
        KAIGIBOT_ANTHROPIC_API_KEY
  file: a JSON file with "slack", "google", and "anthropic" bundles`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: search standard locations)")

	return cmd
}

// loadConfig resolves and loads the YAML configuration.
func loadConfig(configPath string) (*config.Config, error) {
	path, err := config.FindConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}

// secretsSource builds the credential source selected by the config.
func secretsSource(cfg *config.Config) (secrets.Source, error) {
	switch cfg.Secrets.Source {
	case "", "env":
		return secrets.NewCache(secrets.EnvSource{Prefix: envPrefix}), nil
	case "file":
		if cfg.Secrets.Path == "" {
			return nil, fmt.Errorf("secrets source is 'file' but no path is configured")
		}
		return secrets.NewCache(secrets.FileSource{Path: cfg.Secrets.Path}), nil
	default:
		return nil, fmt.Errorf("unknown secrets source: %s (supported: env, file)", cfg.Secrets.Source)
	}
}

// calendarResolver builds per-user Calendar clients from stored OAuth
// tokens. Users without credentials surface google.ErrNotAuthorized, which
// the executor turns into the auth prompt flow.
func calendarResolver(tokens *google.TokenService, logger *slog.Logger) tools.ServiceResolver {
	return func(ctx context.Context, userID string) (calendar.Service, error) {
		ts, err := tokens.TokenSource(ctx, userID)
		if err != nil {
			return nil, err
		}
		return calendar.NewClient(ctx, ts, logger)
	}
}

func runServe(configPath string) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.LogLevel)

	source, err := secretsSource(cfg)
	if err != nil {
		return err
	}

	slackCreds, err := secrets.Slack(shutdownCtx, source)
	if err != nil {
		return err
	}
	googleCreds, err := secrets.Google(shutdownCtx, source)
	if err != nil {
		return err
	}
	anthropicKey, err := secrets.AnthropicAPIKey(shutdownCtx, source)
	if err != nil {
		return err
	}

	if cfg.OAuth.BaseURL == "" {
		return fmt.Errorf("oauth.base_url is required (externally reachable URL of this service)")
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

	provider, err := instrumentation.NewProvider(shutdownCtx, "kaigibot", version, cfg.Metrics.Enabled)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down instrumentation", logging.Err(err))
		}
	}()

	oauthConfig := google.NewConfig(googleCreds.ClientID, googleCreds.ClientSecret,
		cfg.OAuth.BaseURL+"/oauth/google/callback")
	tokens := google.NewTokenService(oauthConfig, st, logger)
	resolver := calendarResolver(tokens, logger)

	llmClient := llm.NewAnthropicClient(anthropicKey, logger,
		llm.WithModel(cfg.Anthropic.Model),
		llm.WithMaxTokens(cfg.Anthropic.MaxTokens))

	chatClient, err := chat.NewClient(slackCreds.BotToken, logger)
	if err != nil {
		return err
	}
	presenter := chat.NewPresenter(chatClient, logger)

	executor := tools.NewExecutor(resolver, logger, provider.Metrics())
	bot := agent.New(llmClient, executor, st, presenter, tokens.AuthURL, logger, provider.Metrics())

	srv, err := server.New(server.Config{
		Addr:          fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port),
		SigningSecret: slackCreds.SigningSecret,
		Agent:         bot,
		ChatClient:    chatClient,
		Presenter:     presenter,
		Tokens:        tokens,
		Resolver:      resolver,
		Metrics:       provider.Metrics(),
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	// Metrics are served on their own listener so operational traffic stays
	// off the externally reachable port.
	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    fmt.Sprintf("%s:%d", cfg.Metrics.Address, cfg.Metrics.Port),
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", logging.Err(err))
			}
		}()
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer stopCancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(stopCtx); err != nil {
			logger.Error("failed to shut down metrics server", logging.Err(err))
		}
	}

	if err := srv.Shutdown(stopCtx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	// Start returns once Shutdown completes.
	select {
	case <-serverDone:
	case <-time.After(time.Second):
	}

	logger.Info("server stopped")
	return nil
}
