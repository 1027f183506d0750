package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/datasamory/datasamorybot/internal/config"
	"github.com/datasamory/datasamorybot/internal/handlers"
	"github.com/datasamory/datasamorybot/internal/logging"
)

var (
	Version   string = "dev"
	Commit    string = "unknown"
	BuildTime string = "unknown"
)

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showHelp {
		fmt.Printf("datasamorybot server\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
		fmt.Printf("\nEnvironment Variables:\n")
		fmt.Printf("  TELEGRAM_BOT_TOKEN       Telegram bot token (required, alias BOT_TOKEN)\n")
		fmt.Printf("  TELEGRAM_API_ENDPOINT    Bot API URL template (default: https://api.telegram.org/bot%%s/%%s)\n")
		fmt.Printf("  COMPLETION_PROVIDER      anthropic or openai (default: anthropic)\n")
		fmt.Printf("  ANTHROPIC_API_KEY        Anthropic API key (required for anthropic)\n")
		fmt.Printf("  OPENAI_API_KEY           OpenAI API key (required for openai)\n")
		fmt.Printf("  COMPLETION_MODEL         Model identifier (default per provider)\n")
		fmt.Printf("  COMPLETION_BASE_URL      Completion API endpoint override\n")
		fmt.Printf("  BOT_MODE                 polling or webhook (default: polling)\n")
		fmt.Printf("  TELEGRAM_WEBHOOK_SECRET  Secret token expected on webhook requests\n")
		fmt.Printf("  API_AUTH_TOKEN           Bearer token for /api/v1/summarize\n")
		fmt.Printf("  PORT                     Server port (default: 8080)\n")
		fmt.Printf("  HOST                     Server host (default: 0.0.0.0)\n")
		fmt.Printf("  PRIMARY_TIMEOUT_SECONDS  Readability extraction bound (default: 60)\n")
		fmt.Printf("  PROCESS_TIMEOUT_SECONDS  Per-URL processing bound (default: 180)\n")
		fmt.Printf("  LOG_LEVEL, LOG_FORMAT    Logging (default: info, json)\n")
		fmt.Printf("  SENTRY_DSN               Error reporting DSN\n")
		os.Exit(0)
	}

	if *showVersion {
		fmt.Printf("datasamorybot server\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Commit: %s\n", Commit)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.NewStderr("info", logging.FormatJSON)
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.NewStderr(cfg.LogLevel, cfg.LogFormat)
	if err := tgbotapi.SetLogger(logging.NewBotLogger(logger)); err != nil {
		logger.Warn().Err(err).Msg("Failed to set Telegram client logger")
	}

	if enabled, err := logging.InitSentry(cfg.SentryDSN, Version); err != nil {
		logger.Warn().Err(err).Msg("Error reporting disabled")
	} else if enabled {
		defer logging.Flush(2 * time.Second)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to Telegram and wire the pipeline
	b, err := handlers.NewBot(ctx, cfg, Version, logger, false)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create bot")
	}
	logger.Info().Str("username", b.Telegram.Username()).Str("mode", cfg.BotMode).Msg("Connected to Telegram")

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      b.Server.SetupRoutes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ProcessTimeout() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Scheduled liveness checks
	if err := b.Monitor.Start(ctx, cfg.HealthcheckSchedule); err != nil {
		logger.Fatal().Err(err).Msg("Failed to schedule health checks")
	}

	// Long polling
	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()

	polling := make(chan struct{})
	if cfg.BotMode == config.ModePolling {
		go func() {
			defer close(polling)
			b.Dispatcher.Run(ctx, b.Telegram.Updates(pollCtx))
		}()
	} else {
		close(polling)
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("Starting server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	logger.Info().Msg("Shutting down server...")

	// Stop receiving updates and scheduled checks
	stopPolling()
	b.Monitor.Stop()

	// Shutdown HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
	}

	// Let in-flight messages finish, each bounded by the process timeout
	<-polling
	b.Dispatcher.Wait()
	cancel()

	logger.Info().Msg("Server stopped")
}
