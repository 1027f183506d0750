// Package datasamorybot exposes the bot as an HTTP Cloud Function.
package datasamorybot

import (
	"context"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/datasamory/datasamorybot/internal/config"
	"github.com/datasamory/datasamorybot/internal/handlers"
	"github.com/datasamory/datasamorybot/internal/logging"
)

// Version is reported by /api/v1/health
var Version = "dev"

func init() {
	functions.HTTP("TelegramWebhook", TelegramWebhook)
}

var (
	handlerOnce sync.Once
	handler     http.Handler
	handlerErr  error
)

// TelegramWebhook serves the Telegram webhook and the ops API.
// Messages are handled before the response is written because the platform
// may freeze the instance once the response is sent.
func TelegramWebhook(w http.ResponseWriter, r *http.Request) {
	handlerOnce.Do(func() {
		handler, handlerErr = newFunctionHandler()
	})

	if handlerErr != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	handler.ServeHTTP(w, r)
}

func newFunctionHandler() (http.Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.NewStderr("info", logging.FormatJSON)
		fallback.Error().Err(err).Msg("Failed to load configuration")
		return nil, err
	}

	logger := logging.NewStderr(cfg.LogLevel, cfg.LogFormat)

	if _, err := logging.InitSentry(cfg.SentryDSN, Version); err != nil {
		logger.Warn().Err(err).Msg("Error reporting disabled")
	}

	b, err := handlers.NewBot(context.Background(), cfg, Version, logger, true)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create bot")
		return nil, err
	}

	return b.Server.SetupRoutes(), nil
}
