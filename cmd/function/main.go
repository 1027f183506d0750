// Command function runs the TelegramWebhook Cloud Function locally.
package main

import (
	"os"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"

	// Registers TelegramWebhook
	_ "github.com/datasamory/datasamorybot"
	"github.com/datasamory/datasamorybot/internal/logging"
)

func main() {
	logger := logging.NewStderr(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	port := "8080"
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = envPort
	}

	if os.Getenv("FUNCTION_TARGET") == "" {
		os.Setenv("FUNCTION_TARGET", "TelegramWebhook")
	}

	logger.Info().Str("port", port).Str("target", os.Getenv("FUNCTION_TARGET")).Msg("Starting function")
	if err := funcframework.Start(port); err != nil {
		logger.Fatal().Err(err).Msg("funcframework.Start failed")
	}
}
