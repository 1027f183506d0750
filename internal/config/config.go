package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Completion providers
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Bot update delivery modes
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// DefaultTelegramAPIEndpoint is the public Bot API, formatted with the token and method
const DefaultTelegramAPIEndpoint = "https://api.telegram.org/bot%s/%s"

// Default completion models per provider
const (
	DefaultAnthropicModel = "claude-3-5-sonnet-20241022"
	DefaultOpenAIModel    = "gpt-4o-mini"
)

// Config holds all configuration for the application
type Config struct {
	// Server settings
	Port string `json:"port"`
	Host string `json:"host"`

	// Telegram settings
	TelegramBotToken      string `json:"-"` // Don't expose in JSON
	TelegramWebhookSecret string `json:"-"`
	TelegramAPIEndpoint   string `json:"telegram_api_endpoint"`
	BotMode               string `json:"bot_mode"`

	// Completion API settings
	CompletionProvider string `json:"completion_provider"`
	CompletionModel    string `json:"completion_model"`
	CompletionBaseURL  string `json:"completion_base_url"`
	AnthropicAPIKey    string `json:"-"`
	OpenAIAPIKey       string `json:"-"`

	// Ops API
	APIAuthToken string `json:"-"`

	// Fetching
	PrimaryTimeoutSeconds int    `json:"primary_timeout_seconds"`
	FetchTimeoutSeconds   int    `json:"fetch_timeout_seconds"`
	ProcessTimeoutSeconds int    `json:"process_timeout_seconds"`
	UserAgent             string `json:"user_agent"`
	MaxPageSizeMB         int    `json:"max_page_size_mb"`

	// Observability
	LogLevel            string `json:"log_level"`
	LogFormat           string `json:"log_format"`
	SentryDSN           string `json:"-"`
	HealthcheckSchedule string `json:"healthcheck_schedule"`
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	config := load()
	return config, config.validate()
}

// LoadPipeline reads configuration for running fetch and summarize without Telegram
func LoadPipeline() (*Config, error) {
	config := load()
	return config, config.validatePipeline()
}

func load() *Config {
	// Load .env file if exists
	_ = godotenv.Load()

	provider := strings.ToLower(getEnvOrDefault("COMPLETION_PROVIDER", ProviderAnthropic))

	config := &Config{
		Port:                  getEnvOrDefault("PORT", "8080"),
		Host:                  getEnvOrDefault("HOST", "0.0.0.0"),
		TelegramBotToken:      getEnvOrDefault("TELEGRAM_BOT_TOKEN", os.Getenv("BOT_TOKEN")),
		TelegramWebhookSecret: getEnvOrDefault("TELEGRAM_WEBHOOK_SECRET", ""),
		TelegramAPIEndpoint:   getEnvOrDefault("TELEGRAM_API_ENDPOINT", DefaultTelegramAPIEndpoint),
		BotMode:               strings.ToLower(getEnvOrDefault("BOT_MODE", ModePolling)),
		CompletionProvider:    provider,
		CompletionModel:       getEnvOrDefault("COMPLETION_MODEL", defaultModel(provider)),
		CompletionBaseURL:     getEnvOrDefault("COMPLETION_BASE_URL", ""),
		AnthropicAPIKey:       getEnvOrDefault("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:          getEnvOrDefault("OPENAI_API_KEY", ""),
		APIAuthToken:          getEnvOrDefault("API_AUTH_TOKEN", ""),
		PrimaryTimeoutSeconds: getEnvOrDefaultInt("PRIMARY_TIMEOUT_SECONDS", 60),
		FetchTimeoutSeconds:   getEnvOrDefaultInt("FETCH_TIMEOUT_SECONDS", 30),
		ProcessTimeoutSeconds: getEnvOrDefaultInt("PROCESS_TIMEOUT_SECONDS", 180),
		UserAgent:             getEnvOrDefault("USER_AGENT", "Mozilla/5.0 (compatible; datasamorybot/1.0)"),
		MaxPageSizeMB:         getEnvOrDefaultInt("MAX_PAGE_SIZE_MB", 10),
		LogLevel:              getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:             getEnvOrDefault("LOG_FORMAT", "json"),
		SentryDSN:             getEnvOrDefault("SENTRY_DSN", ""),
		HealthcheckSchedule:   getEnvOrDefault("HEALTHCHECK_SCHEDULE", "@every 5m"),
	}

	return config
}

// CompletionAPIKey returns the key of the selected completion provider
func (c *Config) CompletionAPIKey() string {
	if c.CompletionProvider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}

// PrimaryTimeout bounds the readability extraction, leaving time for the fallback tier
func (c *Config) PrimaryTimeout() time.Duration {
	return time.Duration(c.PrimaryTimeoutSeconds) * time.Second
}

// FetchTimeout is the total timeout of the generic HTML fetch
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// ProcessTimeout bounds the processing of a single URL
func (c *Config) ProcessTimeout() time.Duration {
	return time.Duration(c.ProcessTimeoutSeconds) * time.Second
}

// validate checks if required configuration values are present
func (c *Config) validate() error {
	if c.TelegramBotToken == "" {
		return &ConfigError{Field: "TELEGRAM_BOT_TOKEN", Message: "Telegram bot token is required"}
	}
	if strings.Count(c.TelegramAPIEndpoint, "%s") != 2 {
		return &ConfigError{Field: "TELEGRAM_API_ENDPOINT", Message: "must contain two %s placeholders for token and method"}
	}
	if c.BotMode != ModePolling && c.BotMode != ModeWebhook {
		return &ConfigError{Field: "BOT_MODE", Message: "must be polling or webhook"}
	}
	return c.validatePipeline()
}

// validatePipeline checks the settings used by fetching and summarization
func (c *Config) validatePipeline() error {
	switch c.CompletionProvider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return &ConfigError{Field: "ANTHROPIC_API_KEY", Message: "Anthropic API key is required"}
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return &ConfigError{Field: "OPENAI_API_KEY", Message: "OpenAI API key is required"}
		}
	default:
		return &ConfigError{Field: "COMPLETION_PROVIDER", Message: "must be anthropic or openai"}
	}
	if c.PrimaryTimeoutSeconds <= 0 {
		return &ConfigError{Field: "PRIMARY_TIMEOUT_SECONDS", Message: "must be positive"}
	}
	if c.FetchTimeoutSeconds <= 0 {
		return &ConfigError{Field: "FETCH_TIMEOUT_SECONDS", Message: "must be positive"}
	}
	if c.ProcessTimeoutSeconds <= 0 {
		return &ConfigError{Field: "PROCESS_TIMEOUT_SECONDS", Message: "must be positive"}
	}
	return nil
}

func defaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return DefaultOpenAIModel
	}
	return DefaultAnthropicModel
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default if not set
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
