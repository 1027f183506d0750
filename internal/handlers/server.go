package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/datasamory/datasamorybot/internal/article"
	"github.com/datasamory/datasamorybot/internal/bot"
	"github.com/datasamory/datasamorybot/internal/config"
	"github.com/datasamory/datasamorybot/internal/health"
	"github.com/datasamory/datasamorybot/internal/llm"
	"github.com/datasamory/datasamorybot/internal/summary"
	"github.com/datasamory/datasamorybot/internal/telegram"
)

// healthCheckTimeout bounds a single liveness check
const healthCheckTimeout = 10 * time.Second

// webhookSecretHeader carries the secret configured with setWebhook
const webhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Dispatcher handles inbound chat messages
type Dispatcher interface {
	Dispatch(ctx context.Context, in telegram.Inbound)
	Handle(ctx context.Context, in telegram.Inbound)
}

// UpdateParser decodes Telegram webhook requests
type UpdateParser interface {
	ParseUpdate(r *http.Request) (telegram.Inbound, bool, error)
}

// Deps are the collaborators of a Server. Dispatcher, Updates and Monitor are optional.
type Deps struct {
	Fetcher    bot.Fetcher
	Summarizer bot.Summarizer
	Dispatcher Dispatcher
	Updates    UpdateParser
	Monitor    *health.Monitor
	Version    string
	Logger     zerolog.Logger

	// SyncWebhook handles webhook messages before responding
	SyncWebhook bool
	// BaseContext is the parent of asynchronously handled webhook messages
	BaseContext context.Context
}

// Server holds the HTTP server and its dependencies
type Server struct {
	config      *config.Config
	fetcher     bot.Fetcher
	summarizer  bot.Summarizer
	dispatcher  Dispatcher
	updates     UpdateParser
	monitor     *health.Monitor
	version     string
	syncWebhook bool
	baseCtx     context.Context
	logger      zerolog.Logger
}

// Bot bundles the long-lived objects the commands run
type Bot struct {
	Server     *Server
	Telegram   *telegram.Client
	Dispatcher *bot.Dispatcher
	Monitor    *health.Monitor
}

// NewPipeline creates the article fetcher and summary generator from configuration
func NewPipeline(cfg *config.Config, logger zerolog.Logger) (*article.Fetcher, *summary.Generator, error) {
	completer, err := llm.New(cfg.CompletionProvider, cfg.CompletionAPIKey(), cfg.CompletionModel, cfg.CompletionBaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("creating completion client: %w", err)
	}

	fetcher := article.NewFetcher(logger,
		article.NewReadabilityTier(cfg.PrimaryTimeout(), cfg.UserAgent, cfg.MaxPageSizeMB),
		article.NewHTMLTier(cfg.FetchTimeout(), cfg.UserAgent, cfg.MaxPageSizeMB),
	)

	return fetcher, summary.NewGenerator(completer, logger), nil
}

// NewBot connects to Telegram and wires the dispatcher, health monitor and ops server
func NewBot(ctx context.Context, cfg *config.Config, version string, logger zerolog.Logger, syncWebhook bool) (*Bot, error) {
	fetcher, generator, err := NewPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}

	tg, err := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramAPIEndpoint, &http.Client{}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating telegram client: %w", err)
	}

	dispatcher := bot.NewDispatcher(tg, fetcher, generator, cfg.ProcessTimeout(), logger)
	monitor := health.NewMonitor(healthCheckTimeout, logger, tg)

	server := NewServerWithDeps(cfg, Deps{
		Fetcher:     fetcher,
		Summarizer:  generator,
		Dispatcher:  dispatcher,
		Updates:     tg,
		Monitor:     monitor,
		Version:     version,
		Logger:      logger,
		SyncWebhook: syncWebhook,
		BaseContext: ctx,
	})

	return &Bot{Server: server, Telegram: tg, Dispatcher: dispatcher, Monitor: monitor}, nil
}

// NewServerWithDeps creates a server with injected dependencies
func NewServerWithDeps(cfg *config.Config, deps Deps) *Server {
	baseCtx := deps.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	return &Server{
		config:      cfg,
		fetcher:     deps.Fetcher,
		summarizer:  deps.Summarizer,
		dispatcher:  deps.Dispatcher,
		updates:     deps.Updates,
		monitor:     deps.Monitor,
		version:     deps.Version,
		syncWebhook: deps.SyncWebhook,
		baseCtx:     baseCtx,
		logger:      deps.Logger.With().Str("component", "http").Logger(),
	}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() *mux.Router {
	r := mux.NewRouter()

	// API routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.corsMiddleware)
	api.Use(s.loggingMiddleware)

	// Health check
	api.HandleFunc("/health", s.healthHandler).Methods("GET")

	// Summary operations
	api.Handle("/summarize", s.authMiddleware(http.HandlerFunc(s.summarizeHandler))).Methods("POST", "OPTIONS")

	// Configuration
	api.HandleFunc("/config", s.configHandler).Methods("GET")

	// Telegram webhook
	if s.dispatcher != nil && s.updates != nil {
		tg := r.PathPrefix("/telegram").Subrouter()
		tg.Use(s.loggingMiddleware)
		tg.HandleFunc("/webhook", s.webhookHandler).Methods("POST")
	}

	return r
}

// Middleware functions

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap the ResponseWriter to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// authMiddleware checks the Bearer token when one is configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.APIAuthToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Missing Authorization header")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Invalid Authorization header format")
			return
		}

		if !tokensEqual(strings.TrimPrefix(authHeader, "Bearer "), s.config.APIAuthToken) {
			writeError(w, http.StatusForbidden, "Invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
