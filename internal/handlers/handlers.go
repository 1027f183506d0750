package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/datasamory/datasamorybot/internal/health"
	"github.com/datasamory/datasamorybot/internal/telegram"
)

// SummarizeRequest is the body of POST /api/v1/summarize
type SummarizeRequest struct {
	URL string `json:"url"`
}

// SummarizeResponse is the result of POST /api/v1/summarize
type SummarizeResponse struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Authors     []string   `json:"authors"`
	PublishDate *time.Time `json:"publish_date,omitempty"`
	English     string     `json:"english"`
	Russian     string     `json:"russian"`
	Text        string     `json:"text"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// healthHandler provides health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := health.StatusOK
	checks := []health.Result{}
	if s.monitor != nil {
		status, checks = s.monitor.Status()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"version":   s.version,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// summarizeHandler fetches and summarizes a single URL
func (s *Server) summarizeHandler(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "Missing 'url' in request body")
		return
	}

	ctx := r.Context()
	if timeout := s.config.ProcessTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	a, ok := s.fetcher.Fetch(ctx, req.URL)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "Failed to extract content from: "+req.URL)
		return
	}

	result := s.summarizer.Generate(ctx, a.Text, req.URL)

	writeJSON(w, http.StatusOK, SummarizeResponse{
		Title:       a.Title,
		URL:         a.URL,
		Authors:     a.Authors,
		PublishDate: a.PublishDate,
		English:     result.English,
		Russian:     result.Russian,
		Text:        telegram.FormatSummary(a, result),
	})
}

// configHandler returns configuration (sanitized)
func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	// Return sanitized configuration without sensitive data
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"port":                    s.config.Port,
		"host":                    s.config.Host,
		"bot_mode":                s.config.BotMode,
		"completion_provider":     s.config.CompletionProvider,
		"completion_model":        s.config.CompletionModel,
		"primary_timeout_seconds": s.config.PrimaryTimeoutSeconds,
		"fetch_timeout_seconds":   s.config.FetchTimeoutSeconds,
		"process_timeout_seconds": s.config.ProcessTimeoutSeconds,
		"user_agent":              s.config.UserAgent,
		"max_page_size_mb":        s.config.MaxPageSizeMB,
		"log_level":               s.config.LogLevel,
		"healthcheck_schedule":    s.config.HealthcheckSchedule,
		"api_auth_enabled":        s.config.APIAuthToken != "",
		"webhook_secret_set":      s.config.TelegramWebhookSecret != "",
		"error_reporting_enabled": s.config.SentryDSN != "",
	})
}

// webhookHandler receives Telegram updates
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if secret := s.config.TelegramWebhookSecret; secret != "" && !tokensEqual(r.Header.Get(webhookSecretHeader), secret) {
		writeError(w, http.StatusForbidden, "Invalid webhook secret")
		return
	}

	in, ok, err := s.updates.ParseUpdate(r)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Rejected webhook update")
		writeError(w, http.StatusBadRequest, "Invalid update")
		return
	}

	if ok {
		if s.syncWebhook {
			s.dispatcher.Handle(r.Context(), in)
		} else {
			s.dispatcher.Dispatch(s.baseCtx, in)
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// tokensEqual compares secrets in constant time
func tokensEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
