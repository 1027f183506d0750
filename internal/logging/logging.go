// Package logging sets up the process logger and error reporting.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

// Log output formats
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New builds a logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// NewStderr is New writing to standard error
func NewStderr(level, format string) zerolog.Logger {
	return New(os.Stderr, level, format)
}

// InitSentry enables error reporting. An empty DSN leaves it disabled.
func InitSentry(dsn, release string) (bool, error) {
	if dsn == "" {
		return false, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:     dsn,
		Release: release,
	}); err != nil {
		return false, fmt.Errorf("initializing sentry: %w", err)
	}

	return true, nil
}

// Flush waits for buffered error reports to be delivered
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// Capture reports err with the given tags. It is a no-op when reporting is disabled.
func Capture(err error, tags map[string]string) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}

// BotLogger adapts a zerolog logger to the Telegram client's logger interface
type BotLogger struct {
	logger zerolog.Logger
}

// NewBotLogger wraps logger for the Telegram client
func NewBotLogger(logger zerolog.Logger) BotLogger {
	return BotLogger{logger: logger.With().Str("component", "telegram-api").Logger()}
}

// Println logs v at debug level
func (l BotLogger) Println(v ...interface{}) {
	l.logger.Debug().Msg(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Printf logs a formatted message at debug level
func (l BotLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}
