// Package bot drives the per-message workflow: acknowledge, fetch, summarize, edit.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/datasamory/datasamorybot/internal/article"
	"github.com/datasamory/datasamorybot/internal/links"
	"github.com/datasamory/datasamorybot/internal/logging"
	"github.com/datasamory/datasamorybot/internal/summary"
	"github.com/datasamory/datasamorybot/internal/telegram"
)

// Fixed chat texts
const (
	CheckCommand  = "check"
	ReadyText     = "I'm ready"
	AckText       = "I see"
	NoURLsText    = "No valid URLs found in the message."
	processingFmt = "Processing: %s"
	failedFmt     = "❌ Failed to extract content from: %s"
	generatingFmt = "📝 Generating summaries for: %s"
	errorFmt      = "❌ Error processing %s: %v"
)

// notifyTimeout bounds each progress or result edit; edits are not subject to the per-URL deadline
const notifyTimeout = 30 * time.Second

// Messenger sends and edits chat messages
type Messenger interface {
	Reply(ctx context.Context, chatID int64, replyTo int, text string) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string, markdown bool) error
}

// Fetcher retrieves article content
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*article.Article, bool)
}

// Summarizer produces the two language summaries
type Summarizer interface {
	Generate(ctx context.Context, articleText, url string) summary.Result
}

// Dispatcher handles inbound chat messages
type Dispatcher struct {
	messenger      Messenger
	fetcher        Fetcher
	summarizer     Summarizer
	processTimeout time.Duration
	logger         zerolog.Logger
	wg             sync.WaitGroup
}

// NewDispatcher creates a dispatcher. processTimeout bounds the work on a single URL;
// zero means no bound.
func NewDispatcher(messenger Messenger, fetcher Fetcher, summarizer Summarizer, processTimeout time.Duration, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		messenger:      messenger,
		fetcher:        fetcher,
		summarizer:     summarizer,
		processTimeout: processTimeout,
		logger:         logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Run handles messages from updates until the channel is closed,
// then waits for in-flight messages to finish.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan telegram.Inbound) {
	for in := range updates {
		d.Dispatch(ctx, in)
	}
	d.Wait()
}

// Dispatch handles in on its own goroutine
func (d *Dispatcher) Dispatch(ctx context.Context, in telegram.Inbound) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Handle(ctx, in)
	}()
}

// Wait blocks until every dispatched message has been handled
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Handle routes one message to the command or URL handler
func (d *Dispatcher) Handle(ctx context.Context, in telegram.Inbound) {
	logger := d.logger.With().
		Str("task_id", uuid.NewString()).
		Int64("chat_id", in.ChatID).
		Int("message_id", in.MessageID).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Unexpected error handling message")
			logging.Capture(fmt.Errorf("handling message: %v", r), map[string]string{"stage": "dispatch"})
		}
	}()

	switch {
	case in.Command == CheckCommand:
		d.HandleCheck(ctx, logger, in)
	case in.HasURL:
		d.HandleURLMessage(ctx, logger, in)
	default:
		logger.Debug().Str("command", in.Command).Msg("Ignoring message without URL entity")
	}
}

// HandleCheck answers the liveness command
func (d *Dispatcher) HandleCheck(ctx context.Context, logger zerolog.Logger, in telegram.Inbound) {
	if _, err := d.messenger.Reply(ctx, in.ChatID, in.MessageID, ReadyText); err != nil {
		logger.Error().Err(err).Msg("Failed to answer check command")
	}
}

// HandleURLMessage summarizes every URL in the message, one after another
func (d *Dispatcher) HandleURLMessage(ctx context.Context, logger zerolog.Logger, in telegram.Inbound) {
	if _, err := d.messenger.Reply(ctx, in.ChatID, in.MessageID, AckText); err != nil {
		logger.Error().Err(err).Msg("Failed to acknowledge message")
	}

	urls := links.Extract(in.Text)
	if len(urls) == 0 {
		if _, err := d.messenger.Reply(ctx, in.ChatID, in.MessageID, NoURLsText); err != nil {
			logger.Error().Err(err).Msg("Failed to send no-URL notice")
		}
		return
	}

	logger.Info().Int("url_count", len(urls)).Msg("Processing message")

	for _, url := range urls {
		urlLogger := logger.With().Str("url", url).Logger()

		if err := d.processURL(ctx, urlLogger, in, url); err != nil {
			urlLogger.Error().Err(err).Msg("Error processing URL")
			logging.Capture(err, map[string]string{"url": url, "stage": "process"})

			if _, replyErr := d.messenger.Reply(ctx, in.ChatID, in.MessageID, fmt.Sprintf(errorFmt, url, err)); replyErr != nil {
				urlLogger.Error().Err(replyErr).Msg("Failed to report error")
			}
		}
	}
}

// processURL runs fetch, summarize and format for one URL, editing a progress message
// along the way. Panics are returned as errors.
func (d *Dispatcher) processURL(ctx context.Context, logger zerolog.Logger, in telegram.Inbound, url string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if d.processTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.processTimeout)
		defer cancel()
	}

	startTime := time.Now()
	logger.Info().Msg("URL processing started")

	progressID, err := d.messenger.Reply(ctx, in.ChatID, in.MessageID, fmt.Sprintf(processingFmt, url))
	if err != nil {
		return fmt.Errorf("sending progress message: %w", err)
	}

	// Fetch phase
	fetchStart := time.Now()
	a, ok := d.fetcher.Fetch(ctx, url)
	fetchDuration := time.Since(fetchStart)
	if !ok {
		logger.Warn().Int64("fetch_duration_ms", fetchDuration.Milliseconds()).Msg("No content extracted")
		if err := d.edit(ctx, in.ChatID, progressID, fmt.Sprintf(failedFmt, url), false); err != nil {
			return fmt.Errorf("editing progress message: %w", err)
		}
		return nil
	}

	if err := d.edit(ctx, in.ChatID, progressID, fmt.Sprintf(generatingFmt, a.Title), false); err != nil {
		return fmt.Errorf("editing progress message: %w", err)
	}

	// Summarization phase
	summaryStart := time.Now()
	result := d.summarizer.Generate(ctx, a.Text, url)
	summaryDuration := time.Since(summaryStart)

	if err := d.edit(ctx, in.ChatID, progressID, telegram.FormatSummary(a, result), true); err != nil {
		return fmt.Errorf("sending summary: %w", err)
	}

	logger.Info().
		Str("title", a.Title).
		Int64("total_duration_ms", time.Since(startTime).Milliseconds()).
		Int64("fetch_duration_ms", fetchDuration.Milliseconds()).
		Int64("summary_duration_ms", summaryDuration.Milliseconds()).
		Msg("URL processing completed")

	return nil
}

// edit updates a progress message on a context that keeps ctx's values but not its deadline
func (d *Dispatcher) edit(ctx context.Context, chatID int64, messageID int, text string, markdown bool) error {
	editCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	return d.messenger.Edit(editCtx, chatID, messageID, text, markdown)
}
