// Package article turns a URL into readable article text.
//
// Extraction runs as an ordered list of tiers. The first tier that returns an
// article wins; a tier that fails or finds too little text hands over to the next.
package article

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
)

// MinTextLength is the number of characters the trimmed body text must exceed.
const MinTextLength = 100

// UntitledTitle is used when a page has no usable title.
const UntitledTitle = "Untitled"

// ErrInsufficientContent means the page was parsed but held too little text.
var ErrInsufficientContent = errors.New("insufficient article text")

// Article is the content extracted from a single page
type Article struct {
	Title       string     `json:"title"`
	Text        string     `json:"text"`
	URL         string     `json:"url"`
	Authors     []string   `json:"authors"`
	PublishDate *time.Time `json:"publish_date,omitempty"`
}

// Tier is one extraction strategy
type Tier interface {
	Name() string
	Extract(ctx context.Context, rawURL string) (*Article, error)
}

// StatusError is returned when a page answers with a non-200 status
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// Fetcher runs extraction tiers in order
type Fetcher struct {
	tiers  []Tier
	logger zerolog.Logger
}

// NewFetcher creates a fetcher that tries tiers in the given order
func NewFetcher(logger zerolog.Logger, tiers ...Tier) *Fetcher {
	return &Fetcher{
		tiers:  tiers,
		logger: logger.With().Str("component", "fetcher").Logger(),
	}
}

// Fetch returns the first article any tier could extract. A false result means
// no tier produced usable content; failures are logged, never returned.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (art *Article, found bool) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error().Str("url", rawURL).Interface("panic", r).Msg("Error extracting content")
			art, found = nil, false
		}
	}()

	for i, tier := range f.tiers {
		extracted, err := tier.Extract(ctx, rawURL)
		if err == nil && extracted != nil {
			f.logger.Debug().Str("url", rawURL).Str("tier", tier.Name()).Int("chars", utf8.RuneCountInString(extracted.Text)).Msg("Article extracted")
			return extracted, true
		}

		var event *zerolog.Event
		switch {
		case errors.Is(err, ErrInsufficientContent), err == nil:
			event = f.logger.Debug()
		case i < len(f.tiers)-1:
			event = f.logger.Warn()
		default:
			event = f.logger.Error()
		}
		event.Err(err).Str("url", rawURL).Str("tier", tier.Name()).Msg("Extraction tier failed")
	}

	return nil, false
}

// hasEnoughText reports whether trimmed text is longer than MinTextLength characters
func hasEnoughText(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) > MinTextLength
}

// downloader performs the GET shared by all tiers
type downloader struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// get fetches a page and returns its body decoded to UTF-8
func (d downloader) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if d.maxBytes > 0 {
		body = io.LimitReader(resp.Body, d.maxBytes)
	}

	decoded, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("detecting charset: %w", err)
	}

	data, err := io.ReadAll(decoded)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	return string(data), nil
}
