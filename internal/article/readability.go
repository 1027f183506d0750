package article

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// ReadabilityTier extracts the main article with the readability algorithm.
// Each extraction runs under its own deadline so that a stalled server leaves
// the rest of the caller's budget to the next tier.
type ReadabilityTier struct {
	timeout time.Duration
	dl      downloader
}

// NewReadabilityTier creates the structured extraction tier. A zero timeout
// leaves the extraction bounded only by the caller's context.
func NewReadabilityTier(timeout time.Duration, userAgent string, maxSizeMB int) *ReadabilityTier {
	return &ReadabilityTier{
		timeout: timeout,
		dl: downloader{
			client:    &http.Client{},
			userAgent: userAgent,
			maxBytes:  int64(maxSizeMB) * 1024 * 1024,
		},
	}
}

// Name returns the tier identifier
func (t *ReadabilityTier) Name() string {
	return "readability"
}

// Extract downloads the page and runs readability over it
func (t *ReadabilityTier) Extract(ctx context.Context, rawURL string) (*Article, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	page, err := t.dl.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	parsed, err := readability.FromReader(strings.NewReader(page), pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing article: %w", err)
	}

	if !hasEnoughText(parsed.TextContent) {
		return nil, ErrInsufficientContent
	}

	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		title = UntitledTitle
	}

	return &Article{
		Title:       title,
		Text:        parsed.TextContent,
		URL:         rawURL,
		Authors:     splitByline(parsed.Byline),
		PublishDate: parsed.PublishedTime,
	}, nil
}

// splitByline turns "Jane Doe, John Roe" into separate author names
func splitByline(byline string) []string {
	authors := []string{}
	for _, part := range strings.Split(byline, ",") {
		if name := strings.TrimSpace(part); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}
