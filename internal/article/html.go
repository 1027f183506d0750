package article

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// contentSelectors are tried in order; the first one with a match supplies the body text.
var contentSelectors = []string{
	"article",
	".article",
	".content",
	".post-content",
	".entry-content",
	"main",
	".main-content",
}

// HTMLTier extracts text with plain selector heuristics
type HTMLTier struct {
	dl downloader
}

// NewHTMLTier creates the generic extraction tier with a total request timeout
func NewHTMLTier(timeout time.Duration, userAgent string, maxSizeMB int) *HTMLTier {
	return &HTMLTier{
		dl: downloader{
			client:    &http.Client{Timeout: timeout},
			userAgent: userAgent,
			maxBytes:  int64(maxSizeMB) * 1024 * 1024,
		},
	}
}

// Name returns the tier identifier
func (t *HTMLTier) Name() string {
	return "html"
}

// Extract downloads the page and picks the main content container
func (t *HTMLTier) Extract(ctx context.Context, rawURL string) (*Article, error) {
	page, err := t.dl.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	return ExtractHTML(rawURL, page)
}

// ExtractHTML applies the selector heuristics to an already downloaded page
func ExtractHTML(rawURL, page string) (*Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	doc.Find("script, style").Remove()

	title := selectionText(doc.Find("h1, title").First())
	if title == "" {
		title = UntitledTitle
	}

	text := ""
	for _, selector := range contentSelectors {
		if found := doc.Find(selector); found.Length() > 0 {
			text = selectionText(found.First())
			break
		}
	}
	if text == "" {
		text = selectionText(doc.Find("body").First())
	}

	if !hasEnoughText(text) {
		return nil, ErrInsufficientContent
	}

	return &Article{
		Title:   title,
		Text:    text,
		URL:     rawURL,
		Authors: []string{},
	}, nil
}

// selectionText joins the trimmed text nodes below the selection with single spaces
func selectionText(sel *goquery.Selection) string {
	var parts []string
	for _, node := range sel.Nodes {
		collectText(node, &parts)
	}
	return strings.Join(parts, " ")
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*parts = append(*parts, text)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
