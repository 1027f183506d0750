package telegram

import (
	"fmt"
	"strings"

	"github.com/datasamory/datasamorybot/internal/article"
	"github.com/datasamory/datasamorybot/internal/summary"
)

// FormatSummary renders an article and its summaries as a Markdown message
func FormatSummary(a *article.Article, result summary.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📰 *%s*\n\n", a.Title)
	fmt.Fprintf(&b, "🔗 %s\n\n", a.URL)

	if result.English != "" {
		fmt.Fprintf(&b, "🇺🇸 *English Summary:*\n%s\n\n", result.English)
	}

	if result.Russian != "" {
		fmt.Fprintf(&b, "🇷🇺 *Russian Summary:*\n%s", result.Russian)
	}

	return b.String()
}
