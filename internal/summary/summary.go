// Package summary produces English and Russian summaries of article text.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/datasamory/datasamorybot/internal/llm"
)

// Generation limits
const (
	MaxArticleChars = 4000
	MaxOutputTokens = 1000
)

// Section labels expected in the completion
const (
	englishLabel = "ENGLISH:"
	russianLabel = "RUSSIAN:"
)

// Placeholders used when the reply lacks a section
const (
	MissingEnglish = "Summary generation failed"
	MissingRussian = "Не удалось создать резюме"
)

// Placeholders used when the completion call fails
const (
	FailedEnglish = "Error generating summary"
	FailedRussian = "Ошибка при создании резюме"
)

// Result holds the two language summaries of one article
type Result struct {
	English string `json:"english"`
	Russian string `json:"russian"`
	URL     string `json:"url"`
}

// Generator builds prompts, calls the completion API and parses replies
type Generator struct {
	completer llm.Completer
	logger    zerolog.Logger
}

// NewGenerator creates a summary generator
func NewGenerator(completer llm.Completer, logger zerolog.Logger) *Generator {
	return &Generator{
		completer: completer,
		logger:    logger.With().Str("component", "summary").Logger(),
	}
}

// Generate summarizes articleText. It never fails: problems are logged and
// replaced by fixed placeholder texts.
func (g *Generator) Generate(ctx context.Context, articleText, url string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error().Str("url", url).Interface("panic", r).Msg("Error generating summary")
			result = failedResult(url)
		}
	}()

	reply, err := g.completer.Complete(ctx, llm.Request{
		Prompt:    BuildPrompt(articleText, url),
		MaxTokens: MaxOutputTokens,
	})
	if err != nil {
		g.logger.Error().Err(err).Str("url", url).Msg("Error generating summary")
		return failedResult(url)
	}

	sections := ParseSections(reply)

	english, ok := sections[englishLabel]
	if !ok {
		english = MissingEnglish
	}
	russian, ok := sections[russianLabel]
	if !ok {
		russian = MissingRussian
	}

	return Result{English: english, Russian: russian, URL: url}
}

func failedResult(url string) Result {
	return Result{English: FailedEnglish, Russian: FailedRussian, URL: url}
}

// BuildPrompt embeds the first MaxArticleChars characters of the article in the prompt
func BuildPrompt(articleText, url string) string {
	if runes := []rune(articleText); len(runes) > MaxArticleChars {
		articleText = string(runes[:MaxArticleChars])
	}

	return fmt.Sprintf(`Please provide a short summary of the following article in both English and Russian.

Article URL: %s
Article Text: %s

Please format your response as:
%s
[English summary here]

%s
[Russian summary here]

Keep each summary to 2-3 sentences and focus on the main points.`, url, articleText, englishLabel, russianLabel)
}

// ParseSections splits a completion into labelled sections, keyed by label.
// A section is present only if some text followed its label.
func ParseSections(reply string) map[string]string {
	sections := make(map[string]string)

	var current string
	var parts []string

	flush := func() {
		if current != "" && len(parts) > 0 {
			sections[current] = strings.TrimSpace(strings.Join(parts, " "))
		}
	}

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)

		label := ""
		switch {
		case strings.HasPrefix(line, englishLabel):
			label = englishLabel
		case strings.HasPrefix(line, russianLabel):
			label = russianLabel
		}

		if label != "" {
			flush()
			current = label
			parts = nil
			if rest := strings.TrimSpace(line[len(label):]); rest != "" {
				parts = append(parts, rest)
			}
			continue
		}

		if line != "" && current != "" {
			parts = append(parts, line)
		}
	}
	flush()

	return sections
}
