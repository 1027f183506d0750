// Package links finds http(s) URLs in free-form chat text.
package links

import "regexp"

// urlPattern keeps the historical character class of the bot: the `$-_` range admits
// most ASCII punctuation (including a bare `%`), and matching stops at whitespace,
// `{`, `|`, `}`, `~`, backtick or any non-ASCII rune.
var urlPattern = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\\(\\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

// Extract returns every URL in text in order of appearance. Repeated URLs are kept.
func Extract(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}
