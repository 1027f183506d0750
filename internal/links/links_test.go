package links

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: []string{},
		},
		{
			name:     "no urls",
			input:    "just some words, example.com without scheme",
			expected: []string{},
		},
		{
			name:     "two urls in order",
			input:    "check this http://a.com/x and http://b.com/y",
			expected: []string{"http://a.com/x", "http://b.com/y"},
		},
		{
			name:     "https with query stops at fragment",
			input:    "read https://example.com/post?id=1&ref=tg#top now",
			expected: []string{"https://example.com/post?id=1&ref=tg"},
		},
		{
			name:     "duplicates preserved",
			input:    "http://a.com http://b.com http://a.com",
			expected: []string{"http://a.com", "http://b.com", "http://a.com"},
		},
		{
			name:     "stops at whitespace and newline",
			input:    "http://a.com/one\nhttp://b.com/two\tend",
			expected: []string{"http://a.com/one", "http://b.com/two"},
		},
		{
			name:     "stops at unsupported characters",
			input:    "see {http://a.com/path}|http://b.com~x",
			expected: []string{"http://a.com/path", "http://b.com"},
		},
		{
			name:     "stops at non-ascii",
			input:    "ссылка:http://a.com/статья",
			expected: []string{"http://a.com/"},
		},
		{
			name:     "percent escapes and bare percent",
			input:    "http://a.com/%D1%81 http://b.com/100%",
			expected: []string{"http://a.com/%D1%81", "http://b.com/100%"},
		},
		{
			name:     "closing parenthesis is part of the class",
			input:    "(see http://a.com/x)",
			expected: []string{"http://a.com/x)"},
		},
		{
			name:     "scheme without host is not a url",
			input:    "http:// nothing",
			expected: []string{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Extract(test.input)
			if !reflect.DeepEqual(result, test.expected) {
				t.Errorf("Expected %q, got %q", test.expected, result)
			}
		})
	}
}

func TestExtractIsRestartable(t *testing.T) {
	text := "first http://a.com then http://b.com"

	first := Extract(text)
	second := Extract(text)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical results on repeated calls, got %q and %q", first, second)
	}
}
