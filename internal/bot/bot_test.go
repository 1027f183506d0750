package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/datasamory/datasamorybot/internal/article"
	"github.com/datasamory/datasamorybot/internal/summary"
	"github.com/datasamory/datasamorybot/internal/telegram"
)

type sentMessage struct {
	edit      bool
	chatID    int64
	messageID int
	replyTo   int
	text      string
	markdown  bool
}

type fakeMessenger struct {
	mu     sync.Mutex
	nextID int
	sent   []sentMessage
	failOn string
}

func (m *fakeMessenger) Reply(ctx context.Context, chatID int64, replyTo int, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failOn != "" && strings.HasPrefix(text, m.failOn) {
		return 0, errors.New("telegram unavailable")
	}

	m.nextID++
	id := 1000 + m.nextID
	m.sent = append(m.sent, sentMessage{chatID: chatID, messageID: id, replyTo: replyTo, text: text})
	return id, nil
}

func (m *fakeMessenger) Edit(ctx context.Context, chatID int64, messageID int, text string, markdown bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, sentMessage{edit: true, chatID: chatID, messageID: messageID, text: text, markdown: markdown})
	return nil
}

func (m *fakeMessenger) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

func (m *fakeMessenger) texts(edit bool) []string {
	var result []string
	for _, msg := range m.messages() {
		if msg.edit == edit {
			result = append(result, msg.text)
		}
	}
	return result
}

type fakeFetcher struct {
	articles map[string]*article.Article
	panicFor string
	block    bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*article.Article, bool) {
	if url == f.panicFor {
		panic("boom")
	}
	if f.block {
		<-ctx.Done()
		return nil, false
	}
	a, ok := f.articles[url]
	return a, ok
}

type fakeSummarizer struct {
	mu    sync.Mutex
	calls []string
	block bool
}

func (s *fakeSummarizer) Generate(ctx context.Context, articleText, url string) summary.Result {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return summary.Result{English: summary.FailedEnglish, Russian: summary.FailedRussian, URL: url}
	}
	return summary.Result{English: "Short summary.", Russian: "Краткое резюме.", URL: url}
}

func testArticle(url string) *article.Article {
	return &article.Article{Title: "Article at " + url, Text: strings.Repeat("text ", 50), URL: url, Authors: []string{}}
}

func newTestDispatcher(messenger *fakeMessenger, fetcher *fakeFetcher, summarizer *fakeSummarizer) *Dispatcher {
	return NewDispatcher(messenger, fetcher, summarizer, time.Minute, zerolog.Nop())
}

func TestHandleCheck(t *testing.T) {
	messenger := &fakeMessenger{}
	d := newTestDispatcher(messenger, &fakeFetcher{}, &fakeSummarizer{})

	d.Handle(context.Background(), telegram.Inbound{ChatID: 5, MessageID: 9, Text: "/check", Command: "check"})

	sent := messenger.messages()
	if len(sent) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(sent))
	}

	if sent[0].text != "I'm ready" {
		t.Errorf("Expected 'I'm ready', got '%s'", sent[0].text)
	}

	if sent[0].chatID != 5 || sent[0].replyTo != 9 {
		t.Errorf("Expected reply to message 9 in chat 5, got %+v", sent[0])
	}
}

func TestHandleURLMessage(t *testing.T) {
	url := "https://example.com/post"
	messenger := &fakeMessenger{}
	summarizer := &fakeSummarizer{}
	fetcher := &fakeFetcher{articles: map[string]*article.Article{url: testArticle(url)}}
	d := newTestDispatcher(messenger, fetcher, summarizer)

	d.Handle(context.Background(), telegram.Inbound{ChatID: 5, MessageID: 9, Text: "read " + url, HasURL: true})

	replies := messenger.texts(false)
	expectedReplies := []string{"I see", "Processing: " + url}
	if strings.Join(replies, "|") != strings.Join(expectedReplies, "|") {
		t.Errorf("Expected replies %v, got %v", expectedReplies, replies)
	}

	edits := messenger.texts(true)
	if len(edits) != 2 {
		t.Fatalf("Expected 2 edits, got %d: %v", len(edits), edits)
	}

	if edits[0] != "📝 Generating summaries for: Article at "+url {
		t.Errorf("Unexpected progress edit '%s'", edits[0])
	}

	withBoth := 0
	for _, text := range edits {
		if strings.Contains(text, "🇺🇸") && strings.Contains(text, "🇷🇺") {
			withBoth++
		}
	}
	if withBoth != 1 {
		t.Errorf("Expected exactly one edit with both summaries, got %d", withBoth)
	}

	sent := messenger.messages()
	final := sent[len(sent)-1]
	if !final.edit || !final.markdown {
		t.Errorf("Expected final Markdown edit, got %+v", final)
	}

	progressID := sent[1].messageID
	if final.messageID != progressID {
		t.Errorf("Expected edits of progress message %d, got %d", progressID, final.messageID)
	}

	if len(summarizer.calls) != 1 || summarizer.calls[0] != url {
		t.Errorf("Expected one summary for %s, got %v", url, summarizer.calls)
	}
}

func TestHandleURLMessageFetchFailure(t *testing.T) {
	bad := "http://bad.example.com"
	good := "http://good.example.com"
	messenger := &fakeMessenger{}
	summarizer := &fakeSummarizer{}
	fetcher := &fakeFetcher{articles: map[string]*article.Article{good: testArticle(good)}}
	d := newTestDispatcher(messenger, fetcher, summarizer)

	d.Handle(context.Background(), telegram.Inbound{Text: bad + " " + good, HasURL: true})

	edits := messenger.texts(true)
	if len(edits) != 3 {
		t.Fatalf("Expected 3 edits, got %d: %v", len(edits), edits)
	}

	if edits[0] != "❌ Failed to extract content from: "+bad {
		t.Errorf("Expected failure notice, got '%s'", edits[0])
	}

	if !strings.Contains(edits[2], "🔗 "+good) {
		t.Errorf("Expected second URL to be summarized, got '%s'", edits[2])
	}

	if len(summarizer.calls) != 1 {
		t.Errorf("Expected summarizer to run only for the good URL, got %v", summarizer.calls)
	}
}

func TestHandleURLMessageNoURLs(t *testing.T) {
	messenger := &fakeMessenger{}
	d := newTestDispatcher(messenger, &fakeFetcher{}, &fakeSummarizer{})

	// Telegram marks bare domains as url entities
	d.Handle(context.Background(), telegram.Inbound{Text: "see example.com", HasURL: true})

	replies := messenger.texts(false)
	expected := []string{"I see", "No valid URLs found in the message."}
	if strings.Join(replies, "|") != strings.Join(expected, "|") {
		t.Errorf("Expected replies %v, got %v", expected, replies)
	}
}

func TestHandleURLMessageUnexpectedError(t *testing.T) {
	first := "http://a.example.com"
	second := "http://b.example.com"
	messenger := &fakeMessenger{}
	fetcher := &fakeFetcher{
		articles: map[string]*article.Article{second: testArticle(second)},
		panicFor: first,
	}
	d := newTestDispatcher(messenger, fetcher, &fakeSummarizer{})

	d.Handle(context.Background(), telegram.Inbound{Text: first + " " + second, HasURL: true})

	replies := messenger.texts(false)
	found := false
	for _, text := range replies {
		if text == "❌ Error processing "+first+": panic: boom" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected error reply for %s, got %v", first, replies)
	}

	edits := messenger.texts(true)
	if len(edits) == 0 || !strings.Contains(edits[len(edits)-1], "🔗 "+second) {
		t.Errorf("Expected second URL to be processed, got %v", edits)
	}
}

func TestHandleURLMessageSendFailure(t *testing.T) {
	url := "http://example.com"
	messenger := &fakeMessenger{failOn: "Processing:"}
	fetcher := &fakeFetcher{articles: map[string]*article.Article{url: testArticle(url)}}
	d := newTestDispatcher(messenger, fetcher, &fakeSummarizer{})

	d.Handle(context.Background(), telegram.Inbound{Text: url, HasURL: true})

	replies := messenger.texts(false)
	if len(replies) != 2 {
		t.Fatalf("Expected 2 replies, got %v", replies)
	}

	if !strings.HasPrefix(replies[1], "❌ Error processing "+url+": sending progress message") {
		t.Errorf("Expected error reply, got '%s'", replies[1])
	}
}

func handleWithin(t *testing.T, d *Dispatcher, in telegram.Inbound) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		d.Handle(context.Background(), in)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected processing to stop at the timeout")
	}
}

func TestHandleURLMessageFetchTimeout(t *testing.T) {
	url := "http://slow.example.com"
	messenger := &fakeMessenger{}
	d := NewDispatcher(messenger, &fakeFetcher{block: true}, &fakeSummarizer{}, 20*time.Millisecond, zerolog.Nop())

	handleWithin(t, d, telegram.Inbound{Text: url, HasURL: true})

	replies := messenger.texts(false)
	for _, reply := range replies {
		if strings.HasPrefix(reply, "❌ Error processing") {
			t.Errorf("Expected no error reply, got '%s'", reply)
		}
	}

	edits := messenger.texts(true)
	if len(edits) != 1 {
		t.Fatalf("Expected 1 edit, got %v", edits)
	}

	expected := "❌ Failed to extract content from: " + url
	if edits[0] != expected {
		t.Errorf("Expected '%s', got '%s'", expected, edits[0])
	}
}

func TestHandleURLMessageSummaryTimeout(t *testing.T) {
	url := "http://example.com/slow-summary"
	messenger := &fakeMessenger{}
	fetcher := &fakeFetcher{articles: map[string]*article.Article{url: testArticle(url)}}
	d := NewDispatcher(messenger, fetcher, &fakeSummarizer{block: true}, 20*time.Millisecond, zerolog.Nop())

	handleWithin(t, d, telegram.Inbound{Text: url, HasURL: true})

	replies := messenger.texts(false)
	if len(replies) != 2 {
		t.Fatalf("Expected ack and progress replies only, got %v", replies)
	}

	var final []sentMessage
	for _, msg := range messenger.messages() {
		if msg.edit && msg.markdown {
			final = append(final, msg)
		}
	}

	if len(final) != 1 {
		t.Fatalf("Expected 1 Markdown edit, got %d", len(final))
	}

	if !strings.Contains(final[0].text, summary.FailedEnglish) || !strings.Contains(final[0].text, summary.FailedRussian) {
		t.Errorf("Expected placeholder summaries, got '%s'", final[0].text)
	}
}

func TestHandleIgnoresPlainText(t *testing.T) {
	messenger := &fakeMessenger{}
	d := newTestDispatcher(messenger, &fakeFetcher{}, &fakeSummarizer{})

	d.Handle(context.Background(), telegram.Inbound{Text: "hello"})
	d.Handle(context.Background(), telegram.Inbound{Text: "/start", Command: "start"})

	if len(messenger.messages()) != 0 {
		t.Errorf("Expected no messages, got %v", messenger.messages())
	}
}

func TestRun(t *testing.T) {
	messenger := &fakeMessenger{}
	d := newTestDispatcher(messenger, &fakeFetcher{}, &fakeSummarizer{})

	updates := make(chan telegram.Inbound)
	finished := make(chan struct{})
	go func() {
		d.Run(context.Background(), updates)
		close(finished)
	}()

	for i := 0; i < 3; i++ {
		updates <- telegram.Inbound{ChatID: int64(i), MessageID: i, Command: "check"}
	}
	close(updates)

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected Run to return after the channel closed")
	}

	if len(messenger.messages()) != 3 {
		t.Errorf("Expected 3 replies, got %d", len(messenger.messages()))
	}
}
