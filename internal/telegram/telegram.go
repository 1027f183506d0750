// Package telegram wraps the Telegram Bot API for the dispatcher.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// MaxMessageLength is Telegram's limit for message text, in UTF-16 code units
const MaxMessageLength = 4096

// pollTimeoutSeconds is the long polling timeout passed to getUpdates
const pollTimeoutSeconds = 60

// Inbound is a chat message reduced to what the dispatcher needs
type Inbound struct {
	UpdateID  int
	ChatID    int64
	MessageID int
	Text      string
	Command   string
	HasURL    bool
}

// Client handles Telegram Bot API calls
type Client struct {
	bot    *tgbotapi.BotAPI
	logger zerolog.Logger
}

// NewClient connects to a Bot API compatible endpoint. It fails when the token is rejected.
// endpoint is a format string taking the token and the method name.
func NewClient(token, endpoint string, httpClient *http.Client, logger zerolog.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}

	return &Client{
		bot:    bot,
		logger: logger.With().Str("component", "telegram").Logger(),
	}, nil
}

// Username returns the bot's username as reported at startup
func (c *Client) Username() string {
	return c.bot.Self.UserName
}

// Reply sends text as a reply to replyTo and returns the new message id
func (c *Client) Reply(ctx context.Context, chatID int64, replyTo int, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	msg := tgbotapi.NewMessage(chatID, Truncate(text, MaxMessageLength))
	msg.ReplyToMessageID = replyTo

	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("sending message: %w", err)
	}

	return sent.MessageID, nil
}

// Edit replaces the text of a message sent earlier by the bot.
// When markdown is set and Telegram rejects the markup, the text is sent again as plain text.
func (c *Client) Edit(ctx context.Context, chatID int64, messageID int, text string, markdown bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text = Truncate(text, MaxMessageLength)

	if markdown {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
		edit.ParseMode = tgbotapi.ModeMarkdown
		_, err := c.bot.Request(edit)
		if err == nil {
			return nil
		}
		c.logger.Warn().Err(err).Int64("chat_id", chatID).Int("message_id", messageID).Msg("Markdown edit rejected, retrying as plain text")
	}

	if _, err := c.bot.Request(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		return fmt.Errorf("editing message: %w", err)
	}

	return nil
}

// Updates starts long polling and delivers messages until ctx is done.
// The returned channel is closed once polling has stopped.
func (c *Client) Updates(ctx context.Context) <-chan Inbound {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = pollTimeoutSeconds

	updates := c.bot.GetUpdatesChan(config)
	out := make(chan Inbound)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				inbound, ok := FromUpdate(update)
				if !ok {
					continue
				}
				select {
				case out <- inbound:
				case <-ctx.Done():
					c.bot.StopReceivingUpdates()
					return
				}
			}
		}
	}()

	return out
}

// ParseUpdate decodes a webhook request body.
// The boolean is false for updates that carry no text message.
func (c *Client) ParseUpdate(r *http.Request) (Inbound, bool, error) {
	update, err := c.bot.HandleUpdate(r)
	if err != nil {
		return Inbound{}, false, fmt.Errorf("decoding update: %w", err)
	}

	inbound, ok := FromUpdate(*update)
	return inbound, ok, nil
}

// Name identifies the client in health reports
func (c *Client) Name() string {
	return "telegram"
}

// Check verifies the token and connectivity with getMe
func (c *Client) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := c.bot.GetMe(); err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}

	return nil
}

// FromUpdate converts an update to an Inbound message
func FromUpdate(update tgbotapi.Update) (Inbound, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return Inbound{}, false
	}

	inbound := Inbound{
		UpdateID:  update.UpdateID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}

	if msg.IsCommand() {
		inbound.Command = msg.Command()
	}

	for _, entity := range msg.Entities {
		if entity.IsURL() {
			inbound.HasURL = true
			break
		}
	}

	return inbound, true
}

// Truncate cuts text to at most limit UTF-16 code units, the unit Telegram
// measures message length in. Runes are never split.
func Truncate(text string, limit int) string {
	units := 0
	for i, r := range text {
		n := len(utf16.Encode([]rune{r}))
		if n < 0 {
			n = 1
		}
		if units+n > limit {
			return text[:i]
		}
		units += n
	}
	return text
}
