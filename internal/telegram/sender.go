// Package telegram delivers plain text messages through a Telegram bot.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MaxMessageLen is Telegram's limit for one message, in runes.
const MaxMessageLen = 4096

// Sender sends messages as the bot identified by its token.
type Sender struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

type Option func(*options)

type options struct {
	endpoint   string
	httpClient *http.Client
}

// WithEndpoint overrides the API endpoint format, e.g.
// "http://localhost/bot%s/%s".
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// NewSender authorizes the bot and returns a Sender.
func NewSender(token string, logger *slog.Logger, opts ...Option) (*Sender, error) {
	o := options{
		endpoint:   tgbotapi.APIEndpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, o.endpoint, o.httpClient)
	if err != nil {
		return nil, fmt.Errorf("init telegram api: %w", err)
	}
	logger.Info("telegram bot authorized", "username", api.Self.UserName)
	return &Sender{api: api, logger: logger}, nil
}

// SendText sends text to chatID and returns the message id.
func (s *Sender) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if text == "" {
		return 0, fmt.Errorf("empty message")
	}
	if r := []rune(text); len(r) > MaxMessageLen {
		text = string(r[:MaxMessageLen])
	}

	msg, err := s.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, fmt.Errorf("send telegram message: %w", err)
	}
	s.logger.Debug("telegram message sent", "chat_id", chatID, "message_id", msg.MessageID)
	return msg.MessageID, nil
}
