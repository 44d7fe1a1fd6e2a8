package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/songrequest/server/internal/dialog"
)

// Transport delivers dialog prompts and notices to Telegram chats.
type Transport struct {
	api    API
	logger *slog.Logger
}

// NewTransport creates a Transport.
func NewTransport(api API, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{api: api, logger: logger}
}

// Prompt sends the prompt text with its options as a reply keyboard.
func (t *Transport) Prompt(ctx context.Context, sessionID string, p dialog.Prompt) error {
	chat, err := chatID(sessionID)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chat, p.Text)
	msg.ReplyMarkup = Keyboard(p)
	return send(ctx, t.api, msg)
}

// Notify sends a plain message, leaving the current keyboard in place.
func (t *Transport) Notify(ctx context.Context, sessionID, text string) error {
	chat, err := chatID(sessionID)
	if err != nil {
		return err
	}
	return send(ctx, t.api, tgbotapi.NewMessage(chat, text))
}
