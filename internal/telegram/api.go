// Package telegram connects the dialog controller to the Telegram Bot API:
// it polls updates, renders prompts as reply keyboards, accepts catalog
// uploads sent as documents and posts announcements to a channel.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the subset of *tgbotapi.BotAPI the package uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetFileDirectURL(fileID string) (string, error)
}

// NewAPI logs in with token.
func NewAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = debug
	return api, nil
}

// send refuses to start a request once ctx is done. The Bot API client
// itself takes no context.
func send(ctx context.Context, api API, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := api.Send(c); err != nil {
		return err
	}
	return nil
}

// chatID parses a session ID back into the chat it was derived from.
func chatID(sessionID string) (int64, error) {
	id, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("session %q is not a telegram chat: %w", sessionID, err)
	}
	return id, nil
}

// sessionID derives the dialog session for a chat.
func sessionID(chat int64) string {
	return strconv.FormatInt(chat, 10)
}

// render substitutes {name} placeholders.
func render(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
