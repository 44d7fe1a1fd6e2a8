package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Channel posts announcements to a channel or group.
type Channel struct {
	api      API
	chatID   int64
	username string
}

// NewChannel creates a Channel from a numeric chat ID ("-1001234567890")
// or a public channel name ("@playlist").
func NewChannel(api API, ref string) (*Channel, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return &Channel{api: api, chatID: id}, nil
	}
	if strings.HasPrefix(ref, "@") && len(ref) > 1 {
		return &Channel{api: api, username: ref}, nil
	}
	return nil, fmt.Errorf("invalid channel reference %q: want a chat ID or @name", ref)
}

// Publish posts text to the channel.
func (c *Channel) Publish(ctx context.Context, text string) error {
	var msg tgbotapi.MessageConfig
	if c.username != "" {
		msg = tgbotapi.NewMessageToChannel(c.username, text)
	} else {
		msg = tgbotapi.NewMessage(c.chatID, text)
	}
	if err := send(ctx, c.api, msg); err != nil {
		return fmt.Errorf("post to channel: %w", err)
	}
	return nil
}
