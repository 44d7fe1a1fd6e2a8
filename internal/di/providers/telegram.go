package providers

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/do/v2"

	"github.com/songrequest/server/internal/config"
	"github.com/songrequest/server/internal/dialog"
	"github.com/songrequest/server/internal/logger"
	"github.com/songrequest/server/internal/service"
	"github.com/songrequest/server/internal/telegram"
	"github.com/songrequest/server/internal/upload"
)

// TelegramHandle holds the Telegram API client. API is nil when Telegram is disabled.
type TelegramHandle struct {
	API telegram.API
}

// ProvideTelegram provides the Telegram API client.
func ProvideTelegram(i do.Injector) (*TelegramHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Telegram.Enabled {
		log.Info("Telegram disabled, prompts and announcements are only logged")
		return &TelegramHandle{}, nil
	}

	api, err := telegram.NewAPI(cfg.Telegram.Token, cfg.Telegram.Debug)
	if err != nil {
		return nil, err
	}

	log.Info("Telegram bot authorized", "username", api.Self.UserName)
	return &TelegramHandle{API: api}, nil
}

// ProvideTransport provides the dialog transport.
func ProvideTransport(i do.Injector) (dialog.Transport, error) {
	log := do.MustInvoke[*logger.Logger](i)
	tg := do.MustInvoke[*TelegramHandle](i)

	if tg.API == nil {
		return &loggingTransport{logger: log.WithComponent("transport").Logger}, nil
	}
	return telegram.NewTransport(tg.API, log.WithComponent("transport").Logger), nil
}

// ProvidePublisher provides the announcement publisher.
func ProvidePublisher(i do.Injector) (service.Publisher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	tg := do.MustInvoke[*TelegramHandle](i)

	if tg.API == nil {
		return &loggingPublisher{logger: log.WithComponent("publisher").Logger}, nil
	}
	channel, err := telegram.NewChannel(tg.API, cfg.Telegram.Channel)
	if err != nil {
		return nil, err
	}
	return channel, nil
}

// BotHandle wraps the running bot with shutdown capability.
type BotHandle struct {
	*telegram.Bot
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Shutdown implements do.Shutdownable.
func (h *BotHandle) Shutdown() error {
	if h.Bot == nil {
		return nil
	}
	h.cancel()
	h.wg.Wait()
	return nil
}

// ProvideBot provides the Telegram bot and starts polling for updates.
func ProvideBot(i do.Injector) (*BotHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	tg := do.MustInvoke[*TelegramHandle](i)
	dialogHandle := do.MustInvoke[*DialogHandle](i)
	uploads := do.MustInvoke[*upload.Service](i)

	if tg.API == nil {
		return &BotHandle{}, nil
	}

	msgs := cfg.Dialog.Messages
	bot := telegram.NewBot(telegram.Options{
		API:      tg.API,
		Dialog:   dialogHandle.Controller,
		Uploader: uploads,
		Texts: telegram.Texts{
			Help:         msgs.Help,
			UploadOK:     msgs.UploadOK,
			UploadFailed: msgs.UploadFailed,
		},
		Workers:     cfg.Telegram.Workers,
		PollTimeout: cfg.Telegram.PollTimeout,
		Logger:      log.WithComponent("bot").Logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h := &BotHandle{Bot: bot, cancel: cancel}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("Telegram bot stopped", "error", err)
		}
	}()

	return h, nil
}

// loggingTransport stands in for Telegram when it is disabled.
type loggingTransport struct {
	logger *slog.Logger
}

func (t *loggingTransport) Prompt(_ context.Context, sessionID string, p dialog.Prompt) error {
	t.logger.Info("prompt", "session_id", sessionID, "text", p.Text, "options", len(p.Options))
	return nil
}

func (t *loggingTransport) Notify(_ context.Context, sessionID, text string) error {
	t.logger.Info("notice", "session_id", sessionID, "text", text)
	return nil
}

// loggingPublisher stands in for the Telegram channel when it is disabled.
type loggingPublisher struct {
	logger *slog.Logger
}

func (p *loggingPublisher) Publish(_ context.Context, text string) error {
	p.logger.Info("announcement", "text", text)
	return nil
}
