package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/songrequest/server/internal/catalog"
)

// Dialog is the dialog controller as seen by the bot.
type Dialog interface {
	Handle(ctx context.Context, sessionID, utterance string) error
	Reset(sessionID string)
}

// Uploader replaces the catalog from an uploaded file.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (catalog.Result, error)
}

// Texts are the bot's own replies outside the selection menu.
type Texts struct {
	Help string
	// UploadOK accepts {count}; UploadFailed accepts {error}.
	UploadOK     string
	UploadFailed string
}

// Options configures a Bot.
type Options struct {
	API      API
	Dialog   Dialog
	Uploader Uploader
	Texts    Texts
	// Workers is the number of update handlers. Updates of one chat always
	// go to the same worker, so they are handled in order.
	Workers     int
	PollTimeout time.Duration
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// Bot polls Telegram for updates and dispatches them.
type Bot struct {
	api         API
	dialog      Dialog
	uploader    Uploader
	texts       Texts
	workers     int
	pollTimeout time.Duration
	http        *http.Client
	logger      *slog.Logger
}

// NewBot creates a Bot.
func NewBot(opts Options) *Bot {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 60 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Bot{
		api:         opts.API,
		dialog:      opts.Dialog,
		uploader:    opts.Uploader,
		texts:       opts.Texts,
		workers:     opts.Workers,
		pollTimeout: opts.PollTimeout,
		http:        opts.HTTPClient,
		logger:      opts.Logger,
	}
}

// Run long-polls for updates until ctx is done. Updates already queued
// when ctx ends are handled with the cancelled context and fail fast.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(b.pollTimeout / time.Second)
	updates := b.api.GetUpdatesChan(cfg)

	shards := make([]chan tgbotapi.Update, b.workers)
	var wg sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan tgbotapi.Update, 64)
		wg.Add(1)
		go func(in <-chan tgbotapi.Update) {
			defer wg.Done()
			for update := range in {
				b.HandleUpdate(ctx, update)
			}
		}(shards[i])
	}

	b.logger.Info("telegram bot polling", "workers", b.workers, "poll_timeout", b.pollTimeout)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case update, ok := <-updates:
			if !ok {
				break loop
			}
			chat := update.FromChat()
			if chat == nil {
				continue
			}
			shard := shards[shardFor(chat.ID, len(shards))]
			select {
			case shard <- update:
			case <-ctx.Done():
				break loop
			}
		}
	}

	b.api.StopReceivingUpdates()
	for _, shard := range shards {
		close(shard)
	}
	wg.Wait()

	b.logger.Info("telegram bot stopped")
	return nil
}

func shardFor(chat int64, n int) int {
	s := chat % int64(n)
	if s < 0 {
		s = -s
	}
	return int(s)
}

// HandleUpdate handles one update. Errors are logged, never returned:
// there is nobody to return them to.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chat := msg.Chat.ID
	session := sessionID(chat)
	logger := b.logger.With("chat_id", chat)

	switch {
	case msg.Document != nil:
		b.handleDocument(ctx, chat, msg.Document, logger)

	case msg.IsCommand() && msg.Command() == "help":
		if err := b.reply(ctx, chat, b.texts.Help); err != nil {
			logger.Warn("failed to send help", "error", err)
		}

	case msg.IsCommand() && msg.Command() == "start":
		b.dialog.Reset(session)
		b.handleText(ctx, session, msg.Text, logger)

	case msg.Text != "":
		b.handleText(ctx, session, msg.Text, logger)
	}
}

func (b *Bot) handleText(ctx context.Context, session, text string, logger *slog.Logger) {
	if err := b.dialog.Handle(ctx, session, text); err != nil {
		logger.Warn("dialog step failed", "error", err)
	}
}

// handleDocument downloads an uploaded file and replaces the catalog with it.
func (b *Bot) handleDocument(ctx context.Context, chat int64, doc *tgbotapi.Document, logger *slog.Logger) {
	result, err := b.upload(ctx, doc)

	var text string
	if err != nil {
		logger.Warn("catalog upload rejected", "file", doc.FileName, "error", err)
		text = render(b.texts.UploadFailed, map[string]string{"error": err.Error()})
	} else {
		logger.Info("catalog uploaded via chat", "file", doc.FileName, "tracks", result.TrackCount)
		text = render(b.texts.UploadOK, map[string]string{"count": strconv.Itoa(result.TrackCount)})
	}

	if err := b.reply(ctx, chat, text); err != nil {
		logger.Warn("failed to send upload result", "error", err)
	}
}

func (b *Bot) upload(ctx context.Context, doc *tgbotapi.Document) (catalog.Result, error) {
	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		return catalog.Result{}, fmt.Errorf("resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return catalog.Result{}, fmt.Errorf("build download request: %w", err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return catalog.Result{}, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return catalog.Result{}, errors.New("download file: " + resp.Status)
	}

	name := doc.FileName
	if name == "" {
		name = doc.FileID
	}
	return b.uploader.Upload(ctx, name, resp.Body)
}

func (b *Bot) reply(ctx context.Context, chat int64, text string) error {
	return send(ctx, b.api, tgbotapi.NewMessage(chat, text))
}
