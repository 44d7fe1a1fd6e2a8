package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/songrequest/server/internal/catalog"
	"github.com/songrequest/server/internal/config"
	"github.com/songrequest/server/internal/dialog"
	"github.com/songrequest/server/internal/logger"
	"github.com/songrequest/server/internal/ratelimit"
	"github.com/songrequest/server/internal/service"
)

// ProvideSelectionService provides the announcement service.
func ProvideSelectionService(i do.Injector) (*service.SelectionService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	publisher := do.MustInvoke[service.Publisher](i)

	return service.NewSelectionService(
		publisher,
		storeHandle.Store,
		sseHandle.Manager,
		cfg.Dialog.Messages.Announcement,
		log.WithComponent("selection").Logger,
	), nil
}

// DialogHandle wraps the dialog controller with its janitor and rate limiter.
type DialogHandle struct {
	*dialog.Controller
	limiter *ratelimit.KeyedRateLimiter
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *DialogHandle) Shutdown() error {
	h.cancel()
	h.limiter.Stop()
	return nil
}

// ProvideDialog provides the dialog controller.
func ProvideDialog(i do.Injector) (*DialogHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*catalog.Store](i)
	transport := do.MustInvoke[dialog.Transport](i)
	selections := do.MustInvoke[*service.SelectionService](i)

	limiter := ratelimit.New(cfg.Dialog.RateLimit, cfg.Dialog.RateBurst, rateLimiterIdleTTL)

	ctrl := dialog.NewController(dialog.Options{
		Catalog:   store,
		Transport: transport,
		Announcer: selections,
		Labels:    labelsFrom(cfg.Dialog.Messages),
		Limiter:   limiter,
		Logger:    log.WithComponent("dialog").Logger,
	})

	// Sessions navigating the old catalog restart on their next utterance.
	store.OnReplaced(func(catalog.Result) { ctrl.OnCatalogReplaced() })

	ctx, cancel := context.WithCancel(context.Background())
	go ctrl.RunJanitor(ctx, janitorInterval, cfg.Dialog.SessionTTL)

	return &DialogHandle{
		Controller: ctrl,
		limiter:    limiter,
		cancel:     cancel,
	}, nil
}

func labelsFrom(m config.Messages) dialog.Labels {
	return dialog.Labels{
		ChooseAuthor:       m.ChooseAuthor,
		ChooseSong:         m.ChooseSong,
		Restart:            m.Restart,
		Back:               m.Back,
		FieldPrompt:        m.FieldPrompt,
		AuthorLetterPrompt: m.AuthorLetterPrompt,
		SongLetterPrompt:   m.SongLetterPrompt,
		AuthorItemPrompt:   m.AuthorItemPrompt,
		SongItemPrompt:     m.SongItemPrompt,
		ConfirmPrompt:      m.ConfirmPrompt,
		Announced:          m.Announced,
		InvalidInput:       m.InvalidInput,
		CatalogUnavailable: m.CatalogUnavailable,
		CatalogUpdated:     m.CatalogUpdated,
	}
}
