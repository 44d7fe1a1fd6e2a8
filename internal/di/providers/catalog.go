package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/songrequest/server/internal/catalog"
	"github.com/songrequest/server/internal/config"
	"github.com/songrequest/server/internal/logger"
	"github.com/songrequest/server/internal/upload"
	"github.com/songrequest/server/internal/watcher"
)

// ProvideUploadService provides the catalog upload service and falls back to
// the catalog file when the database held no catalog.
func ProvideUploadService(i do.Injector) (*upload.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*catalog.Store](i)

	uploads := upload.New(upload.Options{
		Catalog: store,
		Path:    cfg.Data.CatalogFile,
		MaxSize: upload.DefaultMaxSize,
		Logger:  log.WithComponent("upload").Logger,
	})

	// A broken catalog file must not keep the bot offline; uploads still work.
	if err := uploads.Restore(context.Background()); err != nil {
		log.Warn("Catalog file not loaded", "path", cfg.Data.CatalogFile, "error", err)
	}

	return uploads, nil
}

// CatalogWatcherHandle wraps the catalog file watcher with shutdown capability.
// Watcher is nil when watching is disabled.
type CatalogWatcherHandle struct {
	*watcher.FileWatcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *CatalogWatcherHandle) Shutdown() error {
	if h.FileWatcher == nil {
		return nil
	}
	h.cancel()
	return h.Stop()
}

// ProvideCatalogWatcher provides the catalog file watcher.
func ProvideCatalogWatcher(i do.Injector) (*CatalogWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	uploads := do.MustInvoke[*upload.Service](i)

	if !cfg.Catalog.Watch {
		log.Info("Catalog file watching disabled")
		return &CatalogWatcherHandle{}, nil
	}

	w, err := watcher.New(uploads.Path(), log.WithComponent("watcher").Logger, watcher.Options{
		SettleDelay: cfg.Catalog.SettleDelay,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("Catalog watcher error", "error", err)
		}
	}()

	go uploads.Follow(ctx, w.Events())

	go func() {
		for {
			select {
			case err := <-w.Errors():
				log.Warn("catalog watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Watching catalog file", "path", w.Path())

	return &CatalogWatcherHandle{
		FileWatcher: w,
		cancel:      cancel,
	}, nil
}
