package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/songrequest/server/internal/catalog"
	"github.com/songrequest/server/internal/config"
	"github.com/songrequest/server/internal/logger"
	"github.com/songrequest/server/internal/sse"
	"github.com/songrequest/server/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Manager.Shutdown(ctx)
	h.cancel()
	return err
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the sqlite database.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(filepath.Dir(cfg.Data.DatabasePath), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sqlite.Open(cfg.Data.DatabasePath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", cfg.Data.DatabasePath)
	return &StoreHandle{Store: db}, nil
}

// ProvideCatalog provides the catalog store, restored from the database.
// Every published catalog is announced on the event stream.
func ProvideCatalog(i do.Injector) (*catalog.Store, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	store := catalog.New(storeHandle.Store, log.WithComponent("catalog").Logger)
	if err := store.Load(context.Background()); err != nil {
		return nil, fmt.Errorf("restore catalog: %w", err)
	}

	store.OnReplaced(func(res catalog.Result) {
		sseHandle.Emit(sse.NewCatalogReplacedEvent(res))
	})

	if stats := store.Stats(); stats.Loaded {
		log.Info("Catalog restored from database", "source", stats.Source, "tracks", stats.TrackCount)
	}
	return store, nil
}
