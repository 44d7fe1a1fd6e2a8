package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/songrequest/server/internal/api"
	"github.com/songrequest/server/internal/catalog"
	"github.com/songrequest/server/internal/config"
	"github.com/songrequest/server/internal/logger"
	"github.com/songrequest/server/internal/service"
	"github.com/songrequest/server/internal/sse"
	"github.com/songrequest/server/internal/upload"
)

// HTTPServerHandle wraps http.Server with Shutdownable. Server is nil when
// the HTTP API is disabled.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	if h.Server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Server.Enabled {
		log.Info("HTTP API disabled")
		return &HTTPServerHandle{}, nil
	}

	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	store := do.MustInvoke[*catalog.Store](i)
	uploads := do.MustInvoke[*upload.Service](i)
	selections := do.MustInvoke[*service.SelectionService](i)
	dialogHandle := do.MustInvoke[*DialogHandle](i)

	handler := api.NewServer(api.Deps{
		Catalog:        store,
		Uploader:       uploads,
		Selections:     selections,
		Database:       storeHandle.Store,
		Events:         sse.NewHandler(sseHandle.Manager, log.WithComponent("sse").Logger),
		Sessions:       dialogHandle.Sessions,
		MaxUploadBytes: upload.DefaultMaxSize,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, log.WithComponent("http").Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
