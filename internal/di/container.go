// Package di provides dependency injection configuration for the song request server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/songrequest/server/internal/catalog"
	"github.com/songrequest/server/internal/config"
	"github.com/songrequest/server/internal/di/providers"
	"github.com/songrequest/server/internal/logger"
	"github.com/songrequest/server/internal/service"
	"github.com/songrequest/server/internal/upload"
)

// NewContainer creates and configures the DI container with all providers.
// args are the command-line arguments without the program name.
func NewContainer(args []string) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig(args))
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Catalog
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideUploadService)
	do.Provide(injector, providers.ProvideCatalogWatcher)

	// Telegram
	do.Provide(injector, providers.ProvideTelegram)
	do.Provide(injector, providers.ProvideTransport)
	do.Provide(injector, providers.ProvidePublisher)

	// Business services
	do.Provide(injector, providers.ProvideSelectionService)
	do.Provide(injector, providers.ProvideDialog)

	// Frontends
	do.Provide(injector, providers.ProvideBot)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services in dependency order.
// This triggers lazy initialization and starts the bot and the HTTP server.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*catalog.Store](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*upload.Service](injector)
	if _, err := do.Invoke[*providers.CatalogWatcherHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.TelegramHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.SelectionService](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.DialogHandle](injector)

	// Frontends
	_ = do.MustInvoke[*providers.BotHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
