// Package providers contains dependency injection providers for the song request server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/songrequest/server/internal/config"
	"github.com/songrequest/server/internal/logger"
)

// ProvideConfig returns a provider that loads configuration from args.
func ProvideConfig(args []string) func(do.Injector) (*config.Config, error) {
	return func(do.Injector) (*config.Config, error) {
		return config.LoadConfig(args)
	}
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting song request server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.BasePath,
		"catalog_file", cfg.Data.CatalogFile,
		"telegram", cfg.Telegram.Enabled,
		"http", cfg.Server.Enabled,
	)

	return log, nil
}
