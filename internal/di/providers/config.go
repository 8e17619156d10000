// Package providers contains dependency injection providers for the book catalog server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/bookcatalog/internal/config"
	"github.com/listenupapp/bookcatalog/internal/logger"
)

// Args holds the command-line arguments configuration is parsed from.
type Args []string

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	args := do.MustInvoke[Args](i)
	return config.LoadConfig(args)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.IsDevelopment(),
		Environment: cfg.App.Environment,
	})

	log.Info("Starting book catalog",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.BasePath,
		"books_api", cfg.BooksAPI.URL,
		"credentials_backend", cfg.Credentials.Backend,
	)

	return log, nil
}
