// Package di provides dependency injection configuration for the book catalog server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/bookcatalog/internal/bookapi"
	"github.com/listenupapp/bookcatalog/internal/catalog"
	"github.com/listenupapp/bookcatalog/internal/config"
	"github.com/listenupapp/bookcatalog/internal/di/providers"
	"github.com/listenupapp/bookcatalog/internal/logger"
	"github.com/listenupapp/bookcatalog/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
// args are the command-line arguments without the program name.
func NewContainer(args []string) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, providers.Args(args))
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Storage and events
	do.Provide(injector, providers.ProvideCredentialStore)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSSEManager)

	// Catalog
	do.Provide(injector, providers.ProvideBookAPIClient)
	do.Provide(injector, providers.ProvideCatalog)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and starts serving.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)

	if _, err := do.Invoke[*providers.CredentialStoreHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)

	if _, err := do.Invoke[*bookapi.Client](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*catalog.Catalog](injector)

	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	providers.FetchOnStart(injector)

	return nil
}
