package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/bookcatalog/internal/bookapi"
	"github.com/listenupapp/bookcatalog/internal/catalog"
	"github.com/listenupapp/bookcatalog/internal/config"
	"github.com/listenupapp/bookcatalog/internal/logger"
	"github.com/listenupapp/bookcatalog/internal/validation"
)

// ProvideBookAPIClient provides the rate-limited book service client.
func ProvideBookAPIClient(i do.Injector) (*bookapi.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client, err := bookapi.New(bookapi.Config{
		BaseURL:           cfg.BooksAPI.URL,
		ProxyAddr:         cfg.BooksAPI.ProxyAddr,
		Timeout:           cfg.BooksAPI.Timeout,
		RequestsPerSecond: cfg.BooksAPI.RequestsPerSecond,
		Burst:             cfg.BooksAPI.Burst,
	}, log.Component("bookapi"))
	if err != nil {
		return nil, err
	}

	log.Info("Book service client ready", "base_url", client.BaseURL())
	if cfg.BooksAPI.ProxyAddr != "" {
		log.Info("Book service requests go through SOCKS5 proxy", "proxy", cfg.BooksAPI.ProxyAddr)
	}

	return client, nil
}

// ProvideValidator provides the shared struct validator.
func ProvideValidator(_ do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideCatalog provides the book access module, wired to the event stream
// and the search index.
func ProvideCatalog(i do.Injector) (*catalog.Catalog, error) {
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*bookapi.Client](i)
	creds := do.MustInvoke[*CredentialStoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)

	return catalog.New(client, creds.Store,
		catalog.WithLogger(log.Component("catalog")),
		catalog.WithValidator(validator),
		catalog.WithEmitter(sseHandle.Manager),
		catalog.WithIndexer(indexHandle.Index),
	), nil
}

// FetchOnStart loads the mirror in the background when configured to.
func FetchOnStart(i do.Injector) {
	cfg := do.MustInvoke[*config.Config](i)
	if !cfg.Catalog.FetchOnStart {
		return
	}

	log := do.MustInvoke[*logger.Logger](i)
	cat := do.MustInvoke[*catalog.Catalog](i)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.BooksAPI.Timeout+shutdownTimeout)
		defer cancel()
		if err := cat.FetchBooks(ctx); err != nil {
			log.Warn("Initial catalog fetch failed", "error", err)
			return
		}
		log.Info("Initial catalog fetch completed", "books", len(cat.Books()))
	}()
}
