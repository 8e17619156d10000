package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/bookcatalog/internal/logger"
	"github.com/listenupapp/bookcatalog/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the in-memory Bleve index over the mirror.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewIndex(log.Component("search"))
	if err != nil {
		return nil, err
	}

	log.Info("Search index initialized")

	return &SearchIndexHandle{Index: index}, nil
}
