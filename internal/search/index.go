package search

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/listenupapp/bookcatalog/internal/domain"
)

// Index wraps an in-memory Bleve index of the catalog mirror.
//
// All public methods are safe for concurrent use.
type Index struct {
	index  bleve.Index
	logger *slog.Logger

	mu         sync.RWMutex
	generation uint64
	ids        map[string]struct{}
}

// NewIndex creates an empty in-memory index.
func NewIndex(logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &Index{
		index:  index,
		logger: logger,
		ids:    make(map[string]struct{}),
	}, nil
}

// Close closes the index and releases resources.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// Sync makes the index match books. Calls carrying a generation older than
// the last applied one are ignored. Books without an id are skipped.
func (s *Index) Sync(generation uint64, books []domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation < s.generation {
		s.logger.Debug("ignoring stale index sync", "generation", generation, "current", s.generation)
		return nil
	}

	next := make(map[string]struct{}, len(books))
	batch := s.index.NewBatch()
	for _, b := range books {
		if b.ID == "" {
			continue
		}
		doc := NewBookDocument(b)
		if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
		next[doc.ID] = struct{}{}
	}
	for id := range s.ids {
		if _, ok := next[id]; !ok {
			batch.Delete(id)
		}
	}

	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	s.ids = next
	s.generation = generation
	s.logger.Debug("search index synced", "generation", generation, "documents", len(next))
	return nil
}

// Generation returns the generation of the last applied sync.
func (s *Index) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// DocumentCount returns the total number of indexed documents.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}
