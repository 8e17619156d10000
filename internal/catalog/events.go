package catalog

import (
	"time"

	"github.com/listenupapp/bookcatalog/internal/domain"
)

// EventType names a catalog change.
type EventType string

const (
	// EventState carries a full State snapshot (loading flips, refreshes, cleared errors).
	EventState EventType = "catalog.state"
	// EventBookCreated is emitted after a created book is appended to the mirror.
	EventBookCreated EventType = "book.created"
	// EventBookUpdated is emitted after a book is replaced in the mirror.
	EventBookUpdated EventType = "book.updated"
	// EventBookDeleted is emitted after a book is removed from the mirror.
	EventBookDeleted EventType = "book.deleted"
	// EventError is emitted whenever a failure is recorded in the error slot.
	EventError EventType = "catalog.error"
)

// Event describes one observable change of the catalog.
// Generation orders events that were emitted from different goroutines.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Data       any       `json:"data,omitempty"`
	Type       EventType `json:"type"`
	BookID     string    `json:"bookId,omitempty"`
	Generation uint64    `json:"generation"`
}

// Emitter receives catalog events. Emit must not block.
type Emitter interface {
	Emit(event any)
}

// NoopEmitter discards events.
type NoopEmitter struct{}

// Emit implements Emitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// Indexer keeps a secondary view (the search index) in sync with the mirror.
// Sync may be called out of order; implementations ignore generations older
// than the last one they saw.
type Indexer interface {
	Sync(generation uint64, books []domain.Book) error
}

type noopIndexer struct{}

func (noopIndexer) Sync(uint64, []domain.Book) error { return nil }
