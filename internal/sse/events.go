// Package sse implements Server-Sent Events for streaming catalog changes to
// a presentation layer.
package sse

import (
	"time"

	"github.com/google/uuid"

	"github.com/listenupapp/bookcatalog/internal/catalog"
	"github.com/listenupapp/bookcatalog/internal/domain"
	catalogerrors "github.com/listenupapp/bookcatalog/internal/errors"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventState carries a full catalog snapshot.
	EventState EventType = EventType(catalog.EventState)
	// EventBookCreated represents a book creation event.
	EventBookCreated EventType = EventType(catalog.EventBookCreated)
	// EventBookUpdated represents a book update event.
	EventBookUpdated EventType = EventType(catalog.EventBookUpdated)
	// EventBookDeleted represents a book deletion event.
	EventBookDeleted EventType = EventType(catalog.EventBookDeleted)
	// EventError represents a failure recorded by the catalog.
	EventError EventType = EventType(catalog.EventError)

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Data       any       `json:"data"`
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Generation uint64    `json:"generation,omitempty"`
}

// BookEventData is the data payload for book created and updated events.
type BookEventData struct {
	Book domain.Book `json:"book"`
}

// BookDeletedEventData is the data payload for book delete events.
type BookDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	BookID    string    `json:"book_id"`
}

// StateEventData is the data payload for catalog state events.
type StateEventData struct {
	State catalog.State `json:"state"`
}

// ErrorEventData is the data payload for catalog error events.
type ErrorEventData struct {
	Code    catalogerrors.Code `json:"code"`
	Message string             `json:"message"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

func newEvent(t EventType, data any, ts time.Time) Event {
	if ts.IsZero() {
		ts = time.Now()
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Data:      data,
		Timestamp: ts,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return newEvent(EventHeartbeat, HeartbeatEventData{ServerTime: now}, now)
}

// FromCatalogEvent converts a catalog event into its wire form.
// It reports false for payloads it does not recognize.
func FromCatalogEvent(e catalog.Event) (Event, bool) {
	var data any
	switch e.Type {
	case catalog.EventState:
		state, ok := e.Data.(catalog.State)
		if !ok {
			return Event{}, false
		}
		data = StateEventData{State: state}
	case catalog.EventBookCreated, catalog.EventBookUpdated:
		book, ok := e.Data.(domain.Book)
		if !ok {
			return Event{}, false
		}
		data = BookEventData{Book: book}
	case catalog.EventBookDeleted:
		data = BookDeletedEventData{BookID: e.BookID, DeletedAt: e.Timestamp}
	case catalog.EventError:
		coded, ok := e.Data.(*catalogerrors.Error)
		if !ok || coded == nil {
			return Event{}, false
		}
		data = ErrorEventData{Code: coded.Code, Message: coded.Message}
	default:
		return Event{}, false
	}

	event := newEvent(EventType(e.Type), data, e.Timestamp)
	event.Generation = e.Generation
	return event, true
}
