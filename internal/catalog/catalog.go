// Package catalog mirrors the remote book collection into local state and
// performs create, update and delete operations against it.
//
// A Catalog is an explicit value owned by its caller. Every operation returns
// its own coded error and additionally records failures in a shared error
// slot that a presentation layer can observe through State.
//
// List fetches are fenced: each fetch takes a sequence number when it is
// issued, and its outcome is applied only if no newer fetch or local mutation
// was applied in the meantime. Overlapping fetches therefore resolve to the
// last issued one rather than the last to answer.
package catalog

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/listenupapp/bookcatalog/internal/credentials"
	"github.com/listenupapp/bookcatalog/internal/domain"
	catalogerrors "github.com/listenupapp/bookcatalog/internal/errors"
	"github.com/listenupapp/bookcatalog/internal/validation"
)

// BookService is the remote book storage service. *bookapi.Client implements it.
type BookService interface {
	List(ctx context.Context) ([]domain.Book, error)
	Create(ctx context.Context, token string, book domain.NewBook) (domain.Book, error)
	Get(ctx context.Context, bookID string) ([]domain.Book, error)
	Update(ctx context.Context, token, bookID string, patch domain.BookPatch) ([]byte, error)
	Delete(ctx context.Context, token, bookID string) error
}

// Validator checks decoded records.
type Validator interface {
	Validate(s any) error
}

// State is a snapshot of the observable catalog state.
type State struct {
	// Error is the last recorded failure. Success does not clear it; see ClearError.
	Error *catalogerrors.Error `json:"error"`
	Books []domain.Book        `json:"books"`
	// Generation is the sequence number of the last change applied to Books.
	Generation uint64 `json:"generation"`
	// Loading is true while at least one list fetch is in flight.
	Loading bool `json:"loading"`
}

// Catalog is the book access module.
type Catalog struct {
	api       BookService
	creds     credentials.Store
	validator Validator
	emitter   Emitter
	indexer   Indexer
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	books    []domain.Book
	lastErr  *catalogerrors.Error
	inflight int
	issued   uint64 // last sequence number handed out
	applied  uint64 // sequence number of the last change applied to books
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEmitter sets the event emitter.
func WithEmitter(emitter Emitter) Option {
	return func(c *Catalog) {
		if emitter != nil {
			c.emitter = emitter
		}
	}
}

// WithIndexer sets the index kept in sync with the mirror.
func WithIndexer(indexer Indexer) Option {
	return func(c *Catalog) {
		if indexer != nil {
			c.indexer = indexer
		}
	}
}

// WithValidator replaces the default validator.
func WithValidator(v Validator) Option {
	return func(c *Catalog) {
		if v != nil {
			c.validator = v
		}
	}
}

// WithClock sets the time source used for default release years and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Catalog with an empty mirror.
func New(api BookService, creds credentials.Store, opts ...Option) *Catalog {
	c := &Catalog{
		api:       api,
		creds:     creds,
		validator: validation.New(),
		emitter:   NoopEmitter{},
		indexer:   noopIndexer{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		books:     []domain.Book{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the current state.
func (c *Catalog) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Books returns a copy of the mirrored books.
func (c *Catalog) Books() []domain.Book {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.books)
}

// ClearError empties the error slot.
func (c *Catalog) ClearError() {
	c.mu.Lock()
	c.lastErr = nil
	state := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(Event{Type: EventState, Generation: state.Generation, Data: state})
}

// Credentials reads the session token and user id. Both must be present.
func (c *Catalog) Credentials(ctx context.Context) (token, userID string, err error) {
	token, ok, err := c.creds.Get(ctx, credentials.TokenKey)
	if err != nil {
		return "", "", catalogerrors.Wrap(err, catalogerrors.CodeInternal, "credential store unavailable")
	}
	if !ok {
		return "", "", catalogerrors.MissingCredential(MessageNoToken)
	}

	userID, ok, err = c.creds.Get(ctx, credentials.UserIDKey)
	if err != nil {
		return "", "", catalogerrors.Wrap(err, catalogerrors.CodeInternal, "credential store unavailable")
	}
	if !ok {
		return "", "", catalogerrors.MissingCredential(MessageNoUserID)
	}

	return token, userID, nil
}

// snapshotLocked copies the state. Caller holds c.mu.
func (c *Catalog) snapshotLocked() State {
	state := State{
		Books:      slices.Clone(c.books),
		Generation: c.applied,
		Loading:    c.inflight > 0,
	}
	if c.lastErr != nil {
		e := *c.lastErr
		state.Error = &e
	}
	return state
}

// nextSeqLocked hands out the next fence value. Caller holds c.mu.
func (c *Catalog) nextSeqLocked() uint64 {
	c.issued++
	return c.issued
}

// mutate applies fn to the mirror as a local change that supersedes every
// fetch issued before it. It returns the new generation and a copy of the books.
func (c *Catalog) mutate(fn func(books []domain.Book) []domain.Book) (uint64, []domain.Book) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.books = fn(slices.Clone(c.books))
	c.applied = c.nextSeqLocked()
	return c.applied, slices.Clone(c.books)
}

// fail records err in the error slot and returns it.
func (c *Catalog) fail(op string, err error) error {
	coded := toCoded(err)

	c.mu.Lock()
	c.lastErr = coded
	generation := c.applied
	c.mu.Unlock()

	c.logger.Warn("catalog operation failed",
		"op", op,
		"code", coded.Code,
		"error", coded.Error(),
	)
	c.emit(Event{Type: EventError, Generation: generation, Data: coded})
	return coded
}

func (c *Catalog) emit(event Event) {
	event.Timestamp = c.now()
	c.emitter.Emit(event)
}

func (c *Catalog) sync(generation uint64, books []domain.Book) {
	if err := c.indexer.Sync(generation, books); err != nil {
		c.logger.Error("failed to sync index", "generation", generation, "error", err)
	}
}
