package catalog

import (
	"context"
	"slices"

	jsoniter "github.com/json-iterator/go"

	"github.com/listenupapp/bookcatalog/internal/domain"
	catalogerrors "github.com/listenupapp/bookcatalog/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FetchBooks refreshes the mirror from the book service.
//
// On success the mirror is replaced wholesale; on failure the error slot is set
// and the mirror is left as is. Either outcome is dropped from state when a
// newer fetch or local change was applied while this one was in flight. The
// returned error always describes this call.
func (c *Catalog) FetchBooks(ctx context.Context) error {
	c.mu.Lock()
	seq := c.nextSeqLocked()
	c.inflight++
	started := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(Event{Type: EventState, Generation: started.Generation, Data: started})

	books, err := c.api.List(ctx)
	var coded *catalogerrors.Error
	if err != nil {
		coded = toCoded(err)
	} else if books == nil {
		books = []domain.Book{}
	}

	c.mu.Lock()
	c.inflight--
	stale := seq < c.applied
	switch {
	case stale:
	case coded != nil:
		c.lastErr = coded
	default:
		c.books = books
		c.applied = seq
	}
	finished := c.snapshotLocked()
	c.mu.Unlock()

	if stale {
		c.logger.Debug("discarding stale fetch", "seq", seq, "applied", finished.Generation, "failed", coded != nil)
	}
	c.emit(Event{Type: EventState, Generation: finished.Generation, Data: finished})

	switch {
	case coded != nil:
		if !stale {
			c.logger.Warn("catalog operation failed", "op", "fetch", "code", coded.Code, "error", coded.Error())
			c.emit(Event{Type: EventError, Generation: finished.Generation, Data: coded})
		}
		return coded
	case !stale:
		c.sync(seq, finished.Books)
		c.logger.Info("books fetched", "count", len(books), "generation", seq)
	}
	return nil
}

// AddBook creates a book on the service and appends it to the mirror, then
// refreshes the mirror. A failed refresh is recorded in the error slot but
// does not fail AddBook.
func (c *Catalog) AddBook(ctx context.Context, draft domain.NewBook) (domain.Book, error) {
	token, _, err := c.Credentials(ctx)
	if err != nil {
		return domain.Book{}, c.fail("add", err)
	}

	// Known defect carried over from the service's original client: a
	// non-empty title is rejected, an empty one is replaced by the default.
	if draft.Title != "" {
		return domain.Book{}, c.fail("add", catalogerrors.Validation(MessageTitleRequired))
	}

	payload := domain.ApplyDefaults(draft, c.now())

	created, err := c.api.Create(ctx, token, payload)
	if err != nil {
		return domain.Book{}, c.fail("add", withServerMessage(err))
	}
	if err := c.validator.Validate(created); err != nil {
		return domain.Book{}, c.fail("add", catalogerrors.Wrap(err, catalogerrors.CodeDecode, MessageGeneric))
	}

	generation, books := c.mutate(func(books []domain.Book) []domain.Book {
		return append(books, created)
	})
	c.sync(generation, books)
	c.emit(Event{Type: EventBookCreated, Generation: generation, BookID: created.ID, Data: created})
	c.logger.Info("book added", "book_id", created.ID, "title", created.Title)

	if err := c.FetchBooks(ctx); err != nil {
		c.logger.Warn("refresh after add failed", "book_id", created.ID, "error", err)
	}
	return created, nil
}

// DeleteBook removes a book on the service, then every mirror entry with that id.
func (c *Catalog) DeleteBook(ctx context.Context, bookID string) error {
	token, _, err := c.Credentials(ctx)
	if err != nil {
		return c.fail("delete", err)
	}

	if err := c.deleteFromServer(ctx, token, bookID); err != nil {
		return c.fail("delete", err)
	}
	c.removeFromState(bookID)
	return nil
}

func (c *Catalog) deleteFromServer(ctx context.Context, token, bookID string) error {
	if err := c.api.Delete(ctx, token, bookID); err != nil {
		c.logger.Debug("delete rejected by book service", "book_id", bookID, "error", err)
		return toCoded(err)
	}
	return nil
}

func (c *Catalog) removeFromState(bookID string) {
	generation, books := c.mutate(func(books []domain.Book) []domain.Book {
		return slices.DeleteFunc(books, func(b domain.Book) bool { return b.ID == bookID })
	})
	c.sync(generation, books)
	c.emit(Event{Type: EventBookDeleted, Generation: generation, BookID: bookID})
	c.logger.Info("book deleted", "book_id", bookID)
}

// UpdateBook sends a partial update, replaces the matching mirror entry with
// the reply, then refreshes the mirror.
//
// A reply that is not a JSON book is kept as Book{Message: <reply text>}.
// A failed refresh is recorded in the error slot but does not fail UpdateBook.
func (c *Catalog) UpdateBook(ctx context.Context, bookID string, patch domain.BookPatch) (domain.Book, error) {
	token, _, err := c.Credentials(ctx)
	if err != nil {
		return domain.Book{}, c.fail("update", err)
	}

	updated, err := c.updateOnServer(ctx, token, bookID, patch)
	if err != nil {
		return domain.Book{}, c.fail("update", err)
	}
	c.updateInState(bookID, updated)

	if err := c.FetchBooks(ctx); err != nil {
		c.logger.Warn("refresh after update failed", "book_id", bookID, "error", err)
	}
	return updated, nil
}

func (c *Catalog) updateOnServer(ctx context.Context, token, bookID string, patch domain.BookPatch) (domain.Book, error) {
	raw, err := c.api.Update(ctx, token, bookID, patch)
	if err != nil {
		return domain.Book{}, toCoded(err)
	}

	return c.decodeUpdateReply(bookID, raw), nil
}

// decodeUpdateReply parses an update reply as a book. A JSON object whose
// fields do not all fit Book keeps every field that does; anything that is not
// a JSON object is carried whole in Message.
func (c *Catalog) decodeUpdateReply(bookID string, raw []byte) domain.Book {
	var updated domain.Book
	if err := json.Unmarshal(raw, &updated); err == nil {
		return updated
	}

	var fields map[string]jsoniter.RawMessage
	if !json.Valid(raw) || json.Unmarshal(raw, &fields) != nil {
		c.logger.Debug("update reply is not a book", "book_id", bookID, "reply", string(raw))
		return domain.Book{Message: string(raw)}
	}

	updated = domain.Book{}
	for name, value := range fields {
		field, err := json.Marshal(map[string]jsoniter.RawMessage{name: value})
		if err != nil {
			continue
		}
		if err := json.Unmarshal(field, &updated); err != nil {
			c.logger.Debug("skipping mistyped field in update reply",
				"book_id", bookID, "field", name, "error", err)
		}
	}
	return updated
}

func (c *Catalog) updateInState(bookID string, updated domain.Book) {
	replaced := false
	generation, books := c.mutate(func(books []domain.Book) []domain.Book {
		if i := domain.IndexOfBook(books, bookID); i != -1 {
			books[i] = updated
			replaced = true
		}
		return books
	})
	if !replaced {
		c.logger.Debug("updated book not in mirror", "book_id", bookID)
		return
	}
	c.sync(generation, books)
	c.emit(Event{Type: EventBookUpdated, Generation: generation, BookID: bookID, Data: updated})
	c.logger.Info("book updated", "book_id", bookID)
}

// FetchBookByID looks up one book without touching state.
//
// The service answers with a collection; the result keeps that shape. A nil
// slice means absent (any failure, NOT_FOUND for a 404) and is distinct from
// an empty collection.
func (c *Catalog) FetchBookByID(ctx context.Context, bookID string) ([]domain.Book, error) {
	books, err := c.api.Get(ctx, bookID)
	if err != nil {
		coded := toCoded(err)
		c.logger.Debug("book lookup failed", "book_id", bookID, "code", coded.Code, "error", err)
		return nil, coded
	}
	if books == nil {
		return nil, catalogerrors.NotFound(MessageGeneric)
	}
	c.logger.Debug("book fetched", "book_id", bookID, "count", len(books))
	return books, nil
}
