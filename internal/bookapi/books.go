package bookapi

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/listenupapp/bookcatalog/internal/domain"
)

// List fetches every book in the collection.
func (c *Client) List(ctx context.Context) ([]domain.Book, error) {
	body, err := c.doRequest(ctx, request{method: http.MethodGet, path: "/books"})
	if err != nil {
		return nil, wrapError("list", "", err)
	}

	var books []domain.Book
	if err := json.Unmarshal(body, &books); err != nil {
		return nil, wrapError("list", "", fmt.Errorf("%w: %w", ErrDecode, err))
	}
	if books == nil {
		books = []domain.Book{}
	}
	return books, nil
}

// Create posts a new book and returns the stored record.
func (c *Client) Create(ctx context.Context, token string, book domain.NewBook) (domain.Book, error) {
	body, err := c.doRequest(ctx, request{
		method: http.MethodPost,
		path:   "/books",
		token:  token,
		body:   book,
	})
	if err != nil {
		return domain.Book{}, wrapError("create", "", err)
	}

	var created domain.Book
	if err := json.Unmarshal(body, &created); err != nil {
		return domain.Book{}, wrapError("create", "", fmt.Errorf("%w: %w", ErrDecode, err))
	}
	return created, nil
}

// Get fetches a single book. The service answers with an array; a bare
// object is accepted and returned as a one-element slice. A JSON null
// yields a nil slice.
func (c *Client) Get(ctx context.Context, bookID string) ([]domain.Book, error) {
	body, err := c.doRequest(ctx, request{method: http.MethodGet, path: bookPath(bookID)})
	if err != nil {
		return nil, wrapError("get", bookID, err)
	}

	trimmed := bytes.TrimSpace(body)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		return nil, nil
	case len(trimmed) > 0 && trimmed[0] == '{':
		var book domain.Book
		if err := json.Unmarshal(trimmed, &book); err != nil {
			return nil, wrapError("get", bookID, fmt.Errorf("%w: %w", ErrDecode, err))
		}
		return []domain.Book{book}, nil
	default:
		var books []domain.Book
		if err := json.Unmarshal(trimmed, &books); err != nil {
			return nil, wrapError("get", bookID, fmt.Errorf("%w: %w", ErrDecode, err))
		}
		if books == nil {
			books = []domain.Book{}
		}
		return books, nil
	}
}

// Update sends a partial update and returns the raw reply body.
// The service does not always answer with JSON, so decoding is left to the caller.
func (c *Client) Update(ctx context.Context, token, bookID string, patch domain.BookPatch) ([]byte, error) {
	body, err := c.doRequest(ctx, request{
		method: http.MethodPut,
		path:   bookPath(bookID),
		token:  token,
		body:   patch,
	})
	if err != nil {
		return nil, wrapError("update", bookID, err)
	}
	return body, nil
}

// Delete removes a book.
func (c *Client) Delete(ctx context.Context, token, bookID string) error {
	if _, err := c.doRequest(ctx, request{
		method: http.MethodDelete,
		path:   bookPath(bookID),
		token:  token,
	}); err != nil {
		return wrapError("delete", bookID, err)
	}
	return nil
}
