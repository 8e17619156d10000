package api

import (
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/listenupapp/bookcatalog/internal/domain"
	catalogerrors "github.com/listenupapp/bookcatalog/internal/errors"
	"github.com/listenupapp/bookcatalog/internal/http/response"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodyBytes = 1 << 20

// decodeBody reads a JSON request body into dst and validates it.
func (s *Server) decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return catalogerrors.Validation("could not read request body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return catalogerrors.Validation("invalid JSON body")
	}
	if s.validator != nil {
		return s.validator.Validate(dst)
	}
	return nil
}

// handleGetCatalog returns the observable catalog state.
func (s *Server) handleGetCatalog(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.catalog.State(), s.logger)
}

// handleClearError resets the catalog error slot.
func (s *Server) handleClearError(w http.ResponseWriter, _ *http.Request) {
	s.catalog.ClearError()
	response.Success(w, s.catalog.State(), s.logger)
}

// handleListBooks returns the mirrored books. With ?q= only books the index
// matches are returned, in mirror order.
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books := s.catalog.Books()

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" || s.search == nil {
		response.Success(w, books, s.logger)
		return
	}

	ids, err := s.search.MatchingIDs(r.Context(), q)
	if err != nil {
		s.logger.Error("Failed to search books", "error", err, "query", q)
		response.InternalError(w, "Failed to search books", s.logger)
		return
	}

	matched := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		matched[id] = struct{}{}
	}
	books = slices.DeleteFunc(books, func(b domain.Book) bool {
		_, ok := matched[b.ID]
		return !ok
	})

	response.Success(w, books, s.logger)
}

// handleRefreshBooks reloads the mirror from the book service.
func (s *Server) handleRefreshBooks(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.FetchBooks(r.Context()); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, s.catalog.State(), s.logger)
}

// handleAddBook creates a book.
func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var draft domain.NewBook
	if err := s.decodeBody(r, &draft); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	book, err := s.catalog.AddBook(r.Context(), draft)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, book, s.logger)
}

// handleGetBook fetches one book straight from the service.
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	books, err := s.catalog.FetchBookByID(r.Context(), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, books, s.logger)
}

// handleUpdateBook applies a partial update.
func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch domain.BookPatch
	if err := s.decodeBody(r, &patch); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if patch.IsEmpty() {
		response.HandleError(w, catalogerrors.Validation("no fields to update"), s.logger)
		return
	}

	book, err := s.catalog.UpdateBook(r.Context(), id, patch)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, book, s.logger)
}

// handleDeleteBook removes a book.
func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.catalog.DeleteBook(r.Context(), id); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
