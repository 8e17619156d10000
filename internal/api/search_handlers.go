package api

import (
	"net/http"
	"strconv"
	"strings"

	catalogerrors "github.com/listenupapp/bookcatalog/internal/errors"
	"github.com/listenupapp/bookcatalog/internal/http/response"
	"github.com/listenupapp/bookcatalog/internal/search"
)

const maxSearchLimit = 100

// handleSearch runs a ranked query over the mirrored books.
//
// Query parameters: q, genre, min_year, max_year, include_hidden, limit,
// offset, sort (relevance|title|year) and order (asc|desc).
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		response.Error(w, http.StatusServiceUnavailable, "search is not available", s.logger)
		return
	}

	params, err := parseSearchParams(r)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.logger.Debug("Search request received",
		"query", params.Query,
		"limit", params.Limit,
	)

	result, err := s.search.Search(r.Context(), params)
	if err != nil {
		s.logger.Error("Search failed", "error", err, "query", params.Query)
		response.InternalError(w, "Search failed", s.logger)
		return
	}

	response.Success(w, result, s.logger)
}

func parseSearchParams(r *http.Request) (search.Params, error) {
	q := r.URL.Query()
	params := search.DefaultParams()

	params.Query = strings.TrimSpace(q.Get("q"))
	params.Genre = strings.TrimSpace(q.Get("genre"))
	params.IncludeHidden = q.Get("include_hidden") == "true"

	ints := []struct {
		name string
		dst  *int
	}{
		{"min_year", &params.MinYear},
		{"max_year", &params.MaxYear},
		{"limit", &params.Limit},
		{"offset", &params.Offset},
	}
	for _, p := range ints {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return params, catalogerrors.Validationf("%s must be a non-negative integer", p.name)
		}
		*p.dst = v
	}
	switch {
	case params.Limit == 0:
		params.Limit = search.DefaultParams().Limit
	case params.Limit > maxSearchLimit:
		params.Limit = maxSearchLimit
	}

	switch sortBy := q.Get("sort"); sortBy {
	case "":
	case "relevance", "title", "year":
		params.SortBy = sortBy
	default:
		return params, catalogerrors.Validation("sort must be one of: relevance, title, year")
	}

	switch order := q.Get("order"); order {
	case "":
	case "asc", "desc":
		params.SortOrder = order
	default:
		return params, catalogerrors.Validation("order must be asc or desc")
	}

	return params, nil
}
