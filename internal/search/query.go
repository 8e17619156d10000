package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a search query.
type Params struct {
	Query string // free text; empty matches everything

	// Filters
	Genre         string // compared by GenreKey
	MinYear       int
	MaxYear       int
	IncludeHidden bool

	// Pagination
	Limit  int
	Offset int

	// Sorting: "relevance" (default), "title", "year"
	SortBy    string
	SortOrder string // "asc", "desc"
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{
		Limit:     20,
		SortBy:    "relevance",
		SortOrder: "desc",
	}
}

// Result represents the search results.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit represents a single search result.
type Hit struct {
	ID          string            `json:"id"`
	Score       float64           `json:"score"`
	Title       string            `json:"title"`
	Author      string            `json:"author,omitempty"`
	Genre       string            `json:"genre,omitempty"`
	ReleaseYear int               `json:"release_year,omitempty"`
	Highlights  map[string]string `json:"highlights,omitempty"`
}

// Search executes a search query.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultParams().Limit
	}

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	addSorting(req, params)

	if params.Query != "" {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("title")
		req.Highlight.AddField("author")
	}
	req.Fields = []string{"title", "author", "genre", "release_year"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}

	for _, hit := range res.Hits {
		h := Hit{ID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["title"].(string); ok {
			h.Title = v
		}
		if v, ok := hit.Fields["author"].(string); ok {
			h.Author = v
		}
		if v, ok := hit.Fields["genre"].(string); ok {
			h.Genre = v
		}
		if v, ok := hit.Fields["release_year"].(float64); ok {
			h.ReleaseYear = int(v)
		}
		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// MatchingIDs returns the ids of all books matching text, hidden ones
// included, best match first.
func (s *Index) MatchingIDs(ctx context.Context, text string) ([]string, error) {
	count, err := s.DocumentCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []string{}, nil
	}

	params := DefaultParams()
	params.Query = text
	params.IncludeHidden = true
	params.Limit = int(count)

	res, err := s.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params Params) query.Query {
	var queries []query.Query

	if text := strings.TrimSpace(params.Query); text != "" {
		lower := strings.ToLower(text)

		titleMatch := bleve.NewMatchQuery(text)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		authorMatch := bleve.NewMatchQuery(text)
		authorMatch.SetField("author")
		authorMatch.SetBoost(1.5)

		descMatch := bleve.NewMatchQuery(text)
		descMatch.SetField("description")
		descMatch.SetBoost(0.5)

		// Typo tolerance on the title; fuzzy terms are not analyzed.
		fuzzy := bleve.NewFuzzyQuery(lower)
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("title")
		fuzzy.SetBoost(0.8)

		textQueries := []query.Query{titleMatch, authorMatch, descMatch, fuzzy}

		if len(lower) >= 2 {
			prefix := bleve.NewPrefixQuery(lower)
			prefix.SetField("title")
			prefix.SetBoost(0.5)
			textQueries = append(textQueries, prefix)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.Genre != "" {
		gq := bleve.NewTermQuery(GenreKey(params.Genre))
		gq.SetField("genre_key")
		queries = append(queries, gq)
	}

	if params.MinYear > 0 || params.MaxYear > 0 {
		lo := float64(params.MinYear)
		hi := float64(params.MaxYear)
		if params.MaxYear == 0 {
			hi = 3000 // Far future
		}
		inclusive := true
		rq := bleve.NewNumericRangeInclusiveQuery(&lo, &hi, &inclusive, &inclusive)
		rq.SetField("release_year")
		queries = append(queries, rq)
	}

	if !params.IncludeHidden {
		visible := bleve.NewBoolFieldQuery(false)
		visible.SetField("hidden")
		queries = append(queries, visible)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params Params) {
	desc := params.SortOrder == "desc"
	switch params.SortBy {
	case "title":
		if desc {
			req.SortBy([]string{"-title"})
		} else {
			req.SortBy([]string{"title"})
		}
	case "year":
		if desc {
			req.SortBy([]string{"-release_year", "_id"})
		} else {
			req.SortBy([]string{"release_year", "_id"})
		}
	default:
		req.SortBy([]string{"-_score", "_id"})
	}
}
