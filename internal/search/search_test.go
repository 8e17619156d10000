package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bookcatalog/internal/domain"
)

// setupTestIndex creates an in-memory index for testing.
func setupTestIndex(t *testing.T) *Index {
	t.Helper()

	index, err := NewIndex(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return index
}

func sampleBooks() []domain.Book {
	return []domain.Book{
		{ID: "1", Title: "Dune", Author: "Frank Herbert", Description: "A desert planet and its spice", Genre: "Science Fiction", ReleaseYear: 1965},
		{ID: "2", Title: "Emma", Author: "Jane Austen", Description: "A matchmaker in a village", Genre: "Romance", ReleaseYear: 1815},
		{ID: "3", Title: "Persuasion", Author: "Jane Austen", Description: "Second chances", Genre: "Romance", ReleaseYear: 1817},
		{ID: "4", Title: "Dune Messiah", Author: "Frank Herbert", Genre: "Science Fiction", ReleaseYear: 1969, IsHidden: true},
	}
}

func setupSyncedIndex(t *testing.T) *Index {
	t.Helper()
	index := setupTestIndex(t)
	require.NoError(t, index.Sync(1, sampleBooks()))
	return index
}

func hitIDs(res *Result) []string {
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func TestNewIndex(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
	assert.Zero(t, index.Generation())
}

func TestIndex_Sync(t *testing.T) {
	index := setupSyncedIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)

	// Removing books from the mirror removes their documents.
	require.NoError(t, index.Sync(2, sampleBooks()[:2]))
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
	assert.Equal(t, uint64(2), index.Generation())
}

func TestIndex_Sync_IgnoresOlderGeneration(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.Sync(5, sampleBooks()[:1]))
	require.NoError(t, index.Sync(3, sampleBooks()))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	assert.Equal(t, uint64(5), index.Generation())
}

func TestIndex_Sync_SkipsBooksWithoutID(t *testing.T) {
	index := setupTestIndex(t)

	books := append(sampleBooks()[:1], domain.Book{Message: "Book updated successfully"})
	require.NoError(t, index.Sync(1, books))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSearch(t *testing.T) {
	index := setupSyncedIndex(t)

	tests := []struct {
		name   string
		params Params
		want   []string
	}{
		{name: "title", params: Params{Query: "emma"}, want: []string{"2"}},
		{name: "author", params: Params{Query: "austen"}, want: []string{"2", "3"}},
		{name: "stemmed description", params: Params{Query: "planets"}, want: []string{"1"}},
		{name: "typo in title", params: Params{Query: "Dume"}, want: []string{"1"}},
		{name: "prefix", params: Params{Query: "pers"}, want: []string{"3"}},
		{name: "genre filter", params: Params{Genre: "romance"}, want: []string{"2", "3"}},
		{name: "genre is case-insensitive", params: Params{Genre: "SCIENCE FICTION"}, want: []string{"1"}},
		{name: "genre separators fold", params: Params{Genre: "science_fiction"}, want: []string{"1"}},
		{name: "year range", params: Params{MinYear: 1816, MaxYear: 1965}, want: []string{"1", "3"}},
		{name: "hidden included", params: Params{Query: "herbert", IncludeHidden: true}, want: []string{"1", "4"}},
		{name: "no match", params: Params{Query: "zzzzzz"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := index.Search(context.Background(), tt.params)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, hitIDs(res))
		})
	}
}

func TestSearch_HidesHiddenByDefault(t *testing.T) {
	index := setupSyncedIndex(t)

	res, err := index.Search(context.Background(), Params{Query: "dune"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, hitIDs(res))
}

func TestSearch_SortByYear(t *testing.T) {
	index := setupSyncedIndex(t)

	res, err := index.Search(context.Background(), Params{SortBy: "year", SortOrder: "asc", IncludeHidden: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3", "1", "4"}, hitIDs(res))
	assert.Equal(t, 1815, res.Hits[0].ReleaseYear)
}

func TestSearch_StoredFields(t *testing.T) {
	index := setupSyncedIndex(t)

	res, err := index.Search(context.Background(), Params{Query: "persuasion"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)

	hit := res.Hits[0]
	assert.Equal(t, "Persuasion", hit.Title)
	assert.Equal(t, "Jane Austen", hit.Author)
	assert.Equal(t, "Romance", hit.Genre)
	assert.NotEmpty(t, hit.Highlights)
}

func TestMatchingIDs(t *testing.T) {
	index := setupSyncedIndex(t)

	ids, err := index.MatchingIDs(context.Background(), "herbert")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "4"}, ids)

	empty := setupTestIndex(t)
	ids, err = empty.MatchingIDs(context.Background(), "herbert")
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}
