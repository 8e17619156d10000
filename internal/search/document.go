// Package search provides full-text search over the mirrored catalog using Bleve.
// The index is held in memory and rebuilt from the mirror on every change, so it
// never holds anything the catalog does not.
package search

import (
	"strings"

	"github.com/listenupapp/bookcatalog/internal/domain"
)

// BookDocument is the indexed form of a book.
type BookDocument struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
	Genre       string `json:"genre,omitempty"`
	GenreKey    string `json:"genre_key,omitempty"`
	ReleaseYear int    `json:"release_year,omitempty"`
	Hidden      bool   `json:"hidden"`
}

// NewBookDocument converts a book.
func NewBookDocument(b domain.Book) *BookDocument {
	return &BookDocument{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		Genre:       strings.TrimSpace(b.Genre),
		GenreKey:    GenreKey(b.Genre),
		ReleaseYear: b.ReleaseYear,
		Hidden:      b.IsHidden,
	}
}

// ToMap converts the document to a map keyed by the mapped field names.
func (d *BookDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":     d.ID,
		"title":  d.Title,
		"hidden": d.Hidden,
	}
	if d.Author != "" {
		m["author"] = d.Author
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Genre != "" {
		m["genre"] = d.Genre
	}
	if d.GenreKey != "" {
		m["genre_key"] = d.GenreKey
	}
	if d.ReleaseYear != 0 {
		m["release_year"] = float64(d.ReleaseYear)
	}
	return m
}
