// Package domain contains the data shapes exchanged with the book storage service.
package domain

import "time"

// Default values substituted for falsy fields of a new book.
const (
	DefaultTitle       = "New Book Title"
	DefaultAuthor      = "New Author"
	DefaultDescription = "New book description default"
	DefaultGenre       = "Fiction"
	DefaultImageURL    = "https://picsum.photos/500/500"
)

// Book is a catalog record as stored by the book service.
type Book struct {
	ID          string `json:"_id" validate:"required"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	ImageURL    string `json:"imageURL"`
	ReleaseYear int    `json:"releaseYear"`
	IsHidden    bool   `json:"ishidden"`

	// Message holds the raw body of an update reply that was not JSON.
	// A record carrying a message has no other fields set.
	Message string `json:"message,omitempty"`
}

// NewBook is a creation request; the service assigns the identity.
type NewBook struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	ImageURL    string `json:"imageURL"`
	ReleaseYear int    `json:"releaseYear"`
	IsHidden    bool   `json:"ishidden"`
}

// BookPatch is a partial update. Only non-nil fields are sent.
type BookPatch struct {
	Title       *string `json:"title,omitempty"`
	Author      *string `json:"author,omitempty"`
	Description *string `json:"description,omitempty"`
	Genre       *string `json:"genre,omitempty"`
	ImageURL    *string `json:"imageURL,omitempty"`
	ReleaseYear *int    `json:"releaseYear,omitempty"`
	IsHidden    *bool   `json:"ishidden,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p BookPatch) IsEmpty() bool {
	return p.Title == nil && p.Author == nil && p.Description == nil &&
		p.Genre == nil && p.ImageURL == nil && p.ReleaseYear == nil && p.IsHidden == nil
}

// ApplyDefaults returns a copy of b where every zero-valued field is replaced
// by its default. A release year of 0 becomes the year of now.
// Caller-supplied zero values are overwritten too; zero is indistinguishable from unset.
func ApplyDefaults(b NewBook, now time.Time) NewBook {
	if b.Title == "" {
		b.Title = DefaultTitle
	}
	if b.Author == "" {
		b.Author = DefaultAuthor
	}
	if b.Description == "" {
		b.Description = DefaultDescription
	}
	if b.Genre == "" {
		b.Genre = DefaultGenre
	}
	if b.ImageURL == "" {
		b.ImageURL = DefaultImageURL
	}
	if b.ReleaseYear == 0 {
		b.ReleaseYear = now.Year()
	}
	return b
}

// IndexOfBook returns the position of the first book with the given id, or -1.
func IndexOfBook(books []Book, id string) int {
	for i := range books {
		if books[i].ID == id {
			return i
		}
	}
	return -1
}
