package domain

import (
	"fmt"
	"strings"
	"time"
)

// CollectionStatus is the reading state of a book on a user's list.
type CollectionStatus string

// Reading states.
const (
	StatusToRead           CollectionStatus = "to-read"
	StatusCurrentlyReading CollectionStatus = "currently-reading"
	StatusRead             CollectionStatus = "read"
)

// Collection is a user's reading-list entry for a book.
// The catalog does not use it yet; it mirrors the service's data model.
type Collection struct {
	AddedAt time.Time        `json:"addedAt"`
	UserID  string           `json:"_userId" validate:"required"`
	BookID  string           `json:"_bookId" validate:"required"`
	Status  CollectionStatus `json:"status" validate:"required,oneof=to-read currently-reading read"`
}

// ParseCollectionStatus converts a string to a CollectionStatus.
// The older spelling "currently reading" is accepted as well.
func ParseCollectionStatus(s string) (CollectionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(StatusToRead):
		return StatusToRead, nil
	case string(StatusCurrentlyReading), "currently reading":
		return StatusCurrentlyReading, nil
	case string(StatusRead):
		return StatusRead, nil
	default:
		return "", fmt.Errorf("unknown collection status %q", s)
	}
}

// Review is a user's rating of a book.
type Review struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	BookID    string    `json:"_book" validate:"required"`
	CreatedBy string    `json:"_createdBy" validate:"required"`
	Comment   string    `json:"comment"`
	Rating    int       `json:"rating" validate:"gte=1,lte=5"`
}
