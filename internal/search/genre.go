package search

import (
	"regexp"
	"strings"
)

var (
	genreSeparatorRe = regexp.MustCompile(`[\s_/]+`)
	genreInvalidRe   = regexp.MustCompile(`[^a-z0-9-]`)
	genreDashesRe    = regexp.MustCompile(`-+`)
)

// GenreKey reduces a free-form genre to the key the index filters on, so
// "Science Fiction", "science_fiction" and "SCIENCE-FICTION" all match.
//
//	"Sci-Fi / Fantasy" → "sci-fi-fantasy"
//	"  Romance! "      → "romance"
func GenreKey(genre string) string {
	s := strings.ToLower(strings.TrimSpace(genre))
	s = genreSeparatorRe.ReplaceAllString(s, "-")
	s = genreInvalidRe.ReplaceAllString(s, "")
	s = genreDashesRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
