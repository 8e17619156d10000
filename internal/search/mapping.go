package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for book documents.
//
// Title and author are stored for hit display and carry term vectors for
// highlighting. genre_key holds GenreKey for exact filtering.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	authorFieldMapping := bleve.NewTextFieldMapping()
	authorFieldMapping.Analyzer = en.AnalyzerName
	authorFieldMapping.Store = true
	authorFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("author", authorFieldMapping)

	// Searchable but not stored
	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = en.AnalyzerName
	descFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	genreFieldMapping := bleve.NewTextFieldMapping()
	genreFieldMapping.Analyzer = keyword.Name
	genreFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("genre", genreFieldMapping)

	genreKeyFieldMapping := bleve.NewTextFieldMapping()
	genreKeyFieldMapping.Analyzer = keyword.Name
	genreKeyFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("genre_key", genreKeyFieldMapping)

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	yearFieldMapping := bleve.NewNumericFieldMapping()
	yearFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("release_year", yearFieldMapping)

	hiddenFieldMapping := bleve.NewBooleanFieldMapping()
	docMapping.AddFieldMappingsAt("hidden", hiddenFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
