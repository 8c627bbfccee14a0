package search

import (
	"strings"

	"bookfinder/internal/openlibrary"
)

// BookDTO is a search document flattened for display.
type BookDTO struct {
	Key              string   `json:"key"`
	WorkID           string   `json:"workId"`
	Title            string   `json:"title"`
	Authors          []string `json:"authors,omitempty"`
	FullAuthors      string   `json:"fullAuthors"` // joined authors for simple rendering
	Publishers       []string `json:"publishers,omitempty"`
	Languages        []string `json:"languages,omitempty"`
	LanguageNames    []string `json:"languageNames,omitempty"`
	FirstPublishYear *int     `json:"firstPublishYear,omitempty"`
	EditionCount     *int     `json:"editionCount,omitempty"`
	CoverURL         string   `json:"coverUrl,omitempty"`
}

// SearchResult is one page of books.
type SearchResult struct {
	Page  int       `json:"page"`
	Total *int      `json:"total"`
	Books []BookDTO `json:"books"`
}

// CoverFunc maps a cover id to an image URL.
type CoverFunc func(coverID int, size openlibrary.CoverSize) string

// NewBookDTO flattens d. A nil cover func uses the public covers host.
func NewBookDTO(d openlibrary.Document, cover CoverFunc) BookDTO {
	if cover == nil {
		cover = openlibrary.CoverURL
	}
	fullAuthors := strings.Join(d.AuthorNames, ", ")
	if fullAuthors == "" {
		fullAuthors = "Unknown"
	}
	b := BookDTO{
		Key:              d.Key,
		WorkID:           d.WorkID(),
		Title:            d.Title,
		Authors:          d.AuthorNames,
		FullAuthors:      fullAuthors,
		Publishers:       d.Publishers,
		Languages:        d.Languages,
		FirstPublishYear: d.FirstPublishYear,
		EditionCount:     d.EditionCount,
	}
	if b.Title == "" {
		b.Title = "Untitled"
	}
	for _, code := range d.Languages {
		if name := openlibrary.LanguageName(code); name != "" {
			b.LanguageNames = append(b.LanguageNames, name)
		}
	}
	if d.CoverID != nil {
		b.CoverURL = cover(*d.CoverID, openlibrary.CoverMedium)
	}
	return b
}

// NewBookDTOs flattens a slice of documents, keeping order.
func NewBookDTOs(docs []openlibrary.Document, cover CoverFunc) []BookDTO {
	out := make([]BookDTO, 0, len(docs))
	for _, d := range docs {
		out = append(out, NewBookDTO(d, cover))
	}
	return out
}
