// Package searchindex reads, validates and writes Documenter.jl search
// indexes, the search_index.js payload a Documenter site ships next to its
// pages.
package searchindex

import "errors"

// Category tags a fragment as a whole page body or as a section heading
type Category string

const (
	CategoryPage    Category = "page"
	CategorySection Category = "section"
)

// Valid reports whether c is one of the two categories Documenter emits
func (c Category) Valid() bool {
	return c == CategoryPage || c == CategorySection
}

// Fragment is one entry of the index: a page body paragraph or a named
// section within a page. Field order matches Documenter output.
type Fragment struct {
	Location string   `json:"location"` // URL fragment: "saving/#Saving-Plots"
	Page     string   `json:"page"`     // Human readable page title
	Title    string   `json:"title"`    // Section title (may be empty)
	Text     string   `json:"text"`     // Prose content (may be empty)
	Category Category `json:"category"`
}

// Index is the top-level search index object
type Index struct {
	Docs []Fragment `json:"docs"`
}

// Page groups the fragments sharing a page name
type Page struct {
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	Location  string     `json:"location"` // Location without the #anchor
	Fragments []Fragment `json:"fragments"`
}

// Sections returns the number of section fragments on the page
func (p Page) Sections() int {
	n := 0
	for _, f := range p.Fragments {
		if f.Category == CategorySection {
			n++
		}
	}
	return n
}

// Stats summarizes an index
type Stats struct {
	Fragments          int `json:"fragments"`
	Pages              int `json:"pages"`
	PageFragments      int `json:"page_fragments"`
	SectionFragments   int `json:"section_fragments"`
	EmptyTitles        int `json:"empty_titles"`
	EmptyTexts         int `json:"empty_texts"`
	DuplicateLocations int `json:"duplicate_locations"`
}

// Severity of a validation problem
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Problem is a single shape violation found by Validate
type Problem struct {
	Path     string   `json:"path"` // JSON pointer: "/docs/3/category"
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

var (
	// ErrSyntax is returned when the input is neither JSON nor a JS assignment of JSON
	ErrSyntax = errors.New("malformed search index")
	// ErrShape is returned when the input does not match the index schema
	ErrShape = errors.New("invalid search index shape")
	// ErrEmpty is returned by Check for an index without fragments
	ErrEmpty = errors.New("search index has no fragments")
	// ErrBadCategory is returned by Check for a category outside page/section
	ErrBadCategory = errors.New("unknown fragment category")
)
