// Package query normalizes list requests and translates them into
// store-native SQL fragments. One Builder is configured per entity kind.
package query

import (
	"strings"

	"golang.org/x/text/cases"
)

const (
	// DefaultPageSize applies when the request omits a page size.
	DefaultPageSize = 10

	// SortAsc and SortDesc are the accepted sort directions.
	SortAsc  = "asc"
	SortDesc = "desc"

	// FilterAll is the sentinel meaning "no constraint" for a filter field.
	FilterAll = "All"
)

// Filters holds the normalized filter fields of a list request. A field
// that is absent or set to FilterAll produces no constraint.
type Filters struct {
	Search string
	Fields map[string]string
}

// Value returns the constraint value for a field, reporting false when the
// field is absent, empty, or the FilterAll sentinel.
func (f Filters) Value(name string) (string, bool) {
	v, ok := f.Fields[name]
	if !ok || v == "" || v == FilterAll {
		return "", false
	}
	return v, true
}

// WithField returns a copy of the filters with one field set. Used by
// handlers assembling filters from query parameters.
func (f Filters) WithField(name, value string) Filters {
	fields := make(map[string]string, len(f.Fields)+1)
	for k, v := range f.Fields {
		fields[k] = v
	}
	fields[name] = value
	return Filters{Search: f.Search, Fields: fields}
}

// Sort describes the single active sort field and direction.
type Sort struct {
	Field     string
	Direction string
}

// NormalizeDirection coerces the direction to asc or desc, defaulting to desc.
func NormalizeDirection(dir string) string {
	if strings.EqualFold(dir, SortAsc) {
		return SortAsc
	}
	return SortDesc
}

// Page describes the requested page window.
type Page struct {
	Number int
	Size   int
}

// Normalize coerces a page below 1 to 1 and a non-positive size to the
// default. Requests are never rejected for out-of-range paging values.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	return p
}

// Offset computes the number of rows to skip.
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.Size
}

var searchFolder = cases.Fold()

// NormalizeSearch trims and case-folds a free-text search term. ILIKE
// already matches case-insensitively; folding is about keeping equivalent
// spellings producing identical query arguments, not about matching.
func NormalizeSearch(term string) string {
	return searchFolder.String(strings.TrimSpace(term))
}
