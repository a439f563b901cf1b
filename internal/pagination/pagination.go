// Package pagination slices ordered result sets into numbered pages.
package pagination

import (
	"strconv"
	"strings"
)

// DefaultPerPage is the page size used when none is configured.
const DefaultPerPage = 10

// Page is one slice of a feed plus the numbers needed to render navigation.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Number      int   `json:"number"`
	NumPages    int   `json:"num_pages"`
	Count       int64 `json:"count"`
	PerPage     int   `json:"per_page"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
	// StartIndex and EndIndex are 1-based positions of the first and last item; both 0 when empty.
	StartIndex int64 `json:"start_index"`
	EndIndex   int64 `json:"end_index"`
}

// Paginator resolves page numbers against a total count.
type Paginator struct {
	PerPage int
}

// New returns a Paginator, falling back to DefaultPerPage for non-positive sizes.
func New(perPage int) Paginator {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return Paginator{PerPage: perPage}
}

// NumPages is ceil(count/PerPage), and at least 1 so an empty feed still has a page.
func (p Paginator) NumPages(count int64) int {
	if count <= 0 {
		return 1
	}
	per := int64(p.PerPage)
	return int((count + per - 1) / per)
}

// ParseNumber turns a raw page parameter into a number >= 1. Anything unparseable is page 1.
func ParseNumber(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Resolve clamps a raw page parameter to [1, NumPages].
func (p Paginator) Resolve(raw string, count int64) int {
	n := ParseNumber(raw)
	if last := p.NumPages(count); n > last {
		return last
	}
	return n
}

// Window returns the LIMIT/OFFSET for page number n.
func (p Paginator) Window(n int) (limit, offset int) {
	return p.PerPage, (n - 1) * p.PerPage
}

// NewPage assembles a Page from a resolved number, the total count and the fetched items.
func NewPage[T any](p Paginator, number int, count int64, items []T) Page[T] {
	numPages := p.NumPages(count)
	if items == nil {
		items = []T{}
	}
	page := Page[T]{
		Items:       items,
		Number:      number,
		NumPages:    numPages,
		Count:       count,
		PerPage:     p.PerPage,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
	if len(items) > 0 {
		page.StartIndex = int64((number-1)*p.PerPage) + 1
		page.EndIndex = page.StartIndex + int64(len(items)) - 1
	}
	return page
}
