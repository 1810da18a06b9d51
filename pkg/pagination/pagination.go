// Package pagination implements "load more" paging: page p of size n shows
// the first n*(p+1) items of a list.
package pagination

import (
	"math"
	"net/http"
	"strconv"
)

// MaxPerPage caps the per_page query parameter.
const MaxPerPage = 100

// Params selects a load-more window. Page is zero-based.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Normalize clamps negative pages to 0 and replaces a non-positive or
// oversized PerPage with defaultPerPage.
func (p Params) Normalize(defaultPerPage int) Params {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.PerPage <= 0 || p.PerPage > MaxPerPage {
		p.PerPage = defaultPerPage
	}
	return p
}

// Limit is the number of leading items visible at this page. It saturates at
// math.MaxInt instead of overflowing.
func (p Params) Limit() int {
	if p.PerPage <= 0 || p.Page < 0 {
		return 0
	}
	if p.Page >= math.MaxInt/p.PerPage-1 {
		return math.MaxInt
	}
	return p.PerPage * (p.Page + 1)
}

// Next returns the params for the following "load more" step.
func (p Params) Next() Params {
	p.Page++
	return p
}

// FromRequest reads page and per_page from the query string.
// Malformed values fall back to page 0 and defaultPerPage.
func FromRequest(r *http.Request, defaultPerPage int) Params {
	q := r.URL.Query()
	p := Params{}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil {
		p.PerPage = v
	}
	return p.Normalize(defaultPerPage)
}

// Window is the visible prefix of a list plus whether more items remain.
type Window[T any] struct {
	Items   []T  `json:"items"`
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
}

// Slice returns the window of all selected by p. Items is never nil.
func Slice[T any](all []T, p Params) Window[T] {
	n := p.Limit()
	if n > len(all) {
		n = len(all)
	}
	items := make([]T, n)
	copy(items, all[:n])
	return Window[T]{
		Items:   items,
		Page:    p.Page,
		PerPage: p.PerPage,
		Total:   len(all),
		HasNext: len(all) > n,
	}
}
