// Package query implements the filter-then-paginate semantics shared by every
// list endpoint.
package query

import (
	"math"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps Offset from overflowing int. Any page past the data is
	// empty, so clamping does not change results.
	MaxPage = math.MaxInt / MaxPageSize
)

// Params is a search string, an optional status equality filter and a page request
type Params struct {
	Search   string `json:"q,omitempty"`
	Status   string `json:"status,omitempty"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// Normalize clamps the page request into range
func (p Params) Normalize() Params {
	p.Search = strings.TrimSpace(p.Search)
	p.Status = strings.TrimSpace(p.Status)
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset of the first record on the page. Page 1 starts at 0.
func (p Params) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.PageSize
}

// Page is one page of a filtered result set
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPage wraps items already sliced for p. total is the size of the whole
// filtered set.
func NewPage[T any](items []T, total int, p Params) Page[T] {
	p = p.Normalize()
	if items == nil {
		items = []T{}
	}
	pages := 0
	if total > 0 {
		pages = (total + p.PageSize - 1) / p.PageSize
	}
	return Page[T]{
		Items:      items,
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: pages,
	}
}

// Matches reports whether q is a case-insensitive substring of any field.
// An empty q matches everything.
func Matches(q string, fields ...string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// StatusMatches is the equality filter; an empty want matches everything
func StatusMatches(want, got string) bool {
	return want == "" || strings.EqualFold(want, got)
}

// Filter keeps the items for which keep returns true, preserving order
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Paginate slices an already filtered set. Past-the-end pages are empty.
func Paginate[T any](items []T, p Params) Page[T] {
	p = p.Normalize()
	start := p.Offset()
	if start < 0 || start > len(items) {
		start = len(items)
	}
	end := start + p.PageSize
	if end < start || end > len(items) {
		end = len(items)
	}
	page := make([]T, end-start)
	copy(page, items[start:end])
	return NewPage(page, len(items), p)
}
