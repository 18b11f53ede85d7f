package listctl

import (
	"strings"

	"github.com/codr1/drivewise-admin/internal/models"
)

// DefaultPageSize is the number of rows a table shows per page.
const DefaultPageSize = 7

// Filter is the client-side view applied over the rows a controller holds.
type Filter struct {
	// Status keeps only rows with exactly this status; "" or "all" disables it.
	Status string
	// Search is a case-insensitive substring matched against a row's search fields.
	Search   string
	Page     int
	PageSize int
}

// Page is one page of filtered rows.
type Page[T any] struct {
	Rows       []T
	Page       int
	PageSize   int
	TotalPages int
	// Matched counts rows that passed the filter, across all pages.
	Matched int
	// Held counts every row the controller holds, before filtering.
	Held int
}

func (p Page[T]) HasPrev() bool { return p.Page > 1 }
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages }
func (p Page[T]) PrevPage() int { return p.Page - 1 }
func (p Page[T]) NextPage() int { return p.Page + 1 }

// Apply returns the rows matching the status filter and the search text, in
// their original order.
func Apply[T any](rows []T, f Filter, status func(T) string, searchText func(T) []string) []T {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	filterStatus := !models.IsFilterAll(f.Status)

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if filterStatus && status(row) != f.Status {
			continue
		}
		if needle != "" && !matches(searchText(row), needle) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func matches(fields []string, needle string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Paginate slices rows into the requested 1-based page, clamping out-of-range
// page numbers to the nearest valid page.
func Paginate[T any](rows []T, page, size int) Page[T] {
	if size < 1 {
		size = DefaultPageSize
	}
	totalPages := (len(rows) + size - 1) / size
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	start := (page - 1) * size
	end := start + size
	if start > len(rows) {
		start = len(rows)
	}
	if end > len(rows) {
		end = len(rows)
	}

	return Page[T]{
		Rows:       rows[start:end],
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
		Matched:    len(rows),
	}
}
