package common

import (
	"net/http"
	"strconv"
)

// Pagination is the metadata block attached to every list response.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// NewPagination derives full pagination metadata from a page, its size, and
// the total row count.
func NewPagination(page, perPage int, total int64) Pagination {
	if perPage < 1 {
		perPage = 1
	}
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	return Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: pages,
	}
}

// ParsePagination reads page and limit query parameters, falling back to def
// and clamping the page size to max so a single request cannot pull the whole
// table.
func ParsePagination(r *http.Request, def, max int) (page, perPage int) {
	page = 1
	perPage = def
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		perPage = l
	}
	if max > 0 && perPage > max {
		perPage = max
	}
	return
}
