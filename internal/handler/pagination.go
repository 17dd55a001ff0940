package handler

import (
	"math"
	"net/http"
	"strconv"
)

// Public listing page sizes.
const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Pagination is the metadata block of paginated post and comment lists.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// parsePage reads page and limit query parameters, falling back to page 1
// and defaultPerPage and clamping limit to maxPerPage. page is clamped so
// its offset fits in an int.
func parsePage(r *http.Request) (page, perPage int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err = strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	if maxPage := math.MaxInt / perPage; page > maxPage {
		page = maxPage
	}
	return page, perPage
}

func newPagination(page, perPage int, total int64) Pagination {
	return Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: int((total + int64(perPage) - 1) / int64(perPage)),
	}
}

func offset(page, perPage int) int {
	return (page - 1) * perPage
}
