package utils

import (
	"math"
	"net/http"
	"strconv"

	"gorm.io/gorm"
)

// Pagination holds the 1-based page parameters shared by every list
// endpoint. Values are passed through to the store as-is: page=0 yields a
// negative offset and the behavior is whatever the store does with it.
type Pagination struct {
	Page     int
	PageSize int
}

// ParsePagination reads page and pageSize from the query string, defaulting
// to page 1 with 10 items when a parameter is absent or unparsable.
func ParsePagination(r *http.Request) Pagination {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 1
	}
	pageSize, err := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if err != nil {
		pageSize = 10
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// Apply adds the offset/limit window to a query.
func (p Pagination) Apply(query *gorm.DB) *gorm.DB {
	return query.Offset((p.Page - 1) * p.PageSize).Limit(p.PageSize)
}

// TotalPages is ceil(totalItemCount / pageSize), 0 when nothing matched.
func (p Pagination) TotalPages(totalItemCount int64) int64 {
	if totalItemCount == 0 {
		return 0
	}
	return int64(math.Ceil(float64(totalItemCount) / float64(p.PageSize)))
}

// PageResponse builds the envelope every list endpoint returns.
func PageResponse(p Pagination, totalItemCount int64, data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"currentPage":    p.Page,
		"totalPages":     p.TotalPages(totalItemCount),
		"totalItemCount": totalItemCount,
		"data":           data,
	}
}
