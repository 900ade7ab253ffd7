package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePaginationDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/groups", nil)
	pg := ParsePagination(r)
	assert.Equal(t, 1, pg.Page)
	assert.Equal(t, 10, pg.PageSize)

	r = httptest.NewRequest("GET", "/groups?page=3&pageSize=5", nil)
	pg = ParsePagination(r)
	assert.Equal(t, 3, pg.Page)
	assert.Equal(t, 5, pg.PageSize)

	r = httptest.NewRequest("GET", "/groups?page=abc&pageSize=xyz", nil)
	pg = ParsePagination(r)
	assert.Equal(t, 1, pg.Page)
	assert.Equal(t, 10, pg.PageSize)
}

// page=0 is not defended against: it parses and flows through to the store
// as a negative offset.
func TestParsePaginationPassesThroughZeroPage(t *testing.T) {
	r := httptest.NewRequest("GET", "/groups?page=0", nil)
	pg := ParsePagination(r)
	assert.Equal(t, 0, pg.Page)
}

func TestTotalPages(t *testing.T) {
	pg := Pagination{Page: 1, PageSize: 10}
	assert.Equal(t, int64(0), pg.TotalPages(0))
	assert.Equal(t, int64(1), pg.TotalPages(10))
	assert.Equal(t, int64(2), pg.TotalPages(11))
	assert.Equal(t, int64(2), pg.TotalPages(15))
	assert.Equal(t, int64(2), pg.TotalPages(20))
}

func TestPageResponseEnvelope(t *testing.T) {
	pg := Pagination{Page: 2, PageSize: 10}
	data := []string{"a", "b"}

	resp := PageResponse(pg, 15, data)
	assert.Equal(t, 2, resp["currentPage"])
	assert.Equal(t, int64(2), resp["totalPages"])
	assert.Equal(t, int64(15), resp["totalItemCount"])
	assert.Equal(t, data, resp["data"])
}
