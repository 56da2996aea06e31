package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/syllabind/core/internal/pkg/response"
)

const (
	DefaultPage = 1
	DefaultSize = 10
	MaxSize     = 100
)

// Query holds parsed pagination parameters.
type Query struct {
	Page int
	Size int
}

// FromContext extracts and validates pagination params from the request.
func FromContext(c *gin.Context) Query {
	page := parseIntOr(c.DefaultQuery("page", "1"), DefaultPage)
	size := parseIntOr(c.DefaultQuery("size", "10"), DefaultSize)

	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	return Query{Page: page, Size: size}
}

// Slice paginates an already-loaded slice. Both index backends hand the
// service the full (filtered) collection, so limit/offset never reaches the
// store.
func Slice[T any](items []T, q Query) ([]T, response.Pagination) {
	total := int64(len(items))
	tp := totalPages(total, q.Size)

	start := (q.Page - 1) * q.Size
	if start > len(items) {
		start = len(items)
	}
	end := start + q.Size
	if end > len(items) {
		end = len(items)
	}

	return items[start:end], response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   tp,
		Size:        q.Size,
		HasNextPage: q.Page < tp,
	}
}

func totalPages(total int64, size int) int {
	if size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
