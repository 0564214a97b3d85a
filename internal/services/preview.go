package services

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const PreviewLength = 100

// Preview returns the first 100 characters of body, suffixed with "..."
// when it was cut.
func Preview(body string) string {
	if utf8.RuneCountInString(body) <= PreviewLength {
		return body
	}
	runes := []rune(body)
	return string(runes[:PreviewLength]) + "..."
}

const (
	DefaultInboxPageSize   = 20
	DefaultMessagePageSize = 50
	MaxPageSize            = 100
)

// Pagination describes one page of a listing.
type Pagination struct {
	Page     int
	PageSize int
	Total    int64
	Pages    int
	HasNext  bool
	HasPrev  bool
}

func normalizePage(page, pageSize, fallback int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = fallback
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func newPagination(page, pageSize int, total int64) Pagination {
	pages := 0
	if total > 0 {
		pages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return Pagination{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Pages:    pages,
		HasNext:  page < pages,
		HasPrev:  page > 1,
	}
}

func groupTitle(tenantName string) string {
	return fmt.Sprintf("Chat with %s", strings.TrimSpace(tenantName))
}
