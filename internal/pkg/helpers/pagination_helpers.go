package helpers

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/universys/universyslite/internal/app/models/dto"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultPage     = 1
)

// Page is a normalized 1-based page request.
type Page struct {
	Page int
	Size int
}

// NewPage clamps page and size to valid values.
func NewPage(page, size int) Page {
	if page < 1 {
		page = DefaultPage
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return Page{Page: page, Size: size}
}

// Offset returns the SQL offset of the page.
func (p Page) Offset() uint64 {
	return uint64((p.Page - 1) * p.Size)
}

// Limit returns the SQL limit of the page.
func (p Page) Limit() uint64 {
	return uint64(p.Size)
}

// NewPaginationInfo creates a standard PaginationInfo DTO.
func NewPaginationInfo(totalItems int64, p Page) dto.PaginationInfo {
	totalPages := 0
	if totalItems > 0 {
		totalPages = int(math.Ceil(float64(totalItems) / float64(p.Size)))
	} else if p.Page == 1 {
		totalPages = 1
	}

	currentPage := p.Page
	if totalPages > 0 && currentPage > totalPages {
		currentPage = totalPages
	}

	return dto.PaginationInfo{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		PageSize:    p.Size,
		TotalItems:  totalItems,
	}
}

// NewPaginatedResponse wraps a page of items with its pagination info.
func NewPaginatedResponse(items interface{}, totalItems int64, p Page) dto.PaginatedResponse {
	return dto.PaginatedResponse{
		Items:      items,
		Pagination: NewPaginationInfo(totalItems, p),
	}
}

// ParsePaginationParams extracts and validates pagination parameters from the request
func ParsePaginationParams(c *gin.Context) Page {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = DefaultPage
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(DefaultPageSize)))
	if err != nil {
		size = DefaultPageSize
	}
	return NewPage(page, size)
}
