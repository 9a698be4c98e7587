package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/neo/personasim/internal/database"
)

// PaginationParams contains pagination parameters
type PaginationParams struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total,omitempty"`
}

// DefaultPageSize is the default number of items per page
const DefaultPageSize = 20

// MaxPageSize is the maximum allowed page size
const MaxPageSize = 100

// GetPaginationParams extracts pagination parameters from the request
func GetPaginationParams(c *gin.Context) PaginationParams {
	params := PaginationParams{
		Page:     1,
		PageSize: DefaultPageSize,
	}

	if pageStr := c.Query("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			params.Page = page
		}
	}

	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		if pageSize, err := strconv.Atoi(pageSizeStr); err == nil && pageSize > 0 {
			if pageSize > MaxPageSize {
				pageSize = MaxPageSize
			}
			params.PageSize = pageSize
		}
	}

	return params
}

// CalculateOffset calculates the offset for SQL queries based on pagination parameters
func (p PaginationParams) CalculateOffset() int {
	return (p.Page - 1) * p.PageSize
}

// CalculateTotalPages calculates the total number of pages based on total items
func (p PaginationParams) CalculateTotalPages() int {
	if p.Total == 0 {
		return 0
	}
	totalPages := p.Total / p.PageSize
	if p.Total%p.PageSize > 0 {
		totalPages++
	}
	return totalPages
}

// BuildPaginationResponse builds a standardized pagination response
func BuildPaginationResponse(params PaginationParams, items any) gin.H {
	totalPages := params.CalculateTotalPages()

	return gin.H{
		"items": items,
		"pagination": gin.H{
			"page":        params.Page,
			"page_size":   params.PageSize,
			"total_items": params.Total,
			"total_pages": totalPages,
			"has_next":    params.Page < totalPages,
			"has_prev":    params.Page > 1,
		},
	}
}

// SendPaginatedResponse sends a paginated response
func SendPaginatedResponse(c *gin.Context, params PaginationParams, items any) {
	c.JSON(http.StatusOK, BuildPaginationResponse(params, items))
}

// GetSessionFilter combines the persona_id query parameter with paging.
// A malformed persona_id is rejected rather than ignored.
func GetSessionFilter(c *gin.Context, params PaginationParams) (database.SessionFilter, error) {
	filter := database.SessionFilter{
		Offset: params.CalculateOffset(),
		Limit:  params.PageSize,
	}

	if raw := c.Query("persona_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			return filter, fmt.Errorf("invalid persona_id %q", raw)
		}
		filter.PersonaID = id
	}

	return filter, nil
}
