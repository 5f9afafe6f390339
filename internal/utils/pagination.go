// internal/utils/pagination.go
package utils

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 15
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*limit well inside int range.
	MaxPage = 1000000
)

type PaginationParams struct {
	Page        int    `json:"page"`
	Limit       int    `json:"limit"`
	Sort        string `json:"sort"`
	Order       string `json:"order"`
	Search      string `json:"search"`
	WithTrashed bool   `json:"with_trashed"`
}

type PaginationResult struct {
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
	Data       interface{} `json:"data"`
}

func GetPaginationParams(c *gin.Context) PaginationParams {
	return GetPaginationParamsWithLimit(c, DefaultPageSize)
}

func GetPaginationParamsWithLimit(c *gin.Context, defaultLimit int) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	withTrashed, _ := strconv.ParseBool(c.Query("with_trashed"))

	return NormalizePagination(PaginationParams{
		Page:        page,
		Limit:       limit,
		Sort:        c.DefaultQuery("sort", "created_at"),
		Order:       c.DefaultQuery("order", "desc"),
		Search:      c.Query("search"),
		WithTrashed: withTrashed,
	}, defaultLimit)
}

// NormalizePagination clamps page and limit into range and fills defaults.
func NormalizePagination(params PaginationParams, defaultLimit int) PaginationParams {
	if defaultLimit < 1 || defaultLimit > MaxPageSize {
		defaultLimit = DefaultPageSize
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Page > MaxPage {
		params.Page = MaxPage
	}
	if params.Limit < 1 || params.Limit > MaxPageSize {
		params.Limit = defaultLimit
	}
	if params.Order != "asc" && params.Order != "desc" {
		params.Order = "desc"
	}
	if params.Sort == "" {
		params.Sort = "created_at"
	}
	return params
}

func ApplyPagination(db *gorm.DB, params PaginationParams) *gorm.DB {
	offset := (params.Page - 1) * params.Limit
	return db.Offset(offset).Limit(params.Limit)
}

// ApplySort orders by params.Sort when it is allowed, otherwise by created_at.
// id is always the tie breaker so pages are stable.
func ApplySort(db *gorm.DB, params PaginationParams, allowedSortFields []string) *gorm.DB {
	sortField := "created_at"
	for _, field := range allowedSortFields {
		if field == params.Sort {
			sortField = field
			break
		}
	}

	return db.Order(sortField + " " + params.Order).Order("id " + params.Order)
}

func CreatePaginationResult(data interface{}, total int64, params PaginationParams) PaginationResult {
	totalPages := int(math.Ceil(float64(total) / float64(params.Limit)))

	return PaginationResult{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		Data:       data,
	}
}

func SetPaginationHeaders(c *gin.Context, result PaginationResult) {
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.Header("X-Page", strconv.Itoa(result.Page))
	c.Header("X-Per-Page", strconv.Itoa(result.Limit))
	c.Header("X-Total-Pages", strconv.Itoa(result.TotalPages))
}
