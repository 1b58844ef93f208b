package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// ParsePagination reads ?page and ?limit, clamping bad values to defaults.
func ParsePagination(c *gin.Context) Pagination {
	return NewPagination(c.Query("page"), c.Query("limit"))
}

func NewPagination(page, limit string) Pagination {
	p := Pagination{Page: 1, Limit: DefaultPageSize}
	if v, err := strconv.Atoi(page); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(limit); err == nil && v > 0 {
		p.Limit = min(v, MaxPageSize)
	}
	return p
}

// Normalize applies defaults to a zero or out-of-range pagination.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	p.Limit = min(p.Limit, MaxPageSize)
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

func (p Pagination) Meta(total int64) PageMeta {
	pages := total / int64(p.Limit)
	if total%int64(p.Limit) != 0 {
		pages++
	}
	return PageMeta{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}
