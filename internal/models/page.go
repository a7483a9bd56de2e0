package models

import (
	"fmt"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is the list envelope returned by every collection endpoint.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// NewPage wraps items with pagination metadata. pages is ceil(total/limit).
func NewPage[T any](items []T, total, page, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: PageCount(total, limit),
	}
}

// PageCount returns ceil(total/limit), or 0 when limit is not positive.
func PageCount(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// PageParams are the validated page/limit query parameters.
type PageParams struct {
	Page  int
	Limit int
}

// Offset is the number of rows preceding this page.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePageParams reads page and limit, applying defaults for empty values.
// Non-numeric or non-positive values are rejected; limit is capped at MaxLimit.
func ParsePageParams(page, limit string) (PageParams, error) {
	p := PageParams{Page: DefaultPage, Limit: DefaultLimit}
	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return p, fmt.Errorf("%w: page must be a positive integer", ErrInvalid)
		}
		p.Page = n
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return p, fmt.Errorf("%w: limit must be a positive integer", ErrInvalid)
		}
		p.Limit = min(n, MaxLimit)
	}
	return p, nil
}
