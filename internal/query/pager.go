package query

import (
	"context"
	"fmt"
	"math"

	"gorm.io/gorm"

	"housing-listings-backend/internal/filter"
)

// Meta is the pagination metadata returned with every page.
type Meta struct {
	CurrentPage  int `json:"currentPage"`
	ItemCount    int `json:"itemCount"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalItems   int `json:"totalItems"`
	TotalPages   int `json:"totalPages"`
}

// Paginated is one page of items plus its metadata.
type Paginated[T any] struct {
	Items []T `json:"items"`
	Meta  Meta `json:"meta"`
}

// NewMeta computes consistent metadata. A non-positive page or limit describes a
// single page holding every row.
func NewMeta(page, limit, itemCount, totalItems int) Meta {
	if page <= 0 || limit <= 0 {
		pages := 0
		if totalItems > 0 {
			pages = 1
		}
		return Meta{
			CurrentPage:  1,
			ItemCount:    itemCount,
			ItemsPerPage: itemCount,
			TotalItems:   totalItems,
			TotalPages:   pages,
		}
	}
	return Meta{
		CurrentPage:  page,
		ItemCount:    itemCount,
		ItemsPerPage: limit,
		TotalItems:   totalItems,
		TotalPages:   (totalItems + limit - 1) / limit,
	}
}

// Loader fetches full entities from an outer query already restricted to one ID slice.
type Loader[T any] func(outer *gorm.DB) ([]T, error)

// Execute runs the inner selector, the outer load and, when paged, the count query.
func Execute[T any](ctx context.Context, db *gorm.DB, s Spec, load Loader[T]) (Paginated[T], error) {
	if s.Paged() && s.page-1 > math.MaxInt/s.limit {
		return Paginated[T]{}, &filter.ValidationError{Field: "page", Reason: fmt.Sprintf("page %d is out of range", s.page)}
	}
	tx := db.WithContext(ctx)

	var ids []string
	if err := s.Inner(tx).Pluck(s.base.IDColumn, &ids).Error; err != nil {
		return Paginated[T]{}, fmt.Errorf("failed to select %s ids: %w", s.base.Table, err)
	}

	items := []T{}
	if len(ids) > 0 {
		loaded, err := load(s.Outer(tx, ids))
		if err != nil {
			return Paginated[T]{}, fmt.Errorf("failed to load %s: %w", s.base.Table, err)
		}
		if loaded != nil {
			items = loaded
		}
	}

	total := len(items)
	if s.Paged() {
		var count int64
		if err := s.Count(tx).Count(&count).Error; err != nil {
			return Paginated[T]{}, fmt.Errorf("failed to count %s: %w", s.base.Table, err)
		}
		total = int(count)
	}

	return Paginated[T]{Items: items, Meta: NewMeta(s.page, s.limit, len(items), total)}, nil
}
