// Package query composes the two-stage listing/application queries: an inner
// selector that filters, deduplicates, orders and pages top-level IDs, and an
// outer query that loads full entity graphs for exactly those IDs.
package query

import (
	"fmt"
	"slices"
	"strings"

	"gorm.io/gorm"

	"housing-listings-backend/internal/filter"
)

// Base describes a top-level entity and the joins its filters need.
type Base struct {
	Table    string
	IDColumn string
	Joins    []string
}

// Order is one ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

func (o Order) String() string {
	if o.Desc {
		return o.Column + " DESC"
	}
	return o.Column + " ASC"
}

// Spec is an immutable description of a paged, filtered, ordered query.
// The With* methods return modified copies.
type Spec struct {
	base   Base
	preds  []filter.Predicate
	orders []Order
	page   int
	limit  int
}

// New starts a spec for the given entity with no filters, default order and no paging.
func New(base Base) Spec {
	return Spec{base: base}
}

// WithFilter returns a copy with the predicates ANDed to the existing ones.
func (s Spec) WithFilter(preds ...filter.Predicate) Spec {
	s.preds = append(slices.Clip(s.preds), preds...)
	return s
}

// WithOrder returns a copy with the orders appended.
func (s Spec) WithOrder(orders ...Order) Spec {
	s.orders = append(slices.Clip(s.orders), orders...)
	return s
}

// WithPage returns a copy targeting the given page. Either value ≤ 0 selects every row.
func (s Spec) WithPage(page, limit int) Spec {
	s.page, s.limit = page, limit
	return s
}

// Paged reports whether both page and limit are positive.
func (s Spec) Paged() bool {
	return s.page > 0 && s.limit > 0
}

// Page returns the requested page.
func (s Spec) Page() int { return s.page }

// Limit returns the requested page size.
func (s Spec) Limit() int { return s.limit }

// Predicates returns a copy of the filter predicates.
func (s Spec) Predicates() []filter.Predicate { return slices.Clone(s.preds) }

// Orders returns the effective ordering, always ending with the ID column.
func (s Spec) Orders() []Order {
	orders := slices.Clone(s.orders)
	for _, o := range orders {
		if o.Column == s.base.IDColumn {
			return orders
		}
	}
	return append(orders, Order{Column: s.base.IDColumn})
}

// Offset returns the number of IDs skipped for the requested page.
func (s Spec) Offset() int {
	if !s.Paged() {
		return 0
	}
	return (s.page - 1) * s.limit
}

// selector builds the inner ID query. Joins fan out rows, so IDs are grouped.
func (s Spec) selector(db *gorm.DB, ordered bool) *gorm.DB {
	tx := db.Table(s.base.Table).Select(s.base.IDColumn)
	for _, j := range s.base.Joins {
		tx = tx.Joins(j)
	}
	for _, p := range s.preds {
		tx = tx.Where(p.SQL, p.Params)
	}
	tx = tx.Group(s.base.IDColumn)
	if ordered {
		tx = tx.Order(orderClause(s.Orders()))
	}
	return tx
}

// Inner returns the ordered inner selector including OFFSET/LIMIT when paged.
func (s Spec) Inner(db *gorm.DB) *gorm.DB {
	tx := s.selector(db, true)
	if s.Paged() {
		tx = tx.Offset(s.Offset()).Limit(s.limit)
	}
	return tx
}

// Count returns the count-only query over the filtered selector, ignoring paging.
// The subquery and the outer query each get their own session so they never share
// a statement.
func (s Spec) Count(db *gorm.DB) *gorm.DB {
	sub := s.selector(db.Session(&gorm.Session{}), false)
	return db.Session(&gorm.Session{}).Table("(?) AS matched", sub)
}

// Outer restricts db to the given IDs and applies the orders at the outer level.
func (s Spec) Outer(db *gorm.DB, ids []string) *gorm.DB {
	return db.Where(s.base.IDColumn+" IN ?", ids).Order(orderClause(s.Orders()))
}

func orderClause(orders []Order) string {
	terms := make([]string, len(orders))
	for i, o := range orders {
		terms[i] = o.String()
	}
	return strings.Join(terms, ", ")
}

// SortMap enumerates the public sort keys of one entity.
type SortMap map[string]string

// Resolve maps parallel key/direction lists onto orders. Directions default to asc.
func (m SortMap) Resolve(keys, dirs []string) ([]Order, error) {
	if len(dirs) > len(keys) {
		return nil, &filter.ValidationError{Field: "orderDir", Reason: "more directions than orderBy keys"}
	}
	orders := make([]Order, 0, len(keys))
	for i, key := range keys {
		col, ok := m[key]
		if !ok {
			return nil, &filter.ValidationError{Field: "orderBy", Reason: fmt.Sprintf("unknown sort key %q", key)}
		}
		o := Order{Column: col}
		if i < len(dirs) {
			switch strings.ToLower(dirs[i]) {
			case "asc", "":
			case "desc":
				o.Desc = true
			default:
				return nil, &filter.ValidationError{Field: "orderDir", Reason: fmt.Sprintf("unknown direction %q", dirs[i])}
			}
		}
		orders = append(orders, o)
	}
	return orders, nil
}
