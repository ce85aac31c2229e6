// Package filter translates declarative filter clauses into parameterized SQL
// predicates over an explicit allow-list of columns.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Comparator is the operator of a filter clause.
type Comparator string

const (
	Equal        Comparator = "="
	NotEqual     Comparator = "<>"
	In           Comparator = "IN"
	GreaterEqual Comparator = ">="
	LessEqual    Comparator = "<="
	Greater      Comparator = ">"
	Less         Comparator = "<"
)

func (c Comparator) valid() bool {
	switch c {
	case Equal, NotEqual, In, GreaterEqual, LessEqual, Greater, Less:
		return true
	}
	return false
}

func (c Comparator) ranged() bool {
	switch c {
	case GreaterEqual, LessEqual, Greater, Less:
		return true
	}
	return false
}

// Kind determines how a clause value is parsed and compared.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindDate
	KindID
	KindBool
)

// Column is the joined-table column a public field name resolves to.
type Column struct {
	Expr   string
	Kind   Kind
	Ranged bool
}

// Clause is one filter as supplied by the caller.
type Clause struct {
	Field      string
	Comparator Comparator
	Value      string
}

// Predicate is a single parameterized fragment using gorm named parameters.
type Predicate struct {
	SQL    string
	Params map[string]any
}

// ValidationError reports a clause that cannot be translated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid filter %q: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var (
	columnRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*\.[a-z_][a-z0-9_]*$`)
	fieldRe  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
)

// FieldMap is the enumerated set of filterable fields of one entity.
type FieldMap struct {
	columns map[string]Column
}

// NewFieldMap validates the entries and returns the map.
func NewFieldMap(entries map[string]Column) (FieldMap, error) {
	if len(entries) == 0 {
		return FieldMap{}, errors.New("field map has no entries")
	}
	columns := make(map[string]Column, len(entries))
	for name, col := range entries {
		if !fieldRe.MatchString(name) {
			return FieldMap{}, fmt.Errorf("field name %q is not a plain identifier", name)
		}
		if !columnRe.MatchString(col.Expr) {
			return FieldMap{}, fmt.Errorf("column %q for field %q is not a table.column reference", col.Expr, name)
		}
		if col.Ranged && (col.Kind == KindText || col.Kind == KindBool || col.Kind == KindID) {
			return FieldMap{}, fmt.Errorf("field %q cannot be ranged", name)
		}
		columns[name] = col
	}
	return FieldMap{columns: columns}, nil
}

// MustFieldMap is NewFieldMap for package-level tables; it panics on a bad table.
func MustFieldMap(entries map[string]Column) FieldMap {
	m, err := NewFieldMap(entries)
	if err != nil {
		panic(err)
	}
	return m
}

// Lookup returns the column for a public field name.
func (m FieldMap) Lookup(field string) (Column, bool) {
	col, ok := m.columns[field]
	return col, ok
}

// Fields returns the sorted public field names.
func (m FieldMap) Fields() []string {
	names := make([]string, 0, len(m.columns))
	for name := range m.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Translate turns clauses into predicates. Any invalid clause rejects the whole list.
func Translate(fields FieldMap, clauses []Clause) ([]Predicate, error) {
	preds := make([]Predicate, 0, len(clauses))
	for i, cl := range clauses {
		col, ok := fields.Lookup(cl.Field)
		if !ok {
			return nil, &ValidationError{Field: cl.Field, Reason: "unknown field"}
		}
		pred, err := translateOne(col, cl, fmt.Sprintf("%s_%d", cl.Field, i))
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}
	return preds, nil
}

func translateOne(col Column, cl Clause, param string) (Predicate, error) {
	cmp := Comparator(strings.ToUpper(strings.TrimSpace(string(cl.Comparator))))
	if !cmp.valid() {
		return Predicate{}, &ValidationError{Field: cl.Field, Reason: fmt.Sprintf("unsupported comparator %q", cl.Comparator)}
	}
	if cmp.ranged() && !col.Ranged {
		return Predicate{}, &ValidationError{Field: cl.Field, Reason: fmt.Sprintf("comparator %s is not allowed", cmp)}
	}
	if col.Kind == KindBool && cmp == In {
		return Predicate{}, &ValidationError{Field: cl.Field, Reason: "IN is not allowed"}
	}

	lhs, rhs := col.Expr, "@"+param
	if col.Kind == KindText {
		lhs = "LOWER(" + col.Expr + ")"
	}

	if cmp == In {
		parts := strings.Split(cl.Value, ",")
		values := make([]any, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				return Predicate{}, &ValidationError{Field: cl.Field, Reason: "IN list contains an empty value"}
			}
			v, err := parseValue(col.Kind, part)
			if err != nil {
				return Predicate{}, &ValidationError{Field: cl.Field, Reason: err.Error()}
			}
			values = append(values, v)
		}
		if len(values) == 0 {
			return Predicate{}, &ValidationError{Field: cl.Field, Reason: "IN requires at least one value"}
		}
		return Predicate{
			SQL:    fmt.Sprintf("%s IN %s", lhs, rhs),
			Params: map[string]any{param: values},
		}, nil
	}

	v, err := parseValue(col.Kind, strings.TrimSpace(cl.Value))
	if err != nil {
		return Predicate{}, &ValidationError{Field: cl.Field, Reason: err.Error()}
	}
	return Predicate{
		SQL:    fmt.Sprintf("%s %s %s", lhs, cmp, rhs),
		Params: map[string]any{param: v},
	}, nil
}

func parseValue(kind Kind, raw string) (any, error) {
	switch kind {
	case KindText:
		return strings.ToLower(raw), nil
	case KindNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		return f, nil
	case KindDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC(), nil
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not a date", raw)
		}
		return t.UTC(), nil
	case KindID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not an id", raw)
		}
		return id.String(), nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", raw)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown value kind %d", kind)
}
