// Package parse turns list-endpoint query strings into filter clauses, sort keys and paging.
package parse

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"housing-listings-backend/internal/filter"
)

// comparisonKey is the reserved key naming a filter entry's comparator.
const comparisonKey = "$comparison"

var filterKeyRe = regexp.MustCompile(`^filter\[(\d+)\]\[([^\]]+)\]$`)

// ListQuery is the parsed form of a list request.
type ListQuery struct {
	Clauses  []filter.Clause
	OrderBy  []string
	OrderDir []string
	Page     int
	Limit    int
	Search   string
	View     string
}

// List parses values. An omitted page is 1 and an omitted limit is defaultLimit;
// limit=all yields 0, which callers treat as unpaged.
func List(values url.Values, defaultLimit int) (ListQuery, error) {
	clauses, err := Clauses(values)
	if err != nil {
		return ListQuery{}, err
	}
	page, limit, err := Paging(values, defaultLimit)
	if err != nil {
		return ListQuery{}, err
	}
	return ListQuery{
		Clauses:  clauses,
		OrderBy:  multi(values, "orderBy"),
		OrderDir: multi(values, "orderDir"),
		Page:     page,
		Limit:    limit,
		Search:   strings.TrimSpace(values.Get("search")),
		View:     values.Get("view"),
	}, nil
}

// Clauses extracts filter[i][$comparison] / filter[i][<field>] pairs ordered by index.
// Each index carries exactly one field; a missing comparator means equality.
func Clauses(values url.Values) ([]filter.Clause, error) {
	type entry struct {
		comparator string
		fields     []string
		value      string
	}
	entries := map[int]*entry{}
	for key, vals := range values {
		m := filterKeyRe.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, &filter.ValidationError{Field: key, Reason: "bad filter index"}
		}
		e := entries[idx]
		if e == nil {
			e = &entry{}
			entries[idx] = e
		}
		v := ""
		if len(vals) > 0 {
			v = vals[len(vals)-1]
		}
		if m[2] == comparisonKey {
			e.comparator = v
			continue
		}
		e.fields = append(e.fields, m[2])
		e.value = v
	}

	indexes := make([]int, 0, len(entries))
	for idx := range entries {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	clauses := make([]filter.Clause, 0, len(indexes))
	for _, idx := range indexes {
		e := entries[idx]
		if len(e.fields) != 1 {
			return nil, &filter.ValidationError{
				Field:  fmt.Sprintf("filter[%d]", idx),
				Reason: fmt.Sprintf("expected exactly one field, got %d", len(e.fields)),
			}
		}
		cmp := filter.Comparator(e.comparator)
		if cmp == "" {
			cmp = filter.Equal
		}
		clauses = append(clauses, filter.Clause{Field: e.fields[0], Comparator: cmp, Value: e.value})
	}
	return clauses, nil
}

// Paging reads page and limit.
func Paging(values url.Values, defaultLimit int) (page, limit int, err error) {
	page, limit = 1, defaultLimit
	if s := values.Get("page"); s != "" {
		if page, err = strconv.Atoi(s); err != nil {
			return 0, 0, &filter.ValidationError{Field: "page", Reason: fmt.Sprintf("%q is not an integer", s)}
		}
	}
	switch s := values.Get("limit"); {
	case s == "":
	case strings.EqualFold(s, "all"):
		limit = 0
	default:
		if limit, err = strconv.Atoi(s); err != nil {
			return 0, 0, &filter.ValidationError{Field: "limit", Reason: fmt.Sprintf("%q is not an integer or \"all\"", s)}
		}
	}
	if page > 0 && limit > 0 && page-1 > math.MaxInt/limit {
		return 0, 0, &filter.ValidationError{Field: "page", Reason: fmt.Sprintf("page %d is out of range for limit %d", page, limit)}
	}
	return page, limit, nil
}

// multi accepts both key=a&key=b and key[]=a&key[]=b.
func multi(values url.Values, key string) []string {
	out := append([]string{}, values[key]...)
	return append(out, values[key+"[]"]...)
}
