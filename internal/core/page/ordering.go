package page

import (
	"fmt"
	"regexp"
	"strings"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

// SortKey is one column of an ORDER BY chain.
type SortKey struct {
	Column string
	Desc   bool
}

// Asc builds an ascending sort key.
func Asc(column string) SortKey {
	return SortKey{Column: column}
}

// Desc builds a descending sort key.
func Desc(column string) SortKey {
	return SortKey{Column: column, Desc: true}
}

// Ordering is an ORDER BY chain proven to end in a unique column set.
type Ordering struct {
	keys []SortKey
}

// NewOrdering builds an ordering from keys. unique names the column set that is unique across
// the result domain; every one of those columns must appear in keys, otherwise the ordering is
// rejected. Column names are restricted to plain identifiers so the rendered clause never
// contains caller input.
func NewOrdering(unique []string, keys ...SortKey) (Ordering, error) {
	if len(keys) == 0 {
		return Ordering{}, fmt.Errorf("ordering needs at least one key")
	}
	if len(unique) == 0 {
		return Ordering{}, fmt.Errorf("ordering needs a unique tie-break column set")
	}

	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !identPattern.MatchString(k.Column) {
			return Ordering{}, fmt.Errorf("invalid sort column %q", k.Column)
		}
		if seen[k.Column] {
			return Ordering{}, fmt.Errorf("duplicate sort column %q", k.Column)
		}
		seen[k.Column] = true
	}
	for _, col := range unique {
		if !seen[col] {
			return Ordering{}, fmt.Errorf("ordering lacks tie-break column %q", col)
		}
	}

	return Ordering{keys: append([]SortKey(nil), keys...)}, nil
}

// MustOrdering is NewOrdering for package-level declarations.
func MustOrdering(unique []string, keys ...SortKey) Ordering {
	o, err := NewOrdering(unique, keys...)
	if err != nil {
		panic(err)
	}
	return o
}

// Keys returns a copy of the sort chain.
func (o Ordering) Keys() []SortKey {
	return append([]SortKey(nil), o.keys...)
}

// SQL renders the ORDER BY clause.
func (o Ordering) SQL() string {
	parts := make([]string, len(o.keys))
	for i, k := range o.keys {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts[i] = k.Column + " " + dir
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}
