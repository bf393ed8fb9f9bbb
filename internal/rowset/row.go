// Package rowset defines rows, row sets and the whole-row set difference
// used to detect changes between two snapshots.
package rowset

import (
	"encoding/json"
	"slices"
	"sort"
)

// Row maps column names to scalar values. A nil value is SQL NULL.
type Row map[string]any

// Project returns a copy of r restricted to cols. Columns absent from r are
// left out rather than set to nil.
func (r Row) Project(cols []string) Row {
	out := make(Row, len(cols))
	for _, c := range cols {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Keys returns the column names present in r, sorted.
func (r Row) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RowSet is the capability a snapshot backend must provide: its declared
// columns and an iteration over its rows in natural order.
type RowSet interface {
	Columns() []string
	Scan(fn func(Row) error) error
}

// Slice is an in-memory RowSet.
type Slice struct {
	cols []string
	rows []Row
}

// NewSlice builds a RowSet from declared columns and rows.
func NewSlice(cols []string, rows ...Row) *Slice {
	return &Slice{cols: slices.Clone(cols), rows: rows}
}

// Empty returns a RowSet with the given columns and no rows.
func Empty(cols []string) *Slice {
	return NewSlice(cols)
}

func (s *Slice) Columns() []string {
	return slices.Clone(s.cols)
}

func (s *Slice) Scan(fn func(Row) error) error {
	for _, r := range s.rows {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// Collect drains rs into a slice.
func Collect(rs RowSet) ([]Row, error) {
	var out []Row
	err := rs.Scan(func(r Row) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// NormalizeJSON converts values decoded with json.Decoder.UseNumber into
// int64 where the literal is integral and float64 otherwise, recursing into
// nested objects and arrays.
func NormalizeJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, e := range t {
			t[k] = NormalizeJSON(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = NormalizeJSON(e)
		}
		return t
	default:
		return v
	}
}

// NormalizeRow applies NormalizeJSON to every value of r in place.
func NormalizeRow(r Row) Row {
	for k, v := range r {
		r[k] = NormalizeJSON(v)
	}
	return r
}
