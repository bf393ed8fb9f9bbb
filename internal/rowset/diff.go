package rowset

import (
	"slices"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Result holds the two-way difference between an old and a new row set.
// Added keeps the natural order of the new rows and Removed the natural
// order of the old rows.
type Result struct {
	Added   []Row
	Removed []Row
	// SchemaMismatch is set when the column sets differ; every old row is
	// then reported removed and every new row added.
	SchemaMismatch bool
}

// hashSet is a set of canonical encodings bucketed by their xxhash digest.
// Buckets compare full encodings so hash collisions never merge rows.
type hashSet struct {
	buckets map[uint64][]string
}

func newHashSet(size int) *hashSet {
	return &hashSet{buckets: make(map[uint64][]string, size)}
}

// add inserts enc and reports whether it was not already present.
func (s *hashSet) add(enc []byte) bool {
	h := xxhash.Sum64(enc)
	for _, e := range s.buckets[h] {
		if e == string(enc) {
			return false
		}
	}
	s.buckets[h] = append(s.buckets[h], string(enc))
	return true
}

func (s *hashSet) has(enc []byte) bool {
	for _, e := range s.buckets[xxhash.Sum64(enc)] {
		if e == string(enc) {
			return true
		}
	}
	return false
}

type encodedRow struct {
	row Row
	enc []byte
}

// Diff computes the whole-row set difference between oldRows and newRows.
// A row is removed iff its full value tuple occurs in oldRows and not in
// newRows, and added symmetrically. Duplicate rows collapse.
func Diff(oldRows, newRows RowSet) (Result, error) {
	oldCols := canonicalColumns(oldRows.Columns())
	newCols := canonicalColumns(newRows.Columns())
	if !slices.Equal(oldCols, newCols) {
		return diffMismatched(oldRows, newRows, oldCols, newCols)
	}
	cols := newCols

	oldSet := newHashSet(0)
	var olds []encodedRow
	err := oldRows.Scan(func(r Row) error {
		enc := Encode(r, cols)
		if oldSet.add(enc) {
			olds = append(olds, encodedRow{row: r, enc: enc})
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	var res Result
	newSet := newHashSet(len(olds))
	err = newRows.Scan(func(r Row) error {
		enc := Encode(r, cols)
		if !newSet.add(enc) {
			return nil
		}
		if !oldSet.has(enc) {
			res.Added = append(res.Added, r)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	for _, o := range olds {
		if !newSet.has(o.enc) {
			res.Removed = append(res.Removed, o.row)
		}
	}
	return res, nil
}

func diffMismatched(oldRows, newRows RowSet, oldCols, newCols []string) (Result, error) {
	res := Result{SchemaMismatch: true}
	var err error
	if res.Removed, err = distinct(oldRows, oldCols); err != nil {
		return Result{}, err
	}
	if res.Added, err = distinct(newRows, newCols); err != nil {
		return Result{}, err
	}
	return res, nil
}

func distinct(rs RowSet, cols []string) ([]Row, error) {
	seen := newHashSet(0)
	var out []Row
	err := rs.Scan(func(r Row) error {
		if seen.add(Encode(r, cols)) {
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

// canonicalColumns returns a sorted, de-duplicated copy of cols.
func canonicalColumns(cols []string) []string {
	out := slices.Clone(cols)
	sort.Strings(out)
	return slices.Compact(out)
}

// MergeColumns returns primary followed by any column of extra not already
// present, preserving declared order.
func MergeColumns(primary, extra []string) []string {
	out := slices.Clone(primary)
	for _, c := range extra {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}
