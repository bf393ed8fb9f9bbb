// Package classify re-pairs raw added and removed rows by key into INSERT,
// UPDATE and DELETE changes.
package classify

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mickamy/snapcdc/internal/rowset"
)

// Kind is the type of a change.
type Kind string

const (
	Insert Kind = "INSERT"
	Update Kind = "UPDATE"
	Delete Kind = "DELETE"
)

// Change is one classified row change. INSERT and DELETE carry Row; UPDATE
// carries Key, Before, After and ChangedColumns.
type Change struct {
	Type           Kind       `json:"type"`
	Row            rowset.Row `json:"row,omitempty"`
	Key            rowset.Row `json:"key,omitempty"`
	Before         rowset.Row `json:"before,omitempty"`
	After          rowset.Row `json:"after,omitempty"`
	ChangedColumns []string   `json:"changed_columns,omitempty"`
}

// Ambiguity records a key shared by more than one row on either side.
type Ambiguity struct {
	Key     rowset.Row
	Added   int
	Removed int
}

// Result is the classifier output. Changes are grouped INSERT, UPDATE,
// DELETE.
type Result struct {
	Changes   []Change
	Ambiguous []Ambiguity
}

// ErrEmptyUpdate reports a paired row with no changed columns, which means
// identical rows reached the classifier.
var ErrEmptyUpdate = errors.New("update with no changed columns")

type keyGroup struct {
	key     rowset.Row
	removed []int // indexes into removed, FIFO
	added   int
	total   int
}

// Classify pairs rows of added and removed sharing a key encoding over keys.
// Duplicate keys pair first-seen with first-seen: the i-th removed row of a
// key goes with the i-th added row of that key, and leftovers become
// INSERT or DELETE. changed_columns are reported in the order of columns,
// followed by any other column present on either side in sorted order.
func Classify(added, removed []rowset.Row, keys, columns []string) (Result, error) {
	var res Result
	if len(keys) == 0 {
		for _, r := range added {
			res.Changes = append(res.Changes, Change{Type: Insert, Row: r})
		}
		for _, r := range removed {
			res.Changes = append(res.Changes, Change{Type: Delete, Row: r})
		}
		return res, nil
	}

	groups := map[string]*keyGroup{}
	var order []string
	group := func(r rowset.Row) *keyGroup {
		k := string(rowset.Encode(r, keys))
		g, ok := groups[k]
		if !ok {
			g = &keyGroup{key: r.Project(keys)}
			groups[k] = g
			order = append(order, k)
		}
		return g
	}

	for i, r := range removed {
		g := group(r)
		g.removed = append(g.removed, i)
		g.total++
	}

	matched := make([]bool, len(removed))
	var inserts, updates []Change
	for _, r := range added {
		g := group(r)
		g.added++
		if len(g.removed) == 0 {
			inserts = append(inserts, Change{Type: Insert, Row: r})
			continue
		}
		idx := g.removed[0]
		g.removed = g.removed[1:]
		matched[idx] = true

		before := removed[idx]
		changed := changedColumns(before, r, columns)
		if len(changed) == 0 {
			return Result{}, fmt.Errorf("key %v: %w", g.key, ErrEmptyUpdate)
		}
		updates = append(updates, Change{
			Type:           Update,
			Key:            r.Project(keys),
			Before:         before,
			After:          r,
			ChangedColumns: changed,
		})
	}

	res.Changes = make([]Change, 0, len(inserts)+len(updates)+len(removed))
	res.Changes = append(res.Changes, inserts...)
	res.Changes = append(res.Changes, updates...)
	for i, r := range removed {
		if !matched[i] {
			res.Changes = append(res.Changes, Change{Type: Delete, Row: r})
		}
	}

	for _, k := range order {
		g := groups[k]
		if g.added > 1 || g.total > 1 {
			res.Ambiguous = append(res.Ambiguous, Ambiguity{Key: g.key, Added: g.added, Removed: g.total})
		}
	}
	return res, nil
}

func changedColumns(before, after rowset.Row, columns []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		seen[c] = struct{}{}
		if !rowset.ColumnEqual(before, after, c) {
			out = append(out, c)
		}
	}
	extra := rowset.MergeColumns(before.Keys(), after.Keys())
	var rest []string
	for _, c := range extra {
		if _, ok := seen[c]; ok {
			continue
		}
		if !rowset.ColumnEqual(before, after, c) {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
