package snapcdc

import (
	"time"

	"github.com/mickamy/snapcdc/internal/classify"
	"github.com/mickamy/snapcdc/internal/rowset"
)

// Row maps column names to scalar values; nil is NULL.
type Row = rowset.Row

// RowSet is a materialized snapshot: declared columns plus rows in natural order.
type RowSet = rowset.RowSet

// NewRowSet builds an in-memory RowSet.
func NewRowSet(cols []string, rows ...Row) RowSet {
	return rowset.NewSlice(cols, rows...)
}

// ChangeType tags a Change as INSERT, UPDATE or DELETE.
type ChangeType = classify.Kind

const (
	ChangeInsert = classify.Insert
	ChangeUpdate = classify.Update
	ChangeDelete = classify.Delete
)

// Change is one row-level change. INSERT and DELETE carry Row; UPDATE
// carries Key, Before, After and a non-empty ChangedColumns.
type Change = classify.Change

// Counts tallies changes per type.
type Counts struct {
	Inserts int `json:"inserts"`
	Updates int `json:"updates"`
	Deletes int `json:"deletes"`
}

// Total returns the sum of all counts.
func (c Counts) Total() int {
	return c.Inserts + c.Updates + c.Deletes
}

func (c *Counts) add(t ChangeType) {
	switch t {
	case ChangeInsert:
		c.Inserts++
	case ChangeUpdate:
		c.Updates++
	case ChangeDelete:
		c.Deletes++
	}
}

func countChanges(changes []Change) Counts {
	var c Counts
	for _, ch := range changes {
		c.add(ch.Type)
	}
	return c
}

// ChangeSet is the classified difference between two snapshots of a table.
// FromSnapshot is empty when the "to" snapshot had no predecessor.
type ChangeSet struct {
	Table         string   `json:"table"`
	FromSnapshot  string   `json:"from_snapshot"`
	ToSnapshot    string   `json:"to_snapshot"`
	KeyColumns    []string `json:"key_columns,omitempty"`
	Columns       []string `json:"columns,omitempty"`
	Summary       Counts   `json:"summary"`
	Changes       []Change `json:"changes"`
	AmbiguousKeys int      `json:"ambiguous_keys,omitempty"`
}

// ChangeLogEntry summarizes the changes between two consecutive snapshots.
type ChangeLogEntry struct {
	FromSnapshot string    `json:"from_snapshot"`
	ToSnapshot   string    `json:"to_snapshot"`
	Timestamp    time.Time `json:"timestamp"`
	Operation    string    `json:"operation,omitempty"`
	ChangeCount  int       `json:"change_count"`
	Summary      Counts    `json:"summary"`
}

// ChangeLog is a chronological list of ChangeLogEntry.
type ChangeLog []ChangeLogEntry

// ReplayResult reports what a replay applied. Failed entries are counted,
// not raised.
type ReplayResult struct {
	TargetTable  string   `json:"target_table"`
	Applied      Counts   `json:"applied"`
	TotalApplied int      `json:"total_applied"`
	Failed       int      `json:"failed"`
	Errors       []string `json:"errors,omitempty"`
}
