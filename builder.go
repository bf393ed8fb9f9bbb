package snapcdc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/mickamy/snapcdc/internal/classify"
	"github.com/mickamy/snapcdc/internal/rowset"
)

// Range selects the snapshots to compare and the key columns to pair rows
// by. Empty From and To fall back to the predecessor of To and the latest
// snapshot respectively; empty KeyColumns fall back to the first declared
// column. Snapshot arguments are ids or RFC3339 timestamps.
type Range struct {
	From       string
	To         string
	KeyColumns []string
}

// GetChanges computes the row-level changes of table between two snapshots.
func (h *Handler) GetChanges(ctx context.Context, table string, r Range) (*ChangeSet, error) {
	name, err := h.tableName(table)
	if err != nil {
		return nil, err
	}
	snaps, err := h.listSnapshots(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		if r.From != "" || r.To != "" {
			return nil, notFound("table %s has no snapshots", name)
		}
		return &ChangeSet{Table: name, KeyColumns: r.KeyColumns, Changes: []Change{}}, nil
	}

	toIdx := len(snaps) - 1
	if r.To != "" {
		if toIdx, err = resolveSnapshot(name, snaps, r.To); err != nil {
			return nil, err
		}
	}
	var from *SnapshotInfo
	switch {
	case r.From != "":
		idx, err := resolveSnapshot(name, snaps, r.From)
		if err != nil {
			return nil, err
		}
		from = &snaps[idx]
	case toIdx > 0:
		from = &snaps[toIdx-1]
	}
	return h.diffSnapshots(ctx, name, from, snaps[toIdx], r.KeyColumns)
}

// listSnapshots returns the table's snapshots stably ordered by timestamp.
func (h *Handler) listSnapshots(ctx context.Context, name string) ([]SnapshotInfo, error) {
	snaps, err := h.src.ListSnapshots(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("snapcdc: list snapshots of %s: %w", name, err)
	}
	snaps = slices.Clone(snaps)
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].Timestamp.Before(snaps[j].Timestamp)
	})
	return snaps, nil
}

// resolveSnapshot finds arg by exact id, then as a timestamp selecting the
// latest snapshot taken at or before it.
func resolveSnapshot(table string, snaps []SnapshotInfo, arg string) (int, error) {
	for i, s := range snaps {
		if s.ID == arg {
			return i, nil
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, arg); err == nil {
		idx := -1
		for i, s := range snaps {
			if !s.Timestamp.After(ts) {
				idx = i
			}
		}
		if idx >= 0 {
			return idx, nil
		}
		return 0, notFound("no snapshot of %s at or before %s", table, arg)
	}
	return 0, notFound("snapshot %q of %s", arg, table)
}

// diffSnapshots runs the differ and classifier for one snapshot pair. A nil
// from means an empty predecessor.
func (h *Handler) diffSnapshots(ctx context.Context, table string, from *SnapshotInfo, to SnapshotInfo, keys []string) (*ChangeSet, error) {
	cs := &ChangeSet{Table: table, ToSnapshot: to.ID, Changes: []Change{}}
	if from != nil {
		cs.FromSnapshot = from.ID
	}

	newRows, err := h.readSnapshot(ctx, table, to.ID)
	if err != nil {
		return nil, err
	}
	oldRows := rowset.RowSet(rowset.Empty(newRows.Columns()))
	if from != nil && from.ID != to.ID {
		if oldRows, err = h.readSnapshot(ctx, table, from.ID); err != nil {
			return nil, err
		}
	}

	cs.Columns = rowset.MergeColumns(newRows.Columns(), oldRows.Columns())
	if cs.KeyColumns, err = keyColumns(keys, newRows.Columns(), cs.Columns); err != nil {
		return nil, err
	}
	if from != nil && from.ID == to.ID {
		return cs, nil
	}

	diff, err := rowset.Diff(oldRows, newRows)
	if err != nil {
		return nil, fmt.Errorf("snapcdc: diff %s %s..%s: %w", table, cs.FromSnapshot, cs.ToSnapshot, err)
	}
	if diff.SchemaMismatch {
		h.cfg.Logger.WarnContext(ctx, "snapcdc: column sets differ, comparing whole row sets",
			slog.String("table", table),
			slog.String("from", cs.FromSnapshot),
			slog.String("to", cs.ToSnapshot),
		)
	}

	res, err := classify.Classify(diff.Added, diff.Removed, cs.KeyColumns, cs.Columns)
	if err != nil {
		if errors.Is(err, classify.ErrEmptyUpdate) {
			return nil, fmt.Errorf("snapcdc: classifier invariant violated for %s: %w", table, err)
		}
		return nil, err
	}
	if len(res.Ambiguous) > 0 {
		ambiguous := &AmbiguousKeyError{Table: table, Keys: res.Ambiguous}
		if h.cfg.StrictKeys {
			return nil, ambiguous
		}
		h.cfg.Logger.WarnContext(ctx, "snapcdc: duplicate keys paired first-seen",
			slog.String("table", table),
			slog.Int("keys", len(res.Ambiguous)),
			slog.Any("error", ambiguous),
		)
		cs.AmbiguousKeys = len(res.Ambiguous)
	}

	cs.Changes = res.Changes
	if cs.Changes == nil {
		cs.Changes = []Change{}
	}
	cs.Summary = countChanges(cs.Changes)

	h.cfg.Logger.DebugContext(ctx, "snapcdc: change set built",
		slog.String("table", table),
		slog.String("from", cs.FromSnapshot),
		slog.String("to", cs.ToSnapshot),
		slog.Int("inserts", cs.Summary.Inserts),
		slog.Int("updates", cs.Summary.Updates),
		slog.Int("deletes", cs.Summary.Deletes),
	)
	return cs, nil
}

func (h *Handler) readSnapshot(ctx context.Context, table, id string) (RowSet, error) {
	rs, err := h.src.ReadSnapshot(ctx, table, id)
	if err != nil {
		return nil, fmt.Errorf("snapcdc: read snapshot %s of %s: %w", id, table, err)
	}
	return rs, nil
}

// keyColumns validates explicit keys against columns, or defaults to the
// first declared column.
func keyColumns(keys, declared, columns []string) ([]string, error) {
	if len(keys) == 0 {
		if len(declared) == 0 {
			return nil, nil
		}
		return []string{declared[0]}, nil
	}
	for _, k := range keys {
		if !slices.Contains(columns, k) {
			return nil, invalidArgument("key column %q does not exist", k)
		}
	}
	return slices.Clone(keys), nil
}
