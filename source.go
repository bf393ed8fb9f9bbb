package snapcdc

import (
	"context"
	"time"
)

// SnapshotInfo identifies one immutable version of a table.
type SnapshotInfo struct {
	ID        string    `json:"snapshot_id"`
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation,omitempty"`
}

// SnapshotSource is the storage layer that materializes snapshots.
// ListSnapshots returns a table's snapshots ordered by timestamp and wraps
// ErrNotFound for an unknown table; ReadSnapshot wraps ErrNotFound for an
// unknown id.
type SnapshotSource interface {
	ListSnapshots(ctx context.Context, table string) ([]SnapshotInfo, error)
	ReadSnapshot(ctx context.Context, table, id string) (RowSet, error)
}

// Predicate is a conjunction of column equalities. A nil value matches NULL.
type Predicate map[string]any

// Target receives replayed changes. UpdateRows and DeleteRows wrap
// ErrNotFound when no row matches.
type Target interface {
	AppendRows(ctx context.Context, table string, rows []Row) error
	UpdateRows(ctx context.Context, table string, where Predicate, values Row) error
	DeleteRows(ctx context.Context, table string, where Predicate) error
}
