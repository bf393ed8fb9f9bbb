package snapcdc

import (
	"context"
	"log/slog"
)

// GetChangeLog diffs every consecutive pair of table's snapshots in
// chronological order and returns the most recent limit entries, oldest
// first. limit <= 0 uses Config.LogLimit.
func (h *Handler) GetChangeLog(ctx context.Context, table string, limit int, keys []string) (ChangeLog, error) {
	name, err := h.tableName(table)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = h.cfg.LogLimit
	}
	snaps, err := h.listSnapshots(ctx, name)
	if err != nil {
		return nil, err
	}
	log := ChangeLog{}
	if len(snaps) < 2 {
		return log, nil
	}

	start := 1
	if pairs := len(snaps) - 1; pairs > limit {
		start = len(snaps) - limit
	}
	for i := start; i < len(snaps); i++ {
		from, to := snaps[i-1], snaps[i]
		cs, err := h.diffSnapshots(ctx, name, &from, to, keys)
		if err != nil {
			return nil, err
		}
		log = append(log, ChangeLogEntry{
			FromSnapshot: from.ID,
			ToSnapshot:   to.ID,
			Timestamp:    to.Timestamp,
			Operation:    to.Operation,
			ChangeCount:  len(cs.Changes),
			Summary:      cs.Summary,
		})
	}
	h.cfg.Logger.DebugContext(ctx, "snapcdc: change log built",
		slog.String("table", name),
		slog.Int("entries", len(log)),
	)
	return log, nil
}
