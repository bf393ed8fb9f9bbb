package snapcdc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mickamy/snapcdc/internal/buffer"
)

// ReplayChanges applies cs to table through target, entry by entry. INSERT
// appends the row, UPDATE sets the changed columns on rows matching the key
// and DELETE removes rows matching the key, or the whole row when cs was
// built without key columns. A failing entry is counted in Failed and the
// remaining entries are still applied; atomicity is up to the target.
func (h *Handler) ReplayChanges(ctx context.Context, cs *ChangeSet, target Target, table string) (ReplayResult, error) {
	if cs == nil {
		return ReplayResult{}, invalidArgument("nil change set")
	}
	if target == nil {
		return ReplayResult{}, invalidArgument("nil replay target")
	}
	name, err := h.tableName(table)
	if err != nil {
		return ReplayResult{}, err
	}

	res := ReplayResult{TargetTable: name}
	errs := buffer.NewBuffer[string](h.cfg.MaxReplayErrors)
	for i, c := range cs.Changes {
		if err := applyChange(ctx, target, name, cs.KeyColumns, c); err != nil {
			res.Failed++
			errs.Add(fmt.Sprintf("%s #%d: %v", c.Type, i, err))
			continue
		}
		res.Applied.add(c.Type)
	}
	dropped := errs.Dropped()
	res.Errors = errs.Drain()
	if dropped > 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("%d more errors omitted", dropped))
	}
	res.TotalApplied = res.Applied.Total()

	attrs := append(extractMeta(ctx).attrs(),
		slog.String("source", cs.Table),
		slog.String("target", name),
		slog.Int("applied", res.TotalApplied),
		slog.Int("failed", res.Failed),
	)
	h.cfg.Logger.InfoContext(ctx, "snapcdc: replay finished", attrs...)
	return res, nil
}

func applyChange(ctx context.Context, target Target, table string, keys []string, c Change) error {
	switch c.Type {
	case ChangeInsert:
		if c.Row == nil {
			return invalidArgument("insert without row")
		}
		return target.AppendRows(ctx, table, []Row{c.Row})
	case ChangeUpdate:
		if len(c.Key) == 0 {
			return invalidArgument("update without key")
		}
		values := c.After.Project(c.ChangedColumns)
		for _, col := range c.ChangedColumns {
			// A column dropped from the after image is written as NULL.
			if _, ok := values[col]; !ok {
				values[col] = nil
			}
		}
		if len(values) == 0 {
			return invalidArgument("update without changed columns")
		}
		return target.UpdateRows(ctx, table, Predicate(c.Key), values)
	case ChangeDelete:
		if c.Row == nil {
			return invalidArgument("delete without row")
		}
		where := c.Row
		if len(keys) > 0 {
			where = c.Row.Project(keys)
		}
		if len(where) == 0 {
			return invalidArgument("delete without predicate")
		}
		return target.DeleteRows(ctx, table, Predicate(where))
	default:
		return invalidArgument("unknown change type %q", c.Type)
	}
}
