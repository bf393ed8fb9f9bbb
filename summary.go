package snapcdc

import (
	"context"
	"sort"
)

// Summary reduces a ChangeSet to counts and the columns touched by updates.
type Summary struct {
	Table           string   `json:"table"`
	FromSnapshot    string   `json:"from_snapshot"`
	ToSnapshot      string   `json:"to_snapshot"`
	Inserts         int      `json:"inserts"`
	Updates         int      `json:"updates"`
	Deletes         int      `json:"deletes"`
	TotalChanges    int      `json:"total_changes"`
	AffectedColumns []string `json:"affected_columns"`
}

// Summarize counts cs by change type and collects the sorted union of
// changed columns over its UPDATE entries.
func Summarize(cs *ChangeSet) Summary {
	s := Summary{
		Table:           cs.Table,
		FromSnapshot:    cs.FromSnapshot,
		ToSnapshot:      cs.ToSnapshot,
		AffectedColumns: []string{},
	}
	seen := map[string]struct{}{}
	var counts Counts
	for _, c := range cs.Changes {
		counts.add(c.Type)
		if c.Type != ChangeUpdate {
			continue
		}
		for _, col := range c.ChangedColumns {
			if _, ok := seen[col]; ok {
				continue
			}
			seen[col] = struct{}{}
			s.AffectedColumns = append(s.AffectedColumns, col)
		}
	}
	sort.Strings(s.AffectedColumns)
	s.Inserts, s.Updates, s.Deletes = counts.Inserts, counts.Updates, counts.Deletes
	s.TotalChanges = counts.Total()
	return s
}

// GetChangeSummary builds the ChangeSet selected by r and summarizes it.
func (h *Handler) GetChangeSummary(ctx context.Context, table string, r Range) (Summary, error) {
	cs, err := h.GetChanges(ctx, table, r)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(cs), nil
}
