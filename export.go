package snapcdc

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/mickamy/snapcdc/internal/rowset"
)

// Format is an export wire format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates s as an export format, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", invalidArgument("unsupported format %q, use %q or %q", s, FormatJSON, FormatCSV)
	}
}

// CSV rows for an UPDATE carry both images, before first.
const (
	csvUpdateBefore = "UPDATE_BEFORE"
	csvUpdateAfter  = "UPDATE_AFTER"
)

type jsonExport struct {
	*ChangeSet
	ExportedAt *time.Time `json:"exported_at,omitempty"`
}

// Export serializes cs as JSON or CSV. The format is validated before any
// change is processed.
func Export(cs *ChangeSet, format Format) (string, error) {
	return export(cs, format, time.Time{})
}

func export(cs *ChangeSet, format Format, exportedAt time.Time) (string, error) {
	f, err := ParseFormat(string(format))
	if err != nil {
		return "", err
	}
	if cs == nil {
		return "", invalidArgument("nil change set")
	}
	switch f {
	case FormatCSV:
		return exportCSV(cs)
	default:
		return exportJSON(cs, exportedAt)
	}
}

func exportJSON(cs *ChangeSet, exportedAt time.Time) (string, error) {
	doc := jsonExport{ChangeSet: cs}
	if !exportedAt.IsZero() {
		ts := exportedAt.UTC()
		doc.ExportedAt = &ts
	}
	if doc.Changes == nil {
		c := *cs
		c.Changes = []Change{}
		doc.ChangeSet = &c
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("snapcdc: encode json: %w", err)
	}
	return string(b), nil
}

func exportCSV(cs *ChangeSet) (string, error) {
	cols := csvColumns(cs)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	write := func(kind string, r Row) {
		rec := make([]string, 0, len(cols)+1)
		rec = append(rec, kind)
		for _, c := range cols {
			rec = append(rec, rowset.Format(r[c]))
		}
		_ = w.Write(rec)
	}

	_ = w.Write(append([]string{"change_type"}, cols...))
	for _, c := range cs.Changes {
		switch c.Type {
		case ChangeInsert, ChangeDelete:
			write(string(c.Type), c.Row)
		case ChangeUpdate:
			write(csvUpdateBefore, c.Before)
			write(csvUpdateAfter, c.After)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("snapcdc: encode csv: %w", err)
	}
	return buf.String(), nil
}

// csvColumns returns the change set's declared columns followed by any
// other column found in its rows, sorted.
func csvColumns(cs *ChangeSet) []string {
	seen := map[string]struct{}{}
	for _, c := range cs.Columns {
		seen[c] = struct{}{}
	}
	var extra []string
	collect := func(r Row) {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				extra = append(extra, k)
			}
		}
	}
	for _, c := range cs.Changes {
		collect(c.Row)
		collect(c.Before)
		collect(c.After)
	}
	sort.Strings(extra)
	return append(slices.Clone(cs.Columns), extra...)
}

// ExportChanges builds the ChangeSet selected by r and serializes it. An
// unsupported format fails before any snapshot is read.
func (h *Handler) ExportChanges(ctx context.Context, table string, r Range, format Format) (string, error) {
	f, err := ParseFormat(string(format))
	if err != nil {
		return "", err
	}
	cs, err := h.GetChanges(ctx, table, r)
	if err != nil {
		return "", err
	}
	return export(h.redactChangeSet(cs), f, h.cfg.Now())
}

// ParseChangeSet decodes a JSON export. Numbers become int64 when integral
// and float64 otherwise. The summary must agree with the change list.
func ParseChangeSet(r io.Reader) (*ChangeSet, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var cs ChangeSet
	if err := dec.Decode(&cs); err != nil {
		return nil, invalidArgument("decode change set: %v", err)
	}
	if cs.Changes == nil {
		cs.Changes = []Change{}
	}
	for i := range cs.Changes {
		c := &cs.Changes[i]
		switch c.Type {
		case ChangeInsert, ChangeDelete:
			if c.Row == nil {
				return nil, invalidArgument("change %d: %s without row", i, c.Type)
			}
		case ChangeUpdate:
			if c.Key == nil || c.After == nil || len(c.ChangedColumns) == 0 {
				return nil, invalidArgument("change %d: incomplete UPDATE", i)
			}
		default:
			return nil, invalidArgument("change %d: unknown type %q", i, c.Type)
		}
		rowset.NormalizeRow(c.Row)
		rowset.NormalizeRow(c.Key)
		rowset.NormalizeRow(c.Before)
		rowset.NormalizeRow(c.After)
	}
	if got := countChanges(cs.Changes); got != cs.Summary {
		return nil, invalidArgument("summary %+v does not match changes %+v", cs.Summary, got)
	}
	return &cs, nil
}
