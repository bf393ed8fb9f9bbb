// Package snapcdc detects row-level changes between immutable table
// snapshots, walks a table's snapshot history, exports change sets and
// replays them onto another table.
package snapcdc

import (
	"log/slog"
	"time"
)

// RedactFunc defines a function used to sanitize or mask values before export.
type RedactFunc func(key string, v any) any

// RedactMap maps column names to specific redaction functions.
type RedactMap map[string]RedactFunc

// Config defines the main configuration options for snapcdc.
type Config struct {
	DefaultNamespace string       // qualifies bare table names, e.g. "default"
	Redact           RedactMap    // optional column-based redaction applied on export
	StrictKeys       bool         // fail instead of warn when key columns are not unique
	LogLimit         int          // default change log length (100)
	MaxReplayErrors  int          // replay error messages kept (100)
	Logger           *slog.Logger // defaults to a discarding logger
	Now              func() time.Time
}

// Handler is the main entry point. It is safe for concurrent use; it holds
// no state beyond its configuration and snapshot source.
type Handler struct {
	cfg Config
	src SnapshotSource
}

// New creates a new Handler reading snapshots from src, with sensible defaults.
func New(src SnapshotSource, cfg Config) *Handler {
	if cfg.Redact == nil {
		cfg.Redact = RedactMap{}
	}
	if cfg.LogLimit <= 0 {
		cfg.LogLimit = 100
	}
	if cfg.MaxReplayErrors <= 0 {
		cfg.MaxReplayErrors = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{cfg: cfg, src: src}
}

// applyRedact returns a redacted copy of the given row using cfg.Redact.
func (h *Handler) applyRedact(m Row) Row {
	if m == nil || len(h.cfg.Redact) == 0 {
		return m
	}
	out := make(Row, len(m))
	for k, v := range m {
		if fn, ok := h.cfg.Redact[k]; ok && fn != nil {
			out[k] = fn(k, v)
		} else {
			out[k] = v
		}
	}
	return out
}

// redactChangeSet returns a copy of cs with every row passed through applyRedact.
func (h *Handler) redactChangeSet(cs *ChangeSet) *ChangeSet {
	if len(h.cfg.Redact) == 0 {
		return cs
	}
	out := *cs
	out.Changes = make([]Change, len(cs.Changes))
	for i, c := range cs.Changes {
		c.Row = h.applyRedact(c.Row)
		c.Key = h.applyRedact(c.Key)
		c.Before = h.applyRedact(c.Before)
		c.After = h.applyRedact(c.After)
		out.Changes[i] = c
	}
	return &out
}
