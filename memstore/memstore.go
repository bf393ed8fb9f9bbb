// Package memstore is an in-memory snapshot store. Every write produces a
// new immutable snapshot, so it serves both as a snapcdc.SnapshotSource and
// as a replay snapcdc.Target.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/mickamy/snapcdc"
	"github.com/mickamy/snapcdc/internal/rowset"
)

// Operation labels recorded on snapshots.
const (
	OpAppend    = "append"
	OpOverwrite = "overwrite"
	OpUpdate    = "update"
	OpDelete    = "delete"
)

type snapshot struct {
	info    snapcdc.SnapshotInfo
	columns []string
	rows    []snapcdc.Row
}

type table struct {
	columns   []string
	snapshots []snapshot
}

func (t *table) current() []snapcdc.Row {
	if len(t.snapshots) == 0 {
		return nil
	}
	return t.snapshots[len(t.snapshots)-1].rows
}

// Store holds tables and their snapshot histories.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	now    func() time.Time
	seq    int64
	last   time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to timestamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{tables: map[string]*table{}, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTable registers a table with its declared columns. It has no
// snapshot until the first write.
func (s *Store) CreateTable(name string, columns []string) error {
	if name == "" || len(columns) == 0 {
		return fmt.Errorf("memstore: table name and columns are required: %w", snapcdc.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; ok {
		return fmt.Errorf("memstore: table %s already exists: %w", name, snapcdc.ErrInvalidArgument)
	}
	s.tables[name] = &table{columns: slices.Clone(columns)}
	return nil
}

// AddColumn appends a column to the table schema. Existing rows read it as
// NULL from the next snapshot on.
func (s *Store) AddColumn(name, column string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return err
	}
	if slices.Contains(t.columns, column) {
		return fmt.Errorf("memstore: column %s.%s already exists: %w", name, column, snapcdc.ErrInvalidArgument)
	}
	t.columns = append(t.columns, column)
	return nil
}

// Commit replaces the table contents with rows and records a snapshot.
func (s *Store) Commit(_ context.Context, name, operation string, rows []snapcdc.Row) (snapcdc.SnapshotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return snapcdc.SnapshotInfo{}, err
	}
	next := make([]snapcdc.Row, 0, len(rows))
	for _, r := range rows {
		nr, err := conform(name, t.columns, r)
		if err != nil {
			return snapcdc.SnapshotInfo{}, err
		}
		next = append(next, nr)
	}
	return s.commit(t, operation, next), nil
}

// Rows returns a copy of the table's current rows.
func (s *Store) Rows(name string) ([]snapcdc.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}
	return cloneRows(t.current()), nil
}

func (s *Store) ListSnapshots(_ context.Context, name string) ([]snapcdc.SnapshotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}
	out := make([]snapcdc.SnapshotInfo, len(t.snapshots))
	for i, sn := range t.snapshots {
		out[i] = sn.info
	}
	return out, nil
}

func (s *Store) ReadSnapshot(_ context.Context, name, id string) (snapcdc.RowSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}
	for _, sn := range t.snapshots {
		if sn.info.ID == id {
			return rowset.NewSlice(sn.columns, cloneRows(sn.rows)...), nil
		}
	}
	return nil, fmt.Errorf("memstore: snapshot %s of %s: %w", id, name, snapcdc.ErrNotFound)
}

func (s *Store) AppendRows(_ context.Context, name string, rows []snapcdc.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return err
	}
	next := slices.Clone(t.current())
	for _, r := range rows {
		nr, err := conform(name, t.columns, r)
		if err != nil {
			return err
		}
		next = append(next, nr)
	}
	s.commit(t, OpAppend, next)
	return nil
}

func (s *Store) UpdateRows(_ context.Context, name string, where snapcdc.Predicate, values snapcdc.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return err
	}
	if err := checkColumns(name, t.columns, where, values); err != nil {
		return err
	}
	cur := t.current()
	next := make([]snapcdc.Row, len(cur))
	matched := 0
	for i, r := range cur {
		if !matches(r, where) {
			next[i] = r
			continue
		}
		matched++
		nr := r.Clone()
		for k, v := range values {
			nr[k] = v
		}
		next[i] = nr
	}
	if matched == 0 {
		return fmt.Errorf("memstore: update %s: no row matches %v: %w", name, map[string]any(where), snapcdc.ErrNotFound)
	}
	s.commit(t, OpUpdate, next)
	return nil
}

func (s *Store) DeleteRows(_ context.Context, name string, where snapcdc.Predicate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return err
	}
	if err := checkColumns(name, t.columns, where, nil); err != nil {
		return err
	}
	cur := t.current()
	next := make([]snapcdc.Row, 0, len(cur))
	for _, r := range cur {
		if !matches(r, where) {
			next = append(next, r)
		}
	}
	if len(next) == len(cur) {
		return fmt.Errorf("memstore: delete from %s: no row matches %v: %w", name, map[string]any(where), snapcdc.ErrNotFound)
	}
	s.commit(t, OpDelete, next)
	return nil
}

func (s *Store) table(name string) (*table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("memstore: table %s: %w", name, snapcdc.ErrNotFound)
	}
	return t, nil
}

// commit records rows as a new snapshot. Timestamps strictly increase even
// when the clock does not.
func (s *Store) commit(t *table, operation string, rows []snapcdc.Row) snapcdc.SnapshotInfo {
	s.seq++
	ts := s.now().UTC()
	if !ts.After(s.last) {
		ts = s.last.Add(time.Microsecond)
	}
	s.last = ts
	for i, r := range rows {
		rows[i] = withColumns(t.columns, r)
	}
	info := snapcdc.SnapshotInfo{
		ID:        strconv.FormatInt(s.seq, 10),
		Timestamp: ts,
		Operation: operation,
	}
	t.snapshots = append(t.snapshots, snapshot{info: info, columns: slices.Clone(t.columns), rows: rows})
	return info
}

// conform copies r, filling undeclared columns with NULL and rejecting
// unknown ones.
func conform(name string, columns []string, r snapcdc.Row) (snapcdc.Row, error) {
	out := make(snapcdc.Row, len(columns))
	for _, c := range columns {
		out[c] = r[c]
	}
	for k := range r {
		if !slices.Contains(columns, k) {
			return nil, fmt.Errorf("memstore: unknown column %s.%s: %w", name, k, snapcdc.ErrInvalidArgument)
		}
	}
	return out, nil
}

// withColumns returns r, or a copy of r with absent columns set to NULL.
func withColumns(columns []string, r snapcdc.Row) snapcdc.Row {
	var out snapcdc.Row
	for _, c := range columns {
		if _, ok := r[c]; ok {
			continue
		}
		if out == nil {
			out = r.Clone()
		}
		out[c] = nil
	}
	if out == nil {
		return r
	}
	return out
}

func checkColumns(name string, columns []string, where snapcdc.Predicate, values snapcdc.Row) error {
	for k := range where {
		if !slices.Contains(columns, k) {
			return fmt.Errorf("memstore: unknown column %s.%s: %w", name, k, snapcdc.ErrInvalidArgument)
		}
	}
	for k := range values {
		if !slices.Contains(columns, k) {
			return fmt.Errorf("memstore: unknown column %s.%s: %w", name, k, snapcdc.ErrInvalidArgument)
		}
	}
	return nil
}

func matches(r snapcdc.Row, where snapcdc.Predicate) bool {
	for k, v := range where {
		if !rowset.Equal(r[k], v) {
			return false
		}
	}
	return true
}

func cloneRows(rows []snapcdc.Row) []snapcdc.Row {
	out := make([]snapcdc.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
