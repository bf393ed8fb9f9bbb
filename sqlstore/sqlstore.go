// Package sqlstore keeps table snapshots inside a SQL database. Capture
// copies a live table into a pair of side tables, one row per snapshot and
// one row per captured record, and the Store then serves those snapshots as
// a snapcdc.SnapshotSource. It also implements snapcdc.Target so change sets
// can be replayed onto live tables.
//
// SQLite (modernc.org/sqlite, driver "sqlite") and PostgreSQL
// (pgx stdlib, driver "pgx") are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/mickamy/snapcdc"
	"github.com/mickamy/snapcdc/internal/ident"
	"github.com/mickamy/snapcdc/internal/query"
	"github.com/mickamy/snapcdc/internal/rowset"
)

// Config controls snapshot table naming and capture behaviour.
type Config struct {
	SnapshotSuffix string // suffix of the snapshot metadata table (default: _snapshots)
	RowsSuffix     string // suffix of the captured rows table (default: _snapshot_rows)
	Logger         *slog.Logger
	Now            func() time.Time
}

// Store is a SQL-backed snapshot source and replay target.
type Store struct {
	db      *sql.DB
	dialect query.Dialect
	cfg     Config
}

// Open connects to dsn with the named driver and returns a Store owning the
// connection.
func Open(ctx context.Context, driver, dsn string, cfg Config) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", driver, err)
	}
	s, err := New(db, driver, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool. driver selects the SQL dialect.
func New(db *sql.DB, driver string, cfg Config) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if cfg.SnapshotSuffix == "" {
		cfg.SnapshotSuffix = "_snapshots"
	}
	if cfg.RowsSuffix == "" {
		cfg.RowsSuffix = "_snapshot_rows"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{db: db, dialect: d, cfg: cfg}, nil
}

func dialectFor(driver string) (query.Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return query.SQLite, nil
	case "pgx", "postgres", "postgresql":
		return query.Postgres, nil
	default:
		return 0, fmt.Errorf("sqlstore: unsupported driver %q: %w", driver, snapcdc.ErrInvalidArgument)
	}
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Capture records the current contents of table as a new snapshot labelled
// with operation. Snapshot timestamps strictly increase per table.
func (s *Store) Capture(ctx context.Context, table, operation string) (snapcdc.SnapshotInfo, error) {
	parts, err := s.snapshotTables(ctx, table)
	if err != nil {
		return snapcdc.SnapshotInfo{}, err
	}
	snaps, rowsTable := suffixed(parts, s.cfg.SnapshotSuffix), suffixed(parts, s.cfg.RowsSuffix)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return snapcdc.SnapshotInfo{}, fmt.Errorf("sqlstore: begin capture of %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, "SELECT * FROM "+ident.QuoteQualified(parts))
	if err != nil {
		return snapcdc.SnapshotInfo{}, fmt.Errorf("sqlstore: read %s: %w", table, err)
	}
	cols, records, err := scanAll(rows)
	if err != nil {
		return snapcdc.SnapshotInfo{}, fmt.Errorf("sqlstore: read %s: %w", table, err)
	}

	var seq, last int64
	q := fmt.Sprintf("SELECT COALESCE(MAX(seq), 0), COALESCE(MAX(taken_at), 0) FROM %s", snaps)
	if err := tx.QueryRowContext(ctx, q).Scan(&seq, &last); err != nil {
		return snapcdc.SnapshotInfo{}, fmt.Errorf("sqlstore: next snapshot of %s: %w", table, err)
	}
	takenAt := s.cfg.Now().UTC().UnixMicro()
	if takenAt <= last {
		takenAt = last + 1
	}
	colsJSON, err := json.Marshal(cols)
	if err != nil {
		return snapcdc.SnapshotInfo{}, err
	}

	info := snapcdc.SnapshotInfo{
		ID:        uuid.NewString(),
		Timestamp: time.UnixMicro(takenAt).UTC(),
		Operation: operation,
	}
	stmt, err := query.Insert(s.dialect, snaps, map[string]any{
		"seq":         seq + 1,
		"snapshot_id": info.ID,
		"taken_at":    takenAt,
		"operation":   operation,
		"columns":     string(colsJSON),
	})
	if err != nil {
		return snapcdc.SnapshotInfo{}, err
	}
	if _, err := tx.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
		return snapcdc.SnapshotInfo{}, fmt.Errorf("sqlstore: record snapshot of %s: %w", table, err)
	}

	for i, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return snapcdc.SnapshotInfo{}, fmt.Errorf("sqlstore: encode row %d of %s: %w", i, table, err)
		}
		stmt, err := query.Insert(s.dialect, rowsTable, map[string]any{
			"snapshot_id": info.ID,
			"ordinal":     int64(i),
			"row_data":    string(data),
		})
		if err != nil {
			return snapcdc.SnapshotInfo{}, err
		}
		if _, err := tx.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
			return snapcdc.SnapshotInfo{}, fmt.Errorf("sqlstore: store row %d of %s: %w", i, table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return snapcdc.SnapshotInfo{}, fmt.Errorf("sqlstore: commit capture of %s: %w", table, err)
	}

	s.cfg.Logger.DebugContext(ctx, "sqlstore: snapshot captured",
		slog.String("table", table),
		slog.String("snapshot_id", info.ID),
		slog.Int("rows", len(records)),
	)
	return info, nil
}

// ListSnapshots returns the snapshots of table in capture order.
func (s *Store) ListSnapshots(ctx context.Context, table string) ([]snapcdc.SnapshotInfo, error) {
	parts, err := s.snapshotTables(ctx, table)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT snapshot_id, taken_at, operation FROM %s ORDER BY seq", suffixed(parts, s.cfg.SnapshotSuffix))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list snapshots of %s: %w", table, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	out := []snapcdc.SnapshotInfo{}
	for rows.Next() {
		var info snapcdc.SnapshotInfo
		var takenAt int64
		if err := rows.Scan(&info.ID, &takenAt, &info.Operation); err != nil {
			return nil, fmt.Errorf("sqlstore: list snapshots of %s: %w", table, err)
		}
		info.Timestamp = time.UnixMicro(takenAt).UTC()
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: list snapshots of %s: %w", table, err)
	}
	return out, nil
}

// ReadSnapshot materializes snapshot id of table.
func (s *Store) ReadSnapshot(ctx context.Context, table, id string) (snapcdc.RowSet, error) {
	parts, err := s.snapshotTables(ctx, table)
	if err != nil {
		return nil, err
	}

	var colsJSON string
	q := fmt.Sprintf("SELECT columns FROM %s WHERE snapshot_id = %s", suffixed(parts, s.cfg.SnapshotSuffix), s.dialect.Placeholder(1))
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&colsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sqlstore: snapshot %s of %s: %w", id, table, snapcdc.ErrNotFound)
		}
		return nil, fmt.Errorf("sqlstore: read snapshot %s of %s: %w", id, table, err)
	}
	var cols []string
	if err := json.Unmarshal([]byte(colsJSON), &cols); err != nil {
		return nil, fmt.Errorf("sqlstore: decode columns of snapshot %s: %w", id, err)
	}

	q = fmt.Sprintf("SELECT row_data FROM %s WHERE snapshot_id = %s ORDER BY ordinal", suffixed(parts, s.cfg.RowsSuffix), s.dialect.Placeholder(1))
	rows, err := s.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: read snapshot %s of %s: %w", id, table, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var records []snapcdc.Row
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("sqlstore: read snapshot %s of %s: %w", id, table, err)
		}
		r, err := decodeRow(data)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: decode row of snapshot %s: %w", id, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: read snapshot %s of %s: %w", id, table, err)
	}
	return rowset.NewSlice(cols, records...), nil
}

// snapshotTables validates table and checks that Migrate has created its
// snapshot tables.
func (s *Store) snapshotTables(ctx context.Context, table string) ([]string, error) {
	parts := ident.SplitQualified(table)
	if len(parts) == 0 || len(parts) > 2 {
		return nil, fmt.Errorf("sqlstore: unsupported identifier %q: %w", table, snapcdc.ErrInvalidArgument)
	}
	meta := ident.SuffixParts(ident.QuoteQualified(parts), s.cfg.SnapshotSuffix)
	ok, err := s.tableExists(ctx, meta)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("sqlstore: no snapshots for %s, run Migrate first: %w", table, snapcdc.ErrNotFound)
	}
	return parts, nil
}

// suffixed renders the quoted name of the side table parts+suffix.
func suffixed(parts []string, suffix string) string {
	return ident.QuoteQualified(ident.SuffixParts(ident.QuoteQualified(parts), suffix))
}
