package main

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/snapcdc"
	"github.com/mickamy/snapcdc/internal/config"
)

func run(t *testing.T, dsn string, args ...string) (string, error) {
	t.Helper()
	cfg := config.Config{Driver: "sqlite", DSN: dsn, SnapshotSuffix: "_snapshots", LogLevel: "error", LogFormat: "text"}
	cmd := newRootCmd(cfg)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustExec(t *testing.T, db *sql.DB, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
}

func TestCLI_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "cli.db")

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mustExec(t, db,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, status TEXT, amount REAL)`,
		`CREATE TABLE orders_mirror (id INTEGER PRIMARY KEY, status TEXT, amount REAL)`,
		`INSERT INTO orders VALUES (1, 'new', 10.5), (2, 'new', 20)`,
		`INSERT INTO orders_mirror VALUES (1, 'new', 10.5), (2, 'new', 20)`,
	)

	out, err := run(t, dsn, "migrate", "orders", "orders_mirror")
	require.NoError(t, err)
	assert.Contains(t, out, "Migrated 2 table(s)")

	_, err = run(t, dsn, "capture", "orders", "--operation", "seed")
	require.NoError(t, err)
	mustExec(t, db,
		`UPDATE orders SET status = 'paid' WHERE id = 1`,
		`DELETE FROM orders WHERE id = 2`,
		`INSERT INTO orders VALUES (3, 'new', 5)`,
	)
	_, err = run(t, dsn, "capture", "orders", "--operation", "edit")
	require.NoError(t, err)

	out, err = run(t, dsn, "changes", "orders")
	require.NoError(t, err)
	cs, err := snapcdc.ParseChangeSet(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, snapcdc.Counts{Inserts: 1, Updates: 1, Deletes: 1}, cs.Summary)
	assert.Equal(t, []string{"id"}, cs.KeyColumns)

	out, err = run(t, dsn, "summary", "orders")
	require.NoError(t, err)
	assert.Contains(t, out, `"affected_columns": [`)
	assert.Contains(t, out, `"status"`)

	out, err = run(t, dsn, "log", "orders")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "edit")

	out, err = run(t, dsn, "export", "orders", "--format", "csv")
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"change_type", "id", "status", "amount"}, records[0])
	assert.Len(t, records, 5)

	_, err = run(t, dsn, "export", "orders", "--format", "xml")
	require.ErrorIs(t, err, snapcdc.ErrInvalidArgument)

	exported := filepath.Join(dir, "changes.json")
	_, err = run(t, dsn, "export", "orders", "-o", exported)
	require.NoError(t, err)
	_, err = os.Stat(exported)
	require.NoError(t, err)

	out, err = run(t, dsn, "replay", exported, "--target", "orders_mirror", "--capture", "--operator", "cli-test")
	require.NoError(t, err)
	assert.Contains(t, out, `"total_applied": 3`)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM orders_mirror WHERE id IN (1, 3) AND status IN ('paid', 'new')`).Scan(&count))
	assert.Equal(t, 2, count)
	var status string
	require.NoError(t, db.QueryRow(`SELECT status FROM orders_mirror WHERE id = 1`).Scan(&status))
	assert.Equal(t, "paid", status)

	out, err = run(t, dsn, "log", "orders_mirror")
	require.NoError(t, err)
	assert.Contains(t, out, "No changes found.")

	_, err = run(t, dsn, "replay", exported, "--target", "orders_mirror")
	require.Error(t, err, "replaying twice fails on the already applied changes")
}
