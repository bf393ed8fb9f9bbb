package sqlstore

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"

	"github.com/mickamy/snapcdc"
	"github.com/mickamy/snapcdc/internal/ident"
	"github.com/mickamy/snapcdc/internal/query"
)

// TableNamer provides a custom table name for a model.
type TableNamer interface {
	TableName() string
}

// Migrate resolves table identifiers from the provided targets and creates
// the snapshot metadata and row tables for each. Targets are table names,
// TableNamer values or structs whose snake_cased plural type name is the
// table.
func (s *Store) Migrate(ctx context.Context, targets ...any) error {
	for _, t := range targets {
		name, err := resolveTableName(t)
		if err != nil {
			return err
		}
		parts := ident.SplitQualified(name)
		if len(parts) == 0 || len(parts) > 2 {
			return fmt.Errorf("sqlstore: unsupported identifier %q: %w", name, snapcdc.ErrInvalidArgument)
		}
		ok, err := s.tableExists(ctx, parts)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("sqlstore: table %s: %w", ident.Join(parts), snapcdc.ErrNotFound)
		}
		if err := s.createSnapshotTables(ctx, parts); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) createSnapshotTables(ctx context.Context, parts []string) error {
	snaps := suffixed(parts, s.cfg.SnapshotSuffix)
	rows := suffixed(parts, s.cfg.RowsSuffix)

	ddl := []string{
		fmt.Sprintf(`
    CREATE TABLE IF NOT EXISTS %s (
        seq BIGINT PRIMARY KEY,
        snapshot_id TEXT NOT NULL UNIQUE,
        taken_at BIGINT NOT NULL,
        operation TEXT NOT NULL,
        columns TEXT NOT NULL
    )`, snaps),
		fmt.Sprintf(`
    CREATE TABLE IF NOT EXISTS %s (
        snapshot_id TEXT NOT NULL,
        ordinal BIGINT NOT NULL,
        row_data TEXT NOT NULL,
        PRIMARY KEY (snapshot_id, ordinal)
    )`, rows),
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: create snapshot tables for %s: %w", ident.Join(parts), err)
		}
	}
	return nil
}

// tableExists reports whether the table or view named by parts exists.
func (s *Store) tableExists(ctx context.Context, parts []string) (bool, error) {
	var n int
	var err error
	switch s.dialect {
	case query.SQLite:
		catalog := "sqlite_master"
		if len(parts) == 2 {
			catalog = ident.Quote(parts[0]) + ".sqlite_master"
		}
		q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE type IN ('table', 'view') AND name = ?`, catalog)
		err = s.db.QueryRowContext(ctx, q, parts[len(parts)-1]).Scan(&n)
	default:
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM (SELECT to_regclass($1) AS oid) AS r WHERE r.oid IS NOT NULL`,
			ident.QuoteQualified(parts),
		).Scan(&n)
	}
	if err != nil {
		return false, fmt.Errorf("sqlstore: look up table %s: %w", ident.Join(parts), err)
	}
	return n > 0, nil
}

var tableNamerType = reflect.TypeOf((*TableNamer)(nil)).Elem()

func resolveTableName(target any) (string, error) {
	switch v := target.(type) {
	case nil:
		return "", fmt.Errorf("sqlstore: nil table target: %w", snapcdc.ErrInvalidArgument)
	case string:
		name := strings.TrimSpace(v)
		if name == "" {
			return "", fmt.Errorf("sqlstore: empty table name: %w", snapcdc.ErrInvalidArgument)
		}
		return name, nil
	case TableNamer:
		return namerTableName(v)
	}

	val := reflect.ValueOf(target)
	typ := val.Type()
	if typ.Kind() == reflect.Pointer {
		if val.IsNil() {
			return "", fmt.Errorf("sqlstore: nil pointer target %T: %w", target, snapcdc.ErrInvalidArgument)
		}
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return "", fmt.Errorf("sqlstore: unsupported table target %T: %w", target, snapcdc.ErrInvalidArgument)
	}
	if reflect.PointerTo(typ).Implements(tableNamerType) {
		return namerTableName(reflect.New(typ).Interface().(TableNamer))
	}
	if typ.Name() == "" {
		return "", fmt.Errorf("sqlstore: cannot derive table name for anonymous struct of type %v: %w", typ, snapcdc.ErrInvalidArgument)
	}
	return inflection.Plural(toSnakeCase(typ.Name())), nil
}

func namerTableName(n TableNamer) (string, error) {
	name := strings.TrimSpace(n.TableName())
	if name == "" {
		return "", fmt.Errorf("sqlstore: TableName returned empty string. %T: %w", n, snapcdc.ErrInvalidArgument)
	}
	return name, nil
}

func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
