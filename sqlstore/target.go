package sqlstore

import (
	"context"
	"fmt"

	"github.com/mickamy/snapcdc"
	"github.com/mickamy/snapcdc/internal/ident"
	"github.com/mickamy/snapcdc/internal/query"
)

// AppendRows inserts rows into table in one transaction.
func (s *Store) AppendRows(ctx context.Context, table string, rows []snapcdc.Row) error {
	name, err := quotedTable(table)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin insert into %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range rows {
		values, err := bindRow(r)
		if err != nil {
			return err
		}
		stmt, err := query.Insert(s.dialect, name, values)
		if err != nil {
			return fmt.Errorf("sqlstore: %w: %w", err, snapcdc.ErrInvalidArgument)
		}
		if _, err := tx.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
			return fmt.Errorf("sqlstore: insert into %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit insert into %s: %w", table, err)
	}
	return nil
}

// UpdateRows sets values on the rows of table matching where.
func (s *Store) UpdateRows(ctx context.Context, table string, where snapcdc.Predicate, values snapcdc.Row) error {
	name, err := quotedTable(table)
	if err != nil {
		return err
	}
	set, err := bindRow(values)
	if err != nil {
		return err
	}
	cond, err := bindRow(snapcdc.Row(where))
	if err != nil {
		return err
	}
	stmt, err := query.Update(s.dialect, name, set, cond)
	if err != nil {
		return fmt.Errorf("sqlstore: %w: %w", err, snapcdc.ErrInvalidArgument)
	}
	return s.execAffecting(ctx, stmt, "update "+table)
}

// DeleteRows removes the rows of table matching where.
func (s *Store) DeleteRows(ctx context.Context, table string, where snapcdc.Predicate) error {
	name, err := quotedTable(table)
	if err != nil {
		return err
	}
	cond, err := bindRow(snapcdc.Row(where))
	if err != nil {
		return err
	}
	stmt, err := query.Delete(s.dialect, name, cond)
	if err != nil {
		return fmt.Errorf("sqlstore: %w: %w", err, snapcdc.ErrInvalidArgument)
	}
	return s.execAffecting(ctx, stmt, "delete from "+table)
}

// execAffecting runs stmt and wraps ErrNotFound when it touched no row.
func (s *Store) execAffecting(ctx context.Context, stmt query.Statement, op string) error {
	res, err := s.db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return fmt.Errorf("sqlstore: %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: %s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("sqlstore: %s: no row matches: %w", op, snapcdc.ErrNotFound)
	}
	return nil
}

func quotedTable(table string) (string, error) {
	parts := ident.SplitQualified(table)
	if len(parts) == 0 || len(parts) > 2 {
		return "", fmt.Errorf("sqlstore: unsupported identifier %q: %w", table, snapcdc.ErrInvalidArgument)
	}
	return ident.QuoteQualified(parts), nil
}

func bindRow(r snapcdc.Row) (map[string]any, error) {
	out := make(map[string]any, len(r))
	for k, v := range r {
		b, err := bindValue(v)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: encode column %s: %w", k, err)
		}
		out[k] = b
	}
	return out, nil
}
