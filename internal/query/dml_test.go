package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/snapcdc/internal/query"
)

func TestInsert(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name     string
		dialect  query.Dialect
		values   map[string]any
		wantSQL  string
		wantArgs []any
		wantErr  bool
	}{
		{
			name:     "postgres",
			dialect:  query.Postgres,
			values:   map[string]any{"name": "dave", "id": 4},
			wantSQL:  `INSERT INTO "orders" ("id", "name") VALUES ($1, $2)`,
			wantArgs: []any{4, "dave"},
		},
		{
			name:     "sqlite keeps nulls as arguments",
			dialect:  query.SQLite,
			values:   map[string]any{"id": 4, "note": nil},
			wantSQL:  `INSERT INTO "orders" ("id", "note") VALUES (?, ?)`,
			wantArgs: []any{4, nil},
		},
		{
			name:    "no columns",
			dialect: query.Postgres,
			values:  map[string]any{},
			wantErr: true,
		},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := query.Insert(tc.dialect, `"orders"`, tc.values)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantSQL, got.SQL)
			assert.Equal(t, tc.wantArgs, got.Args)
		})
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name     string
		dialect  query.Dialect
		set      map[string]any
		where    map[string]any
		wantSQL  string
		wantArgs []any
		wantErr  bool
	}{
		{
			name:     "postgres numbering continues into predicate",
			dialect:  query.Postgres,
			set:      map[string]any{"status": "paid", "amount": 15},
			where:    map[string]any{"id": 1},
			wantSQL:  `UPDATE "public"."orders" SET "amount" = $1, "status" = $2 WHERE "id" = $3`,
			wantArgs: []any{15, "paid", 1},
		},
		{
			name:     "null key uses IS NULL",
			dialect:  query.Postgres,
			set:      map[string]any{"status": "paid"},
			where:    map[string]any{"id": 1, "region": nil},
			wantSQL:  `UPDATE "public"."orders" SET "status" = $1 WHERE "id" = $2 AND "region" IS NULL`,
			wantArgs: []any{"paid", 1},
		},
		{
			name:     "sqlite",
			dialect:  query.SQLite,
			set:      map[string]any{"status": nil},
			where:    map[string]any{"id": 1},
			wantSQL:  `UPDATE "public"."orders" SET "status" = ? WHERE "id" = ?`,
			wantArgs: []any{nil, 1},
		},
		{
			name:    "empty predicate is refused",
			dialect: query.Postgres,
			set:     map[string]any{"status": "paid"},
			wantErr: true,
		},
		{
			name:    "empty set",
			dialect: query.Postgres,
			where:   map[string]any{"id": 1},
			wantErr: true,
		},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := query.Update(tc.dialect, `"public"."orders"`, tc.set, tc.where)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantSQL, got.SQL)
			assert.Equal(t, tc.wantArgs, got.Args)
		})
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	got, err := query.Delete(query.Postgres, `"orders"`, map[string]any{"id": 2, "name": "bob", "note": nil})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "orders" WHERE "id" = $1 AND "name" = $2 AND "note" IS NULL`, got.SQL)
	assert.Equal(t, []any{2, "bob"}, got.Args)

	_, err = query.Delete(query.SQLite, `"orders"`, nil)
	require.Error(t, err)
}
