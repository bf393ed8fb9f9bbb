package rowset_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/snapcdc/internal/rowset"
)

func people(rows ...rowset.Row) *rowset.Slice {
	return rowset.NewSlice([]string{"id", "name"}, rows...)
}

func TestDiff(t *testing.T) {
	t.Parallel()

	alice := rowset.Row{"id": int64(1), "name": "alice"}
	bob := rowset.Row{"id": int64(2), "name": "bob"}
	carol := rowset.Row{"id": int64(3), "name": "carol"}
	dave := rowset.Row{"id": int64(4), "name": "dave"}

	tcs := []struct {
		name        string
		old         *rowset.Slice
		new         *rowset.Slice
		wantAdded   []rowset.Row
		wantRemoved []rowset.Row
	}{
		{
			name:      "insert",
			old:       people(alice, bob, carol),
			new:       people(alice, bob, carol, dave),
			wantAdded: []rowset.Row{dave},
		},
		{
			name:        "delete",
			old:         people(alice, bob, carol),
			new:         people(alice, carol),
			wantRemoved: []rowset.Row{bob},
		},
		{
			name:        "update shows on both sides",
			old:         people(alice, bob),
			new:         people(rowset.Row{"id": int64(1), "name": "alicia"}, bob),
			wantAdded:   []rowset.Row{{"id": int64(1), "name": "alicia"}},
			wantRemoved: []rowset.Row{alice},
		},
		{
			name: "unchanged rows in a different order",
			old:  people(alice, bob, carol),
			new:  people(carol, alice, bob),
		},
		{
			name: "integer widths compare equal",
			old:  people(rowset.Row{"id": 1, "name": "alice"}),
			new:  people(rowset.Row{"id": int64(1), "name": "alice"}),
		},
		{
			name: "duplicates collapse",
			old:  people(alice, alice),
			new:  people(alice),
		},
		{
			name:        "null differs from value",
			old:         people(rowset.Row{"id": int64(1), "name": nil}),
			new:         people(rowset.Row{"id": int64(1), "name": "x"}),
			wantAdded:   []rowset.Row{{"id": int64(1), "name": "x"}},
			wantRemoved: []rowset.Row{{"id": int64(1), "name": nil}},
		},
		{
			name: "null equals null",
			old:  people(rowset.Row{"id": int64(1), "name": nil}),
			new:  people(rowset.Row{"id": int64(1), "name": nil}),
		},
		{
			name:        "string and integer are different types",
			old:         people(rowset.Row{"id": "1", "name": "a"}),
			new:         people(rowset.Row{"id": int64(1), "name": "a"}),
			wantAdded:   []rowset.Row{{"id": int64(1), "name": "a"}},
			wantRemoved: []rowset.Row{{"id": "1", "name": "a"}},
		},
		{
			name:      "from empty",
			old:       rowset.Empty([]string{"id", "name"}),
			new:       people(alice, bob),
			wantAdded: []rowset.Row{alice, bob},
		},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := rowset.Diff(tc.old, tc.new)
			require.NoError(t, err)
			assert.False(t, got.SchemaMismatch)
			assert.Equal(t, tc.wantAdded, got.Added)
			assert.Equal(t, tc.wantRemoved, got.Removed)
		})
	}
}

func TestDiff_SchemaMismatch(t *testing.T) {
	t.Parallel()

	old := rowset.NewSlice([]string{"id", "name"}, rowset.Row{"id": 1, "name": "a"})
	cur := rowset.NewSlice([]string{"id", "name", "age"}, rowset.Row{"id": 1, "name": "a", "age": 3})

	got, err := rowset.Diff(old, cur)
	require.NoError(t, err)
	assert.True(t, got.SchemaMismatch)
	assert.Len(t, got.Added, 1)
	assert.Len(t, got.Removed, 1)
}

func TestDiff_ColumnOrderIsIrrelevant(t *testing.T) {
	t.Parallel()

	old := rowset.NewSlice([]string{"id", "name"}, rowset.Row{"id": 1, "name": "a"})
	cur := rowset.NewSlice([]string{"name", "id"}, rowset.Row{"id": 1, "name": "a"})

	got, err := rowset.Diff(old, cur)
	require.NoError(t, err)
	assert.Empty(t, got.Added)
	assert.Empty(t, got.Removed)
}

func TestEqual(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tcs := []struct {
		name string
		a, b any
		want bool
	}{
		{name: "nil nil", a: nil, b: nil, want: true},
		{name: "nil zero", a: nil, b: 0, want: false},
		{name: "nil empty string", a: nil, b: "", want: false},
		{name: "int widths", a: int32(7), b: uint8(7), want: true},
		{name: "int and float", a: 1, b: 1.0, want: false},
		{name: "json number int", a: json.Number("42"), b: int64(42), want: true},
		{name: "time zones", a: ts, b: ts.In(time.FixedZone("x", 3600)), want: true},
		{name: "bytes", a: []byte("ab"), b: []byte("ab"), want: true},
		{name: "nested maps", a: map[string]any{"a": 1, "b": 2}, b: map[string]any{"b": 2, "a": 1}, want: true},
		{name: "nil pointer", a: (*int)(nil), b: nil, want: true},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, rowset.Equal(tc.a, tc.b))
		})
	}
}

func TestColumnEqual_MissingColumn(t *testing.T) {
	t.Parallel()

	a := rowset.Row{"id": 1, "note": nil}
	b := rowset.Row{"id": 1}

	assert.True(t, rowset.ColumnEqual(a, b, "id"))
	assert.False(t, rowset.ColumnEqual(a, b, "note"))
	assert.True(t, rowset.ColumnEqual(a, b, "absent"))
}

func TestNormalizeRow(t *testing.T) {
	t.Parallel()

	r := rowset.Row{
		"i":   json.Number("3"),
		"f":   json.Number("1.5"),
		"obj": map[string]any{"n": json.Number("9")},
		"s":   "x",
	}
	got := rowset.NormalizeRow(r)

	assert.Equal(t, int64(3), got["i"])
	assert.Equal(t, 1.5, got["f"])
	assert.Equal(t, map[string]any{"n": int64(9)}, got["obj"])
	assert.Equal(t, "x", got["s"])
}

func TestFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", rowset.Format(nil))
	assert.Equal(t, "12", rowset.Format(int64(12)))
	assert.Equal(t, "1.25", rowset.Format(1.25))
	assert.Equal(t, "true", rowset.Format(true))
	assert.Equal(t, "2025-01-02T03:04:05Z", rowset.Format(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, `{"a":1}`, rowset.Format(map[string]any{"a": 1}))
}
