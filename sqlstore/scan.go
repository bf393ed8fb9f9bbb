package sqlstore

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mickamy/snapcdc"
	"github.com/mickamy/snapcdc/internal/rowset"
)

// scanAll consumes rows into records keyed by column name.
func scanAll(rows *sql.Rows) ([]string, []snapcdc.Row, error) {
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out []snapcdc.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		out = append(out, rowToMap(cols, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return cols, out, nil
}

// rowToMap converts a single row (columns + values) to a map of values that
// survive a JSON round trip unchanged.
func rowToMap(cols []string, vals []any) snapcdc.Row {
	m := make(snapcdc.Row, len(cols))
	for i, c := range cols {
		m[c] = scalar(vals[i])
	}
	return m
}

func scalar(v any) any {
	switch t := v.(type) {
	case []byte:
		// JSON documents are kept structured; other bytes become text.
		if trimmed := bytes.TrimSpace(t); len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			if js, err := decodeJSON(trimmed); err == nil {
				return js
			}
		}
		return string(t)
	case [16]byte:
		return uuid.UUID(t).String()
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case float32:
		return float64(t)
	default:
		return v
	}
}

func decodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return rowset.NormalizeJSON(v), nil
}

func decodeRow(data string) (snapcdc.Row, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var r snapcdc.Row
	if err := dec.Decode(&r); err != nil {
		return nil, err
	}
	return rowset.NormalizeRow(r), nil
}

// bindValue prepares a replayed value for a driver argument. Nested
// documents are written as JSON text.
func bindValue(v any) (any, error) {
	switch v.(type) {
	case map[string]any, []any, snapcdc.Row:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return v, nil
	}
}
