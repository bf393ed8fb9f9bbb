package rowset

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// missing marks a column that is not present in a row at all, which is
// distinct from a present column holding NULL.
const missing = "~"

// AppendValue appends the type-tagged canonical form of v to b.
func AppendValue(b []byte, v any) []byte {
	switch t := v.(type) {
	case nil:
		return append(b, 'n')
	case bool:
		b = append(b, "b:"...)
		return strconv.AppendBool(b, t)
	case int:
		return appendInt(b, int64(t))
	case int8:
		return appendInt(b, int64(t))
	case int16:
		return appendInt(b, int64(t))
	case int32:
		return appendInt(b, int64(t))
	case int64:
		return appendInt(b, t)
	case uint:
		return appendUint(b, uint64(t))
	case uint8:
		return appendUint(b, uint64(t))
	case uint16:
		return appendUint(b, uint64(t))
	case uint32:
		return appendUint(b, uint64(t))
	case uint64:
		return appendUint(b, t)
	case float32:
		b = append(b, "f:"...)
		return strconv.AppendFloat(b, float64(t), 'g', -1, 32)
	case float64:
		b = append(b, "f:"...)
		return strconv.AppendFloat(b, t, 'g', -1, 64)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return appendInt(b, i)
		}
		if f, err := t.Float64(); err == nil {
			b = append(b, "f:"...)
			return strconv.AppendFloat(b, f, 'g', -1, 64)
		}
		b = append(b, "s:"...)
		return strconv.AppendQuote(b, t.String())
	case string:
		b = append(b, "s:"...)
		return strconv.AppendQuote(b, t)
	case []byte:
		b = append(b, "x:"...)
		return hex.AppendEncode(b, t)
	case time.Time:
		b = append(b, "t:"...)
		return t.UTC().AppendFormat(b, time.RFC3339Nano)
	case map[string]any, []any, Row:
		// encoding/json sorts map keys, which keeps nested values stable.
		js, err := json.Marshal(t)
		if err != nil {
			return appendFallback(b, v)
		}
		b = append(b, "j:"...)
		return strconv.AppendQuote(b, string(js))
	default:
		return appendFallback(b, v)
	}
}

func appendInt(b []byte, i int64) []byte {
	b = append(b, "i:"...)
	return strconv.AppendInt(b, i, 10)
}

func appendUint(b []byte, u uint64) []byte {
	if u <= math.MaxInt64 {
		return appendInt(b, int64(u))
	}
	b = append(b, "u:"...)
	return strconv.AppendUint(b, u, 10)
}

func appendFallback(b []byte, v any) []byte {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return append(b, 'n')
		}
		return AppendValue(b, rv.Elem().Interface())
	}
	b = append(b, "v:"...)
	return strconv.AppendQuote(b, fmt.Sprintf("%T:%v", v, v))
}

// Encode returns the canonical encoding of r over cols. cols must already be
// in canonical (sorted) order for encodings to be comparable.
func Encode(r Row, cols []string) []byte {
	b := make([]byte, 0, 16*len(cols))
	return appendEncoded(b, r, cols)
}

func appendEncoded(b []byte, r Row, cols []string) []byte {
	for i, c := range cols {
		if i > 0 {
			b = append(b, 0x1f)
		}
		b = strconv.AppendQuote(b, c)
		b = append(b, '=')
		v, ok := r[c]
		if !ok {
			b = append(b, missing...)
			continue
		}
		b = AppendValue(b, v)
	}
	return b
}

// Equal reports whether a and b have the same canonical encoding. Two nils
// are equal; nil and any non-nil value are not.
func Equal(a, b any) bool {
	return string(AppendValue(nil, a)) == string(AppendValue(nil, b))
}

// ColumnEqual compares column c of two rows, treating a missing column as
// different from every present value, NULL included.
func ColumnEqual(a, b Row, c string) bool {
	av, aok := a[c]
	bv, bok := b[c]
	if aok != bok {
		return false
	}
	if !aok {
		return true
	}
	return Equal(av, bv)
}

// Format renders v as an untagged literal suitable for text output. nil
// renders as the empty string.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return hex.EncodeToString(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case bool:
		return strconv.FormatBool(t)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case json.Number:
		return t.String()
	case map[string]any, []any, Row:
		js, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(js)
	default:
		return fmt.Sprint(v)
	}
}
