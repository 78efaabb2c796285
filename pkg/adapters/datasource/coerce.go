package datasource

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// IsNull reports whether a scanned cell is SQL NULL. pgx decodes NULL of
// any type to an untyped nil.
func IsNull(v any) bool {
	return v == nil
}

// Float64Value extracts a float64 from a scanned cell. It handles the Go
// types pgx produces for the numeric PostgreSQL families, including
// NUMERIC values arriving as pgtype.Numeric.
func Float64Value(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int16:
		return float64(x), true
	case int:
		return float64(x), true
	case pgtype.Numeric:
		if !x.Valid {
			return 0, false
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return 0, false
		}
		return f.Float64, true
	}
	return 0, false
}

// Int64Value extracts an int64 from a scanned cell. Float values are
// truncated toward zero.
func Int64Value(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	case float32:
		return int64(x), true
	case pgtype.Numeric:
		if !x.Valid {
			return 0, false
		}
		n, err := x.Int64Value()
		if err != nil || !n.Valid {
			return 0, false
		}
		return n.Int64, true
	}
	return 0, false
}

// StringValue renders a scanned cell as a string for grouping and display.
// NULL renders as the empty string.
func StringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case pgtype.Numeric:
		if f, err := x.Float64Value(); err == nil && f.Valid {
			return strconv.FormatFloat(f.Float64, 'g', -1, 64)
		}
		return ""
	case [16]byte: // uuid
		return fmt.Sprintf("%x-%x-%x-%x-%x", x[0:4], x[4:6], x[6:8], x[8:10], x[10:16])
	default:
		return fmt.Sprintf("%v", x)
	}
}

// TimeValue extracts a time.Time from a scanned cell. String cells are
// parsed as RFC 3339 or as a bare date.
func TimeValue(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case *time.Time:
		if x != nil {
			return *x, true
		}
	case string:
		if t, err := time.Parse(time.RFC3339, x); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02", x); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
