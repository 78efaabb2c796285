package datasource

import (
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat64Value(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
		ok    bool
	}{
		{name: "float64", input: float64(1.5), want: 1.5, ok: true},
		{name: "float32", input: float32(2.5), want: 2.5, ok: true},
		{name: "int64", input: int64(7), want: 7, ok: true},
		{name: "int32", input: int32(7), want: 7, ok: true},
		{name: "int16", input: int16(7), want: 7, ok: true},
		{name: "int", input: int(7), want: 7, ok: true},
		{name: "numeric", input: pgtype.Numeric{Int: big.NewInt(1234), Exp: -2, Valid: true}, want: 12.34, ok: true},
		{name: "invalid numeric", input: pgtype.Numeric{}, ok: false},
		{name: "string", input: "7", ok: false},
		{name: "nil", input: nil, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Float64Value(tt.input)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestInt64Value(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  int64
		ok    bool
	}{
		{name: "int64", input: int64(42), want: 42, ok: true},
		{name: "int32", input: int32(42), want: 42, ok: true},
		{name: "float truncates", input: float64(3.9), want: 3, ok: true},
		{name: "whole numeric", input: pgtype.Numeric{Int: big.NewInt(42), Exp: 0, Valid: true}, want: 42, ok: true},
		{name: "fractional numeric", input: pgtype.Numeric{Int: big.NewInt(1234), Exp: -2, Valid: true}, ok: false},
		{name: "invalid numeric", input: pgtype.Numeric{}, ok: false},
		{name: "nil", input: nil, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Int64Value(tt.input)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestStringValue(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "nil", input: nil, want: ""},
		{name: "string", input: "pro", want: "pro"},
		{name: "bytes", input: []byte("raw"), want: "raw"},
		{name: "bool", input: true, want: "true"},
		{name: "int64", input: int64(7), want: "7"},
		{name: "time", input: ts, want: "2025-06-01T12:00:00Z"},
		{name: "numeric", input: pgtype.Numeric{Int: big.NewInt(125), Exp: -1, Valid: true}, want: "12.5"},
		{name: "uuid bytes", input: [16]byte{0xde, 0xad, 0xbe, 0xef, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}, want: "deadbeef-0000-0000-0000-000000000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StringValue(tt.input))
		})
	}
}

func TestTimeValue(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	got, ok := TimeValue(ts)
	require.True(t, ok)
	assert.True(t, got.Equal(ts))

	got, ok = TimeValue("2025-06-01T12:00:00Z")
	require.True(t, ok)
	assert.True(t, got.Equal(ts))

	got, ok = TimeValue("2025-06-01")
	require.True(t, ok)
	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, time.June, got.Month())

	_, ok = TimeValue("not a date")
	assert.False(t, ok)

	_, ok = TimeValue(nil)
	assert.False(t, ok)

	_, ok = TimeValue(int64(12345))
	assert.False(t, ok)
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.False(t, IsNull(""))
	assert.False(t, IsNull(0))
}
