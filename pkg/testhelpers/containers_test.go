//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestTestDB_Connection(t *testing.T) {
	testDB := GetTestDB(t)

	ctx := context.Background()

	// Verify we can query the seeded schema
	var tableCount int
	err := testDB.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public'").
		Scan(&tableCount)
	if err != nil {
		t.Fatalf("failed to count tables: %v", err)
	}

	if tableCount != 2 {
		t.Errorf("expected 2 tables in test schema, got %d", tableCount)
	}
}

func TestTestDB_SeededData(t *testing.T) {
	testDB := GetTestDB(t)

	ctx := context.Background()

	tests := []struct {
		table    string
		expected int
	}{
		{"users", 7},
		{"orders", 7},
	}

	for _, tt := range tests {
		var count int
		err := testDB.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+tt.table).Scan(&count)
		if err != nil {
			t.Errorf("failed to count %s: %v", tt.table, err)
			continue
		}
		if count != tt.expected {
			t.Errorf("%s: expected %d rows, got %d", tt.table, tt.expected, count)
		}
	}
}
