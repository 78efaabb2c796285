// Package datasource defines the query execution contract between the
// analysis services and the underlying database, plus helpers for
// coercing scanned values and quoting SQL fragments.
package datasource

import (
	"context"
	"time"
)

// QueryExecutor executes SQL against the analyzed database.
// Each implementation owns its connection and must be closed when done.
type QueryExecutor interface {
	// Query runs a SELECT statement and returns all rows along with
	// column metadata, the elapsed execution time, and a best-effort
	// execution plan. Failures are returned as *QueryError.
	Query(ctx context.Context, sqlQuery string) (*QueryExecutionResult, error)

	// Close releases any resources held by the executor.
	Close() error
}

// ColumnInfo describes a result column with database-agnostic type information.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"` // Database type name (e.g., "TEXT", "INT4", "VARCHAR")
}

// QueryExecutionResult holds the results from executing a query.
type QueryExecutionResult struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
	// ExecutionTime covers the main query only, not the plan fetch.
	ExecutionTime time.Duration `json:"-"`
	// Plan is the text execution plan, empty when unavailable.
	Plan string `json:"plan,omitempty"`
}

// ColumnNames returns the result's column names in order.
func (r *QueryExecutionResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, col := range r.Columns {
		names[i] = col.Name
	}
	return names
}

// HasColumn reports whether the result contains a column with the given name.
func (r *QueryExecutionResult) HasColumn(name string) bool {
	for _, col := range r.Columns {
		if col.Name == name {
			return true
		}
	}
	return false
}
