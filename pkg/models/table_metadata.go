package models

import "time"

// TableMetadata describes a table as observed by the metadata cache:
// row count, on-disk size, and column layout. Entries are immutable once
// fetched and live for the session only.
type TableMetadata struct {
	Name      string           `json:"name"`
	RowCount  int64            `json:"row_count"`
	TableSize string           `json:"table_size"`
	Columns   []ColumnMetadata `json:"columns"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// HasColumn reports whether the table exposes a column with the given name.
func (m *TableMetadata) HasColumn(name string) bool {
	for _, col := range m.Columns {
		if col.Name == name {
			return true
		}
	}
	return false
}
