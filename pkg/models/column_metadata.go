package models

// ColumnMetadata describes a single column from store introspection.
type ColumnMetadata struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}
