package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/nimrodfisher/insight-engine/pkg/adapters/datasource"
	"github.com/nimrodfisher/insight-engine/pkg/models"
)

// fakeExecutor is a scripted datasource.QueryExecutor. It records every
// query and answers through the respond callback.
type fakeExecutor struct {
	queries []string
	respond func(sqlQuery string) (*datasource.QueryExecutionResult, error)
}

func (f *fakeExecutor) Query(_ context.Context, sqlQuery string) (*datasource.QueryExecutionResult, error) {
	f.queries = append(f.queries, sqlQuery)
	if f.respond == nil {
		return resultOf(nil), nil
	}
	return f.respond(sqlQuery)
}

func (f *fakeExecutor) Close() error { return nil }

var _ datasource.QueryExecutor = (*fakeExecutor)(nil)

// resultOf builds an execution result from "name:TYPE" column specs and
// row maps. A spec without a type defaults to TEXT.
func resultOf(columnSpecs []string, rows ...map[string]any) *datasource.QueryExecutionResult {
	columns := make([]datasource.ColumnInfo, len(columnSpecs))
	for i, spec := range columnSpecs {
		name, typ, ok := strings.Cut(spec, ":")
		if !ok {
			typ = "TEXT"
		}
		columns[i] = datasource.ColumnInfo{Name: name, Type: typ}
	}
	return &datasource.QueryExecutionResult{
		Columns:  columns,
		Rows:     rows,
		RowCount: len(rows),
	}
}

// stubMetadataCache serves fixed table metadata without touching a store.
type stubMetadataCache struct {
	tables map[string]*models.TableMetadata
	errs   map[string]error
}

func (s *stubMetadataCache) GetTableMetadata(_ context.Context, table string) (*models.TableMetadata, error) {
	if err, ok := s.errs[table]; ok {
		return nil, err
	}
	if meta, ok := s.tables[table]; ok {
		return meta, nil
	}
	return nil, fmt.Errorf("no metadata for table %s", table)
}

var _ MetadataCache = (*stubMetadataCache)(nil)

func tableMeta(name string, rowCount int64, columns ...string) *models.TableMetadata {
	meta := &models.TableMetadata{
		Name:     name,
		RowCount: rowCount,
	}
	for _, col := range columns {
		meta.Columns = append(meta.Columns, models.ColumnMetadata{Name: col, DataType: "text"})
	}
	return meta
}
