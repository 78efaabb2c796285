package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nimrodfisher/insight-engine/pkg/adapters/datasource"
	"github.com/nimrodfisher/insight-engine/pkg/models"
)

// MetadataCache memoizes table metadata (row count, size, columns) for the
// lifetime of a session. Entries are never invalidated: steps within one
// session should see a stable view of table sizes.
//
// The cache is not safe for concurrent use. Sessions must not share an
// instance across goroutines.
type MetadataCache interface {
	// GetTableMetadata returns the cached entry for table, fetching and
	// memoizing it on first use.
	GetTableMetadata(ctx context.Context, table string) (*models.TableMetadata, error)
}

type metadataCache struct {
	executor datasource.QueryExecutor
	entries  map[string]*models.TableMetadata
	logger   *zap.Logger
}

// NewMetadataCache creates an empty cache reading through executor.
func NewMetadataCache(executor datasource.QueryExecutor, logger *zap.Logger) MetadataCache {
	return &metadataCache{
		executor: executor,
		entries:  make(map[string]*models.TableMetadata),
		logger:   logger.Named("metadata-cache"),
	}
}

var _ MetadataCache = (*metadataCache)(nil)

func (c *metadataCache) GetTableMetadata(ctx context.Context, table string) (*models.TableMetadata, error) {
	if meta, ok := c.entries[table]; ok {
		return meta, nil
	}

	meta, err := c.fetch(ctx, table)
	if err != nil {
		return nil, err
	}

	c.entries[table] = meta
	c.logger.Debug("Cached table metadata",
		zap.String("table", table),
		zap.Int64("row_count", meta.RowCount),
		zap.String("table_size", meta.TableSize))
	return meta, nil
}

func (c *metadataCache) fetch(ctx context.Context, table string) (*models.TableMetadata, error) {
	sizeQuery := fmt.Sprintf(
		"SELECT COUNT(*) AS row_count, pg_size_pretty(pg_total_relation_size(%s)) AS table_size FROM %s",
		datasource.QuoteLiteral(table),
		datasource.QuoteIdentifier(table),
	)

	sizeResult, err := c.executor.Query(ctx, sizeQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch size of table %s: %w", table, err)
	}

	var rowCount int64
	var tableSize string
	if len(sizeResult.Rows) > 0 {
		rowCount, _ = datasource.Int64Value(sizeResult.Rows[0]["row_count"])
		tableSize = datasource.StringValue(sizeResult.Rows[0]["table_size"])
	}

	columnsQuery := fmt.Sprintf(
		"SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_name = %s ORDER BY ordinal_position",
		datasource.QuoteLiteral(table),
	)

	columnsResult, err := c.executor.Query(ctx, columnsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch columns of table %s: %w", table, err)
	}

	columns := make([]models.ColumnMetadata, 0, len(columnsResult.Rows))
	for _, row := range columnsResult.Rows {
		columns = append(columns, models.ColumnMetadata{
			Name:     datasource.StringValue(row["column_name"]),
			DataType: datasource.StringValue(row["data_type"]),
			Nullable: strings.EqualFold(datasource.StringValue(row["is_nullable"]), "YES"),
		})
	}

	return &models.TableMetadata{
		Name:      table,
		RowCount:  rowCount,
		TableSize: tableSize,
		Columns:   columns,
		FetchedAt: time.Now(),
	}, nil
}
