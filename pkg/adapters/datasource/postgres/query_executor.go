// Package postgres implements datasource.QueryExecutor on top of a pgx
// connection pool.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nimrodfisher/insight-engine/pkg/adapters/datasource"
	"github.com/nimrodfisher/insight-engine/pkg/config"
)

// QueryExecutor provides PostgreSQL query execution.
type QueryExecutor struct {
	pool      *pgxpool.Pool
	logger    *zap.Logger
	ownedPool bool // true if Connect created the pool
}

// NewQueryExecutor wraps an existing pool. The caller keeps ownership of
// the pool and must close it.
func NewQueryExecutor(pool *pgxpool.Pool, logger *zap.Logger) *QueryExecutor {
	return &QueryExecutor{
		pool:   pool,
		logger: logger.Named("pg-executor"),
	}
}

// Connect creates a query executor with its own connection pool. When
// running in Docker, localhost hosts are resolved to host.docker.internal.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*QueryExecutor, error) {
	resolved := *cfg
	resolved.Host = config.ResolveHostForDocker(cfg.Host)

	poolConfig, err := pgxpool.ParseConfig(resolved.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 25
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &QueryExecutor{
		pool:      pool,
		logger:    logger.Named("pg-executor"),
		ownedPool: true,
	}, nil
}

// Query runs a SQL query and returns all rows with column metadata, the
// elapsed time of the main query, and a best-effort execution plan.
func (e *QueryExecutor) Query(ctx context.Context, sqlQuery string) (*datasource.QueryExecutionResult, error) {
	start := time.Now()

	rows, err := e.pool.Query(ctx, sqlQuery)
	if err != nil {
		return nil, &datasource.QueryError{Query: sqlQuery, Err: err}
	}
	defer rows.Close()

	// Get column names and types
	fieldDescs := rows.FieldDescriptions()
	columns := make([]datasource.ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = datasource.ColumnInfo{
			Name: string(fd.Name),
			Type: pgTypeNameFromOID(fd.DataTypeOID),
		}
	}

	// Collect rows
	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, &datasource.QueryError{Query: sqlQuery, Err: fmt.Errorf("failed to read row values: %w", err)}
		}

		rowMap := make(map[string]any)
		for i, col := range columns {
			rowMap[col.Name] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, &datasource.QueryError{Query: sqlQuery, Err: err}
	}
	elapsed := time.Since(start)

	return &datasource.QueryExecutionResult{
		Columns:       columns,
		Rows:          resultRows,
		RowCount:      len(resultRows),
		ExecutionTime: elapsed,
		Plan:          e.explainPlan(ctx, sqlQuery),
	}, nil
}

// explainPlan fetches the text execution plan for a query. The plan is
// advisory: failures are logged at debug level and never fail the query.
func (e *QueryExecutor) explainPlan(ctx context.Context, sqlQuery string) string {
	rows, err := e.pool.Query(ctx, "EXPLAIN (FORMAT TEXT) "+sqlQuery)
	if err != nil {
		e.logger.Debug("EXPLAIN failed", zap.Error(err))
		return ""
	}
	defer rows.Close()

	var planLines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			e.logger.Debug("failed to scan EXPLAIN output", zap.Error(err))
			return ""
		}
		planLines = append(planLines, line)
	}

	if err := rows.Err(); err != nil {
		e.logger.Debug("error reading EXPLAIN output", zap.Error(err))
		return ""
	}

	return strings.Join(planLines, "\n")
}

// Close releases the pool when this executor owns it.
func (e *QueryExecutor) Close() error {
	if e.ownedPool && e.pool != nil {
		e.pool.Close()
	}
	return nil
}

// pgTypeNameFromOID maps PostgreSQL type OIDs to human-readable type names.
// This covers the most common types; unknown types return "UNKNOWN".
func pgTypeNameFromOID(oid uint32) string {
	switch oid {
	case 16:
		return "BOOL"
	case 17:
		return "BYTEA"
	case 18:
		return "CHAR"
	case 20:
		return "INT8"
	case 21:
		return "INT2"
	case 23:
		return "INT4"
	case 25:
		return "TEXT"
	case 26:
		return "OID"
	case 114:
		return "JSON"
	case 142:
		return "XML"
	case 700:
		return "FLOAT4"
	case 701:
		return "FLOAT8"
	case 790:
		return "MONEY"
	case 1042:
		return "BPCHAR"
	case 1043:
		return "VARCHAR"
	case 1082:
		return "DATE"
	case 1083:
		return "TIME"
	case 1114:
		return "TIMESTAMP"
	case 1184:
		return "TIMESTAMPTZ"
	case 1186:
		return "INTERVAL"
	case 1266:
		return "TIMETZ"
	case 1700:
		return "NUMERIC"
	case 2950:
		return "UUID"
	case 3802:
		return "JSONB"
	// Array types
	case 1000:
		return "BOOL[]"
	case 1005:
		return "INT2[]"
	case 1007:
		return "INT4[]"
	case 1016:
		return "INT8[]"
	case 1009:
		return "TEXT[]"
	case 1015:
		return "VARCHAR[]"
	case 1021:
		return "FLOAT4[]"
	case 1022:
		return "FLOAT8[]"
	case 2951:
		return "UUID[]"
	case 3807:
		return "JSONB[]"
	default:
		return "UNKNOWN"
	}
}

// Ensure QueryExecutor implements datasource.QueryExecutor at compile time.
var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
