package datasource

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// QuoteIdentifier safely quotes a SQL identifier (table or column name)
// using PostgreSQL double-quote rules.
func QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// QuoteLiteral quotes a string for use as a SQL literal, doubling any
// embedded single quotes.
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
