package datasource

import "fmt"

// QueryError wraps a failed query together with the SQL that caused it.
// Callers that need the offending statement (for step records or logs)
// can unwrap it with errors.As.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
