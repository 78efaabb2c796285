package apperrors

import "errors"

var (
	ErrColumnNotFound     = errors.New("column not found in result set")
	ErrUnknownAggregation = errors.New("unknown aggregation kind")
	ErrNoRows             = errors.New("result set is empty")
)
