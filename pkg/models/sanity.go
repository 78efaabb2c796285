package models

import (
	"time"

	"github.com/google/uuid"
)

// Check statuses.
const (
	CheckStatusPassed = "passed"
	CheckStatusFailed = "failed"
	CheckStatusError  = "error"
)

// Check severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// CheckResult is the outcome of a single sanity check. A check that could
// not run (bad column, missing table) is recorded with status "error"
// rather than aborting its siblings.
type CheckResult struct {
	CheckName string         `json:"check_name"`
	Column    string         `json:"column,omitempty"`
	Status    string         `json:"status"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// SanityReport is the full rule-driven quality report for one table,
// grouped by check category.
type SanityReport struct {
	ID                 uuid.UUID     `json:"id"`
	Table              string        `json:"table_name"`
	Timestamp          time.Time     `json:"timestamp"`
	NullChecks         []CheckResult `json:"null_checks"`
	DuplicateChecks    []CheckResult `json:"duplicate_checks"`
	ConsistencyChecks  []CheckResult `json:"consistency_checks"`
	CompletenessChecks []CheckResult `json:"completeness_checks"`
	Summary            CheckSummary  `json:"summary"`
}

// Categories returns the four check categories in report order.
func (r *SanityReport) Categories() [][]CheckResult {
	return [][]CheckResult{r.NullChecks, r.DuplicateChecks, r.ConsistencyChecks, r.CompletenessChecks}
}

// CheckSummary aggregates counts across every category of a report.
type CheckSummary struct {
	TotalChecks int `json:"total_checks"`
	Passed      int `json:"passed"`
	Warnings    int `json:"warnings"`
	Errors      int `json:"errors"`
}
