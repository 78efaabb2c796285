package models

// AnalysisStep records one executed step of an analysis session:
// the query, its declared assumptions, execution metrics, the performance
// advisory, and optional validation results. Steps are append-only and
// numbered from 1 in execution order.
type AnalysisStep struct {
	StepNumber      int                 `json:"step_number"`
	Description     string              `json:"description"`
	Query           string              `json:"query"`
	Assumptions     []string            `json:"assumptions,omitempty"`
	Clarifications  []string            `json:"clarifications_needed,omitempty"`
	ExecutionTimeMs float64             `json:"execution_time_ms"`
	RowCount        int                 `json:"row_count"`
	Columns         []string            `json:"columns"`
	TablesUsed      []string            `json:"tables_used"`
	Performance     PerformanceAdvisory `json:"performance"`
	Validation      *ValidationResult   `json:"validation_results,omitempty"`
}

// AnalysisSummary is the compact digest of a whole session, suitable for
// handing to a rendering layer.
type AnalysisSummary struct {
	SessionID            string           `json:"session_id"`
	TotalSteps           int              `json:"total_steps"`
	TotalExecutionTimeMs float64          `json:"total_execution_time_ms"`
	Steps                []StepDigest     `json:"steps"`
	Question             string           `json:"question,omitempty"`
	ContextMapping       *QuestionMapping `json:"context_mapping,omitempty"`
}

// StepDigest summarizes a single step inside an AnalysisSummary.
type StepDigest struct {
	StepNumber       int     `json:"step_number"`
	Description      string  `json:"description"`
	RowCount         int     `json:"row_count"`
	ExecutionTimeMs  float64 `json:"execution_time_ms"`
	HasValidation    bool    `json:"has_validation"`
	ValidationPassed *bool   `json:"validation_passed,omitempty"`
}
