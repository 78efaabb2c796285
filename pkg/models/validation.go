package models

// ValidationCase is one independent recomputation of an aggregated value
// from a bounded raw-row sample. Passed is nil when the recomputation
// could not produce a comparable value.
type ValidationCase struct {
	CaseID        string `json:"case_id"`
	Description   string `json:"description"`
	RawDataQuery  string `json:"raw_data_query"`
	ExpectedValue any    `json:"expected_value"`
	ActualValue   any    `json:"actual_value"`
	Passed        *bool  `json:"passed"`
	Notes         string `json:"notes,omitempty"`
}

// ValidationResult groups the validation cases attached to a single step.
// AllPassed is true when every case with a determinate outcome passed.
type ValidationResult struct {
	Cases     []ValidationCase `json:"cases"`
	AllPassed bool             `json:"all_passed"`
}
