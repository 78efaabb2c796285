// Package rules defines the YAML-backed configuration for sanity checks,
// EDA phases, and schema documentation. Rules are loaded once at startup
// and passed to the services that consume them.
package rules

// Toggle enables or disables a named check or phase. An absent toggle
// defaults to enabled.
type Toggle struct {
	Enabled *bool `yaml:"enabled"`
}

// IsEnabled reports whether the toggle is on. Unset toggles are on.
func (t Toggle) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// SanityToggles mirrors the sanity_checks block of a rules file.
type SanityToggles struct {
	NullChecks         Toggle `yaml:"null_checks"`
	DuplicateChecks    Toggle `yaml:"duplicate_checks"`
	ConsistencyChecks  Toggle `yaml:"consistency_checks"`
	CompletenessChecks Toggle `yaml:"completeness_checks"`
}

// DateRangeRule names a pair of columns where start must not exceed end.
type DateRangeRule struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// NumericRangeRule bounds the values of a numeric column. The check runs
// only when both bounds are set.
type NumericRangeRule struct {
	Column string   `yaml:"column"`
	Min    *float64 `yaml:"min"`
	Max    *float64 `yaml:"max"`
}

// CategoricalRule pins a column to a closed set of expected values.
// Comparison is case-insensitive and ignores surrounding whitespace.
type CategoricalRule struct {
	Name           string   `yaml:"name"`
	ExpectedValues []string `yaml:"expected_values"`
}

// TableRules is the per-table block of a sanity rules file.
type TableRules struct {
	CriticalColumns    []string           `yaml:"critical_columns"`
	RequiredColumns    []string           `yaml:"required_columns"`
	BusinessKeys       []string           `yaml:"business_keys"`
	DateRanges         []DateRangeRule    `yaml:"date_ranges"`
	NumericRanges      []NumericRangeRule `yaml:"numeric_ranges"`
	CategoricalColumns []CategoricalRule  `yaml:"categorical_columns"`
}

// SanityRules configures the sanity checker: global check toggles plus
// table-specific column rules.
type SanityRules struct {
	Checks     SanityToggles         `yaml:"sanity_checks"`
	TableRules map[string]TableRules `yaml:"table_specific_rules"`
}

// ForTable returns the rules block for table, or a zero block when the
// table has no specific rules.
func (r SanityRules) ForTable(table string) TableRules {
	return r.TableRules[table]
}

// EDAPhases mirrors the eda_phases block of an EDA rules file.
type EDAPhases struct {
	BasicStats           Toggle `yaml:"basic_stats"`
	DistributionAnalysis Toggle `yaml:"distribution_analysis"`
	RelationshipAnalysis Toggle `yaml:"relationship_analysis"`
	TimeSeriesAnalysis   Toggle `yaml:"time_series_analysis"`
}

// EDARules configures which profiling phases run.
type EDARules struct {
	Phases EDAPhases `yaml:"eda_phases"`
}

// ModelDoc documents one table of the schema.
type ModelDoc struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Synonyms    []string `yaml:"synonyms"`
}

// MetricDoc documents a named business metric and how to compute it.
type MetricDoc struct {
	Name        string   `yaml:"name"`
	Calculation string   `yaml:"calculation"`
	Synonyms    []string `yaml:"synonyms"`
}

// BusinessQuestionDoc pairs a recurring business question with the query
// pattern that answers it.
type BusinessQuestionDoc struct {
	Question     string   `yaml:"question"`
	Synonyms     []string `yaml:"synonyms"`
	QueryPattern string   `yaml:"query_pattern"`
}

// SchemaDoc is a hand-maintained description of the schema used to map
// analytical questions to tables, metrics, and query patterns.
type SchemaDoc struct {
	Models                  []ModelDoc            `yaml:"models"`
	CommonMetrics           []MetricDoc           `yaml:"common_metrics"`
	CommonBusinessQuestions []BusinessQuestionDoc `yaml:"common_business_questions"`
}
