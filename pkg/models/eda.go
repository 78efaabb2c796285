package models

import (
	"time"

	"github.com/nimrodfisher/insight-engine/pkg/stats"
)

// EDAProfile is the complete exploratory profile of one table. It is
// recomputed fresh on every run and never cached.
type EDAProfile struct {
	Table            string                `json:"table_name"`
	Timestamp        time.Time             `json:"timestamp"`
	BasicStats       *BasicStats           `json:"basic_stats,omitempty"`
	Distribution     *DistributionAnalysis `json:"distribution_analysis,omitempty"`
	Relationships    *RelationshipAnalysis `json:"relationship_analysis,omitempty"`
	TimeSeries       *TimeSeriesAnalysis   `json:"time_series_analysis,omitempty"`
	Flags            []Flag                `json:"flags"`
	TypicalQuestions []TypicalQuestion     `json:"typical_questions"`
}

// BasicStats covers row/column counts, null rates, and per-column
// numeric, categorical, and date summaries.
type BasicStats struct {
	RowCount           int                         `json:"row_count"`
	ColumnCount        int                         `json:"column_count"`
	Columns            []string                    `json:"columns"`
	NullSummary        map[string]NullStats        `json:"null_summary"`
	NumericSummary     map[string]stats.Summary    `json:"numeric_summary"`
	CategoricalSummary map[string]CategoricalStats `json:"categorical_summary"`
	DateRange          map[string]DateRange        `json:"date_range,omitempty"`
}

// NullStats counts nulls in one column. Only columns with at least one
// null appear in the summary.
type NullStats struct {
	NullCount      int     `json:"null_count"`
	NullPercentage float64 `json:"null_percentage"`
}

// CategoricalStats summarizes a text column: distinct count and the ten
// most frequent values.
type CategoricalStats struct {
	UniqueCount int          `json:"unique_count"`
	TopValues   []ValueCount `json:"top_values"`
	NullCount   int          `json:"null_count"`
}

// ValueCount pairs a categorical value with its occurrence count.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// DateRange reports the observed span of a date-like column.
type DateRange struct {
	Min      time.Time `json:"min"`
	Max      time.Time `json:"max"`
	SpanDays int       `json:"span_days"`
}

// DistributionAnalysis holds per-column distribution shape signals.
type DistributionAnalysis struct {
	Numeric     map[string]NumericDistribution     `json:"numeric_distributions"`
	Categorical map[string]CategoricalDistribution `json:"categorical_distributions"`
	Flags       []Flag                             `json:"flags"`
}

// NumericDistribution captures shape signals for one numeric column.
type NumericDistribution struct {
	Skewness          float64 `json:"skewness"`
	OutlierCount      int     `json:"outlier_count"`
	OutlierPercentage float64 `json:"outlier_percentage"`
	ZeroCount         int     `json:"zero_count"`
	ZeroPercentage    float64 `json:"zero_percentage"`
}

// CategoricalDistribution captures cardinality and dominance for one
// categorical column.
type CategoricalDistribution struct {
	UniqueCount        int     `json:"unique_count"`
	MaxClassPercentage float64 `json:"max_class_percentage"`
	TopValue           string  `json:"top_value,omitempty"`
}

// RelationshipAnalysis holds pairwise correlations across numeric columns.
type RelationshipAnalysis struct {
	Correlations map[string]CorrelationPair `json:"correlations"`
	Flags        []Flag                     `json:"flags"`
}

// CorrelationPair is the Pearson correlation between two numeric columns.
type CorrelationPair struct {
	Column1     string  `json:"column1"`
	Column2     string  `json:"column2"`
	Correlation float64 `json:"correlation"`
}

// TimeSeriesAnalysis reports temporal coverage over the first date-like
// column found in the table.
type TimeSeriesAnalysis struct {
	TemporalCoverage TemporalCoverage `json:"temporal_coverage"`
	Flags            []Flag           `json:"flags"`
}

// TemporalCoverage describes the observed date span, the largest gap
// between consecutive rows, and staleness relative to now.
type TemporalCoverage struct {
	FirstDate     time.Time `json:"first_date"`
	LastDate      time.Time `json:"last_date"`
	MaxGapDays    int       `json:"max_gap_days"`
	DaysSinceLast int       `json:"days_since_last"`
}

// Flag types raised by profiling.
const (
	FlagHighSkewness      = "high_skewness"
	FlagOutliers          = "outliers"
	FlagZeroInflation     = "zero_inflation"
	FlagHighCardinality   = "high_cardinality"
	FlagImbalancedClasses = "imbalanced_classes"
	FlagHighCorrelation   = "high_correlation"
	FlagDataGaps          = "data_gaps"
	FlagRecentDataMissing = "recent_data_missing"
)

// Flag is a normalized, non-blocking signal raised when a profiling
// threshold is crossed. Flags annotate results and never alter control
// flow.
type Flag struct {
	Type    string   `json:"type"`
	Column  string   `json:"column,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Message string   `json:"message"`
}

// TypicalQuestion is a follow-up question derived from raised flags.
type TypicalQuestion struct {
	Question    string `json:"question"`
	Trigger     string `json:"trigger"`
	Explanation string `json:"explanation"`
}
