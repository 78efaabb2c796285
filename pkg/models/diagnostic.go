package models

import "github.com/nimrodfisher/insight-engine/pkg/stats"

// Insight types emitted by segment diagnostics.
const (
	InsightPerformanceGap        = "performance_gap"
	InsightSignificantDifference = "significant_difference"
)

// PairwiseComparison holds the two-sample test results for one pair of
// segments.
type PairwiseComparison struct {
	MeanDiff    float64 `json:"mean_diff"`
	MeanDiffPct float64 `json:"mean_diff_pct"`
	TStatistic  float64 `json:"t_statistic"`
	PValue      float64 `json:"p_value"`
	Significant bool    `json:"significant"`
	Note        string  `json:"note,omitempty"`
}

// SegmentComparison summarizes a metric across the values of one segment
// column: per-segment descriptive stats plus pairwise significance tests.
type SegmentComparison struct {
	SegmentColumn    string                        `json:"segment_column"`
	MetricColumn     string                        `json:"metric_column"`
	SegmentsCompared []string                      `json:"segments_compared"`
	SegmentStats     map[string]stats.Summary      `json:"segment_stats"`
	Comparisons      map[string]PairwiseComparison `json:"comparisons"`
}

// Insight is a human-readable finding derived from segment comparisons.
type Insight struct {
	Type          string   `json:"type"`
	SegmentColumn string   `json:"segment_column,omitempty"`
	BestSegment   string   `json:"best_segment,omitempty"`
	WorstSegment  string   `json:"worst_segment,omitempty"`
	DifferencePct *float64 `json:"difference_pct,omitempty"`
	Comparison    string   `json:"comparison,omitempty"`
	PValue        *float64 `json:"p_value,omitempty"`
	Message       string   `json:"message"`
}

// DiagnosticResult is the output of a diagnostic run over one target metric
// and a set of candidate segment columns.
type DiagnosticResult struct {
	TargetColumn       string                        `json:"target_column"`
	SegmentColumns     []string                      `json:"segment_columns"`
	SegmentComparisons map[string]*SegmentComparison `json:"segment_comparisons"`
	Insights           []Insight                     `json:"insights"`
}
