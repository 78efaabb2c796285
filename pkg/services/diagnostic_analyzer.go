package services

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nimrodfisher/insight-engine/pkg/adapters/datasource"
	"github.com/nimrodfisher/insight-engine/pkg/apperrors"
	"github.com/nimrodfisher/insight-engine/pkg/config"
	"github.com/nimrodfisher/insight-engine/pkg/models"
	"github.com/nimrodfisher/insight-engine/pkg/stats"
)

// DiagnosticAnalyzer compares metric behavior across segments of rows a
// caller already fetched. It issues no queries of its own.
//
// Pairwise tests assume independence and near-normality without checking
// either, and no multiple-comparison correction is applied when many
// segment pairs are tested at once. Changing that would alter reported
// significance rates, so it stays a documented limitation.
type DiagnosticAnalyzer interface {
	// CompareSegments groups rows by segmentColumn, computes descriptive
	// stats of metricColumn per segment, and runs a two-sample t-test
	// for every unordered pair with at least two observations on each
	// side. Pairs below that are skipped, not reported with a dummy
	// value. A non-empty segments list restricts the comparison.
	CompareSegments(rows []map[string]any, segmentColumn, metricColumn string, segments []string) (*models.SegmentComparison, error)

	// DiagnosticAnalysis runs CompareSegments once per segment column
	// and derives insights: the best-vs-worst mean gap per column, plus
	// one insight per statistically significant pair.
	DiagnosticAnalysis(rows []map[string]any, targetColumn string, segmentColumns []string) (*models.DiagnosticResult, error)
}

type diagnosticAnalyzer struct {
	limits config.AnalysisConfig
	logger *zap.Logger
}

// NewDiagnosticAnalyzer creates an analyzer testing significance at the
// configured level.
func NewDiagnosticAnalyzer(limits config.AnalysisConfig, logger *zap.Logger) DiagnosticAnalyzer {
	return &diagnosticAnalyzer{
		limits: limits,
		logger: logger.Named("diagnostic-analyzer"),
	}
}

var _ DiagnosticAnalyzer = (*diagnosticAnalyzer)(nil)

func (d *diagnosticAnalyzer) CompareSegments(rows []map[string]any, segmentColumn, metricColumn string, segments []string) (*models.SegmentComparison, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("failed to compare segments: %w", apperrors.ErrNoRows)
	}
	if !rowsHaveColumn(rows, segmentColumn) {
		return nil, fmt.Errorf("failed to compare segments: segment column %q: %w", segmentColumn, apperrors.ErrColumnNotFound)
	}
	if !rowsHaveColumn(rows, metricColumn) {
		return nil, fmt.Errorf("failed to compare segments: metric column %q: %w", metricColumn, apperrors.ErrColumnNotFound)
	}

	var wanted map[string]struct{}
	if len(segments) > 0 {
		wanted = make(map[string]struct{}, len(segments))
		for _, s := range segments {
			wanted[s] = struct{}{}
		}
	}

	// Group metric values by segment label in order of first appearance,
	// so repeated runs over the same rows produce identical output.
	var order []string
	groups := make(map[string][]float64)
	for _, row := range rows {
		v := row[segmentColumn]
		if datasource.IsNull(v) {
			continue
		}
		label := datasource.StringValue(v)
		if wanted != nil {
			if _, ok := wanted[label]; !ok {
				continue
			}
		}
		if _, ok := groups[label]; !ok {
			order = append(order, label)
			groups[label] = nil
		}
		if f, ok := datasource.Float64Value(row[metricColumn]); ok {
			groups[label] = append(groups[label], f)
		}
	}

	comparison := &models.SegmentComparison{
		SegmentColumn:    segmentColumn,
		MetricColumn:     metricColumn,
		SegmentsCompared: order,
		SegmentStats:     make(map[string]stats.Summary),
		Comparisons:      make(map[string]models.PairwiseComparison),
	}

	for _, label := range order {
		if values := groups[label]; len(values) > 0 {
			comparison.SegmentStats[label] = stats.Describe(values)
		}
	}

	for i, seg1 := range order {
		for _, seg2 := range order[i+1:] {
			a, b := groups[seg1], groups[seg2]
			if len(a) < 2 || len(b) < 2 {
				continue
			}

			test, err := stats.TwoSampleTTest(a, b)
			if err != nil {
				continue
			}

			meanDiff := comparison.SegmentStats[seg1].Mean - comparison.SegmentStats[seg2].Mean
			meanDiffPct := 0.0
			if m2 := comparison.SegmentStats[seg2].Mean; m2 != 0 {
				meanDiffPct = meanDiff / m2 * 100
			}

			pc := models.PairwiseComparison{
				MeanDiff:    meanDiff,
				MeanDiffPct: meanDiffPct,
				TStatistic:  test.T,
				PValue:      test.P,
				Significant: test.P < d.limits.SignificanceLevel,
			}
			if test.ZeroVariance {
				pc.Note = "both segments have zero variance; t is reported as 0 and p is 1 for identical means, 0 otherwise"
			}
			comparison.Comparisons[seg1+"_vs_"+seg2] = pc
		}
	}

	return comparison, nil
}

func (d *diagnosticAnalyzer) DiagnosticAnalysis(rows []map[string]any, targetColumn string, segmentColumns []string) (*models.DiagnosticResult, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("failed to run diagnostic analysis: %w", apperrors.ErrNoRows)
	}
	if !rowsHaveColumn(rows, targetColumn) {
		return nil, fmt.Errorf("failed to run diagnostic analysis: target column %q: %w", targetColumn, apperrors.ErrColumnNotFound)
	}

	result := &models.DiagnosticResult{
		TargetColumn:       targetColumn,
		SegmentColumns:     segmentColumns,
		SegmentComparisons: make(map[string]*models.SegmentComparison),
		Insights:           []models.Insight{},
	}

	for _, segCol := range segmentColumns {
		if !rowsHaveColumn(rows, segCol) {
			d.logger.Warn("Segment column not present in rows, skipping",
				zap.String("column", segCol))
			continue
		}
		comparison, err := d.CompareSegments(rows, segCol, targetColumn, nil)
		if err != nil {
			return nil, err
		}
		result.SegmentComparisons[segCol] = comparison
		result.Insights = append(result.Insights, generateInsights(comparison)...)
	}

	d.logger.Info("Completed diagnostic analysis",
		zap.String("target_column", targetColumn),
		zap.Int("segment_columns", len(result.SegmentComparisons)),
		zap.Int("insights", len(result.Insights)))
	return result, nil
}

// generateInsights derives findings from one segment comparison: the
// best-vs-worst mean gap, then every significant pair. Needs at least two
// segments with stats.
func generateInsights(comparison *models.SegmentComparison) []models.Insight {
	insights := []models.Insight{}
	if len(comparison.SegmentStats) < 2 {
		return insights
	}

	// First appearance breaks mean ties, keeping output stable.
	var best, worst string
	for _, label := range comparison.SegmentsCompared {
		stat, ok := comparison.SegmentStats[label]
		if !ok {
			continue
		}
		if best == "" {
			best, worst = label, label
			continue
		}
		if stat.Mean > comparison.SegmentStats[best].Mean {
			best = label
		}
		if stat.Mean < comparison.SegmentStats[worst].Mean {
			worst = label
		}
	}

	bestMean := comparison.SegmentStats[best].Mean
	worstMean := comparison.SegmentStats[worst].Mean
	diffPct := 0.0
	if worstMean != 0 {
		diffPct = (bestMean - worstMean) / worstMean * 100
	}
	insights = append(insights, models.Insight{
		Type:          models.InsightPerformanceGap,
		SegmentColumn: comparison.SegmentColumn,
		BestSegment:   best,
		WorstSegment:  worst,
		DifferencePct: &diffPct,
		Message: fmt.Sprintf("'%s' performs %.1f%% better than '%s' on %s",
			best, diffPct, worst, comparison.MetricColumn),
	})

	for i, seg1 := range comparison.SegmentsCompared {
		for _, seg2 := range comparison.SegmentsCompared[i+1:] {
			key := seg1 + "_vs_" + seg2
			pc, ok := comparison.Comparisons[key]
			if !ok || !pc.Significant {
				continue
			}
			p := pc.PValue
			insights = append(insights, models.Insight{
				Type:          models.InsightSignificantDifference,
				SegmentColumn: comparison.SegmentColumn,
				Comparison:    key,
				PValue:        &p,
				Message:       fmt.Sprintf("Statistically significant difference found: %s (p=%.4f)", key, pc.PValue),
			})
		}
	}

	return insights
}

// rowsHaveColumn reports whether the result rows carry the column. Rows
// from one query share a key set, so the first row decides.
func rowsHaveColumn(rows []map[string]any, col string) bool {
	if len(rows) == 0 {
		return false
	}
	_, ok := rows[0][col]
	return ok
}
