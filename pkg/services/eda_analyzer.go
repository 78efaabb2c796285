package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nimrodfisher/insight-engine/pkg/adapters/datasource"
	"github.com/nimrodfisher/insight-engine/pkg/models"
	"github.com/nimrodfisher/insight-engine/pkg/rules"
	"github.com/nimrodfisher/insight-engine/pkg/stats"
)

// Profiling thresholds. Crossing one raises a flag, never an error.
const (
	highSkewnessThreshold     = 2.0
	zeroInflationThreshold    = 50.0
	highCardinalityThreshold  = 50
	imbalancedClassThreshold  = 90.0
	highCorrelationThreshold  = 0.7
	temporalGapDays           = 7
	highNullQuestionThreshold = 30.0
)

// dateNameKeywords mark a column as date-like by name. Type introspection
// alone is not enough: epoch integers and ISO strings are common.
var dateNameKeywords = []string{"date", "time", "created", "occurred", "timestamp"}

var numericColumnTypes = map[string]struct{}{
	"INT2": {}, "INT4": {}, "INT8": {}, "FLOAT4": {}, "FLOAT8": {}, "NUMERIC": {},
}

// categoricalColumnTypes are the text types profiled as categories. UUID
// columns are deliberately absent: every value is unique, so frequency
// analysis says nothing.
var categoricalColumnTypes = map[string]struct{}{
	"TEXT": {}, "VARCHAR": {}, "BPCHAR": {}, "CHAR": {},
}

// EDAAnalyzer computes an exploratory profile of one table: descriptive
// statistics, distribution shape, correlations, and temporal coverage,
// with normalized flags for anything crossing a threshold. Each run
// fetches fresh rows; nothing is cached.
type EDAAnalyzer interface {
	// Run profiles table. sampleSize > 0 caps the fetched rows; zero
	// profiles the whole table. Only the row fetch can fail; phase
	// computations degrade by skipping what they cannot compute.
	Run(ctx context.Context, table string, sampleSize int) (*models.EDAProfile, error)
}

type edaAnalyzer struct {
	executor datasource.QueryExecutor
	rules    rules.EDARules
	logger   *zap.Logger
	now      func() time.Time
}

// NewEDAAnalyzer creates an analyzer running the phases enabled in
// edaRules.
func NewEDAAnalyzer(executor datasource.QueryExecutor, edaRules rules.EDARules, logger *zap.Logger) EDAAnalyzer {
	return &edaAnalyzer{
		executor: executor,
		rules:    edaRules,
		logger:   logger.Named("eda-analyzer"),
		now:      time.Now,
	}
}

var _ EDAAnalyzer = (*edaAnalyzer)(nil)

func (a *edaAnalyzer) Run(ctx context.Context, table string, sampleSize int) (*models.EDAProfile, error) {
	profile := &models.EDAProfile{
		Table:            table,
		Timestamp:        a.now(),
		Flags:            []models.Flag{},
		TypicalQuestions: []models.TypicalQuestion{},
	}

	query := fmt.Sprintf("SELECT * FROM %s", datasource.QuoteIdentifier(table))
	if sampleSize > 0 {
		query += fmt.Sprintf(" LIMIT %d", sampleSize)
	}

	result, err := a.executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rows for profiling %s: %w", table, err)
	}
	if result.RowCount == 0 {
		a.logger.Warn("Table is empty, nothing to profile", zap.String("table", table))
		return profile, nil
	}

	cols := classifyColumns(result)

	if a.rules.Phases.BasicStats.IsEnabled() {
		profile.BasicStats = basicStats(result, cols)
	}
	if a.rules.Phases.DistributionAnalysis.IsEnabled() {
		profile.Distribution = analyzeDistributions(result, cols)
		profile.Flags = append(profile.Flags, profile.Distribution.Flags...)
	}
	if a.rules.Phases.RelationshipAnalysis.IsEnabled() {
		profile.Relationships = analyzeRelationships(result, cols)
		profile.Flags = append(profile.Flags, profile.Relationships.Flags...)
	}
	if len(cols.dates) > 0 && a.rules.Phases.TimeSeriesAnalysis.IsEnabled() {
		profile.TimeSeries = a.analyzeTimeSeries(result, cols.dates[0])
		profile.Flags = append(profile.Flags, profile.TimeSeries.Flags...)
	}

	profile.TypicalQuestions = typicalQuestions(profile)

	a.logger.Info("Completed exploratory profile",
		zap.String("table", table),
		zap.Int("rows", result.RowCount),
		zap.Int("flags", len(profile.Flags)),
		zap.Int("typical_questions", len(profile.TypicalQuestions)))
	return profile, nil
}

// columnClassification groups column names by how each gets profiled. The
// axes are independent: a text column named "created_label" is both
// categorical and date-like.
type columnClassification struct {
	numeric     []string
	categorical []string
	dates       []string
}

func classifyColumns(result *datasource.QueryExecutionResult) columnClassification {
	var cols columnClassification
	for _, col := range result.Columns {
		if isDateLikeName(col.Name) {
			cols.dates = append(cols.dates, col.Name)
		}
		if _, ok := numericColumnTypes[col.Type]; ok {
			cols.numeric = append(cols.numeric, col.Name)
			continue
		}
		if _, ok := categoricalColumnTypes[col.Type]; ok {
			cols.categorical = append(cols.categorical, col.Name)
		}
	}
	return cols
}

func isDateLikeName(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range dateNameKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func basicStats(result *datasource.QueryExecutionResult, cols columnClassification) *models.BasicStats {
	bs := &models.BasicStats{
		RowCount:           result.RowCount,
		ColumnCount:        len(result.Columns),
		Columns:            result.ColumnNames(),
		NullSummary:        map[string]models.NullStats{},
		NumericSummary:     map[string]stats.Summary{},
		CategoricalSummary: map[string]models.CategoricalStats{},
	}

	for _, col := range bs.Columns {
		nulls := countNulls(result.Rows, col)
		if nulls > 0 {
			bs.NullSummary[col] = models.NullStats{
				NullCount:      nulls,
				NullPercentage: 100 * float64(nulls) / float64(result.RowCount),
			}
		}
	}

	for _, col := range cols.numeric {
		values := numericColumn(result.Rows, col)
		if len(values) == 0 {
			continue
		}
		bs.NumericSummary[col] = stats.Describe(values)
	}

	for _, col := range cols.categorical {
		counts, nulls := valueCounts(result.Rows, col)
		top := counts
		if len(top) > 10 {
			top = top[:10]
		}
		bs.CategoricalSummary[col] = models.CategoricalStats{
			UniqueCount: len(counts),
			TopValues:   top,
			NullCount:   nulls,
		}
	}

	for _, col := range cols.dates {
		times := timeColumn(result.Rows, col)
		if len(times) == 0 {
			continue
		}
		first, last := times[0], times[0]
		for _, t := range times[1:] {
			if t.Before(first) {
				first = t
			}
			if t.After(last) {
				last = t
			}
		}
		if bs.DateRange == nil {
			bs.DateRange = map[string]models.DateRange{}
		}
		bs.DateRange[col] = models.DateRange{
			Min:      first,
			Max:      last,
			SpanDays: wholeDays(last.Sub(first)),
		}
	}

	return bs
}

func analyzeDistributions(result *datasource.QueryExecutionResult, cols columnClassification) *models.DistributionAnalysis {
	dist := &models.DistributionAnalysis{
		Numeric:     map[string]models.NumericDistribution{},
		Categorical: map[string]models.CategoricalDistribution{},
		Flags:       []models.Flag{},
	}

	for _, col := range cols.numeric {
		values := numericColumn(result.Rows, col)
		if len(values) == 0 {
			continue
		}

		skew := stats.Skewness(values)
		outliers := stats.CountOutliers(values)
		zeros := 0
		for _, v := range values {
			if v == 0 {
				zeros++
			}
		}
		zeroPct := 100 * float64(zeros) / float64(len(values))

		dist.Numeric[col] = models.NumericDistribution{
			Skewness:          skew,
			OutlierCount:      outliers,
			OutlierPercentage: 100 * float64(outliers) / float64(len(values)),
			ZeroCount:         zeros,
			ZeroPercentage:    zeroPct,
		}

		if math.Abs(skew) > highSkewnessThreshold {
			dist.Flags = append(dist.Flags, models.Flag{
				Type:    models.FlagHighSkewness,
				Column:  col,
				Message: fmt.Sprintf("Highly skewed distribution detected in '%s' (skewness: %.2f)", col, skew),
			})
		}
		if outliers > 0 {
			dist.Flags = append(dist.Flags, models.Flag{
				Type:    models.FlagOutliers,
				Column:  col,
				Message: fmt.Sprintf("Potential outliers detected in '%s' (%d values)", col, outliers),
			})
		}
		if zeroPct > zeroInflationThreshold {
			dist.Flags = append(dist.Flags, models.Flag{
				Type:    models.FlagZeroInflation,
				Column:  col,
				Message: fmt.Sprintf("High percentage of zero values in '%s' (%.1f%%)", col, zeroPct),
			})
		}
	}

	for _, col := range cols.categorical {
		counts, _ := valueCounts(result.Rows, col)
		if len(counts) == 0 {
			continue
		}
		total := 0
		for _, vc := range counts {
			total += vc.Count
		}
		maxClassPct := 100 * float64(counts[0].Count) / float64(total)

		dist.Categorical[col] = models.CategoricalDistribution{
			UniqueCount:        len(counts),
			MaxClassPercentage: maxClassPct,
			TopValue:           counts[0].Value,
		}

		if len(counts) > highCardinalityThreshold {
			dist.Flags = append(dist.Flags, models.Flag{
				Type:    models.FlagHighCardinality,
				Column:  col,
				Message: fmt.Sprintf("High cardinality in '%s' (%d unique values) - consider grouping", col, len(counts)),
			})
		}
		if maxClassPct > imbalancedClassThreshold {
			dist.Flags = append(dist.Flags, models.Flag{
				Type:    models.FlagImbalancedClasses,
				Column:  col,
				Message: fmt.Sprintf("Highly imbalanced classes in '%s' (top class: %.1f%%)", col, maxClassPct),
			})
		}
	}

	return dist
}

func analyzeRelationships(result *datasource.QueryExecutionResult, cols columnClassification) *models.RelationshipAnalysis {
	rel := &models.RelationshipAnalysis{
		Correlations: map[string]models.CorrelationPair{},
		Flags:        []models.Flag{},
	}

	for i, col1 := range cols.numeric {
		for _, col2 := range cols.numeric[i+1:] {
			x, y := pairedColumns(result.Rows, col1, col2)
			// Constant series carry no correlation signal; omit the
			// pair entirely rather than report r=0.
			if len(x) < 2 || isConstant(x) || isConstant(y) {
				continue
			}
			r, err := stats.Pearson(x, y)
			if err != nil || math.IsNaN(r) {
				continue
			}

			rel.Correlations[col1+"_"+col2] = models.CorrelationPair{
				Column1:     col1,
				Column2:     col2,
				Correlation: r,
			}
			if math.Abs(r) > highCorrelationThreshold {
				rel.Flags = append(rel.Flags, models.Flag{
					Type:    models.FlagHighCorrelation,
					Columns: []string{col1, col2},
					Message: fmt.Sprintf("High correlation between '%s' and '%s' (%.2f)", col1, col2, r),
				})
			}
		}
	}

	return rel
}

func (a *edaAnalyzer) analyzeTimeSeries(result *datasource.QueryExecutionResult, dateColumn string) *models.TimeSeriesAnalysis {
	ts := &models.TimeSeriesAnalysis{Flags: []models.Flag{}}

	times := timeColumn(result.Rows, dateColumn)
	if len(times) == 0 {
		return ts
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	maxGapDays := 0
	for i := 1; i < len(times); i++ {
		if gap := wholeDays(times[i].Sub(times[i-1])); gap > maxGapDays {
			maxGapDays = gap
		}
	}
	daysSinceLast := wholeDays(a.now().Sub(times[len(times)-1]))

	ts.TemporalCoverage = models.TemporalCoverage{
		FirstDate:     times[0],
		LastDate:      times[len(times)-1],
		MaxGapDays:    maxGapDays,
		DaysSinceLast: daysSinceLast,
	}

	if maxGapDays > temporalGapDays {
		ts.Flags = append(ts.Flags, models.Flag{
			Type:    models.FlagDataGaps,
			Column:  dateColumn,
			Message: fmt.Sprintf("Gaps of more than 7 days detected (max gap: %d days)", maxGapDays),
		})
	}
	if daysSinceLast > temporalGapDays {
		ts.Flags = append(ts.Flags, models.Flag{
			Type:    models.FlagRecentDataMissing,
			Column:  dateColumn,
			Message: fmt.Sprintf("No recent data (last record: %d days ago)", daysSinceLast),
		})
	}

	return ts
}

// typicalQuestions derives follow-up questions from the flags and null
// rates already computed. Purely derivative; it looks at no new data.
func typicalQuestions(profile *models.EDAProfile) []models.TypicalQuestion {
	questions := []models.TypicalQuestion{}

	if profile.BasicStats != nil {
		for _, col := range profile.BasicStats.Columns {
			nullInfo, ok := profile.BasicStats.NullSummary[col]
			if !ok || nullInfo.NullPercentage <= highNullQuestionThreshold {
				continue
			}
			questions = append(questions, models.TypicalQuestion{
				Question:    fmt.Sprintf("Why are there so many null values in column '%s'?", col),
				Trigger:     "null_percentage > 30",
				Explanation: fmt.Sprintf("Column '%s' has %.1f%% null values", col, nullInfo.NullPercentage),
			})
		}
	}

	if profile.Distribution != nil {
		for _, flag := range profile.Distribution.Flags {
			if flag.Type != models.FlagOutliers {
				continue
			}
			questions = append(questions, models.TypicalQuestion{
				Question:    fmt.Sprintf("Are there outliers in '%s'?", flag.Column),
				Trigger:     "outliers_detected",
				Explanation: flag.Message,
			})
		}
	}

	if profile.Relationships != nil {
		for _, flag := range profile.Relationships.Flags {
			if flag.Type != models.FlagHighCorrelation || len(flag.Columns) < 2 {
				continue
			}
			questions = append(questions, models.TypicalQuestion{
				Question:    fmt.Sprintf("Why is there high correlation between '%s' and '%s'?", flag.Columns[0], flag.Columns[1]),
				Trigger:     "high_correlation_detected",
				Explanation: flag.Message,
			})
		}
	}

	return questions
}

func countNulls(rows []map[string]any, col string) int {
	nulls := 0
	for _, row := range rows {
		if datasource.IsNull(row[col]) {
			nulls++
		}
	}
	return nulls
}

// numericColumn extracts the non-null numeric values of col in row order.
func numericColumn(rows []map[string]any, col string) []float64 {
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if f, ok := datasource.Float64Value(row[col]); ok {
			values = append(values, f)
		}
	}
	return values
}

// timeColumn extracts the non-null parseable timestamps of col.
func timeColumn(rows []map[string]any, col string) []time.Time {
	times := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		if datasource.IsNull(row[col]) {
			continue
		}
		if t, ok := datasource.TimeValue(row[col]); ok {
			times = append(times, t)
		}
	}
	return times
}

// valueCounts tallies the non-null values of col, sorted by count
// descending then value ascending so results are stable across runs.
// The second return is the null count.
func valueCounts(rows []map[string]any, col string) ([]models.ValueCount, int) {
	counts := make(map[string]int)
	nulls := 0
	for _, row := range rows {
		v := row[col]
		if datasource.IsNull(v) {
			nulls++
			continue
		}
		counts[datasource.StringValue(v)]++
	}

	out := make([]models.ValueCount, 0, len(counts))
	for value, count := range counts {
		out = append(out, models.ValueCount{Value: value, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out, nulls
}

// pairedColumns returns the rows where both columns hold numeric values,
// aligned pairwise.
func pairedColumns(rows []map[string]any, col1, col2 string) (x, y []float64) {
	for _, row := range rows {
		a, ok1 := datasource.Float64Value(row[col1])
		b, ok2 := datasource.Float64Value(row[col2])
		if ok1 && ok2 {
			x = append(x, a)
			y = append(y, b)
		}
	}
	return x, y
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func wholeDays(d time.Duration) int {
	return int(d.Hours() / 24)
}
