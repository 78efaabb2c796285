package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nimrodfisher/insight-engine/pkg/adapters/datasource"
	"github.com/nimrodfisher/insight-engine/pkg/apperrors"
	"github.com/nimrodfisher/insight-engine/pkg/config"
	"github.com/nimrodfisher/insight-engine/pkg/models"
)

// floatTolerance is the absolute tolerance for comparing recomputed sums
// and averages against reported values.
const floatTolerance = 0.01

// AggregationKind names the aggregate function an analysis step computed.
type AggregationKind string

// Supported aggregation kinds.
const (
	AggregationCount   AggregationKind = "count"
	AggregationSum     AggregationKind = "sum"
	AggregationAverage AggregationKind = "average"
)

// Aggregation identifies the aggregate a query computed: the kind, the raw
// column it aggregates over (unused for Count), and the column carrying
// the aggregated value in the result rows.
type Aggregation struct {
	Kind         AggregationKind
	Column       string
	ResultColumn string
}

// ValidationEngine independently recomputes aggregated values from bounded
// raw-row samples to catch aggregation bugs (wrong grouping, filters
// silently dropping rows, unit mix-ups).
//
// The recomputation fetches at most the configured row limit per segment,
// so it is exact only when the true segment population fits under that
// limit; above it, a case is a sanity signal, not a proof. Cases that hit
// the cap say so in their notes.
type ValidationEngine interface {
	// Validate checks the first few rows of an aggregated result against
	// raw rows fetched from table. Fails when the aggregated rows lack
	// the declared result column, when the aggregation kind is unknown,
	// or when a raw-data query fails.
	Validate(ctx context.Context, aggregatedRows []map[string]any, agg Aggregation, segmentColumns []string, table string) (*models.ValidationResult, error)
}

type validationEngine struct {
	executor datasource.QueryExecutor
	limits   config.AnalysisConfig
	logger   *zap.Logger
}

// NewValidationEngine creates an engine fetching raw rows through executor.
func NewValidationEngine(executor datasource.QueryExecutor, limits config.AnalysisConfig, logger *zap.Logger) ValidationEngine {
	return &validationEngine{
		executor: executor,
		limits:   limits,
		logger:   logger.Named("validation-engine"),
	}
}

var _ ValidationEngine = (*validationEngine)(nil)

func (e *validationEngine) Validate(ctx context.Context, aggregatedRows []map[string]any, agg Aggregation, segmentColumns []string, table string) (*models.ValidationResult, error) {
	switch agg.Kind {
	case AggregationCount, AggregationSum, AggregationAverage:
	default:
		return nil, fmt.Errorf("failed to validate aggregation %q: %w", agg.Kind, apperrors.ErrUnknownAggregation)
	}

	sampleN := e.limits.ValidationSampleCases
	if sampleN > len(aggregatedRows) {
		sampleN = len(aggregatedRows)
	}

	cases := make([]models.ValidationCase, 0, sampleN)
	for i := 0; i < sampleN; i++ {
		vc, err := e.checkCase(ctx, i, aggregatedRows[i], agg, segmentColumns, table)
		if err != nil {
			return nil, err
		}
		cases = append(cases, *vc)
	}

	result := &models.ValidationResult{
		Cases:     cases,
		AllPassed: allCasesPassed(cases),
	}
	e.logger.Debug("Validated aggregation",
		zap.String("table", table),
		zap.Int("cases", len(cases)),
		zap.Bool("all_passed", result.AllPassed))
	return result, nil
}

// checkCase recomputes one aggregated row from raw data. The segment is
// identified by equality on every non-null segment column value.
func (e *validationEngine) checkCase(ctx context.Context, idx int, row map[string]any, agg Aggregation, segmentColumns []string, table string) (*models.ValidationCase, error) {
	actual, ok := row[agg.ResultColumn]
	if !ok {
		return nil, fmt.Errorf("failed to validate case %d: result column %q: %w", idx+1, agg.ResultColumn, apperrors.ErrColumnNotFound)
	}

	vc := &models.ValidationCase{
		CaseID:      fmt.Sprintf("case_%d", idx+1),
		Description: fmt.Sprintf("Validation for segment: %s", describeSegment(row, segmentColumns)),
		ActualValue: actual,
	}

	conditions := make([]string, 0, len(segmentColumns))
	for _, col := range segmentColumns {
		v, ok := row[col]
		if !ok || datasource.IsNull(v) {
			continue
		}
		conditions = append(conditions, fmt.Sprintf("%s = %s", datasource.QuoteIdentifier(col), renderLiteral(v)))
	}
	if len(conditions) == 0 {
		vc.Notes = "No non-null segment values to filter on; case skipped"
		return vc, nil
	}

	vc.RawDataQuery = fmt.Sprintf("SELECT * FROM %s WHERE %s LIMIT %d",
		datasource.QuoteIdentifier(table),
		strings.Join(conditions, " AND "),
		e.limits.ValidationRowLimit)

	raw, err := e.executor.Query(ctx, vc.RawDataQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch raw rows for case %d: %w", idx+1, err)
	}

	expected, expectedNote := recomputeAggregate(raw, agg)
	vc.ExpectedValue = expected
	vc.Passed = compareValues(expected, actual, agg.Kind)

	vc.Notes = fmt.Sprintf("Checked %d raw records", raw.RowCount)
	if raw.RowCount >= e.limits.ValidationRowLimit {
		vc.Notes += fmt.Sprintf(" (sample capped at %d rows; treat as a sanity signal, not an exact check)", e.limits.ValidationRowLimit)
	}
	if expectedNote != "" {
		vc.Notes += "; " + expectedNote
	}
	return vc, nil
}

// recomputeAggregate computes the expected value from raw rows. A nil
// expected value means no comparable value could be produced; the reason
// comes back as a note.
func recomputeAggregate(raw *datasource.QueryExecutionResult, agg Aggregation) (any, string) {
	switch agg.Kind {
	case AggregationCount:
		return raw.RowCount, ""
	case AggregationSum, AggregationAverage:
		if !raw.HasColumn(agg.Column) {
			return nil, fmt.Sprintf("column %q not present in raw rows", agg.Column)
		}
		sum := 0.0
		n := 0
		for _, r := range raw.Rows {
			if f, ok := datasource.Float64Value(r[agg.Column]); ok {
				sum += f
				n++
			}
		}
		if agg.Kind == AggregationSum {
			return sum, ""
		}
		if n == 0 {
			return nil, fmt.Sprintf("no numeric values in column %q", agg.Column)
		}
		return sum / float64(n), ""
	}
	return nil, ""
}

// compareValues decides whether the recomputed value matches the reported
// one. Counts compare exactly; sums and averages within floatTolerance.
// Either side missing leaves the outcome undetermined (nil).
func compareValues(expected, actual any, kind AggregationKind) *bool {
	if expected == nil || datasource.IsNull(actual) {
		return nil
	}

	var passed bool
	if kind == AggregationCount {
		want := int64(expected.(int))
		got, ok := datasource.Int64Value(actual)
		passed = ok && got == want
	} else {
		want := expected.(float64)
		got, ok := datasource.Float64Value(actual)
		passed = ok && math.Abs(got-want) < floatTolerance
	}
	return &passed
}

func allCasesPassed(cases []models.ValidationCase) bool {
	for _, c := range cases {
		if c.Passed != nil && !*c.Passed {
			return false
		}
	}
	return true
}

// describeSegment renders the segment-identifying values of one aggregated
// row for the case description.
func describeSegment(row map[string]any, segmentColumns []string) string {
	parts := make([]string, 0, len(segmentColumns))
	for _, col := range segmentColumns {
		if v, ok := row[col]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", col, v))
		}
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, ", ")
}

// renderLiteral formats a row value as a SQL literal for an equality
// filter. Strings and anything unrecognized are quoted; numerics and
// booleans are rendered bare.
func renderLiteral(v any) string {
	switch x := v.(type) {
	case string:
		return datasource.QuoteLiteral(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return datasource.QuoteLiteral(x.Format(time.RFC3339))
	}
	if i, ok := datasource.Int64Value(v); ok {
		return strconv.FormatInt(i, 10)
	}
	if f, ok := datasource.Float64Value(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return datasource.QuoteLiteral(datasource.StringValue(v))
}
