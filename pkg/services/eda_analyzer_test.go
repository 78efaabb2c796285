package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nimrodfisher/insight-engine/pkg/adapters/datasource"
	"github.com/nimrodfisher/insight-engine/pkg/models"
	"github.com/nimrodfisher/insight-engine/pkg/rules"
)

// newEDAAnalyzerAt builds an analyzer whose clock is pinned, so staleness
// checks do not depend on the wall clock.
func newEDAAnalyzerAt(executor datasource.QueryExecutor, edaRules rules.EDARules, now time.Time) *edaAnalyzer {
	analyzer := NewEDAAnalyzer(executor, edaRules, zap.NewNop()).(*edaAnalyzer)
	analyzer.now = func() time.Time { return now }
	return analyzer
}

func findFlag(flags []models.Flag, flagType string) *models.Flag {
	for i := range flags {
		if flags[i].Type == flagType {
			return &flags[i]
		}
	}
	return nil
}

func TestEDAAnalyzer_EmptyTable(t *testing.T) {
	executor := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return resultOf([]string{"id:INT8"}), nil
	}}
	analyzer := NewEDAAnalyzer(executor, rules.EDARules{}, zap.NewNop())

	profile, err := analyzer.Run(context.Background(), "events", 0)
	require.NoError(t, err)

	require.Len(t, executor.queries, 1)
	assert.Equal(t, `SELECT * FROM "events"`, executor.queries[0])

	assert.Equal(t, "events", profile.Table)
	assert.Nil(t, profile.BasicStats)
	assert.Empty(t, profile.Flags)
	assert.Empty(t, profile.TypicalQuestions)
}

func TestEDAAnalyzer_SampleSizeLimitsFetch(t *testing.T) {
	executor := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return resultOf([]string{"id:INT8"}), nil
	}}
	analyzer := NewEDAAnalyzer(executor, rules.EDARules{}, zap.NewNop())

	_, err := analyzer.Run(context.Background(), "events", 500)
	require.NoError(t, err)

	require.Len(t, executor.queries, 1)
	assert.Equal(t, `SELECT * FROM "events" LIMIT 500`, executor.queries[0])
}

func TestEDAAnalyzer_QueryError(t *testing.T) {
	storeErr := errors.New("permission denied")
	executor := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return nil, storeErr
	}}
	analyzer := NewEDAAnalyzer(executor, rules.EDARules{}, zap.NewNop())

	_, err := analyzer.Run(context.Background(), "events", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.Contains(t, err.Error(), "failed to fetch rows for profiling events")
}

func TestEDAAnalyzer_BasicStats(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 5, d, 0, 0, 0, 0, time.UTC)
	}
	executor := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return resultOf(
			[]string{"id:UUID", "amount:FLOAT8", "plan:TEXT", "created_at:TIMESTAMPTZ"},
			map[string]any{"id": "u1", "amount": 10.0, "plan": "free", "created_at": day(1)},
			map[string]any{"id": "u2", "amount": 20.0, "plan": "free", "created_at": day(2)},
			map[string]any{"id": "u3", "amount": 30.0, "plan": "pro", "created_at": day(3)},
			map[string]any{"id": "u4", "amount": nil, "plan": nil, "created_at": day(4)},
			map[string]any{"id": "u5", "amount": 20.0, "plan": nil, "created_at": day(5)},
		), nil
	}}
	analyzer := newEDAAnalyzerAt(executor, rules.EDARules{}, day(6))

	profile, err := analyzer.Run(context.Background(), "orders", 0)
	require.NoError(t, err)

	bs := profile.BasicStats
	require.NotNil(t, bs)
	assert.Equal(t, 5, bs.RowCount)
	assert.Equal(t, 4, bs.ColumnCount)

	// Only columns with at least one null are reported.
	require.Contains(t, bs.NullSummary, "amount")
	require.Contains(t, bs.NullSummary, "plan")
	assert.NotContains(t, bs.NullSummary, "id")
	assert.Equal(t, 1, bs.NullSummary["amount"].NullCount)
	assert.Equal(t, 20.0, bs.NullSummary["amount"].NullPercentage)
	assert.Equal(t, 40.0, bs.NullSummary["plan"].NullPercentage)

	require.Contains(t, bs.NumericSummary, "amount")
	amount := bs.NumericSummary["amount"]
	assert.Equal(t, 4, amount.Count)
	assert.Equal(t, 20.0, amount.Mean)
	assert.Equal(t, 10.0, amount.Min)
	assert.Equal(t, 30.0, amount.Max)

	// UUID columns are not categories: every value is unique.
	assert.NotContains(t, bs.CategoricalSummary, "id")
	require.Contains(t, bs.CategoricalSummary, "plan")
	plan := bs.CategoricalSummary["plan"]
	assert.Equal(t, 2, plan.UniqueCount)
	assert.Equal(t, 2, plan.NullCount)
	require.NotEmpty(t, plan.TopValues)
	assert.Equal(t, models.ValueCount{Value: "free", Count: 2}, plan.TopValues[0])

	require.Contains(t, bs.DateRange, "created_at")
	assert.Equal(t, day(1), bs.DateRange["created_at"].Min)
	assert.Equal(t, day(5), bs.DateRange["created_at"].Max)
	assert.Equal(t, 4, bs.DateRange["created_at"].SpanDays)

	// 40% nulls in plan crosses the question threshold; 20% does not.
	require.Len(t, profile.TypicalQuestions, 1)
	q := profile.TypicalQuestions[0]
	assert.Equal(t, "Why are there so many null values in column 'plan'?", q.Question)
	assert.Equal(t, "null_percentage > 30", q.Trigger)
	assert.Equal(t, "Column 'plan' has 40.0% null values", q.Explanation)
}

func TestEDAAnalyzer_EveryDateColumnGetsARange(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 5, d, 0, 0, 0, 0, time.UTC)
	}
	executor := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return resultOf(
			[]string{"created_at:TIMESTAMPTZ", "occurred_at:TIMESTAMPTZ"},
			map[string]any{"created_at": day(1), "occurred_at": day(3)},
			map[string]any{"created_at": day(2), "occurred_at": day(9)},
		), nil
	}}
	analyzer := newEDAAnalyzerAt(executor, rules.EDARules{}, day(3))

	profile, err := analyzer.Run(context.Background(), "events", 0)
	require.NoError(t, err)

	require.NotNil(t, profile.BasicStats)
	require.Len(t, profile.BasicStats.DateRange, 2)
	assert.Equal(t, 1, profile.BasicStats.DateRange["created_at"].SpanDays)
	assert.Equal(t, 6, profile.BasicStats.DateRange["occurred_at"].SpanDays)
}

func TestEDAAnalyzer_SkewFlag(t *testing.T) {
	rows := make([]map[string]any, 0, 100)
	for i := 0; i < 99; i++ {
		rows = append(rows, map[string]any{"amount": 1.0})
	}
	rows = append(rows, map[string]any{"amount": 10000.0})

	executor := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return resultOf([]string{"amount:FLOAT8"}, rows...), nil
	}}
	analyzer := newEDAAnalyzerAt(executor, rules.EDARules{}, time.Now())

	profile, err := analyzer.Run(context.Background(), "orders", 0)
	require.NoError(t, err)

	require.Contains(t, profile.Distribution.Numeric, "amount")
	assert.Greater(t, profile.Distribution.Numeric["amount"].Skewness, 2.0)

	flag := findFlag(profile.Flags, models.FlagHighSkewness)
	require.NotNil(t, flag)
	assert.Equal(t, "amount", flag.Column)
	assert.Contains(t, flag.Message, "Highly skewed distribution detected in 'amount'")
}

func TestEDAAnalyzer_OutlierFlag(t *testing.T) {
	executor := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return resultOf([]string{"amount:FLOAT8"},
			map[string]any{"amount": 1.0},
			map[string]any{"amount": 2.0},
			map[string]any{"amount": 3.0},
			map[string]any{"amount": 4.0},
			map[string]any{"amount": 5.0},
			map[string]any{"amount": 100.0},
		), nil
	}}
	analyzer := newEDAAnalyzerAt(executor, rules.EDARules{}, time.Now())

	profile, err := analyzer.Run(context.Background(), "orders", 0)
	require.NoError(t, err)

	dist := profile.Distribution.Numeric["amount"]
	assert.Equal(t, 1, dist.OutlierCount)

	flag := findFlag(profile.Flags, models.FlagOutliers)
	require.NotNil(t, flag)
	assert.Equal(t, "Potential outliers detected in 'amount' (1 values)", flag.Message)

	// The outlier flag also surfaces as a follow-up question.
	var questions []string
	for _, q := range profile.TypicalQuestions {
		questions = append(questions, q.Question)
	}
	assert.Contains(t, questions, "Are there outliers in 'amount'?")
}

func TestEDAAnalyzer_ZeroInflationFlag(t *testing.T) {
	executor := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return resultOf([]string{"refund:FLOAT8"},
			map[string]any{"refund": 0.0},
			map[string]any{"refund": 0.0},
			map[string]any{"refund": 0.0},
			map[string]any{"refund": 1.0},
			map[string]any{"refund": 2.0},
		), nil
	}}
	analyzer := newEDAAnalyzerAt(executor, rules.EDARules{}, time.Now())

	profile, err := analyzer.Run(context.Background(), "orders", 0)
	require.NoError(t, err)

	dist := profile.Distribution.Numeric["refund"]
	assert.Equal(t, 3, dist.ZeroCount)
	assert.Equal(t, 60.0, dist.ZeroPercentage)

	flag := findFlag(profile.Flags, models.FlagZeroInflation)
	require.NotNil(t, flag)
	assert.Equal(t, "High percentage of zero values in 'refund' (60.0%)", flag.Message)

	assert.Nil(t, findFlag(profile.Flags, models.FlagHighSkewness))
}

func TestEDAAnalyzer_HighCardinalityFlag(t *testing.T) {
	rows := make([]map[string]any, 0, 51)
	for i := 0; i < 51; i++ {
		rows = append(rows, map[string]any{"sku": fmt.Sprintf("sku-%02d", i)})
	}
	executor := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return resultOf([]string{"sku:TEXT"}, rows...), nil
	}}
	analyzer := newEDAAnalyzerAt(executor, rules.EDARules{}, time.Now())

	profile, err := analyzer.Run(context.Background(), "products", 0)
	require.NoError(t, err)

	flag := findFlag(profile.Flags, models.FlagHighCardinality)
	require.NotNil(t, flag)
	assert.Equal(t, "High cardinality in 'sku' (51 unique values) - consider grouping", flag.Message)
}

func TestEDAAnalyzer_ImbalancedClassesFlag(t *testing.T) {
	rows := make([]map[string]any, 0, 100)
	for i := 0; i < 95; i++ {
		rows = append(rows, map[string]any{"plan": "free"})
	}
	for i := 0; i < 5; i++ {
		rows = append(rows, map[string]any{"plan": "pro"})
	}
	executor := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return resultOf([]string{"plan:TEXT"}, rows...), nil
	}}
	analyzer := newEDAAnalyzerAt(executor, rules.EDARules{}, time.Now())

	profile, err := analyzer.Run(context.Background(), "users", 0)
	require.NoError(t, err)

	dist := profile.Distribution.Categorical["plan"]
	assert.Equal(t, 95.0, dist.MaxClassPercentage)
	assert.Equal(t, "free", dist.TopValue)

	flag := findFlag(profile.Flags, models.FlagImbalancedClasses)
	require.NotNil(t, flag)
	assert.Equal(t, "Highly imbalanced classes in 'plan' (top class: 95.0%)", flag.Message)
}

func TestEDAAnalyzer_CorrelationFlag(t *testing.T) {
	rows := make([]map[string]any, 0, 10)
	for i := 1; i <= 10; i++ {
		rows = append(rows, map[string]any{"seats": float64(i), "spend": 2 * float64(i)})
	}
	executor := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return resultOf([]string{"seats:FLOAT8", "spend:FLOAT8"}, rows...), nil
	}}
	analyzer := newEDAAnalyzerAt(executor, rules.EDARules{}, time.Now())

	profile, err := analyzer.Run(context.Background(), "accounts", 0)
	require.NoError(t, err)

	require.Contains(t, profile.Relationships.Correlations, "seats_spend")
	assert.InDelta(t, 1.0, profile.Relationships.Correlations["seats_spend"].Correlation, 1e-9)

	flag := findFlag(profile.Flags, models.FlagHighCorrelation)
	require.NotNil(t, flag)
	assert.Equal(t, []string{"seats", "spend"}, flag.Columns)
	assert.Equal(t, "High correlation between 'seats' and 'spend' (1.00)", flag.Message)

	var questions []string
	for _, q := range profile.TypicalQuestions {
		questions = append(questions, q.Question)
	}
	assert.Contains(t, questions, "Why is there high correlation between 'seats' and 'spend'?")
}

func TestEDAAnalyzer_ConstantColumnSkipsCorrelation(t *testing.T) {
	executor := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return resultOf([]string{"fixed:FLOAT8", "varying:FLOAT8"},
			map[string]any{"fixed": 5.0, "varying": 1.0},
			map[string]any{"fixed": 5.0, "varying": 2.0},
			map[string]any{"fixed": 5.0, "varying": 3.0},
			map[string]any{"fixed": 5.0, "varying": 4.0},
		), nil
	}}
	analyzer := newEDAAnalyzerAt(executor, rules.EDARules{}, time.Now())

	profile, err := analyzer.Run(context.Background(), "metrics", 0)
	require.NoError(t, err)

	assert.Empty(t, profile.Relationships.Correlations,
		"a constant series has no correlation to report")
	assert.Nil(t, findFlag(profile.Flags, models.FlagHighCorrelation))
}

func TestEDAAnalyzer_TimeSeriesGapsAndStaleness(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 5, d, 0, 0, 0, 0, time.UTC)
	}
	executor := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return resultOf([]string{"occurred_at:TIMESTAMPTZ"},
			map[string]any{"occurred_at": day(16)}, // out of order on purpose
			map[string]any{"occurred_at": day(1)},
			map[string]any{"occurred_at": day(2)},
		), nil
	}}
	now := day(16).AddDate(0, 0, 30)
	analyzer := newEDAAnalyzerAt(executor, rules.EDARules{}, now)

	profile, err := analyzer.Run(context.Background(), "events", 0)
	require.NoError(t, err)

	require.NotNil(t, profile.TimeSeries)
	coverage := profile.TimeSeries.TemporalCoverage
	assert.Equal(t, day(1), coverage.FirstDate)
	assert.Equal(t, day(16), coverage.LastDate)
	assert.Equal(t, 14, coverage.MaxGapDays)
	assert.Equal(t, 30, coverage.DaysSinceLast)

	gaps := findFlag(profile.Flags, models.FlagDataGaps)
	require.NotNil(t, gaps)
	assert.Equal(t, "Gaps of more than 7 days detected (max gap: 14 days)", gaps.Message)

	stale := findFlag(profile.Flags, models.FlagRecentDataMissing)
	require.NotNil(t, stale)
	assert.Equal(t, "No recent data (last record: 30 days ago)", stale.Message)
}

func TestEDAAnalyzer_FreshDenseSeriesRaisesNoTemporalFlags(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 5, d, 0, 0, 0, 0, time.UTC)
	}
	executor := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return resultOf([]string{"occurred_at:TIMESTAMPTZ"},
			map[string]any{"occurred_at": day(1)},
			map[string]any{"occurred_at": day(3)},
			map[string]any{"occurred_at": day(5)},
		), nil
	}}
	analyzer := newEDAAnalyzerAt(executor, rules.EDARules{}, day(6))

	profile, err := analyzer.Run(context.Background(), "events", 0)
	require.NoError(t, err)

	assert.Nil(t, findFlag(profile.Flags, models.FlagDataGaps))
	assert.Nil(t, findFlag(profile.Flags, models.FlagRecentDataMissing))
}

func TestEDAAnalyzer_DisabledPhasesAreSkipped(t *testing.T) {
	executor := &fakeExecutor{respond: func(string) (*datasource.QueryExecutionResult, error) {
		return resultOf([]string{"amount:FLOAT8", "created_at:TIMESTAMPTZ"},
			map[string]any{"amount": 1.0, "created_at": time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		), nil
	}}

	off := false
	edaRules := rules.EDARules{Phases: rules.EDAPhases{
		BasicStats:           rules.Toggle{Enabled: &off},
		DistributionAnalysis: rules.Toggle{Enabled: &off},
		RelationshipAnalysis: rules.Toggle{Enabled: &off},
		TimeSeriesAnalysis:   rules.Toggle{Enabled: &off},
	}}
	analyzer := NewEDAAnalyzer(executor, edaRules, zap.NewNop())

	profile, err := analyzer.Run(context.Background(), "orders", 0)
	require.NoError(t, err)

	assert.Nil(t, profile.BasicStats)
	assert.Nil(t, profile.Distribution)
	assert.Nil(t, profile.Relationships)
	assert.Nil(t, profile.TimeSeries)
	assert.Empty(t, profile.Flags)
	assert.Empty(t, profile.TypicalQuestions)
}
