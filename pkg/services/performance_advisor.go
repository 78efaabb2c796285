package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nimrodfisher/insight-engine/pkg/config"
	"github.com/nimrodfisher/insight-engine/pkg/models"
)

// dateFilterColumns are the column names treated as time-series markers:
// a table exposing one of these should usually be queried with a date
// filter.
var dateFilterColumns = []string{"created_at", "occurred_at", "timestamp"}

// rowCountPrinter renders row counts with thousands separators for
// human-readable warnings.
var rowCountPrinter = message.NewPrinter(language.English)

// PerformanceAdvisor inspects a query before execution and estimates its
// cost from the sizes of the referenced tables. The verdict is advisory
// only; it never blocks execution.
type PerformanceAdvisor interface {
	// Check classifies the query into a cost tier and collects warnings
	// and recommendations. Tables whose metadata cannot be fetched are
	// skipped; Check itself never fails.
	Check(ctx context.Context, query string, tables []string) *models.PerformanceAdvisory
}

type performanceAdvisor struct {
	cache      MetadataCache
	thresholds config.AnalysisConfig
	logger     *zap.Logger
}

// NewPerformanceAdvisor creates an advisor classifying queries against the
// configured row-count thresholds.
func NewPerformanceAdvisor(cache MetadataCache, thresholds config.AnalysisConfig, logger *zap.Logger) PerformanceAdvisor {
	return &performanceAdvisor{
		cache:      cache,
		thresholds: thresholds,
		logger:     logger.Named("performance-advisor"),
	}
}

var _ PerformanceAdvisor = (*performanceAdvisor)(nil)

func (a *performanceAdvisor) Check(ctx context.Context, query string, tables []string) *models.PerformanceAdvisory {
	advisory := &models.PerformanceAdvisory{
		Warnings:        []string{},
		Recommendations: []string{},
		EstimatedCost:   models.CostLow,
	}

	for _, table := range tables {
		meta, err := a.cache.GetTableMetadata(ctx, table)
		if err != nil {
			a.logger.Warn("Failed to fetch table metadata, skipping table in advisory",
				zap.String("table", table),
				zap.Error(err))
			continue
		}

		switch {
		case meta.RowCount > a.thresholds.LargeTableRows:
			advisory.Warnings = append(advisory.Warnings, fmt.Sprintf(
				"Large table detected: %s has %s rows. Consider adding date filters or LIMIT clauses.",
				table, rowCountPrinter.Sprintf("%d", meta.RowCount)))
			advisory.EstimatedCost = models.CostHigh
		case meta.RowCount > a.thresholds.MediumTableRows:
			advisory.Warnings = append(advisory.Warnings, fmt.Sprintf(
				"Medium table: %s has %s rows. Consider filtering for better performance.",
				table, rowCountPrinter.Sprintf("%d", meta.RowCount)))
			if advisory.EstimatedCost == models.CostLow {
				advisory.EstimatedCost = models.CostMedium
			}
		}

		if hasDateColumn(meta) {
			if queryFiltersByDate(query) {
				advisory.Recommendations = append(advisory.Recommendations,
					fmt.Sprintf("Good: Date filter detected for %s", table))
			} else {
				advisory.Warnings = append(advisory.Warnings,
					fmt.Sprintf("Consider adding date filter for %s to improve performance", table))
			}
		}
	}

	return advisory
}

func hasDateColumn(meta *models.TableMetadata) bool {
	for _, col := range dateFilterColumns {
		if meta.HasColumn(col) {
			return true
		}
	}
	return false
}

// queryFiltersByDate is a textual heuristic, not a parser: it looks for a
// WHERE clause plus any of the known date column names anywhere in the
// query. Filters expressed differently are missed; that is an accepted
// limitation.
func queryFiltersByDate(query string) bool {
	q := strings.ToLower(query)
	if !strings.Contains(q, "where") {
		return false
	}
	for _, col := range dateFilterColumns {
		if strings.Contains(q, col) {
			return true
		}
	}
	return false
}
