package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nimrodfisher/insight-engine/pkg/adapters/datasource"
	"github.com/nimrodfisher/insight-engine/pkg/apperrors"
	"github.com/nimrodfisher/insight-engine/pkg/config"
	"github.com/nimrodfisher/insight-engine/pkg/models"
	"github.com/nimrodfisher/insight-engine/pkg/rules"
)

// primaryKeyColumn is the column assumed to uniquely identify rows. The
// duplicate check runs against it on every table.
const primaryKeyColumn = "id"

// businessKeyExampleCap bounds how many duplicated business-key groups a
// single check reports.
const businessKeyExampleCap = 10

// SanityChecker runs rule-driven data quality checks against one table:
// nulls in critical columns, duplicate keys, range and enum consistency,
// and completeness of required columns.
//
// Checks are best-effort reports: a check that cannot run (bad column
// name, missing table) becomes a status "error" record in its category
// and never aborts its siblings.
type SanityChecker interface {
	Run(ctx context.Context, table string) *models.SanityReport
}

type sanityChecker struct {
	executor datasource.QueryExecutor
	rules    rules.SanityRules
	limits   config.AnalysisConfig
	logger   *zap.Logger
}

// NewSanityChecker creates a checker over the given rule set. Rules are
// fixed at construction; checks never touch the filesystem.
func NewSanityChecker(executor datasource.QueryExecutor, sanityRules rules.SanityRules, limits config.AnalysisConfig, logger *zap.Logger) SanityChecker {
	return &sanityChecker{
		executor: executor,
		rules:    sanityRules,
		limits:   limits,
		logger:   logger.Named("sanity-checker"),
	}
}

var _ SanityChecker = (*sanityChecker)(nil)

func (c *sanityChecker) Run(ctx context.Context, table string) *models.SanityReport {
	report := &models.SanityReport{
		ID:                 uuid.New(),
		Table:              table,
		Timestamp:          time.Now(),
		NullChecks:         []models.CheckResult{},
		DuplicateChecks:    []models.CheckResult{},
		ConsistencyChecks:  []models.CheckResult{},
		CompletenessChecks: []models.CheckResult{},
	}

	tableRules := c.rules.ForTable(table)

	if c.rules.Checks.NullChecks.IsEnabled() {
		report.NullChecks = c.checkNulls(ctx, table, tableRules)
	}
	if c.rules.Checks.DuplicateChecks.IsEnabled() {
		report.DuplicateChecks = c.checkDuplicates(ctx, table, tableRules)
	}
	if c.rules.Checks.ConsistencyChecks.IsEnabled() {
		report.ConsistencyChecks = c.checkConsistency(ctx, table, tableRules)
	}
	if c.rules.Checks.CompletenessChecks.IsEnabled() {
		report.CompletenessChecks = c.checkCompleteness(ctx, table, tableRules)
	}

	for _, category := range report.Categories() {
		for _, check := range category {
			report.Summary.TotalChecks++
			switch {
			case check.Status == models.CheckStatusPassed:
				report.Summary.Passed++
			case check.Severity == models.SeverityWarning:
				report.Summary.Warnings++
			case check.Severity == models.SeverityError:
				report.Summary.Errors++
			}
		}
	}

	c.logger.Info("Completed sanity checks",
		zap.String("table", table),
		zap.Int("total_checks", report.Summary.TotalChecks),
		zap.Int("passed", report.Summary.Passed),
		zap.Int("warnings", report.Summary.Warnings),
		zap.Int("errors", report.Summary.Errors))
	return report
}

func (c *sanityChecker) checkNulls(ctx context.Context, table string, tableRules rules.TableRules) []models.CheckResult {
	checks := make([]models.CheckResult, 0, len(tableRules.CriticalColumns))
	for _, col := range tableRules.CriticalColumns {
		checks = append(checks, c.checkColumnNulls(ctx, table, col))
	}
	return checks
}

func (c *sanityChecker) checkColumnNulls(ctx context.Context, table, col string) models.CheckResult {
	name := "null_check_" + col
	query := fmt.Sprintf(
		"SELECT COUNT(*) AS total_rows, COUNT(%[1]s) AS non_null_count, COUNT(*) - COUNT(%[1]s) AS null_count, ROUND(100.0 * (COUNT(*) - COUNT(%[1]s)) / COUNT(*), 2) AS null_percentage FROM %[2]s",
		datasource.QuoteIdentifier(col), datasource.QuoteIdentifier(table))

	row, err := c.queryRow(ctx, query)
	if err != nil {
		return errorCheck(name, col, "Error checking nulls", err)
	}

	nullCount, _ := datasource.Int64Value(row["null_count"])
	nullPct, _ := datasource.Float64Value(row["null_percentage"])

	check := models.CheckResult{
		CheckName: name,
		Column:    col,
		Status:    models.CheckStatusPassed,
		Severity:  models.SeverityInfo,
		Message:   fmt.Sprintf("Column '%s' has %d null values (%g%%)", col, nullCount, nullPct),
		Details: map[string]any{
			"null_count":      nullCount,
			"null_percentage": nullPct,
		},
	}
	if nullCount > 0 {
		check.Status = models.CheckStatusFailed
		check.Severity = models.SeverityError
	}
	return check
}

func (c *sanityChecker) checkDuplicates(ctx context.Context, table string, tableRules rules.TableRules) []models.CheckResult {
	checks := []models.CheckResult{c.checkPrimaryKeyDuplicates(ctx, table)}
	for _, key := range tableRules.BusinessKeys {
		// Keys may arrive qualified ("orders.email"); only the column
		// part matters here.
		col := key
		if i := strings.LastIndex(key, "."); i >= 0 {
			col = key[i+1:]
		}
		checks = append(checks, c.checkBusinessKeyDuplicates(ctx, table, col))
	}
	return checks
}

func (c *sanityChecker) checkPrimaryKeyDuplicates(ctx context.Context, table string) models.CheckResult {
	const name = "primary_key_duplicates"
	query := fmt.Sprintf("SELECT COUNT(*) AS total_rows, COUNT(DISTINCT %s) AS unique_ids FROM %s",
		datasource.QuoteIdentifier(primaryKeyColumn), datasource.QuoteIdentifier(table))

	row, err := c.queryRow(ctx, query)
	if err != nil {
		return errorCheck(name, "", "Error checking duplicates", err)
	}

	total, _ := datasource.Int64Value(row["total_rows"])
	unique, _ := datasource.Int64Value(row["unique_ids"])
	duplicates := total - unique

	check := models.CheckResult{
		CheckName: name,
		Status:    models.CheckStatusPassed,
		Severity:  models.SeverityInfo,
		Message:   "No duplicate primary keys",
		Details: map[string]any{
			"total_rows":      total,
			"unique_ids":      unique,
			"duplicate_count": duplicates,
		},
	}
	if duplicates > 0 {
		check.Status = models.CheckStatusFailed
		check.Severity = models.SeverityError
		check.Message = fmt.Sprintf("Found %d duplicate primary keys", duplicates)
	}
	return check
}

func (c *sanityChecker) checkBusinessKeyDuplicates(ctx context.Context, table, col string) models.CheckResult {
	name := "business_key_duplicates_" + col
	query := fmt.Sprintf(
		"SELECT %[1]s AS value, COUNT(*) AS count FROM %[2]s WHERE %[1]s IS NOT NULL GROUP BY %[1]s HAVING COUNT(*) > 1 ORDER BY count DESC, value LIMIT %[3]d",
		datasource.QuoteIdentifier(col), datasource.QuoteIdentifier(table), businessKeyExampleCap)

	result, err := c.executor.Query(ctx, query)
	if err != nil {
		return errorCheck(name, col, "Error checking duplicates", err)
	}

	duplicateCount := result.RowCount
	examples := make([]string, 0, duplicateCount)
	for _, row := range result.Rows {
		examples = append(examples, datasource.StringValue(row["value"]))
	}

	check := models.CheckResult{
		CheckName: name,
		Column:    col,
		Status:    models.CheckStatusPassed,
		Severity:  models.SeverityInfo,
		Message:   fmt.Sprintf("No duplicates in '%s'", col),
		Details: map[string]any{
			"duplicate_count": duplicateCount,
			"examples":        examples,
		},
	}
	if duplicateCount > 0 {
		check.Status = models.CheckStatusFailed
		check.Severity = models.SeverityWarning
		check.Message = fmt.Sprintf("Found %d duplicate values in '%s'", duplicateCount, col)
	}
	return check
}

func (c *sanityChecker) checkConsistency(ctx context.Context, table string, tableRules rules.TableRules) []models.CheckResult {
	checks := []models.CheckResult{}
	for _, rule := range tableRules.DateRanges {
		if rule.Start == "" || rule.End == "" {
			continue
		}
		checks = append(checks, c.checkDateRange(ctx, table, rule))
	}
	for _, rule := range tableRules.NumericRanges {
		if rule.Column == "" || rule.Min == nil || rule.Max == nil {
			continue
		}
		checks = append(checks, c.checkNumericRange(ctx, table, rule))
	}
	for _, rule := range tableRules.CategoricalColumns {
		if rule.Name == "" || len(rule.ExpectedValues) == 0 {
			continue
		}
		checks = append(checks, c.checkCategoricalValues(ctx, table, rule))
	}
	return checks
}

func (c *sanityChecker) checkDateRange(ctx context.Context, table string, rule rules.DateRangeRule) models.CheckResult {
	name := fmt.Sprintf("date_range_consistency_%s_%s", rule.Start, rule.End)
	query := fmt.Sprintf(
		"SELECT COUNT(*) AS invalid_ranges FROM %s WHERE %[2]s IS NOT NULL AND %[3]s IS NOT NULL AND %[2]s > %[3]s",
		datasource.QuoteIdentifier(table), datasource.QuoteIdentifier(rule.Start), datasource.QuoteIdentifier(rule.End))

	row, err := c.queryRow(ctx, query)
	if err != nil {
		return errorCheck(name, "", "Error checking date ranges", err)
	}

	invalidCount, _ := datasource.Int64Value(row["invalid_ranges"])

	check := models.CheckResult{
		CheckName: name,
		Status:    models.CheckStatusPassed,
		Severity:  models.SeverityInfo,
		Message:   "Date ranges are consistent",
		Details:   map[string]any{"invalid_count": invalidCount},
	}
	if invalidCount > 0 {
		check.Status = models.CheckStatusFailed
		check.Severity = models.SeverityError
		check.Message = fmt.Sprintf("Found %d records where %s > %s", invalidCount, rule.Start, rule.End)
	}
	return check
}

func (c *sanityChecker) checkNumericRange(ctx context.Context, table string, rule rules.NumericRangeRule) models.CheckResult {
	name := "numeric_range_" + rule.Column
	minLit := strconv.FormatFloat(*rule.Min, 'f', -1, 64)
	maxLit := strconv.FormatFloat(*rule.Max, 'f', -1, 64)
	query := fmt.Sprintf(
		"SELECT COUNT(*) AS out_of_range FROM %s WHERE %[2]s < %[3]s OR %[2]s > %[4]s",
		datasource.QuoteIdentifier(table), datasource.QuoteIdentifier(rule.Column), minLit, maxLit)

	row, err := c.queryRow(ctx, query)
	if err != nil {
		return errorCheck(name, rule.Column, "Error checking numeric range", err)
	}

	outOfRange, _ := datasource.Int64Value(row["out_of_range"])

	check := models.CheckResult{
		CheckName: name,
		Column:    rule.Column,
		Status:    models.CheckStatusPassed,
		Severity:  models.SeverityInfo,
		Message:   "All values within expected range",
		Details: map[string]any{
			"out_of_range_count": outOfRange,
			"expected_range":     fmt.Sprintf("%g - %g", *rule.Min, *rule.Max),
		},
	}
	if outOfRange > 0 {
		check.Status = models.CheckStatusFailed
		check.Severity = models.SeverityWarning
		check.Message = fmt.Sprintf("Found %d values outside range [%g, %g]", outOfRange, *rule.Min, *rule.Max)
	}
	return check
}

func (c *sanityChecker) checkCategoricalValues(ctx context.Context, table string, rule rules.CategoricalRule) models.CheckResult {
	name := "enum_consistency_" + rule.Name
	query := fmt.Sprintf(
		"SELECT DISTINCT %[1]s AS value, COUNT(*) AS count FROM %[2]s WHERE %[1]s IS NOT NULL GROUP BY %[1]s ORDER BY count DESC",
		datasource.QuoteIdentifier(rule.Name), datasource.QuoteIdentifier(table))

	result, err := c.executor.Query(ctx, query)
	if err != nil {
		return errorCheck(name, rule.Name, "Error checking enum values", err)
	}

	expected := make(map[string]struct{}, len(rule.ExpectedValues))
	for _, v := range rule.ExpectedValues {
		expected[normalizeCategory(v)] = struct{}{}
	}

	var unexpected []string
	seen := make(map[string]struct{})
	for _, row := range result.Rows {
		value := normalizeCategory(datasource.StringValue(row["value"]))
		if _, ok := expected[value]; ok {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		unexpected = append(unexpected, value)
	}
	sort.Strings(unexpected)

	check := models.CheckResult{
		CheckName: name,
		Column:    rule.Name,
		Status:    models.CheckStatusPassed,
		Severity:  models.SeverityInfo,
		Message:   "All values match expected enum",
		Details: map[string]any{
			"unexpected_values": unexpected,
			"unexpected_count":  len(unexpected),
		},
	}
	if len(unexpected) > 0 {
		check.Status = models.CheckStatusFailed
		check.Severity = models.SeverityWarning
		check.Message = fmt.Sprintf("Found %d unexpected values: %v", len(unexpected), unexpected)
	}
	return check
}

func (c *sanityChecker) checkCompleteness(ctx context.Context, table string, tableRules rules.TableRules) []models.CheckResult {
	checks := make([]models.CheckResult, 0, len(tableRules.RequiredColumns))
	for _, col := range tableRules.RequiredColumns {
		checks = append(checks, c.checkColumnCompleteness(ctx, table, col))
	}
	return checks
}

func (c *sanityChecker) checkColumnCompleteness(ctx context.Context, table, col string) models.CheckResult {
	name := "completeness_" + col
	query := fmt.Sprintf(
		"SELECT COUNT(*) AS total_rows, COUNT(%[1]s) AS non_null_count, ROUND(100.0 * COUNT(%[1]s) / COUNT(*), 2) AS completeness_pct FROM %[2]s",
		datasource.QuoteIdentifier(col), datasource.QuoteIdentifier(table))

	row, err := c.queryRow(ctx, query)
	if err != nil {
		return errorCheck(name, col, "Error checking completeness", err)
	}

	completeness, _ := datasource.Float64Value(row["completeness_pct"])
	nonNull, _ := datasource.Int64Value(row["non_null_count"])
	total, _ := datasource.Int64Value(row["total_rows"])
	threshold := c.limits.CompletenessThreshold

	check := models.CheckResult{
		CheckName: name,
		Column:    col,
		Status:    models.CheckStatusPassed,
		Severity:  models.SeverityInfo,
		Message:   fmt.Sprintf("Column '%s' is %.1f%% complete (threshold: %g%%)", col, completeness, threshold),
		Details: map[string]any{
			"completeness_percentage": completeness,
			"non_null_count":          nonNull,
			"total_rows":              total,
			"threshold":               threshold,
		},
	}
	if completeness < threshold {
		check.Status = models.CheckStatusFailed
		check.Severity = models.SeverityWarning
	}
	return check
}

// queryRow runs a query expected to return exactly one row.
func (c *sanityChecker) queryRow(ctx context.Context, query string) (map[string]any, error) {
	result, err := c.executor.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(result.Rows) == 0 {
		return nil, apperrors.ErrNoRows
	}
	return result.Rows[0], nil
}

// errorCheck folds a failed check execution into a status "error" record
// so sibling checks keep running.
func errorCheck(name, column, action string, err error) models.CheckResult {
	return models.CheckResult{
		CheckName: name,
		Column:    column,
		Status:    models.CheckStatusError,
		Severity:  models.SeverityError,
		Message:   fmt.Sprintf("%s: %v", action, err),
	}
}

// normalizeCategory lowercases and trims a categorical value for
// case-insensitive membership comparison.
func normalizeCategory(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
