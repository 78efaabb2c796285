package services

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nimrodfisher/insight-engine/pkg/adapters/datasource"
	"github.com/nimrodfisher/insight-engine/pkg/logging"
	"github.com/nimrodfisher/insight-engine/pkg/models"
)

// StepRequest describes one analysis step to execute.
type StepRequest struct {
	Description    string
	Query          string
	Assumptions    []string
	Clarifications []string
	// Tables lists the tables the query reads. When empty, names are
	// extracted from the query text on a best-effort basis; explicit
	// declarations always win over extraction.
	Tables []string
	// Validation, when set, re-checks the step's aggregated rows
	// against raw data before the step is appended.
	Validation *ValidationRequest
}

// ValidationRequest asks for independent recomputation of an aggregation
// step from raw rows of the named table.
type ValidationRequest struct {
	Aggregation    Aggregation
	SegmentColumns []string
	Table          string
}

// AnalysisSession sequences analysis steps against a single store
// connection, accumulating an append-only step log. Steps run strictly one
// at a time: later steps may depend on earlier results, so a failing query
// aborts the session rather than being skipped.
//
// A session is not safe for concurrent use and must not share its executor
// or metadata cache with another session.
type AnalysisSession interface {
	// AddStep executes the query, attaches a performance advisory and
	// optional validation, and appends the resulting step. A store
	// rejection propagates as *datasource.QueryError and nothing is
	// appended.
	AddStep(ctx context.Context, req StepRequest) (*models.AnalysisStep, error)

	// MapQuestion records the analytical question driving this session
	// and maps it against the schema context, when one is configured.
	MapQuestion(question string) *models.QuestionMapping

	// Steps returns a copy of the step log in execution order.
	Steps() []models.AnalysisStep

	// Summary returns session totals and a compact per-step digest.
	Summary() *models.AnalysisSummary
}

type analysisSession struct {
	id        uuid.UUID
	executor  datasource.QueryExecutor
	advisor   PerformanceAdvisor
	validator ValidationEngine
	schema    *SchemaContext
	steps     []models.AnalysisStep
	question  string
	mapping   *models.QuestionMapping
	logger    *zap.Logger
}

// NewAnalysisSession creates an empty session. The schema context may be
// nil, in which case MapQuestion returns an empty mapping.
func NewAnalysisSession(executor datasource.QueryExecutor, advisor PerformanceAdvisor, validator ValidationEngine, schema *SchemaContext, logger *zap.Logger) AnalysisSession {
	return &analysisSession{
		id:        uuid.New(),
		executor:  executor,
		advisor:   advisor,
		validator: validator,
		schema:    schema,
		logger:    logger.Named("analysis-session"),
	}
}

var _ AnalysisSession = (*analysisSession)(nil)

func (s *analysisSession) AddStep(ctx context.Context, req StepRequest) (*models.AnalysisStep, error) {
	stepNumber := len(s.steps) + 1

	tables := req.Tables
	if len(tables) == 0 {
		tables = extractTableNames(req.Query)
	}

	advisory := s.advisor.Check(ctx, req.Query, tables)

	result, err := s.executor.Query(ctx, req.Query)
	if err != nil {
		s.logger.Error("Step query failed",
			zap.Int("step_number", stepNumber),
			zap.String("query", logging.SanitizeQuery(req.Query)),
			zap.Error(err))
		return nil, err
	}

	step := models.AnalysisStep{
		StepNumber:      stepNumber,
		Description:     req.Description,
		Query:           req.Query,
		Assumptions:     req.Assumptions,
		Clarifications:  req.Clarifications,
		ExecutionTimeMs: float64(result.ExecutionTime.Microseconds()) / 1000.0,
		RowCount:        result.RowCount,
		Columns:         result.ColumnNames(),
		TablesUsed:      tables,
		Performance:     *advisory,
	}

	if req.Validation != nil {
		validation, err := s.validator.Validate(ctx, result.Rows, req.Validation.Aggregation, req.Validation.SegmentColumns, req.Validation.Table)
		if err != nil {
			return nil, fmt.Errorf("failed to validate step %d: %w", stepNumber, err)
		}
		step.Validation = validation
	}

	s.steps = append(s.steps, step)
	s.logger.Info("Added analysis step",
		zap.Int("step_number", step.StepNumber),
		zap.String("description", step.Description),
		zap.Int("row_count", step.RowCount),
		zap.Float64("execution_time_ms", step.ExecutionTimeMs),
		zap.String("estimated_cost", step.Performance.EstimatedCost))
	return &step, nil
}

func (s *analysisSession) MapQuestion(question string) *models.QuestionMapping {
	s.question = question
	if s.schema == nil {
		s.mapping = &models.QuestionMapping{}
	} else {
		s.mapping = s.schema.MatchQuestion(question)
	}
	s.logger.Info("Mapped question to schema context",
		zap.String("question", question),
		zap.Int("tables_matched", len(s.mapping.Tables)),
		zap.Int("metrics_matched", len(s.mapping.Metrics)))
	return s.mapping
}

func (s *analysisSession) Steps() []models.AnalysisStep {
	steps := make([]models.AnalysisStep, len(s.steps))
	copy(steps, s.steps)
	return steps
}

func (s *analysisSession) Summary() *models.AnalysisSummary {
	summary := &models.AnalysisSummary{
		SessionID:      s.id.String(),
		TotalSteps:     len(s.steps),
		Steps:          make([]models.StepDigest, 0, len(s.steps)),
		Question:       s.question,
		ContextMapping: s.mapping,
	}

	for _, step := range s.steps {
		summary.TotalExecutionTimeMs += step.ExecutionTimeMs
		digest := models.StepDigest{
			StepNumber:      step.StepNumber,
			Description:     step.Description,
			RowCount:        step.RowCount,
			ExecutionTimeMs: step.ExecutionTimeMs,
			HasValidation:   step.Validation != nil,
		}
		if step.Validation != nil {
			passed := step.Validation.AllPassed
			digest.ValidationPassed = &passed
		}
		summary.Steps = append(summary.Steps, digest)
	}
	return summary
}

var (
	fromClausePattern = regexp.MustCompile(`(?i)\bFROM\s+(\w+)`)
	joinClausePattern = regexp.MustCompile(`(?i)\bJOIN\s+(\w+)`)
)

// extractTableNames pulls table names out of FROM and JOIN clauses,
// deduplicated in order of first appearance. Text matching only:
// subqueries, quoted identifiers and schema qualification defeat it,
// which is why explicitly declared tables take precedence.
func extractTableNames(query string) []string {
	var tables []string
	seen := make(map[string]struct{})
	for _, pattern := range []*regexp.Regexp{fromClausePattern, joinClausePattern} {
		for _, match := range pattern.FindAllStringSubmatch(query, -1) {
			name := match[1]
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			tables = append(tables, name)
		}
	}
	return tables
}
