package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"go.uber.org/zap"

	"github.com/nimrodfisher/insight-engine/pkg/adapters/datasource"
	"github.com/nimrodfisher/insight-engine/pkg/adapters/datasource/postgres"
	"github.com/nimrodfisher/insight-engine/pkg/config"
	"github.com/nimrodfisher/insight-engine/pkg/logging"
	"github.com/nimrodfisher/insight-engine/pkg/models"
	"github.com/nimrodfisher/insight-engine/pkg/rules"
	"github.com/nimrodfisher/insight-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to the YAML configuration file")
		mode       = flag.String("mode", "", "Analysis to run: sanity, eda, diagnostic or demo-session")
		table      = flag.String("table", "", "Table to analyze (sanity, eda, demo-session)")
		query      = flag.String("query", "", "Query fetching the rows to diagnose (diagnostic)")
		target     = flag.String("target", "", "Target metric column (diagnostic)")
		segments   = flag.String("segments", "", "Comma-separated segment columns (diagnostic, demo-session)")
		question   = flag.String("question", "", "Analytical question to map against the schema context (demo-session)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath, Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting insight-engine",
		zap.String("version", cfg.Version),
		zap.String("mode", *mode),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)))

	ctx := context.Background()

	executor, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer executor.Close()

	payload, err := run(ctx, cfg, executor, logger, runOptions{
		mode:     *mode,
		table:    *table,
		query:    *query,
		target:   *target,
		segments: splitList(*segments),
		question: *question,
	})
	if err != nil {
		logger.Fatal("Analysis failed", zap.Error(err))
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		logger.Fatal("Failed to encode result", zap.Error(err))
	}
	fmt.Println(string(out))
}

type runOptions struct {
	mode     string
	table    string
	query    string
	target   string
	segments []string
	question string
}

// run dispatches one analysis mode and returns its JSON payload.
func run(ctx context.Context, cfg *config.Config, executor datasource.QueryExecutor, logger *zap.Logger, opts runOptions) (any, error) {
	switch opts.mode {
	case "sanity":
		return runSanity(ctx, cfg, executor, logger, opts)
	case "eda":
		return runEDA(ctx, cfg, executor, logger, opts)
	case "diagnostic":
		return runDiagnostic(ctx, cfg, executor, logger, opts)
	case "demo-session":
		return runDemoSession(ctx, cfg, executor, logger, opts)
	}
	return nil, fmt.Errorf("unknown mode %q: want sanity, eda, diagnostic or demo-session", opts.mode)
}

func runSanity(ctx context.Context, cfg *config.Config, executor datasource.QueryExecutor, logger *zap.Logger, opts runOptions) (any, error) {
	if opts.table == "" {
		return nil, fmt.Errorf("sanity mode requires -table")
	}
	checker := services.NewSanityChecker(executor, loadSanityRules(cfg.Rules.SanityRulesPath, logger), cfg.Analysis, logger)
	return checker.Run(ctx, opts.table), nil
}

func runEDA(ctx context.Context, cfg *config.Config, executor datasource.QueryExecutor, logger *zap.Logger, opts runOptions) (any, error) {
	if opts.table == "" {
		return nil, fmt.Errorf("eda mode requires -table")
	}
	analyzer := services.NewEDAAnalyzer(executor, loadEDARules(cfg.Rules.EDARulesPath, logger), logger)
	return analyzer.Run(ctx, opts.table, cfg.Analysis.EDASampleSize)
}

func runDiagnostic(ctx context.Context, cfg *config.Config, executor datasource.QueryExecutor, logger *zap.Logger, opts runOptions) (any, error) {
	if opts.query == "" || opts.target == "" || len(opts.segments) == 0 {
		return nil, fmt.Errorf("diagnostic mode requires -query, -target and -segments")
	}
	result, err := executor.Query(ctx, opts.query)
	if err != nil {
		return nil, err
	}
	analyzer := services.NewDiagnosticAnalyzer(cfg.Analysis, logger)
	return analyzer.DiagnosticAnalysis(result.Rows, opts.target, opts.segments)
}

// runDemoSession walks a short scripted session over one table: map the
// question, count all rows, then break the count down by each segment
// column with validation attached. It exists to exercise the orchestration
// path end to end against a live store.
func runDemoSession(ctx context.Context, cfg *config.Config, executor datasource.QueryExecutor, logger *zap.Logger, opts runOptions) (any, error) {
	if opts.table == "" {
		return nil, fmt.Errorf("demo-session mode requires -table")
	}

	cache := services.NewMetadataCache(executor, logger)
	advisor := services.NewPerformanceAdvisor(cache, cfg.Analysis, logger)
	validator := services.NewValidationEngine(executor, cfg.Analysis, logger)
	session := services.NewAnalysisSession(executor, advisor, validator,
		loadSchemaContext(cfg.Rules.SchemaDocPath, logger), logger)

	if opts.question != "" {
		session.MapQuestion(opts.question)
	}

	tableIdent := datasource.QuoteIdentifier(opts.table)
	if _, err := session.AddStep(ctx, services.StepRequest{
		Description: fmt.Sprintf("Count all rows in %s", opts.table),
		Query:       fmt.Sprintf("SELECT COUNT(*) AS total_rows FROM %s", tableIdent),
		Tables:      []string{opts.table},
	}); err != nil {
		return nil, err
	}

	for _, segment := range opts.segments {
		segmentIdent := datasource.QuoteIdentifier(segment)
		if _, err := session.AddStep(ctx, services.StepRequest{
			Description: fmt.Sprintf("Row counts in %s by %s", opts.table, segment),
			Query: fmt.Sprintf("SELECT %s, COUNT(*) AS row_count FROM %s GROUP BY %s ORDER BY row_count DESC",
				segmentIdent, tableIdent, segmentIdent),
			Tables: []string{opts.table},
			Validation: &services.ValidationRequest{
				Aggregation: services.Aggregation{
					Kind:         services.AggregationCount,
					ResultColumn: "row_count",
				},
				SegmentColumns: []string{segment},
				Table:          opts.table,
			},
		}); err != nil {
			return nil, err
		}
	}

	return struct {
		Steps   []models.AnalysisStep   `json:"steps"`
		Summary *models.AnalysisSummary `json:"summary"`
	}{session.Steps(), session.Summary()}, nil
}

// loadSanityRules reads the sanity rule document, degrading to zero rules
// when it is missing or unreadable.
func loadSanityRules(path string, logger *zap.Logger) rules.SanityRules {
	r, err := rules.LoadSanityRules(path)
	if err != nil {
		logger.Warn("Sanity rules not loaded; running with no table rules",
			zap.String("path", path), zap.Error(err))
		return rules.SanityRules{}
	}
	return r
}

// loadEDARules reads the EDA rule document. Without it every phase runs.
func loadEDARules(path string, logger *zap.Logger) rules.EDARules {
	r, err := rules.LoadEDARules(path)
	if err != nil {
		logger.Warn("EDA rules not loaded; all phases default to enabled",
			zap.String("path", path), zap.Error(err))
		return rules.EDARules{}
	}
	return r
}

// loadSchemaContext reads the schema document. Question mapping is optional,
// so a missing document just disables it.
func loadSchemaContext(path string, logger *zap.Logger) *services.SchemaContext {
	doc, err := rules.LoadSchemaDoc(path)
	if err != nil {
		logger.Warn("Schema context not loaded; question mapping disabled",
			zap.String("path", path), zap.Error(err))
		return nil
	}
	return services.NewSchemaContext(doc, logger)
}

// splitList parses a comma-separated flag value into trimmed, non-empty
// parts.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
