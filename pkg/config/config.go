package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for insight-engine.
// Configuration can come from a YAML file or environment variables.
// Environment variables always override YAML values for fields that support
// both. Secrets (passwords) must only come from environment variables.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Analysis thresholds and limits
	Analysis AnalysisConfig `yaml:"analysis"`

	// Paths to the YAML rule files
	Rules RulesConfig `yaml:"rules"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"insight"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"insight_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// AnalysisConfig holds thresholds shared by the analysis services.
type AnalysisConfig struct {
	// LargeTableRows is the row count above which a queried table is
	// flagged as high cost.
	LargeTableRows int64 `yaml:"large_table_rows" env:"ANALYSIS_LARGE_TABLE_ROWS" env-default:"1000000"`
	// MediumTableRows is the row count above which a queried table is
	// flagged as medium cost.
	MediumTableRows int64 `yaml:"medium_table_rows" env:"ANALYSIS_MEDIUM_TABLE_ROWS" env-default:"100000"`
	// ValidationSampleCases is how many aggregate rows get re-checked
	// against raw data per validation run.
	ValidationSampleCases int `yaml:"validation_sample_cases" env:"ANALYSIS_VALIDATION_SAMPLE_CASES" env-default:"3"`
	// ValidationRowLimit caps the raw rows fetched per validation case.
	ValidationRowLimit int `yaml:"validation_row_limit" env:"ANALYSIS_VALIDATION_ROW_LIMIT" env-default:"100"`
	// CompletenessThreshold is the minimum percentage of non-null values
	// required for a completeness check to pass.
	CompletenessThreshold float64 `yaml:"completeness_threshold" env:"ANALYSIS_COMPLETENESS_THRESHOLD" env-default:"95"`
	// SignificanceLevel is the alpha used for two-sample significance tests.
	SignificanceLevel float64 `yaml:"significance_level" env:"ANALYSIS_SIGNIFICANCE_LEVEL" env-default:"0.05"`
	// EDASampleSize limits the rows fetched for profiling.
	// Zero profiles the whole table.
	EDASampleSize int `yaml:"eda_sample_size" env:"ANALYSIS_EDA_SAMPLE_SIZE" env-default:"0"`
}

// RulesConfig holds the locations of the YAML rule files.
type RulesConfig struct {
	SanityRulesPath string `yaml:"sanity_rules_path" env:"RULES_SANITY_PATH" env-default:"rules/sanity_rules.yml"`
	EDARulesPath    string `yaml:"eda_rules_path" env:"RULES_EDA_PATH" env-default:"rules/eda_rules.yml"`
	SchemaDocPath   string `yaml:"schema_doc_path" env:"RULES_SCHEMA_DOC_PATH" env-default:"rules/schema_context.yml"`
}

// Load reads configuration from the given YAML file with environment
// variable overrides. A missing file is not an error: the tool then runs
// on environment variables and defaults alone. The version parameter is
// injected at build time and set on the returned Config.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	err := cleanenv.ReadConfig(path, cfg)
	if errors.Is(err, os.ErrNotExist) {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Analysis.MediumTableRows <= 0 {
		return fmt.Errorf("medium_table_rows must be positive, got %d", c.Analysis.MediumTableRows)
	}
	if c.Analysis.LargeTableRows <= c.Analysis.MediumTableRows {
		return fmt.Errorf("large_table_rows (%d) must exceed medium_table_rows (%d)",
			c.Analysis.LargeTableRows, c.Analysis.MediumTableRows)
	}
	if c.Analysis.SignificanceLevel <= 0 || c.Analysis.SignificanceLevel >= 1 {
		return fmt.Errorf("significance_level must be between 0 and 1, got %g", c.Analysis.SignificanceLevel)
	}
	if c.Analysis.CompletenessThreshold < 0 || c.Analysis.CompletenessThreshold > 100 {
		return fmt.Errorf("completeness_threshold must be between 0 and 100, got %g", c.Analysis.CompletenessThreshold)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
