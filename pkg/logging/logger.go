package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger: console encoding for local
// environments, production JSON otherwise. An empty level keeps the
// config's default (info).
func NewLogger(level, env string) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	if env == "local" {
		logConfig = zap.NewDevelopmentConfig()
	}

	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("failed to parse log level %q: %w", level, err)
		}
		logConfig.Level = zap.NewAtomicLevelAt(parsed)
	}

	logger, err := logConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
