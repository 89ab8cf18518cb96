package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds the process-wide zap logger. Non-local environments get
// the production JSON encoder; local development gets the console encoder
// with colored levels. Callers derive component loggers with Named.
func NewLogger(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "local" || env == "test" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
