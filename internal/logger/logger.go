package logger

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/satprep/satprep/internal/config"
)

// New returns a production logger for env=production and a development
// logger otherwise. A non-empty LogLevel overrides the preset's level.
func New(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.Env == "production" {
		zc = zap.NewProductionConfig()
	}

	if cfg.LogLevel != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("log_level: %w", err)
		}
		zc.Level = lvl
	}

	return zc.Build()
}
