package main

import (
	"go.uber.org/zap"

	"github.com/JadenB9/mode/internal/config"
)

// newLogger builds the process logger. The interactive mode owns the
// terminal, so it logs to the configured file or not at all.
func newLogger(cfg config.LoggingConfig, mode string) (*zap.Logger, error) {
	if mode != "serve" && cfg.File == "" {
		return zap.NewNop(), nil
	}

	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level

	if cfg.File != "" {
		zc.OutputPaths = []string{cfg.File}
		zc.ErrorOutputPaths = []string{cfg.File}
	}

	return zc.Build()
}
