// Package logging installs the process-wide slog handler backed by zap.
package logging

import (
	"fmt"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger: JSON in production, colored console otherwise.
// PRE: env is the deployment environment name
// POST: Returns a logger writing to stdout
func NewLogger(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.OutputPaths = []string{"stdout"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// NewHandler wraps core as a slog handler.
func NewHandler(core zapcore.Core) slog.Handler {
	return zapslog.NewHandler(core, zapslog.WithCaller(true))
}

// Install makes zap the backend of the default slog logger.
// POST: slog.Default writes through the returned logger; call Sync on exit
func Install(env string) (*zap.Logger, error) {
	logger, err := NewLogger(env)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(NewHandler(logger.Core())).With("service", "classbook"))
	return logger, nil
}
