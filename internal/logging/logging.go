// Package logging builds the shared zap logger for the service. Every
// component logs through a child logger tagged with a component field so
// session traces can be filtered per subsystem.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs a production zap logger at the given level. Level accepts
// the usual zap names: debug, info, warn, error.
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// Nop returns a logger that discards everything. Used by tests and as a safe
// default when a caller passes nil.
func Nop() *zap.Logger {
	return zap.NewNop()
}

// Component returns a child logger tagged with the component name. A nil
// parent yields a nop logger so components never need nil checks.
func Component(parent *zap.Logger, name string) *zap.Logger {
	if parent == nil {
		parent = Nop()
	}
	return parent.With(zap.String("component", name))
}
