// Package logging provides the engine's process-wide structured logger.
//
// Every component logs through the *zap.Logger returned by L() instead
// of fmt.Printf or the bare "log" package, so that request-scoped fields
// (method, path, route, status, duration) show up as structured JSON in
// production and as human-readable lines during development. See
// SPEC_FULL.md §4.10.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	current *zap.Logger
)

func init() {
	current, _ = zap.NewProduction()
}

// L returns the current process-wide logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Configure rebuilds the process-wide logger. When debug is true the
// engine switches to zap's development encoder (human-readable,
// caller-annotated, debug-level enabled) — the realization of spec.md
// §6's "optional debug flag controlling structured trace logs". When
// debug is false it uses the production JSON encoder at info level.
func Configure(debug bool) error {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	old := current
	current = logger
	mu.Unlock()

	if old != nil {
		_ = old.Sync()
	}
	return nil
}

// Sync flushes any buffered log entries. Callers should defer Sync()
// during graceful shutdown.
func Sync() error {
	return L().Sync()
}
