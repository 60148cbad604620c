// Package logger builds the structured logger shared across every
// subsystem: the storage layer, the catalog, and the public facade all
// take a *zap.SugaredLogger rather than constructing their own.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-configured, sugared zap logger tagged with the
// given service name. Every log line carries a "service" field so output
// from multiple instances (or multiple components within one process) can
// be told apart.
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := cfg.Build()
	if err != nil {
		// Falling back to a no-op logger keeps callers from having to
		// handle a construction error for something this unlikely to fail.
		log = zap.NewNop()
	}

	return log.With(zap.String("service", service)).Sugar()
}
