// Package logx is the worker's cold-path logging surface: every call here
// must be off the graph/search/simulator hot path, mirroring the
// teacher's own debug package discipline ("never invoke in hot loops —
// use only in failure diagnostics"). Structured output is zap's, not a
// hand-rolled zero-alloc printer, since nothing here runs per-event.
package logx

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var base *zap.Logger

func init() {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		// Logger construction failing is itself a FatalConfig-class startup
		// problem, but logx has nothing to log it with yet; write the failure
		// to stderr and fall back to a no-op logger rather than panicking
		// the process.
		os.Stderr.WriteString("logx: failed to build logger: " + err.Error() + "\n")
		base = zap.NewNop()
		return
	}
	base = l
}

// L returns the package logger. Never retained across a block boundary by
// hot-path code — callers fetch it fresh at each cold-path call site.
func L() *zap.Logger { return base }

// DroppedOpportunity logs a pending-tx event that produced no dispatch,
// tagging the reason (Unroutable, DeadlineExceeded, below-threshold, ...).
func DroppedOpportunity(reason string, fields ...zap.Field) {
	base.Debug("dropped opportunity", append([]zap.Field{zap.String("reason", reason)}, fields...)...)
}

// RefreshFailure logs a failed block-boundary refresh; the graph retains
// its previous pool state per spec.md §4.7.
func RefreshFailure(err error, fields ...zap.Field) {
	base.Warn("refresh failed, retaining previous state", append([]zap.Field{zap.Error(err)}, fields...)...)
}

// FatalConfig logs a startup-ending configuration error immediately before
// the process exits with code 2.
func FatalConfig(err error, fields ...zap.Field) {
	base.Error("fatal configuration error", append([]zap.Field{zap.Error(err)}, fields...)...)
}

// Sync flushes buffered log entries; call once before process exit.
func Sync() {
	_ = base.Sync()
}
