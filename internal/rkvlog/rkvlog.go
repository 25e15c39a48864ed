// Package rkvlog provides the structured logging wrapper used across the
// store. It keeps the shape of a process-wide Setup/Info/Error/Fatal API
// but is backed by zap instead of the standard library logger, so
// call sites get leveled, structured fields instead of fmt.Sprintf text.
package rkvlog

import (
	"io"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.Mutex
	sugar   = zap.NewNop().Sugar()
	atomLvl = zap.NewAtomicLevelAt(zap.InfoLevel)
)

// Setup initializes the global logger to write JSON-encoded entries to w
// at the current level. Call once at process startup; package-level
// namespace/store code calls Info/Error/Fatal freely afterward.
func Setup(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(w),
		atomLvl,
	)

	sugar = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// SetLevel adjusts the minimum level emitted without reopening the writer.
func SetLevel(l zapcore.Level) {
	atomLvl.SetLevel(l)
}

// Info logs an informative message with structured key/value fields.
func Info(msg string, kv ...interface{}) {
	get().Infow(msg, kv...)
}

// Error logs an error-level message with structured key/value fields.
func Error(msg string, kv ...interface{}) {
	get().Errorw(msg, kv...)
}

// Fatal logs unconditionally and exits the process. It runs no
// emergency sync of its own; for the IoFatal error kind's propagation
// policy (spec §7) the caller syncs before calling it.
func Fatal(msg string, kv ...interface{}) {
	get().Fatalw(msg, kv...)
}

func get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return sugar
}
