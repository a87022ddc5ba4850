// Package log provides the process-wide structured logger used by the
// soilicd binaries.
package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	base  *zap.Logger
	sugar *zap.SugaredLogger
)

// Init initializes the package-level logger. Debug enables the
// development encoder and debug-level output.
func Init(debug bool) error {
	var (
		l   *zap.Logger
		err error
	)
	if debug {
		l, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		l, err = cfg.Build(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %w", err)
	}
	base = l
	sugar = l.Sugar()
	return nil
}

// SetLogger replaces the package-level logger. Tests use it with
// zaptest/observer cores.
func SetLogger(l *zap.Logger) {
	base = l
	sugar = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

// Logger returns the base zap logger, falling back to a no-op logger when
// Init was never called.
func Logger() *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base
}

func logger() *zap.SugaredLogger {
	if sugar == nil {
		return zap.NewNop().Sugar()
	}
	return sugar
}

// Sync flushes any buffered log entries.
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}

func Debugw(msg string, keysAndValues ...any) { logger().Debugw(msg, keysAndValues...) }
func Infow(msg string, keysAndValues ...any)  { logger().Infow(msg, keysAndValues...) }
func Warnw(msg string, keysAndValues ...any)  { logger().Warnw(msg, keysAndValues...) }
func Errorw(msg string, keysAndValues ...any) { logger().Errorw(msg, keysAndValues...) }

func Infof(template string, args ...any)  { logger().Infof(template, args...) }
func Warnf(template string, args ...any)  { logger().Warnf(template, args...) }
func Errorf(template string, args ...any) { logger().Errorf(template, args...) }

// Fatalf logs and exits the process.
func Fatalf(template string, args ...any) { logger().Fatalf(template, args...) }
