package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger is read from request goroutines while the CLI may still be
// initializing it, so it is swapped atomically.
var logger atomic.Pointer[zap.SugaredLogger]

// LogConfig selects the level and encoder for the global logger.
type LogConfig struct {
	Level       string
	Development bool
}

// InitLogger initializes a global sugared logger from cfg.
func InitLogger(cfg LogConfig) error {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	z, err := zcfg.Build()
	if err != nil {
		return err
	}

	logger.Store(z.Sugar())
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// L returns the global sugared logger.
// If InitLogger has not been called, it initializes at info level.
func L() *zap.SugaredLogger {
	if l := logger.Load(); l != nil {
		return l
	}
	if err := InitLogger(LogConfig{Level: "info"}); err != nil {
		logger.CompareAndSwap(nil, zap.NewNop().Sugar())
	}
	return logger.Load()
}

// Sync flushes buffered log entries. Errors from syncing stderr are ignored.
func Sync() {
	if l := logger.Load(); l != nil {
		_ = l.Sync()
	}
}
