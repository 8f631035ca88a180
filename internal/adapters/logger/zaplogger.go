package logger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements the ports.Logger interface on top of zap. Used by the
// offline tools where structured JSON output matters more than terseness.
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger creates a production zap logger at the given level.
func NewZapLogger(levelStr string) (*ZapLogger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(levelStr); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return &ZapLogger{logger: logger}, nil
}

// Sync flushes any buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

func zapFields(err error, fields ...map[string]interface{}) []zap.Field {
	var out []zap.Field
	if err != nil {
		out = append(out, zap.Error(err))
	}
	if len(fields) > 0 && fields[0] != nil {
		for k, v := range fields[0] {
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}

// Debug logs a message at Debug level.
func (l *ZapLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.logger.Debug(msg, zapFields(nil, fields...)...)
}

// Info logs a message at Info level.
func (l *ZapLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.logger.Info(msg, zapFields(nil, fields...)...)
}

// Warn logs a message at Warning level.
func (l *ZapLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.logger.Warn(msg, zapFields(nil, fields...)...)
}

// Error logs an error message at Error level.
func (l *ZapLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	l.logger.Error(msg, zapFields(err, fields...)...)
}
