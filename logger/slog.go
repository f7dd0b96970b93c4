package logger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/entwine-orm/entwine/utils"
)

// SlogLogger implements Interface using the standard library slog package
type SlogLogger struct {
	Logger                    *slog.Logger
	LogLevel                  LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
	Parameterized             bool
}

// NewSlogLogger creates a new logger using slog
func NewSlogLogger(logger *slog.Logger, config Config) Interface {
	return &SlogLogger{
		Logger:                    logger,
		LogLevel:                  config.LogLevel,
		SlowThreshold:             config.SlowThreshold,
		IgnoreRecordNotFoundError: config.IgnoreRecordNotFoundError,
		Parameterized:             config.ParameterizedQueries,
	}
}

// ParamsFilter filter params
func (l *SlogLogger) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if l.Parameterized {
		return sql, nil
	}
	return sql, params
}

// LogMode sets the log level
func (l *SlogLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

// Info logs info messages
func (l *SlogLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.Logger.InfoContext(ctx, msg, "file", utils.FileWithLineNum(), "data", data)
	}
}

// Warn logs warning messages
func (l *SlogLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.Logger.WarnContext(ctx, msg, "file", utils.FileWithLineNum(), "data", data)
	}
}

// Error logs error messages
func (l *SlogLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.Logger.ErrorContext(ctx, msg, "file", utils.FileWithLineNum(), "data", data)
	}
}

// Trace logs SQL execution details
func (l *SlogLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.LogLevel <= Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	attrs := []interface{}{
		"file", utils.FileWithLineNum(),
		"duration", elapsed,
		"sql", sql,
	}
	if rows != -1 {
		attrs = append(attrs, "rows", rows)
	}

	switch {
	case err != nil && (!l.IgnoreRecordNotFoundError || !errors.Is(err, ErrRecordNotFound)):
		l.Logger.ErrorContext(ctx, "query executed", append(attrs, "error", err)...)

	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold:
		l.Logger.WarnContext(ctx, "slow query executed", append(attrs, "slow_threshold", l.SlowThreshold)...)

	case l.LogLevel >= Info:
		l.Logger.InfoContext(ctx, "query executed", attrs...)
	}
}

// SlogLevel converts LogLevel to slog.Level
func SlogLevel(level LogLevel) slog.Level {
	switch level {
	case Silent:
		return slog.LevelError + 4
	case Error:
		return slog.LevelError
	case Warn:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
