package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

// GormLogger routes GORM's statement log through zap. Each statement entry
// carries the trace, run and order found on the context, so attempt-log
// writes line up with the reconciliation that produced them.
type GormLogger struct {
	logger       *zap.Logger
	level        gormlogger.LogLevel
	slowQuery    time.Duration
	skipNotFound bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as slow.
// Zero disables slow statement warnings.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowQuery = threshold }
}

// WithIgnoreRecordNotFoundError controls whether gorm.ErrRecordNotFound is logged
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.skipNotFound = ignore }
}

// NewGormLogger creates a GORM logger backed by zap
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:       zapLogger.Named("gorm"),
		level:        level,
		slowQuery:    defaultSlowQuery,
		skipNotFound: true,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	l.logger.With(ContextFields(ctx)...).Sugar().Logf(lvl, msg, data...)
}

// Trace implements gormlogger.Interface. Failed statements log at error,
// slow ones at warn, and the rest at debug.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if err != nil && l.skipNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
		err = nil
	}

	elapsed := time.Since(begin)
	slow := l.slowQuery > 0 && elapsed > l.slowQuery

	var (
		lvl zapcore.Level
		msg string
	)
	switch {
	case err != nil && l.level >= gormlogger.Error:
		lvl, msg = zapcore.ErrorLevel, "SQL Error"
	case slow && l.level >= gormlogger.Warn:
		lvl, msg = zapcore.WarnLevel, "SLOW SQL >= "+l.slowQuery.String()
	case err == nil && !slow && l.level >= gormlogger.Info:
		lvl, msg = zapcore.DebugLevel, "SQL Query"
	default:
		return
	}

	sql, rows := fc()
	fields := append(ContextFields(ctx),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if ce := l.logger.Check(lvl, msg); ce != nil {
		ce.Write(fields...)
	}
}

// MapGormLogLevel maps an application log level onto GORM's coarser levels
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
