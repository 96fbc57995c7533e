package infra

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormLogger "gorm.io/gorm/logger"

	"backend/internal/logger"
)

// GormZapLogger 把 GORM 的日志接到 Zap 上，并带上请求链路的 trace_id
type GormZapLogger struct {
	ZapLogger                 *zap.Logger
	LogLevel                  gormLogger.LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

func (l *GormZapLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	clone := *l
	clone.LogLevel = level
	return &clone
}

func (l *GormZapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Info {
		l.withTrace(ctx).Sugar().Infof(msg, data...)
	}
}

func (l *GormZapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Warn {
		l.withTrace(ctx).Sugar().Warnf(msg, data...)
	}
}

func (l *GormZapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Error {
		l.withTrace(ctx).Sugar().Errorf(msg, data...)
	}
}

// Trace 按失败、慢查询、普通执行三档记录 SQL
func (l *GormZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormLogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	notFound := errors.Is(err, gormLogger.ErrRecordNotFound)
	switch {
	case err != nil && !(notFound && l.IgnoreRecordNotFoundError):
		l.withTrace(ctx).Error("SQL 执行错误", append(fields, zap.Error(err))...)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold:
		l.withTrace(ctx).Warn("SQL 慢查询", fields...)
	case l.LogLevel >= gormLogger.Info:
		l.withTrace(ctx).Debug("SQL 执行", fields...)
	}
}

func (l *GormZapLogger) withTrace(ctx context.Context) *zap.Logger {
	if traceID := logger.GetTraceID(ctx); traceID != "" {
		return l.ZapLogger.With(zap.String("trace_id", traceID))
	}
	return l.ZapLogger
}
