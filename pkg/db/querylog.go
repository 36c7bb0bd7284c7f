package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// queryLogger sends gorm's own events through the service logger. Only
// failed and slow statements are reported; missing rows are not failures.
type queryLogger struct {
	logg  *logger.Logger
	slow  time.Duration
	level gormlogger.LogLevel
}

func newQueryLogger(logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return &queryLogger{logg: logg, slow: slow, level: gormlogger.Warn}
}

func (q *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *q
	clone.level = level
	return &clone
}

func (q *queryLogger) Info(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Info {
		q.logg.Debug(q.logg.WithField(ctx, "detail", fmt.Sprintf(msg, args...)), "db.info")
	}
}

func (q *queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Warn {
		q.logg.Warn(q.logg.WithField(ctx, "detail", fmt.Sprintf(msg, args...)), "db.warn")
	}
}

func (q *queryLogger) Error(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Error {
		q.logg.WarnErr(ctx, "db.error", fmt.Errorf(msg, args...))
	}
}

func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := q.slow > 0 && elapsed > q.slow

	switch {
	case failed && q.level >= gormlogger.Error:
		q.logg.WarnErr(q.statement(ctx, fc, elapsed), "db.query_failed", err)
	case slow && q.level >= gormlogger.Warn:
		q.logg.Warn(q.statement(ctx, fc, elapsed), "db.slow_query")
	case q.level >= gormlogger.Info:
		q.logg.Debug(q.statement(ctx, fc, elapsed), "db.query")
	}
}

func (q *queryLogger) statement(ctx context.Context, fc func() (string, int64), elapsed time.Duration) context.Context {
	sql, rows := fc()
	return q.logg.WithFields(ctx, map[string]any{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
}
