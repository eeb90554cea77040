package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-catalog/pkg/logger"
)

// queryLogger routes GORM output into the service logger. Only failed and
// slow statements are written; a missing row is not a failure.
type queryLogger struct {
	logg *logger.Logger
	slow time.Duration
}

var _ gormlogger.Interface = queryLogger{}

func (q queryLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return q }

func (q queryLogger) Info(ctx context.Context, msg string, args ...any) {
	if q.logg != nil {
		q.logg.Debug(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	if q.logg != nil {
		q.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q queryLogger) Error(ctx context.Context, msg string, args ...any) {
	if q.logg != nil {
		q.logg.Error(ctx, fmt.Sprintf(msg, args...), nil)
	}
}

func (q queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.logg == nil {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := q.slow > 0 && elapsed > q.slow
	if !failed && !slow {
		return
	}
	stmt, rows := fc()
	ctx = q.logg.WithFields(ctx, map[string]any{
		"sql":         stmt,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
	if failed {
		q.logg.Error(ctx, "query failed", err)
		return
	}
	q.logg.Warn(ctx, "slow query")
}
