package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/kbukum/scribegate/logger"
)

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
}

// parseLogLevel maps log_level to GORM's levels. Unknown values mean info.
func parseLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[strings.ToLower(level)]; ok {
		return l
	}
	return gormlogger.Info
}

// Stored results can be large, so logged statements are cut.
const maxLoggedSQL = 512

// queryLogger sends GORM's output through the service logger.
type queryLogger struct {
	log   *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newGormLogger(log *logger.Logger, slow time.Duration, level gormlogger.LogLevel) gormlogger.Interface {
	return &queryLogger{log: log.WithComponent("gorm"), level: level, slow: slow}
}

func (q *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *q
	c.level = level
	return &c
}

func (q *queryLogger) printf(ctx context.Context, at gormlogger.LogLevel, msg string, data []interface{}) {
	if q.level < at {
		return
	}
	log := q.log.WithContext(ctx)
	text := fmt.Sprintf(msg, data...)
	switch at {
	case gormlogger.Error:
		log.Error(text)
	case gormlogger.Warn:
		log.Warn(text)
	default:
		log.Info(text)
	}
}

func (q *queryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	q.printf(ctx, gormlogger.Info, msg, data)
}

func (q *queryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	q.printf(ctx, gormlogger.Warn, msg, data)
}

func (q *queryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	q.printf(ctx, gormlogger.Error, msg, data)
}

func cutSQL(sql string) string {
	if len(sql) <= maxLoggedSQL {
		return sql
	}
	return sql[:maxLoggedSQL] + "..."
}

// Trace logs each statement. Failures go to error, except misses and
// duplicate keys which callers turn into 404 and 409 and so only warn.
// Slow statements warn and, at info level, every statement is a debug line.
func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := map[string]interface{}{"sql": cutSQL(sql), "rows": rows, "duration": elapsed.String()}
	log := q.log.WithContext(ctx)

	switch {
	case IsNotFoundError(err):
		if q.level >= gormlogger.Info {
			log.Debug("Query matched nothing", fields)
		}
	case err != nil:
		fields["error"] = err.Error()
		if IsDuplicateError(err) {
			if q.level >= gormlogger.Warn {
				log.Warn("Duplicate key", fields)
			}
		} else if q.level >= gormlogger.Error {
			log.Error("Query failed", fields)
		}
	case q.slow > 0 && elapsed > q.slow && q.level >= gormlogger.Warn:
		fields["threshold"] = q.slow.String()
		log.Warn("Slow query", fields)
	case q.level >= gormlogger.Info:
		log.Debug("Query", fields)
	}
}
