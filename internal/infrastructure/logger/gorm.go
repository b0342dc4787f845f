package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// defaultSQLLimit bounds the logged statement text; a day's KV replace
// renders thousands of bound values into one INSERT
const defaultSQLLimit = 2048

// StoreLogger routes GORM statement logs for the receipt store through zap,
// tagging each statement with its table, verb and the import run it ran under.
type StoreLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	sqlLimit      int // <= 0 logs statements untruncated
}

// StoreLoggerOption configures a StoreLogger
type StoreLoggerOption func(*StoreLogger)

// WithSlowThreshold sets the duration above which a statement is logged as slow
func WithSlowThreshold(threshold time.Duration) StoreLoggerOption {
	return func(l *StoreLogger) {
		l.slowThreshold = threshold
	}
}

// WithSQLLimit caps the logged SQL text at n bytes; n <= 0 disables the cap
func WithSQLLimit(n int) StoreLoggerOption {
	return func(l *StoreLogger) {
		l.sqlLimit = n
	}
}

// NewStoreLogger creates a GORM logger backed by zap
func NewStoreLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...StoreLoggerOption) *StoreLogger {
	l := &StoreLogger{
		logger:        zapLogger.Named("store"),
		level:         level,
		slowThreshold: 200 * time.Millisecond,
		sqlLimit:      defaultSQLLimit,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *StoreLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *StoreLogger) Info(ctx context.Context, msg string, data ...any) {
	l.message(ctx, gormlogger.Info, msg, data)
}

func (l *StoreLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.message(ctx, gormlogger.Warn, msg, data)
}

func (l *StoreLogger) Error(ctx context.Context, msg string, data ...any) {
	l.message(ctx, gormlogger.Error, msg, data)
}

func (l *StoreLogger) message(ctx context.Context, level gormlogger.LogLevel, msg string, data []any) {
	if l.level < level {
		return
	}
	text := fmt.Sprintf(msg, data...)
	fields := correlationFields(ctx, true)
	switch level {
	case gormlogger.Error:
		l.logger.Error(text, fields...)
	case gormlogger.Warn:
		l.logger.Warn(text, fields...)
	default:
		l.logger.Info(text, fields...)
	}
}

// Trace logs one statement. Failed statements log at error, slow ones at
// warn and the rest at debug. A not-found result is only an error for writes;
// lookups such as the backfill existence check expect it.
func (l *StoreLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	stmt := describeStatement(sql)

	if err != nil && stmt.verb == "SELECT" && errors.Is(err, gormlogger.ErrRecordNotFound) {
		err = nil
	}

	var (
		logFn func(string, ...zap.Field)
		msg   string
	)
	switch {
	case err != nil && l.level >= gormlogger.Error:
		logFn, msg = l.logger.Error, "statement failed"
	case err == nil && l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		logFn, msg = l.logger.Warn, fmt.Sprintf("slow statement over %v", l.slowThreshold)
	case err == nil && l.level >= gormlogger.Info:
		logFn, msg = l.logger.Debug, "statement"
	default:
		return
	}

	fields := []zap.Field{
		zap.String("op", stmt.verb),
		zap.String("table", stmt.table),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", l.clip(sql)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logFn(msg, append(fields, correlationFields(ctx, true)...)...)
}

func (l *StoreLogger) clip(sql string) string {
	if l.sqlLimit <= 0 || len(sql) <= l.sqlLimit {
		return sql
	}
	return fmt.Sprintf("%s... (%d bytes)", sql[:l.sqlLimit], len(sql))
}

type statement struct {
	verb  string
	table string
}

// describeStatement pulls the leading verb and the first table a statement
// touches out of GORM's rendered SQL
func describeStatement(sql string) statement {
	words := strings.Fields(sql)
	if len(words) == 0 {
		return statement{}
	}
	st := statement{verb: strings.ToUpper(words[0])}

	var marker string
	switch st.verb {
	case "INSERT":
		marker = "INTO"
	case "UPDATE":
		if len(words) > 1 {
			st.table = unquoteTable(words[1])
		}
		return st
	default:
		marker = "FROM"
	}
	for i := 1; i < len(words)-1; i++ {
		if strings.EqualFold(words[i], marker) {
			st.table = unquoteTable(words[i+1])
			break
		}
	}
	return st
}

func unquoteTable(word string) string {
	word = strings.TrimRight(word, "(,;")
	if i := strings.IndexByte(word, '('); i >= 0 {
		word = word[:i]
	}
	return strings.Trim(word, "\"`")
}

// MapGormLogLevel maps the configured log level onto GORM's levels
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	case "info", "debug":
		// gorm has no debug level
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
