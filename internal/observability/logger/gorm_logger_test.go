package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observeGlobal(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestGormLoggerSlowThresholdFromConfig(t *testing.T) {
	logs := observeGlobal(t)
	begin := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	l := NewGormLogger(GormLoggerConfig{Level: ParseGormLevel("warn"), SlowThreshold: 50 * time.Millisecond})
	l.now = func() time.Time { return begin.Add(80 * time.Millisecond) }

	sql := func() (string, int64) {
		return "UPDATE tickets SET status = 'available' WHERE reserved_at <= '2026-03-01'", 12
	}
	l.Trace(context.Background(), begin, sql, nil)

	slow := logs.FilterMessage("gorm.query slow").All()
	require.Len(t, slow, 1)
	fields := slow[0].ContextMap()
	assert.Equal(t, "UPDATE", fields["operation"])
	assert.Equal(t, "tickets", fields["table"])
	assert.Equal(t, int64(80), fields["duration_ms"])
	assert.Equal(t, int64(12), fields["rows_affected"])

	// Same query under the default threshold is not slow.
	logs.TakeAll()
	l = NewGormLogger(GormLoggerConfig{Level: gormlogger.Warn})
	l.now = func() time.Time { return begin.Add(80 * time.Millisecond) }
	l.Trace(context.Background(), begin, sql, nil)
	assert.Zero(t, logs.Len())
}

func TestGormLoggerSkipsRecordNotFound(t *testing.T) {
	logs := observeGlobal(t)
	l := NewGormLogger(GormLoggerConfig{Level: gormlogger.Warn})
	sql := func() (string, int64) { return "SELECT * FROM buyers WHERE phone = ?", 0 }

	l.Trace(context.Background(), time.Now(), sql, gormlogger.ErrRecordNotFound)
	assert.Zero(t, logs.Len())

	l.Trace(context.Background(), time.Now(), sql, errors.New("database is locked"))
	failed := logs.FilterMessage("gorm.query failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "buyers", failed[0].ContextMap()["table"])
	assert.Equal(t, "SELECT", failed[0].ContextMap()["operation"])
}

func TestGormLoggerSilentAndParams(t *testing.T) {
	logs := observeGlobal(t)
	l := NewGormLogger(GormLoggerConfig{Level: ParseGormLevel("off")})
	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "DELETE FROM promoter_sales", 1 }, errors.New("boom"))
	assert.Zero(t, logs.Len())

	sql, params := l.ParamsFilter(context.Background(), "SELECT 1 WHERE phone = ?", "6681234567")
	assert.Equal(t, "SELECT 1 WHERE phone = ?", sql)
	assert.Nil(t, params)
}

func TestStatementOf(t *testing.T) {
	cases := map[string][2]string{
		"SELECT id FROM tickets WHERE raffle_id = ?":        {"SELECT", "tickets"},
		`INSERT INTO "promoter_sales" (id) VALUES (?)`:      {"INSERT", "promoter_sales"},
		"DELETE FROM promoter_sales WHERE ticket_id IN (?)": {"DELETE", "promoter_sales"},
		"update `raffles` set status = ?":                   {"UPDATE", "raffles"},
		"":                                                  {"UNKNOWN", ""},
	}
	for sql, want := range cases {
		op, table := statementOf(sql)
		assert.Equal(t, want[0], op, sql)
		assert.Equal(t, want[1], table, sql)
	}
}

func TestParseGormLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, ParseGormLevel("silent"))
	assert.Equal(t, gormlogger.Error, ParseGormLevel(" ERROR "))
	assert.Equal(t, gormlogger.Info, ParseGormLevel("debug"))
	assert.Equal(t, gormlogger.Warn, ParseGormLevel("nonsense"))
}
