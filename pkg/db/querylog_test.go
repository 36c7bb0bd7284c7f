package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

func TestQueryLoggerReportsFailuresAndSlowStatements(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{Level: zerolog.DebugLevel, Format: logger.FormatJSON, Output: &buf})
	ql := newQueryLogger(logg, 50*time.Millisecond)
	stmt := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	ql.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	ql.Trace(ctx, time.Now(), stmt, nil)
	if buf.Len() != 0 {
		t.Fatalf("expected fast and not-found statements to be quiet, got %s", buf.String())
	}

	ql.Trace(ctx, time.Now(), stmt, errors.New("relation missing"))
	ql.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	out := buf.String()
	for _, want := range []string{"db.query_failed", "relation missing", "db.slow_query", `"sql":"SELECT 1"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %s", want, out)
		}
	}

	buf.Reset()
	ql.LogMode(gormlogger.Silent).Trace(ctx, time.Now().Add(-time.Second), stmt, errors.New("ignored"))
	if buf.Len() != 0 {
		t.Fatalf("silent mode should log nothing, got %s", buf.String())
	}
}

func TestQueryLoggerWithoutServiceLoggerDiscards(t *testing.T) {
	if newQueryLogger(nil, time.Second) != gormlogger.Discard {
		t.Fatal("expected discard logger")
	}
}
