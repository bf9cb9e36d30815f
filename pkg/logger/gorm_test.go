package logger

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
)

func TestGormTraceLevels(t *testing.T) {
	var buf bytes.Buffer
	l := &GormLogger{log: zerolog.New(&buf).Level(zerolog.DebugLevel), level: gormlogger.Warn}
	sql := func() (string, int64) { return "INSERT INTO invoices ...", 0 }

	l.Trace(context.Background(), time.Now(), sql, gorm.ErrDuplicatedKey)
	if out := buf.String(); !strings.Contains(out, `"level":"debug"`) || strings.Contains(out, `"level":"error"`) {
		t.Errorf("duplicate keys should log at debug, got %s", out)
	}

	buf.Reset()
	l.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Errorf("record not found should not be logged, got %s", buf.String())
	}

	buf.Reset()
	l.Trace(context.Background(), time.Now(), sql, errors.New("disk full"))
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("other failures should log at error, got %s", buf.String())
	}
}
