package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Musavvir24/my-software/pkg/logger"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const slowQueryThreshold = 200 * time.Millisecond

// Options selects and locates the storage backend.
type Options struct {
	Driver      string // postgres or sqlite
	DatabaseURL string // postgres DSN
	DataDir     string // sqlite directory, one file per tenant
}

// GormConfig returns the gorm configuration shared by every connection.
// tablePrefix scopes table names, e.g. "tenant_key." for a postgres schema.
// Timestamps are written in UTC so range filters compare alike on sqlite,
// which stores them as text.
func GormConfig(tablePrefix string) *gorm.Config {
	return &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.NewGormLogger(slowQueryThreshold),
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{TablePrefix: tablePrefix},
	}
}

// SQLiteDSN builds a DSN for the pure-Go sqlite driver with foreign keys on.
func SQLiteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Connect opens the shared accounts database
func Connect(opts Options) (*gorm.DB, error) {
	switch opts.Driver {
	case "postgres":
		db, err := gorm.Open(postgres.Open(opts.DatabaseURL), GormConfig(""))
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	case "sqlite":
		if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		db, err := gorm.Open(sqlite.Open(SQLiteDSN(filepath.Join(opts.DataDir, "accounts.db"))), GormConfig(""))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}
}
