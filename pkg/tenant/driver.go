package tenant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/glebarez/sqlite"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Driver provisions the isolated database of one tenant.
type Driver interface {
	// Open returns a handle bound to the tenant's storage, creating it when
	// missing, and a function releasing what Open acquired.
	Open(ctx context.Context, key string) (*gorm.DB, func() error, error)
}

// PostgresDriver gives every tenant its own schema on a shared pool.
type PostgresDriver struct {
	root *gorm.DB
}

func NewPostgresDriver(root *gorm.DB) *PostgresDriver {
	return &PostgresDriver{root: root}
}

func (d *PostgresDriver) Open(ctx context.Context, key string) (*gorm.DB, func() error, error) {
	if err := d.root.WithContext(ctx).Exec("CREATE SCHEMA IF NOT EXISTS " + pq.QuoteIdentifier(key)).Error; err != nil {
		return nil, nil, fmt.Errorf("create schema: %w", err)
	}

	sqlDB, err := d.root.DB()
	if err != nil {
		return nil, nil, err
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), database.GormConfig(key+"."))
	if err != nil {
		return nil, nil, fmt.Errorf("open schema %s: %w", key, err)
	}
	// the pool belongs to root
	return db, func() error { return nil }, nil
}

// SQLiteDriver keeps one database file per tenant under dir.
type SQLiteDriver struct {
	dir string
}

func NewSQLiteDriver(dir string) *SQLiteDriver {
	return &SQLiteDriver{dir: dir}
}

func (d *SQLiteDriver) Open(_ context.Context, key string) (*gorm.DB, func() error, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(d.dir, key+".db")
	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN(path)), database.GormConfig(""))
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	return db, sqlDB.Close, nil
}

// NewDriver picks the tenant driver matching the accounts database. Postgres
// tenants share root's pool; sqlite tenants get files under DataDir/tenants.
func NewDriver(opts database.Options, root *gorm.DB) (Driver, error) {
	switch opts.Driver {
	case "postgres":
		return NewPostgresDriver(root), nil
	case "sqlite":
		return NewSQLiteDriver(filepath.Join(opts.DataDir, "tenants")), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}
}
