package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/absmach/guardian/pkg/alert"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
)

var (
	ErrDBConnection = errors.New("database connection error")
	ErrDBQuery      = errors.New("database query error")
	ErrDBScan       = errors.New("database scan error")
	ErrMigration    = errors.New("database migration error")
	ErrCreate       = errors.New("create error")
	ErrDelete       = errors.New("delete error")
	ErrEmptyName    = errors.New("empty process name")
	ErrEmptyID      = errors.New("empty alert id")
)

type AlertRepository interface {
	Save(ctx context.Context, a alert.Alert) error
	List(ctx context.Context, offset, limit uint64) ([]alert.Alert, uint64, error)
	Clear(ctx context.Context) error
}

type WhitelistRepository interface {
	Add(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
	Has(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

type Repositories struct {
	Alerts    AlertRepository
	Whitelist WhitelistRepository
}

func NewRepositories(db *Database) *Repositories {
	return &Repositories{
		Alerts:    NewAlertRepository(db),
		Whitelist: NewWhitelistRepository(db),
	}
}

type Database struct {
	*sqlx.DB
}

func NewDatabase(path string) (*Database, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}

	// sqlite serializes writers.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	database := &Database{DB: db}

	if err := database.Migrate(); err != nil {
		db.Close()

		return nil, err
	}

	return database, nil
}

func (db *Database) Migrate() error {
	migrations := &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "1_create_tables",
				Up: []string{
					`CREATE TABLE IF NOT EXISTS alerts (
						id TEXT PRIMARY KEY,
						process TEXT NOT NULL,
						pid INTEGER NOT NULL,
						uid INTEGER NOT NULL,
						reasons INTEGER NOT NULL,
						cpu_usage REAL NOT NULL DEFAULT 0,
						lock_time INTEGER NOT NULL DEFAULT 0,
						interactive BOOLEAN NOT NULL DEFAULT 0,
						created_at TIMESTAMP NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at DESC)`,
					`CREATE TABLE IF NOT EXISTS whitelist (
						name TEXT PRIMARY KEY
					)`,
				},
				Down: []string{
					`DROP TABLE IF EXISTS whitelist`,
					`DROP INDEX IF EXISTS idx_alerts_created_at`,
					`DROP TABLE IF EXISTS alerts`,
				},
			},
		},
	}

	if _, err := migrate.Exec(db.DB.DB, "sqlite3", migrations, migrate.Up); err != nil {
		return fmt.Errorf("%w: %w", ErrMigration, err)
	}

	return nil
}
