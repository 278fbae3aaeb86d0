package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/absmach/guardian/pkg/alert"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
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

func NewDatabase(host, port, user, pass, name, sslMode string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s", host, port, user, pass, name, sslMode)
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
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
						id VARCHAR(36) PRIMARY KEY,
						process VARCHAR(255) NOT NULL,
						pid INTEGER NOT NULL,
						uid INTEGER NOT NULL,
						reasons BIGINT NOT NULL,
						cpu_usage DOUBLE PRECISION NOT NULL DEFAULT 0,
						lock_time BIGINT NOT NULL DEFAULT 0,
						interactive BOOLEAN NOT NULL DEFAULT FALSE,
						created_at TIMESTAMPTZ NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at DESC)`,
					`CREATE TABLE IF NOT EXISTS whitelist (
						name VARCHAR(255) PRIMARY KEY
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

	if _, err := migrate.Exec(db.DB.DB, "postgres", migrations, migrate.Up); err != nil {
		return fmt.Errorf("%w: %w", ErrMigration, err)
	}

	return nil
}
