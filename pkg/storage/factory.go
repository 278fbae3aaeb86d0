package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/absmach/guardian/pkg/alert"
	"github.com/absmach/guardian/pkg/storage/badger"
	"github.com/absmach/guardian/pkg/storage/postgres"
	"github.com/absmach/guardian/pkg/storage/sqlite"
)

type Config struct {
	Type string `env:"GUARDIAN_STORAGE_TYPE" envDefault:"memory"`

	PostgresHost    string `env:"GUARDIAN_POSTGRES_HOST"    envDefault:"localhost"`
	PostgresPort    string `env:"GUARDIAN_POSTGRES_PORT"    envDefault:"5432"`
	PostgresUser    string `env:"GUARDIAN_POSTGRES_USER"    envDefault:"guardian"`
	PostgresPass    string `env:"GUARDIAN_POSTGRES_PASS"    envDefault:"guardian"`
	PostgresDB      string `env:"GUARDIAN_POSTGRES_DB"      envDefault:"guardian"`
	PostgresSSLMode string `env:"GUARDIAN_POSTGRES_SSLMODE" envDefault:"disable"`

	SQLitePath string `env:"GUARDIAN_SQLITE_PATH" envDefault:"./guardian.db"`

	BadgerPath string `env:"GUARDIAN_BADGER_PATH" envDefault:"./data/badger"`
}

type Repositories struct {
	Alerts    AlertRepository
	Whitelist WhitelistRepository
	// Closer closes the underlying persistent storage connection.
	// It is nil for the in-memory backend.
	Closer io.Closer
}

func NewRepositories(cfg Config) (*Repositories, error) {
	switch cfg.Type {
	case "postgres":
		return newPostgresRepositories(cfg)
	case "sqlite":
		return newSQLiteRepositories(cfg)
	case "badger":
		return newBadgerRepositories(cfg)
	case "memory":
		return newMemoryRepositories()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDBType, cfg.Type)
	}
}

func newPostgresRepositories(cfg Config) (*Repositories, error) {
	db, err := postgres.NewDatabase(
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresUser,
		cfg.PostgresPass,
		cfg.PostgresDB,
		cfg.PostgresSSLMode,
	)
	if err != nil {
		return nil, err
	}

	repos := postgres.NewRepositories(db)

	return &Repositories{
		Alerts:    &alertAdapter{repo: repos.Alerts},
		Whitelist: &whitelistAdapter{repo: repos.Whitelist},
		Closer:    db,
	}, nil
}

func newSQLiteRepositories(cfg Config) (*Repositories, error) {
	db, err := sqlite.NewDatabase(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}

	repos := sqlite.NewRepositories(db)

	return &Repositories{
		Alerts:    &alertAdapter{repo: repos.Alerts},
		Whitelist: &whitelistAdapter{repo: repos.Whitelist},
		Closer:    db,
	}, nil
}

func newBadgerRepositories(cfg Config) (*Repositories, error) {
	db, err := badger.NewDatabase(cfg.BadgerPath)
	if err != nil {
		return nil, err
	}

	repos := badger.NewRepositories(db)

	return &Repositories{
		Alerts:    &alertAdapter{repo: repos.Alerts},
		Whitelist: &whitelistAdapter{repo: repos.Whitelist},
		Closer:    db,
	}, nil
}

func newMemoryRepositories() (*Repositories, error) {
	return &Repositories{
		Alerts:    newMemoryAlertRepository(NewInMemoryStorage()),
		Whitelist: newMemoryWhitelistRepository(NewInMemoryStorage()),
	}, nil
}

// alertAdapter maps backend errors onto the storage sentinels.
type alertAdapter struct {
	repo AlertRepository
}

func (a *alertAdapter) Save(ctx context.Context, al alert.Alert) error {
	if al.ID == "" {
		return ErrEmptyID
	}
	if al.Process == "" {
		return ErrEmptyName
	}
	if err := a.repo.Save(ctx, al); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (a *alertAdapter) List(ctx context.Context, offset, limit uint64) ([]alert.Alert, uint64, error) {
	alerts, total, err := a.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return alerts, total, nil
}

func (a *alertAdapter) Clear(ctx context.Context) error {
	if err := a.repo.Clear(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

type whitelistAdapter struct {
	repo WhitelistRepository
}

func (a *whitelistAdapter) Add(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if err := a.repo.Add(ctx, name); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (a *whitelistAdapter) Remove(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if err := a.repo.Remove(ctx, name); err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

func (a *whitelistAdapter) Has(ctx context.Context, name string) (bool, error) {
	has, err := a.repo.Has(ctx, name)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return has, nil
}

func (a *whitelistAdapter) List(ctx context.Context) ([]string, error) {
	names, err := a.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return names, nil
}
