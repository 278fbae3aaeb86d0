package postgres

import (
	"context"
	"fmt"
)

type whitelistRepo struct {
	db *Database
}

func NewWhitelistRepository(db *Database) WhitelistRepository {
	return &whitelistRepo{db: db}
}

func (r *whitelistRepo) Add(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, err := r.db.ExecContext(ctx, `INSERT INTO whitelist (name) VALUES ($1) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *whitelistRepo) Remove(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM whitelist WHERE name = $1`, name); err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

func (r *whitelistRepo) Has(ctx context.Context, name string) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM whitelist WHERE name = $1`, name); err != nil {
		return false, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return count > 0, nil
}

func (r *whitelistRepo) List(ctx context.Context) ([]string, error) {
	names := []string{}
	if err := r.db.SelectContext(ctx, &names, `SELECT name FROM whitelist ORDER BY name`); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBScan, err)
	}

	return names, nil
}
