package badger

import (
	"context"
	"errors"
	"fmt"
)

const whitelistPrefix = "whitelist:"

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
	if err := r.db.set([]byte(whitelistPrefix+name), []byte(name)); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *whitelistRepo) Remove(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}

	return r.db.delete([]byte(whitelistPrefix + name))
}

func (r *whitelistRepo) Has(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	_, err := r.db.get([]byte(whitelistPrefix + name))
	switch {
	case errors.Is(err, ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

func (r *whitelistRepo) List(ctx context.Context) ([]string, error) {
	values, err := r.db.valuesWithPrefix([]byte(whitelistPrefix))
	if err != nil {
		return nil, err
	}

	names := make([]string, len(values))
	for i, val := range values {
		names[i] = string(val)
	}

	return names, nil
}
