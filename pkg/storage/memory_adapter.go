package storage

import (
	"context"
	"errors"
	"math"
	"slices"

	"github.com/absmach/guardian/pkg/alert"
	pkgerrors "github.com/absmach/guardian/pkg/errors"
)

type memoryAlertRepo struct {
	storage Storage
}

func newMemoryAlertRepository(s Storage) AlertRepository {
	return &memoryAlertRepo{storage: s}
}

func (r *memoryAlertRepo) Save(ctx context.Context, a alert.Alert) error {
	if a.ID == "" {
		return ErrEmptyID
	}
	if a.Process == "" {
		return ErrEmptyName
	}

	return r.storage.Put(ctx, a.ID, a)
}

func (r *memoryAlertRepo) List(ctx context.Context, offset, limit uint64) ([]alert.Alert, uint64, error) {
	data, total, err := r.storage.List(ctx, 0, math.MaxUint64)
	if err != nil {
		return nil, 0, err
	}

	// Storage order is oldest first.
	all := make([]alert.Alert, 0, len(data))
	for i := len(data) - 1; i >= 0; i-- {
		a, ok := data[i].(alert.Alert)
		if !ok {
			return nil, 0, pkgerrors.ErrInvalidData
		}
		all = append(all, a)
	}
	slices.SortStableFunc(all, func(a, b alert.Alert) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if offset >= total {
		return []alert.Alert{}, total, nil
	}
	end := total
	if limit < total-offset {
		end = offset + limit
	}

	return all[offset:end], total, nil
}

func (r *memoryAlertRepo) Clear(ctx context.Context) error {
	return r.storage.Clear(ctx)
}

type memoryWhitelistRepo struct {
	storage Storage
}

func newMemoryWhitelistRepository(s Storage) WhitelistRepository {
	return &memoryWhitelistRepo{storage: s}
}

func (r *memoryWhitelistRepo) Add(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	err := r.storage.Create(ctx, name, name)
	if errors.Is(err, pkgerrors.ErrEntityExists) {
		return nil
	}

	return err
}

func (r *memoryWhitelistRepo) Remove(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}

	return r.storage.Delete(ctx, name)
}

func (r *memoryWhitelistRepo) Has(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	_, err := r.storage.Get(ctx, name)
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

func (r *memoryWhitelistRepo) List(ctx context.Context) ([]string, error) {
	data, _, err := r.storage.List(ctx, 0, math.MaxUint64)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(data))
	for _, d := range data {
		name, ok := d.(string)
		if !ok {
			return nil, pkgerrors.ErrInvalidData
		}
		names = append(names, name)
	}
	slices.Sort(names)

	return names, nil
}
