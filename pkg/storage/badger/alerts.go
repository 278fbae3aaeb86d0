package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/absmach/guardian/pkg/alert"
)

const alertPrefix = "alert:"

type alertRepo struct {
	db *Database
}

func NewAlertRepository(db *Database) AlertRepository {
	return &alertRepo{db: db}
}

func (r *alertRepo) Save(ctx context.Context, a alert.Alert) error {
	if a.ID == "" {
		return ErrEmptyID
	}
	if a.Process == "" {
		return ErrEmptyName
	}
	val, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	if err := r.db.set([]byte(alertPrefix+a.ID), val); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *alertRepo) List(ctx context.Context, offset, limit uint64) ([]alert.Alert, uint64, error) {
	values, err := r.db.valuesWithPrefix([]byte(alertPrefix))
	if err != nil {
		return nil, 0, err
	}

	all := make([]alert.Alert, len(values))
	for i, val := range values {
		if err := json.Unmarshal(val, &all[i]); err != nil {
			return nil, 0, fmt.Errorf("unmarshal error: %w", err)
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := uint64(len(all))
	if offset >= total {
		return []alert.Alert{}, total, nil
	}
	end := total
	if limit < total-offset {
		end = offset + limit
	}

	return all[offset:end], total, nil
}

func (r *alertRepo) Clear(ctx context.Context) error {
	return r.db.dropPrefix([]byte(alertPrefix))
}
