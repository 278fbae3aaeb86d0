package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/absmach/guardian/pkg/alert"
	"github.com/dgraph-io/badger/v4"
)

var (
	ErrDBConnection = errors.New("badger database connection error")
	ErrDBQuery      = errors.New("database query error")
	ErrCreate       = errors.New("create error")
	ErrUpdate       = errors.New("update error")
	ErrDelete       = errors.New("delete error")
	ErrEmptyName    = errors.New("empty process name")
	ErrEmptyID      = errors.New("empty alert id")
	ErrNotFound     = errors.New("not found")
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
	db *badger.DB
}

func NewDatabase(path string) (*Database, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) get(key []byte) ([]byte, error) {
	var val []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)

		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return val, nil
}

func (d *Database) set(key, val []byte) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}

	return nil
}

func (d *Database) delete(key []byte) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

func (d *Database) dropPrefix(prefix []byte) error {
	if err := d.db.DropPrefix(prefix); err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

// valuesWithPrefix returns every value under prefix in key order.
func (d *Database) valuesWithPrefix(prefix []byte) ([][]byte, error) {
	var items [][]byte
	err := d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			items = append(items, val)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return items, nil
}
