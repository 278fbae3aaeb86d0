package storage

import "context"

// Storage is an ordered key value store. List returns values in insertion
// order; replacing a key with Put moves it to the end.
type Storage interface {
	Create(ctx context.Context, key string, value any) error
	Put(ctx context.Context, key string, value any) error
	Get(ctx context.Context, key string) (any, error)
	List(ctx context.Context, offset, limit uint64) ([]any, uint64, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
