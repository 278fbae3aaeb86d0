package storage

import "errors"

var (
	ErrDBConnection      = errors.New("database connection error")
	ErrDBQuery           = errors.New("database query error")
	ErrDBScan            = errors.New("database scan error")
	ErrMigration         = errors.New("database migration error")
	ErrCreate            = errors.New("create error")
	ErrDelete            = errors.New("delete error")
	ErrEmptyName         = errors.New("empty process name")
	ErrEmptyID           = errors.New("empty alert id")
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedDBType = errors.New("unsupported storage type")
)
