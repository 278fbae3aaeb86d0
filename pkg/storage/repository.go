package storage

import (
	"context"

	"github.com/absmach/guardian/pkg/alert"
)

// AlertRepository is the alert history. It holds at most one alert per
// process name.
type AlertRepository interface {
	// Save appends a to the history. Saving an alert with a known ID updates that record.
	Save(ctx context.Context, a alert.Alert) error
	// List returns alerts newest first along with the total count.
	List(ctx context.Context, offset, limit uint64) ([]alert.Alert, uint64, error)
	Clear(ctx context.Context) error
}

// WhitelistRepository holds the process names exempt from checks.
type WhitelistRepository interface {
	Add(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
	Has(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]string, error)
}
