package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/absmach/guardian/pkg/alert"
	"github.com/absmach/guardian/pkg/locks"
	"github.com/absmach/guardian/pkg/process"
	"github.com/absmach/guardian/pkg/scheduler"
	"github.com/absmach/guardian/pkg/threshold"
)

const (
	EnginePersistent = "persistent"
	EngineScheduled  = "scheduled"

	// RunningNotice is published on every start when persistent notify is on.
	RunningNotice = "monitor running"
)

var (
	ErrEmptyReason      = errors.New("empty pause reason")
	ErrUnknownReason    = errors.New("unknown pause reason")
	ErrNoLockAccounting = errors.New("lock accounting is not available")
	ErrInvalidEngine    = errors.New("invalid engine")
)

// Status describes the scheduler state and the active pause reasons.
type Status struct {
	State    scheduler.State `json:"state"`
	Engine   string          `json:"engine"`
	Interval time.Duration   `json:"interval"`
	Paused   []string        `json:"paused,omitempty"`
}

// ProcessView is a sample along with the figures derived from it.
type ProcessView struct {
	process.Sample
	Usage        float64       `json:"usage"`
	AverageUsage float64       `json:"average_usage"`
	LockTime     time.Duration `json:"lock_time,omitempty"`
}

// Snapshot is the immutable outcome of the last cycle.
type Snapshot struct {
	Timestamp   time.Time             `json:"timestamp"`
	Error       string                `json:"error,omitempty"`
	SystemUsage float64               `json:"system_usage"`
	Interactive bool                  `json:"interactive"`
	Processes   []ProcessView         `json:"processes"`
	Candidates  []threshold.Candidate `json:"candidates"`
	Alerts      []alert.Alert         `json:"alerts"`
}

type Service interface {
	State(ctx context.Context) (Status, error)
	Start(ctx context.Context) (Status, error)
	Stop(ctx context.Context) (Status, error)
	Restart(ctx context.Context) (Status, error)
	Processes(ctx context.Context) (Snapshot, error)
	ListAlerts(ctx context.Context, offset, limit uint64) (alert.Page, error)
	ClearAlerts(ctx context.Context) error
	ListWhitelist(ctx context.Context) ([]string, error)
	AddWhitelist(ctx context.Context, name string) error
	RemoveWhitelist(ctx context.Context, name string) error
	Locks(ctx context.Context) (locks.View, error)
	ReleaseLocks(ctx context.Context, pid int32) error
	Pause(ctx context.Context, reason string) (Status, error)
	Resume(ctx context.Context, reason string) (Status, error)
}

// Notifier delivers alerts and user visible notices.
type Notifier interface {
	Notify(ctx context.Context, alerts []alert.Alert) error
	Notice(ctx context.Context, msg string) error
}
