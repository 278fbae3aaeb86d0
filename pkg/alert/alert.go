package alert

import (
	"time"

	"github.com/absmach/guardian/pkg/threshold"
	"github.com/google/uuid"
)

// Alert is one entry of the alert history. The history keeps at most one
// alert per process name.
type Alert struct {
	ID          string           `json:"id"`
	Process     string           `json:"process"`
	PID         int32            `json:"pid"`
	UID         int32            `json:"uid"`
	Reasons     threshold.Reason `json:"reasons"`
	Usage       float64          `json:"usage"`
	LockTime    time.Duration    `json:"lock_time"`
	Interactive bool             `json:"interactive"`
	CreatedAt   time.Time        `json:"created_at"`
}

// New builds an alert for a confirmed candidate. The reasons carry both the
// confirmed causes and the actions taken.
func New(c threshold.Candidate, reasons threshold.Reason, interactive bool, now time.Time) Alert {
	return Alert{
		ID:          uuid.NewString(),
		Process:     c.Sample.Label(),
		PID:         c.Sample.PID,
		UID:         c.Sample.UID,
		Reasons:     reasons,
		Usage:       c.Usage,
		LockTime:    c.LockTime,
		Interactive: interactive,
		CreatedAt:   now,
	}
}

// Page is a slice of the alert history, newest first.
type Page struct {
	Offset uint64  `json:"offset"`
	Limit  uint64  `json:"limit"`
	Total  uint64  `json:"total"`
	Alerts []Alert `json:"alerts"`
}
