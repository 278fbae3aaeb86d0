package testutil

import (
	"time"

	"github.com/absmach/guardian/pkg/alert"
	"github.com/absmach/guardian/pkg/threshold"
	"github.com/google/uuid"
)

func TestAlert(process string, createdAt time.Time) alert.Alert {
	return alert.Alert{
		ID:          uuid.NewString(),
		Process:     process,
		PID:         4242,
		UID:         10042,
		Reasons:     threshold.CPUOver | threshold.ActionNotified,
		Usage:       37.5,
		LockTime:    0,
		Interactive: false,
		CreatedAt:   createdAt.UTC().Truncate(time.Microsecond),
	}
}
