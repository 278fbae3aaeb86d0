package privilege

import (
	"context"
	"errors"
)

var (
	ErrSessionClosed = errors.New("privileged session closed")
	ErrOpen          = errors.New("failed to open privileged session")
	ErrCommand       = errors.New("privileged command failed")
)

// Session runs commands with elevated rights. A session is opened once per
// action batch and closed when the batch is done.
type Session interface {
	Kill(ctx context.Context, pid int32) error
	Reboot(ctx context.Context) error
	Close() error
}

type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// Fallback performs the same actions with the rights of the current process.
type Fallback interface {
	Kill(pid int32) error
	Reboot() error
}
