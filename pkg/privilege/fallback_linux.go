//go:build linux

package privilege

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type unixFallback struct{}

// NewFallback returns the unprivileged fallback backed by direct system
// calls. They only succeed when the process already has the rights.
func NewFallback() Fallback {
	return unixFallback{}
}

func (unixFallback) Kill(pid int32) error {
	if err := unix.Kill(int(pid), unix.SIGKILL); err != nil {
		return fmt.Errorf("%w: kill %d: %w", ErrCommand, pid, err)
	}

	return nil
}

func (unixFallback) Reboot() error {
	unix.Sync()
	if err := unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART); err != nil {
		return fmt.Errorf("%w: reboot: %w", ErrCommand, err)
	}

	return nil
}
