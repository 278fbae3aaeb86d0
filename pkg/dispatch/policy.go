package dispatch

import (
	"errors"
	"fmt"
)

// Action is what to do with a process confirmed over the CPU threshold.
type Action string

const (
	Notify Action = "notify"
	Kill   Action = "kill"
	Reboot Action = "reboot"
	// Auto kills when the process may be killed and reboots otherwise.
	Auto Action = "auto"
)

// LockAction is what to do with a process confirmed over the lock budget.
type LockAction string

const (
	LockNotify  LockAction = "notify"
	LockRelease LockAction = "release"
)

var (
	ErrInvalidAction     = errors.New("invalid threshold action")
	ErrInvalidLockAction = errors.New("invalid lock action")
)

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case Notify, Kill, Reboot, Auto:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

func ParseLockAction(s string) (LockAction, error) {
	switch a := LockAction(s); a {
	case LockNotify, LockRelease:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLockAction, s)
	}
}

// ThresholdAction holds the CPU action per device state.
type ThresholdAction struct {
	Interactive    Action `json:"interactive"`
	NonInteractive Action `json:"non_interactive"`
}

func (t ThresholdAction) Active(interactive bool) Action {
	if interactive {
		return t.Interactive
	}

	return t.NonInteractive
}

type Policy struct {
	Threshold ThresholdAction `json:"threshold"`
	Lock      LockAction      `json:"lock"`
	Root      bool            `json:"root"`
}

func DefaultPolicy() Policy {
	return Policy{
		Threshold: ThresholdAction{Interactive: Notify, NonInteractive: Notify},
		Lock:      LockNotify,
	}
}
