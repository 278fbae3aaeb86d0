package scheduler

import (
	"errors"
	"fmt"
)

var ErrUnknownState = errors.New("unknown state")

// State is the lifecycle state of the monitor.
type State int8

const (
	Stopped State = -1
	Pending State = 0
	Started State = 1
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Pending:
		return "pending"
	case Started:
		return "started"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed

	return nil
}

func ParseState(s string) (State, error) {
	switch s {
	case "stopped":
		return Stopped, nil
	case "pending":
		return Pending, nil
	case "started":
		return Started, nil
	default:
		return Stopped, fmt.Errorf("%w: %q", ErrUnknownState, s)
	}
}
