package threshold

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/absmach/guardian/pkg/process"
)

// Reason is a bitmask of why a process was flagged and what was done.
type Reason uint32

const (
	CPUOver Reason = 1 << iota
	LockOver
	ActionKilled
	ActionReleased
	ActionRebooted
	ActionNotified
)

var reasonNames = []struct {
	flag Reason
	name string
}{
	{CPUOver, "cpu_over"},
	{LockOver, "lock_over"},
	{ActionKilled, "killed"},
	{ActionReleased, "released"},
	{ActionRebooted, "rebooted"},
	{ActionNotified, "notified"},
}

func (r Reason) Has(flag Reason) bool {
	return r&flag == flag
}

func (r Reason) String() string {
	names := []string{}
	for _, rn := range reasonNames {
		if r.Has(rn.flag) {
			names = append(names, rn.name)
		}
	}

	return strings.Join(names, "|")
}

var ErrUnknownReason = errors.New("unknown reason")

func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Reason) UnmarshalText(text []byte) error {
	parsed, err := ParseReason(string(text))
	if err != nil {
		return err
	}
	*r = parsed

	return nil
}

// ParseReason parses the "|" separated form produced by String.
func ParseReason(s string) (Reason, error) {
	var r Reason
	if s == "" {
		return r, nil
	}

next:
	for _, name := range strings.Split(s, "|") {
		for _, rn := range reasonNames {
			if rn.name == name {
				r |= rn.flag
				continue next
			}
		}

		return 0, fmt.Errorf("%w: %s", ErrUnknownReason, name)
	}

	return r, nil
}

// Names returns the set flag names, used by the HTTP and storage layers.
func (r Reason) Names() []string {
	if r == 0 {
		return []string{}
	}

	return strings.Split(r.String(), "|")
}

// Candidate is a process flagged as over budget.
type Candidate struct {
	Sample    process.Sample `json:"sample"`
	Reasons   Reason         `json:"reasons"`
	Usage     float64        `json:"usage"`
	LockTime  time.Duration  `json:"lock_time"`
	CPUCount  int            `json:"cpu_count"`
	LockCount int            `json:"lock_count"`
}

// CandidateSet carries candidates from one cycle to the next, keyed by pid.
type CandidateSet map[int32]Candidate

// Clone returns a shallow copy of the set.
func (s CandidateSet) Clone() CandidateSet {
	out := make(CandidateSet, len(s))
	for pid, c := range s {
		out[pid] = c
	}

	return out
}
