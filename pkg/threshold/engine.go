package threshold

import (
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/guardian/pkg/process"
)

const (
	DefaultRecheckMin = time.Minute
	DefaultRecheckMax = 5 * time.Minute
)

// Thresholds holds CPU percentages per device state.
type Thresholds struct {
	Interactive    float64 `json:"interactive"`
	NonInteractive float64 `json:"non_interactive"`
}

// Active returns the threshold for the given device state.
func (t Thresholds) Active(interactive bool) float64 {
	if interactive {
		return t.Interactive
	}

	return t.NonInteractive
}

type Policy struct {
	CPU         Thresholds    `json:"cpu"`
	LockMaxHold time.Duration `json:"lock_max_hold"`
	Interval    time.Duration `json:"interval"`
	RecheckMin  time.Duration `json:"recheck_min"`
	RecheckMax  time.Duration `json:"recheck_max"`
	// Root allows flagging perceptible processes.
	Root bool `json:"root"`
	// MonitorUnmanaged includes processes without a classification.
	MonitorUnmanaged bool `json:"monitor_unmanaged"`
	// SystemGate skips per process CPU checks while the system as a whole
	// is under the threshold.
	SystemGate bool `json:"system_gate"`
}

// Recheck is the interval used while candidates await confirmation: half
// the normal interval bounded to [RecheckMin, RecheckMax], never longer than
// the normal interval.
func (p Policy) Recheck() time.Duration {
	lo, hi := p.RecheckMin, p.RecheckMax
	if lo <= 0 {
		lo = DefaultRecheckMin
	}
	if hi <= 0 {
		hi = DefaultRecheckMax
	}

	d := min(max(p.Interval/2, lo), hi)

	return min(d, p.Interval)
}

// LockLookup exposes the longest current lock hold of a process.
type LockLookup interface {
	ActiveHold(pid int32) (time.Duration, bool)
}

// Whitelist reports whether a process name is exempt.
type Whitelist func(name string) bool

type Input struct {
	Table       *process.Table
	Previous    CandidateSet
	Interactive bool
	// Locks is nil when lock tracking is unavailable.
	Locks     LockLookup
	Whitelist Whitelist
}

type Result struct {
	// Confirmed holds the reasons confirmed this cycle, in table order.
	Confirmed []Candidate
	// Next holds the unconfirmed reasons to carry into the next cycle.
	Next CandidateSet
	// Resolved lists pids that were candidates and no longer are.
	Resolved    []int32
	Timeout     time.Duration
	SystemUsage float64
}

type Engine struct {
	mu     sync.RWMutex
	policy Policy
	logger *slog.Logger
}

func NewEngine(policy Policy, logger *slog.Logger) *Engine {
	return &Engine{
		policy: policy,
		logger: logger,
	}
}

func (e *Engine) Policy() Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.policy
}

func (e *Engine) SetPolicy(p Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.policy = p
}

// Evaluate runs one detect and confirm pass. It never mutates in.Previous.
func (e *Engine) Evaluate(in Input) Result {
	policy := e.Policy()

	res := Result{
		Next:        CandidateSet{},
		SystemUsage: in.Table.System.Usage(),
	}

	detected := e.detect(policy, in, res.SystemUsage)

	for _, s := range in.Table.Samples() {
		cand, ok := detected[s.PID]
		if !ok {
			continue
		}
		prev, had := in.Previous[s.PID]

		var confirmed Reason
		if cand.Reasons.Has(CPUOver) {
			if had && prev.Reasons.Has(CPUOver) && prev.CPUCount > 0 && cand.Usage >= prev.Usage {
				confirmed |= CPUOver
				e.logger.Debug("cpu usage confirmed",
					slog.Int("pid", int(s.PID)),
					slog.String("name", s.Label()),
					slog.Float64("usage", cand.Usage),
					slog.Int("count", prev.CPUCount))
			} else {
				if had && prev.Reasons.Has(CPUOver) {
					cand.CPUCount = prev.CPUCount
				}
				cand.CPUCount++
			}
		}
		if cand.Reasons.Has(LockOver) {
			if had && prev.Reasons.Has(LockOver) && prev.LockCount > 0 && cand.LockTime >= prev.LockTime {
				confirmed |= LockOver
				e.logger.Debug("lock hold confirmed",
					slog.Int("pid", int(s.PID)),
					slog.String("name", s.Label()),
					slog.Duration("lock_time", cand.LockTime),
					slog.Int("count", prev.LockCount))
			} else {
				if had && prev.Reasons.Has(LockOver) {
					cand.LockCount = prev.LockCount
				}
				cand.LockCount++
			}
		}

		if confirmed != 0 {
			alert := cand
			alert.Reasons = confirmed
			res.Confirmed = append(res.Confirmed, alert)
		}
		if pending := cand.Reasons &^ confirmed; pending != 0 {
			cand.Reasons = pending
			if !pending.Has(CPUOver) {
				cand.CPUCount = 0
			}
			if !pending.Has(LockOver) {
				cand.LockCount = 0
			}
			res.Next[s.PID] = cand
		}
	}

	for pid := range in.Previous {
		if _, ok := detected[pid]; !ok {
			res.Resolved = append(res.Resolved, pid)
		}
	}

	res.Timeout = policy.Interval
	if len(res.Next) > 0 {
		res.Timeout = policy.Recheck()
	}

	return res
}

func (e *Engine) detect(policy Policy, in Input, systemUsage float64) CandidateSet {
	detected := CandidateSet{}
	threshold := policy.CPU.Active(in.Interactive)

	checkCPU := !policy.SystemGate || systemUsage > threshold
	checkLocks := !in.Interactive && in.Locks != nil && policy.LockMaxHold > 0

	if !checkCPU && !checkLocks {
		return detected
	}

	for _, s := range in.Table.Samples() {
		if s.Kind == process.Unmanaged && !policy.MonitorUnmanaged {
			continue
		}
		if in.Whitelist != nil && in.Whitelist(s.Name) {
			continue
		}
		if s.Perceptible() && !policy.Root {
			continue
		}

		cand := Candidate{Sample: s}

		if checkCPU && (policy.Root || !s.Important(in.Interactive)) {
			if usage := s.Usage(in.Table.System); usage > threshold {
				cand.Reasons |= CPUOver
				cand.Usage = usage
			}
		}
		if checkLocks {
			if hold, ok := in.Locks.ActiveHold(s.PID); ok && hold > policy.LockMaxHold {
				cand.Reasons |= LockOver
				cand.LockTime = hold
			}
		}

		if cand.Reasons != 0 {
			detected[s.PID] = cand
		}
	}

	return detected
}
