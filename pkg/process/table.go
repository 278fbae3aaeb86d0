package process

import (
	"errors"
	"sort"
	"time"

	"github.com/absmach/guardian/pkg/source"
)

var (
	ErrMissingSystemRow = errors.New("missing system row")
	ErrDuplicatePID     = errors.New("duplicate pid")
)

// LockLookup exposes the total lock hold time of a process.
type LockLookup interface {
	HeldTime(pid int32) (time.Duration, bool)
}

// Table is an insertion ordered set of samples indexed by pid.
type Table struct {
	System System `json:"system"`

	samples []*Sample
	index   map[int32]int
}

func NewTable() *Table {
	return &Table{
		index: make(map[int32]int),
	}
}

// Merge builds a fresh table from a scan, seeding the delta slots of every
// known pid from prev. prev is never modified and may be nil. Malformed rows
// are skipped and counted.
func Merge(prev *Table, rows source.Rows) (*Table, int, error) {
	if len(rows) == 0 || !rows[0].IsSystem() {
		return nil, 0, ErrMissingSystemRow
	}

	t := NewTable()
	if prev != nil {
		t.System = prev.System
	}
	if err := t.System.Update(rows[0]); err != nil {
		return nil, 0, err
	}

	skipped := 0
	for _, row := range rows[1:] {
		pid, err := row.Int32(source.FieldPID)
		if err != nil || len(row) < source.NumFields {
			skipped++
			continue
		}
		if _, ok := t.index[pid]; ok {
			skipped++
			continue
		}

		var s Sample
		if prev != nil {
			if old, ok := prev.Lookup(pid); ok {
				s = old
			}
		}
		if err := s.Update(row); err != nil {
			skipped++
			continue
		}
		t.add(&s)
	}

	return t, skipped, nil
}

// Add appends a sample. Samples are unique by pid.
func (t *Table) Add(s Sample) error {
	if _, ok := t.index[s.PID]; ok {
		return ErrDuplicatePID
	}
	t.add(&s)

	return nil
}

func (t *Table) add(s *Sample) {
	t.index[s.PID] = len(t.samples)
	t.samples = append(t.samples, s)
}

// Lookup returns a copy of the sample for pid.
func (t *Table) Lookup(pid int32) (Sample, bool) {
	if t == nil {
		return Sample{}, false
	}
	i, ok := t.index[pid]
	if !ok {
		return Sample{}, false
	}

	return *t.samples[i], true
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}

	return len(t.samples)
}

// Samples returns copies of the samples in table order.
func (t *Table) Samples() []Sample {
	if t == nil {
		return nil
	}
	out := make([]Sample, len(t.samples))
	for i, s := range t.samples {
		out[i] = *s
	}

	return out
}

// PIDs returns the set of pids in the table.
func (t *Table) PIDs() map[int32]struct{} {
	pids := make(map[int32]struct{}, t.Len())
	if t == nil {
		return pids
	}
	for pid := range t.index {
		pids[pid] = struct{}{}
	}

	return pids
}

// Usage is the last cycle CPU usage of pid, 0 when unknown.
func (t *Table) Usage(pid int32) float64 {
	s, ok := t.Lookup(pid)
	if !ok {
		return 0
	}

	return s.Usage(t.System)
}

// Sort orders the table by descending usage. Ties go to the sample with
// lock data, then to the longer lock hold, then to the lower classification.
// locks may be nil.
func (t *Table) Sort(locks LockLookup) {
	type key struct {
		usage   float64
		held    time.Duration
		hasLock bool
	}
	keys := make(map[int32]key, len(t.samples))
	for _, s := range t.samples {
		k := key{usage: s.Usage(t.System)}
		if locks != nil {
			k.held, k.hasLock = locks.HeldTime(s.PID)
		}
		keys[s.PID] = k
	}

	sort.SliceStable(t.samples, func(i, j int) bool {
		a, b := keys[t.samples[i].PID], keys[t.samples[j].PID]
		switch {
		case a.usage != b.usage:
			return a.usage > b.usage
		case a.hasLock != b.hasLock:
			return a.hasLock
		case a.hasLock && a.held != b.held:
			return a.held > b.held
		default:
			return t.samples[i].Classification < t.samples[j].Classification
		}
	})

	for i, s := range t.samples {
		t.index[s.PID] = i
	}
}
