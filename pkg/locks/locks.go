package locks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// FlagPartial marks a lock that keeps the CPU awake. Only partial locks are
// accounted.
const FlagPartial uint32 = 1

var ErrUnknownHandle = errors.New("unknown lock handle")

// Releaser performs the OS side of a forced release.
type Releaser interface {
	Release(ctx context.Context, pid int32, handles []string) error
}

// ReleaserFunc adapts a function to Releaser.
type ReleaserFunc func(ctx context.Context, pid int32, handles []string) error

func (f ReleaserFunc) Release(ctx context.Context, pid int32, handles []string) error {
	return f(ctx, pid, handles)
}

// Lock is one held handle as seen at snapshot time.
type Lock struct {
	Handle    string        `json:"handle"`
	Tag       string        `json:"tag"`
	PID       int32         `json:"pid"`
	Flags     uint32        `json:"flags"`
	Timestamp time.Time     `json:"timestamp"`
	Held      time.Duration `json:"held"`
}

// Record is the accounting of one process.
type Record struct {
	PID            int32         `json:"pid"`
	UID            int32         `json:"uid"`
	Interactive    time.Duration `json:"interactive"`
	NonInteractive time.Duration `json:"non_interactive"`
	Locks          []Lock        `json:"locks,omitempty"`
}

// Total is the reconciled hold time across both buckets.
func (r Record) Total() time.Duration {
	return r.Interactive + r.NonInteractive
}

// Longest is the longest hold among the currently held locks.
func (r Record) Longest() time.Duration {
	var longest time.Duration
	for _, l := range r.Locks {
		longest = max(longest, l.Held)
	}

	return longest
}

type handle struct {
	tag       string
	pid       int32
	flags     uint32
	timestamp time.Time
}

type record struct {
	uid            int32
	interactive    time.Duration
	nonInteractive time.Duration
	handles        map[string]struct{}
}

// Accounting tracks held time per process, split by the device
// interactive state. All methods are safe for concurrent use.
type Accounting struct {
	mu          sync.Mutex
	now         func() time.Time
	releaser    Releaser
	interactive bool
	handles     map[string]*handle
	records     map[int32]*record
}

type Option func(*Accounting)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Accounting) {
		a.now = now
	}
}

// WithReleaser sets the hook invoked by ReleaseForPID.
func WithReleaser(r Releaser) Option {
	return func(a *Accounting) {
		a.releaser = r
	}
}

// WithInteractive sets the initial device state. The default is interactive.
func WithInteractive(interactive bool) Option {
	return func(a *Accounting) {
		a.interactive = interactive
	}
}

func New(opts ...Option) *Accounting {
	a := &Accounting{
		now:         time.Now,
		interactive: true,
		releaser:    ReleaserFunc(func(context.Context, int32, []string) error { return nil }),
		handles:     make(map[string]*handle),
		records:     make(map[int32]*record),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Acquired registers a handle. Re-acquiring a held handle folds its time first.
func (a *Accounting) Acquired(id string, pid, uid int32, tag string, flags uint32) {
	if flags&FlagPartial == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if h, ok := a.handles[id]; ok {
		a.fold(h, now)
		if h.pid != pid {
			a.detach(id, h)
		}
	}

	rec, ok := a.records[pid]
	if !ok {
		rec = &record{handles: make(map[string]struct{})}
		a.records[pid] = rec
	}
	rec.uid = uid
	rec.handles[id] = struct{}{}

	a.handles[id] = &handle{tag: tag, pid: pid, flags: flags, timestamp: now}
}

// Changing folds the elapsed time of a held handle and updates its tag.
// An empty tag keeps the current one.
func (a *Accounting) Changing(id, tag string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	h, ok := a.handles[id]
	if !ok {
		return ErrUnknownHandle
	}
	a.fold(h, a.now())
	if tag != "" {
		h.tag = tag
	}

	return nil
}

// Released folds the remaining time of a handle and drops it.
func (a *Accounting) Released(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	h, ok := a.handles[id]
	if !ok {
		return ErrUnknownHandle
	}
	a.fold(h, a.now())
	a.detach(id, h)

	return nil
}

// SetInteractive folds every held handle into the current bucket before
// switching buckets.
func (a *Accounting) SetInteractive(interactive bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if interactive == a.interactive {
		return
	}

	now := a.now()
	for _, h := range a.handles {
		a.fold(h, now)
	}
	a.interactive = interactive
}

func (a *Accounting) Interactive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.interactive
}

// ReleaseForPID force releases every handle held by pid.
func (a *Accounting) ReleaseForPID(ctx context.Context, pid int32) error {
	a.mu.Lock()
	rec, ok := a.records[pid]
	if !ok {
		a.mu.Unlock()
		return nil
	}

	now := a.now()
	ids := make([]string, 0, len(rec.handles))
	for id := range rec.handles {
		h := a.handles[id]
		a.fold(h, now)
		a.detach(id, h)
		ids = append(ids, id)
	}
	releaser := a.releaser
	a.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)

	return releaser.Release(ctx, pid, ids)
}

// Lookup returns a copy of the record of pid with hold times of held
// handles computed at call time.
func (a *Accounting) Lookup(pid int32) (Record, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.records[pid]
	if !ok {
		return Record{}, false
	}

	return a.snapshot(pid, rec, a.now()), true
}

// View returns a copy of every record.
func (a *Accounting) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	v := make(View, len(a.records))
	for pid, rec := range a.records {
		v[pid] = a.snapshot(pid, rec, now)
	}

	return v
}

// Prune drops the records of processes absent from live, along with their
// handles. It returns the number of records dropped.
func (a *Accounting) Prune(live map[int32]struct{}) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	dropped := 0
	for pid, rec := range a.records {
		if _, ok := live[pid]; ok {
			continue
		}
		for id := range rec.handles {
			delete(a.handles, id)
		}
		delete(a.records, pid)
		dropped++
	}

	return dropped
}

func (a *Accounting) fold(h *handle, now time.Time) {
	elapsed := now.Sub(h.timestamp)
	h.timestamp = now
	if elapsed <= 0 {
		return
	}

	rec, ok := a.records[h.pid]
	if !ok {
		return
	}
	if a.interactive {
		rec.interactive += elapsed
		return
	}
	rec.nonInteractive += elapsed
}

func (a *Accounting) detach(id string, h *handle) {
	delete(a.handles, id)
	if rec, ok := a.records[h.pid]; ok {
		delete(rec.handles, id)
	}
}

func (a *Accounting) snapshot(pid int32, rec *record, now time.Time) Record {
	out := Record{
		PID:            pid,
		UID:            rec.uid,
		Interactive:    rec.interactive,
		NonInteractive: rec.nonInteractive,
	}
	for id := range rec.handles {
		h := a.handles[id]
		held := now.Sub(h.timestamp)
		if held < 0 {
			held = 0
		}
		out.Locks = append(out.Locks, Lock{
			Handle:    id,
			Tag:       h.tag,
			PID:       h.pid,
			Flags:     h.flags,
			Timestamp: h.timestamp,
			Held:      held,
		})
	}
	sort.Slice(out.Locks, func(i, j int) bool {
		return out.Locks[i].Handle < out.Locks[j].Handle
	})

	return out
}

// View is a point in time copy of the accounting, keyed by pid.
type View map[int32]Record

// HeldTime is the reconciled hold time of pid plus the unreconciled time of
// its held handles.
func (v View) HeldTime(pid int32) (time.Duration, bool) {
	rec, ok := v[pid]
	if !ok {
		return 0, false
	}
	total := rec.Total()
	for _, l := range rec.Locks {
		total += l.Held
	}

	return total, true
}

// ActiveHold is the longest current hold of pid.
func (v View) ActiveHold(pid int32) (time.Duration, bool) {
	rec, ok := v[pid]
	if !ok || len(rec.Locks) == 0 {
		return 0, false
	}

	return rec.Longest(), true
}
