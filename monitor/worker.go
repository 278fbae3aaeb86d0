package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/absmach/guardian/pkg/alert"
	"github.com/absmach/guardian/pkg/locks"
	"github.com/absmach/guardian/pkg/process"
	"github.com/absmach/guardian/pkg/prometheus"
	"github.com/absmach/guardian/pkg/source"
	"github.com/absmach/guardian/pkg/storage"
	"github.com/absmach/guardian/pkg/threshold"
)

// Dispatcher acts on confirmed candidates.
type Dispatcher interface {
	Dispatch(ctx context.Context, confirmed []threshold.Candidate, interactive bool) ([]alert.Alert, error)
}

// FilterProvider supplies the classified processes to scan.
type FilterProvider interface {
	Filters() []source.Filter
}

// Worker runs scan cycles. Cycles never overlap and the latest outcome is
// published as a Snapshot readers can load without blocking a cycle.
type Worker struct {
	source     source.Source
	filters    FilterProvider
	accounting *locks.Accounting
	engine     *threshold.Engine
	dispatcher Dispatcher
	whitelist  storage.WhitelistRepository
	metrics    *prometheus.CycleMetrics
	logger     *slog.Logger
	now        func() time.Time

	cycleMu    sync.Mutex
	prev       *process.Table
	candidates threshold.CandidateSet
	exempted   map[string]struct{}

	pauseMu sync.Mutex
	resume  *sync.Cond
	reasons map[string]struct{}

	snapshot atomic.Pointer[Snapshot]
}

type WorkerOption func(*Worker)

// WithFilters sets the classification source for scans.
func WithFilters(f FilterProvider) WorkerOption {
	return func(w *Worker) {
		w.filters = f
	}
}

// WithAccounting enables lock checks and interactive tracking.
func WithAccounting(a *locks.Accounting) WorkerOption {
	return func(w *Worker) {
		w.accounting = a
	}
}

// WithMetrics records cycle outcomes, usage and alerts.
func WithMetrics(m prometheus.CycleMetrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = &m
	}
}

func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		w.now = now
	}
}

func NewWorker(src source.Source, engine *threshold.Engine, dispatcher Dispatcher, whitelist storage.WhitelistRepository, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		source:     src,
		engine:     engine,
		dispatcher: dispatcher,
		whitelist:  whitelist,
		logger:     logger,
		now:        time.Now,
		candidates: threshold.CandidateSet{},
		reasons:    make(map[string]struct{}),
	}
	w.resume = sync.NewCond(&w.pauseMu)
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Lock adds a pause reason. Cycles wait while any reason is held.
func (w *Worker) Lock(reason string) error {
	if reason == "" {
		return ErrEmptyReason
	}

	w.pauseMu.Lock()
	defer w.pauseMu.Unlock()

	w.reasons[reason] = struct{}{}

	return nil
}

// Release drops a pause reason.
func (w *Worker) Release(reason string) error {
	w.pauseMu.Lock()
	defer w.pauseMu.Unlock()

	if _, ok := w.reasons[reason]; !ok {
		return ErrUnknownReason
	}
	delete(w.reasons, reason)
	w.resume.Broadcast()

	return nil
}

func (w *Worker) ReleaseAll() {
	w.pauseMu.Lock()
	defer w.pauseMu.Unlock()

	clear(w.reasons)
	w.resume.Broadcast()
}

// Paused lists the held pause reasons in order.
func (w *Worker) Paused() []string {
	w.pauseMu.Lock()
	defer w.pauseMu.Unlock()

	out := make([]string, 0, len(w.reasons))
	for r := range w.reasons {
		out = append(out, r)
	}
	sort.Strings(out)

	return out
}

// Snapshot returns the outcome of the last cycle.
func (w *Worker) Snapshot() Snapshot {
	if s := w.snapshot.Load(); s != nil {
		return *s
	}

	return Snapshot{
		Processes:  []ProcessView{},
		Candidates: []threshold.Candidate{},
		Alerts:     []alert.Alert{},
	}
}

// Cycle runs one scan, evaluate and dispatch pass and returns the delay
// before the next one. It blocks while paused; ctx only interrupts that
// wait, a started pass always completes.
func (w *Worker) Cycle(ctx context.Context) time.Duration {
	if err := w.wait(ctx); err != nil {
		return w.engine.Policy().Interval
	}

	return w.run(context.WithoutCancel(ctx))
}

func (w *Worker) wait(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		w.pauseMu.Lock()
		defer w.pauseMu.Unlock()
		w.resume.Broadcast()
	})
	defer stop()

	w.pauseMu.Lock()
	defer w.pauseMu.Unlock()

	for len(w.reasons) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.resume.Wait()
	}

	return ctx.Err()
}

func (w *Worker) run(ctx context.Context) time.Duration {
	w.cycleMu.Lock()
	defer w.cycleMu.Unlock()

	if w.metrics != nil {
		defer func(begin time.Time) {
			w.metrics.Duration.Observe(time.Since(begin).Seconds())
		}(time.Now())
	}

	policy := w.engine.Policy()

	exempt, err := w.exempt(ctx)
	if err != nil {
		return w.skip(policy, err)
	}

	req := source.Request{All: true}
	if w.filters != nil {
		req.Filters = w.filters.Filters()
	}

	rows, err := w.source.Scan(ctx, req)
	if err != nil {
		return w.skip(policy, err)
	}

	table, skipped, err := process.Merge(w.prev, rows)
	if err != nil {
		return w.skip(policy, err)
	}
	if skipped > 0 {
		w.logger.Debug("skipped malformed process rows", slog.Int("count", skipped))
	}

	interactive := true
	var (
		view   locks.View
		lookup threshold.LockLookup
	)
	if w.accounting != nil {
		if n := w.accounting.Prune(table.PIDs()); n > 0 {
			w.logger.Debug("pruned lock records of exited processes", slog.Int("count", n))
		}
		view = w.accounting.View()
		lookup = view
		interactive = w.accounting.Interactive()
	}

	table.Sort(view)

	res := w.engine.Evaluate(threshold.Input{
		Table:       table,
		Previous:    w.candidates,
		Interactive: interactive,
		Locks:       lookup,
		Whitelist:   exempt,
	})

	alerts := []alert.Alert{}
	if len(res.Confirmed) > 0 {
		dispatched, err := w.dispatcher.Dispatch(ctx, res.Confirmed, interactive)
		if err != nil {
			w.logger.Warn("failed to act on confirmed processes", slog.Any("error", err))
		}
		alerts = append(alerts, dispatched...)
	}
	for _, pid := range res.Resolved {
		w.logger.Debug("candidate resolved", slog.Int("pid", int(pid)))
	}

	w.prev = table
	w.candidates = res.Next

	snap := &Snapshot{
		Timestamp:   w.now(),
		SystemUsage: res.SystemUsage,
		Interactive: interactive,
		Processes:   make([]ProcessView, 0, table.Len()),
		Candidates:  make([]threshold.Candidate, 0, len(res.Next)),
		Alerts:      alerts,
	}
	for _, s := range table.Samples() {
		pv := ProcessView{
			Sample:       s,
			Usage:        s.Usage(table.System),
			AverageUsage: s.AverageUsage(table.System),
		}
		if held, ok := view.HeldTime(s.PID); ok {
			pv.LockTime = held
		}
		snap.Processes = append(snap.Processes, pv)
		if c, ok := res.Next[s.PID]; ok {
			snap.Candidates = append(snap.Candidates, c)
		}
	}
	w.snapshot.Store(snap)
	w.record(snap)

	return res.Timeout
}

// skip records a cycle without data. Candidates carry over untouched.
func (w *Worker) skip(policy threshold.Policy, err error) time.Duration {
	msg := err.Error()
	if errors.Is(err, source.ErrNoDataSource) {
		msg = source.ErrNoDataSource.Error()
	}
	w.logger.Warn("skipping cycle", slog.Any("error", err))

	snap := &Snapshot{
		Timestamp:  w.now(),
		Error:      msg,
		Processes:  []ProcessView{},
		Candidates: make([]threshold.Candidate, 0, len(w.candidates)),
		Alerts:     []alert.Alert{},
	}
	for _, c := range w.candidates {
		snap.Candidates = append(snap.Candidates, c)
	}
	sort.Slice(snap.Candidates, func(i, j int) bool {
		return snap.Candidates[i].Sample.PID < snap.Candidates[j].Sample.PID
	})
	w.snapshot.Store(snap)
	w.record(snap)

	if len(w.candidates) > 0 {
		return policy.Recheck()
	}

	return policy.Interval
}

// exempt loads the whitelist. When loading fails the last loaded set stays
// in force; before any successful load the cycle cannot run.
func (w *Worker) exempt(ctx context.Context) (threshold.Whitelist, error) {
	names, err := w.whitelist.List(ctx)
	switch {
	case err == nil:
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		w.exempted = set
	case w.exempted == nil:
		return nil, fmt.Errorf("failed to load whitelist: %w", err)
	default:
		w.logger.Warn("failed to load whitelist, keeping the previous one", slog.Any("error", err))
	}

	set := w.exempted

	return func(name string) bool {
		_, ok := set[name]

		return ok
	}, nil
}

func (w *Worker) record(snap *Snapshot) {
	if w.metrics == nil {
		return
	}

	if snap.Error != "" {
		w.metrics.Cycles.With("outcome", "skipped").Add(1)
		return
	}
	w.metrics.Cycles.With("outcome", "completed").Add(1)
	w.metrics.SystemUsage.Set(snap.SystemUsage)
	w.metrics.Candidates.Set(float64(len(snap.Candidates)))
	for _, a := range snap.Alerts {
		for _, name := range a.Reasons.Names() {
			w.metrics.Alerts.With("reason", name).Add(1)
		}
	}
}
