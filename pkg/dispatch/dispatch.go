package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/guardian/pkg/alert"
	"github.com/absmach/guardian/pkg/privilege"
	"github.com/absmach/guardian/pkg/threshold"
)

var (
	ErrNoFallback = errors.New("no unprivileged fallback")
	ErrNoReleaser = errors.New("lock release unavailable")
)

// Releaser force releases the locks held by a process.
type Releaser interface {
	ReleaseForPID(ctx context.Context, pid int32) error
}

// History is the alert history sink.
type History interface {
	Save(ctx context.Context, a alert.Alert) error
}

type Notifier interface {
	Notify(ctx context.Context, alerts []alert.Alert) error
}

type Dispatcher struct {
	mu       sync.RWMutex
	policy   Policy
	opener   privilege.Opener
	fallback privilege.Fallback
	releaser Releaser
	history  History
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Dispatcher)

func WithOpener(o privilege.Opener) Option {
	return func(d *Dispatcher) {
		d.opener = o
	}
}

func WithFallback(f privilege.Fallback) Option {
	return func(d *Dispatcher) {
		d.fallback = f
	}
}

func WithReleaser(r Releaser) Option {
	return func(d *Dispatcher) {
		d.releaser = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func New(policy Policy, history History, notifier Notifier, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		policy:   policy,
		history:  history,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *Dispatcher) Policy() Policy {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.policy
}

func (d *Dispatcher) SetPolicy(p Policy) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.policy = p
}

// Decide resolves the actions for one confirmed candidate. The result holds
// the confirmed reasons plus the chosen action flags.
func (p Policy) Decide(c threshold.Candidate, interactive bool) threshold.Reason {
	reasons := c.Reasons

	if c.Reasons.Has(threshold.CPUOver) {
		action := p.Threshold.Active(interactive)
		killable := !c.Sample.Perceptible() || p.Root
		switch {
		case action != Notify && action != Reboot && killable:
			reasons |= threshold.ActionKilled
		case action == Reboot || action == Auto:
			reasons |= threshold.ActionRebooted
		}
	}

	if c.Reasons.Has(threshold.LockOver) && p.Lock == LockRelease &&
		!reasons.Has(threshold.ActionKilled) && !reasons.Has(threshold.ActionRebooted) {
		reasons |= threshold.ActionReleased
	}

	return reasons | threshold.ActionNotified
}

// Dispatch acts on a batch of confirmed candidates. Action failures are
// logged and drop the failed action flag; the candidate is still recorded
// and notified. A reboot runs last, once per batch; if it fails the stored
// alerts are corrected to drop the reboot flag.
func (d *Dispatcher) Dispatch(ctx context.Context, confirmed []threshold.Candidate, interactive bool) ([]alert.Alert, error) {
	if len(confirmed) == 0 {
		return []alert.Alert{}, nil
	}

	policy := d.Policy()
	now := d.now()
	batch := &batch{dispatcher: d, root: policy.Root}
	defer batch.close()

	reboot := false
	alerts := make([]alert.Alert, 0, len(confirmed))
	for _, c := range confirmed {
		reasons := policy.Decide(c, interactive)

		if reasons.Has(threshold.ActionKilled) {
			if err := batch.kill(ctx, c.Sample.PID); err != nil {
				d.logger.Warn("failed to kill process",
					slog.Int("pid", int(c.Sample.PID)),
					slog.String("name", c.Sample.Label()),
					slog.String("error", err.Error()))
				reasons &^= threshold.ActionKilled
			}
		}
		if reasons.Has(threshold.ActionReleased) {
			if err := d.release(ctx, c.Sample.PID); err != nil {
				d.logger.Warn("failed to release locks",
					slog.Int("pid", int(c.Sample.PID)),
					slog.String("name", c.Sample.Label()),
					slog.String("error", err.Error()))
				reasons &^= threshold.ActionReleased
			}
		}
		if reasons.Has(threshold.ActionRebooted) {
			reboot = true
		}

		alerts = append(alerts, alert.New(c, reasons, interactive, now))
	}

	var errs []error
	for _, a := range alerts {
		if err := d.history.Save(ctx, a); err != nil {
			errs = append(errs, err)
		}
		d.logger.Info("process flagged",
			slog.String("process", a.Process),
			slog.Int("pid", int(a.PID)),
			slog.String("reasons", a.Reasons.String()),
			slog.Float64("usage", a.Usage),
			slog.Duration("lock_time", a.LockTime))
	}
	if err := d.notifier.Notify(ctx, alerts); err != nil {
		errs = append(errs, err)
	}

	if reboot {
		if err := batch.reboot(ctx); err != nil {
			d.logger.Error("failed to reboot", slog.String("error", err.Error()))
			errs = append(errs, err)
			errs = append(errs, d.unmarkReboot(ctx, alerts)...)
		}
	}

	return alerts, errors.Join(errs...)
}

// unmarkReboot drops the reboot flag from alerts recorded before a failed
// reboot and stores the corrected records.
func (d *Dispatcher) unmarkReboot(ctx context.Context, alerts []alert.Alert) []error {
	var errs []error
	for i := range alerts {
		if !alerts[i].Reasons.Has(threshold.ActionRebooted) {
			continue
		}
		alerts[i].Reasons &^= threshold.ActionRebooted
		if err := d.history.Save(ctx, alerts[i]); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

func (d *Dispatcher) release(ctx context.Context, pid int32) error {
	if d.releaser == nil {
		return ErrNoReleaser
	}

	return d.releaser.ReleaseForPID(ctx, pid)
}

// batch holds the privileged session shared by all actions of one Dispatch
// call. The session is opened on first use and never reopened. Without root
// no session is opened and actions go straight to the fallback.
type batch struct {
	dispatcher *Dispatcher
	root       bool
	session    privilege.Session
	opened     bool
}

func (b *batch) open(ctx context.Context) privilege.Session {
	if b.opened {
		return b.session
	}
	b.opened = true

	d := b.dispatcher
	if d.opener == nil || !b.root {
		return nil
	}
	session, err := d.opener.Open(ctx)
	if err != nil {
		d.logger.Warn("failed to open privileged session", slog.String("error", err.Error()))

		return nil
	}
	b.session = session

	return session
}

func (b *batch) kill(ctx context.Context, pid int32) error {
	var sessionErr error
	if s := b.open(ctx); s != nil {
		if sessionErr = s.Kill(ctx, pid); sessionErr == nil {
			return nil
		}
	}

	fallback := b.dispatcher.fallback
	if fallback == nil {
		return errors.Join(sessionErr, ErrNoFallback)
	}

	return fallback.Kill(pid)
}

func (b *batch) reboot(ctx context.Context) error {
	var sessionErr error
	if s := b.open(ctx); s != nil {
		if sessionErr = s.Reboot(ctx); sessionErr == nil {
			return nil
		}
	}

	fallback := b.dispatcher.fallback
	if fallback == nil {
		return errors.Join(sessionErr, ErrNoFallback)
	}

	return fallback.Reboot()
}

func (b *batch) close() {
	if b.session == nil {
		return
	}
	if err := b.session.Close(); err != nil {
		b.dispatcher.logger.Warn("failed to close privileged session", slog.String("error", err.Error()))
	}
}
