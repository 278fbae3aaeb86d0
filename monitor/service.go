package monitor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/absmach/guardian/pkg/alert"
	pkgerrors "github.com/absmach/guardian/pkg/errors"
	"github.com/absmach/guardian/pkg/locks"
	"github.com/absmach/guardian/pkg/scheduler"
	"github.com/absmach/guardian/pkg/storage"
	"github.com/absmach/guardian/pkg/threshold"
)

// Controller drives the worker lifecycle.
type Controller interface {
	State() scheduler.State
	Start(ctx context.Context) error
	Stop() error
	Restart(ctx context.Context) error
}

type service struct {
	ctx        context.Context
	controller Controller
	worker     *Worker
	engine     *threshold.Engine
	alerts     storage.AlertRepository
	whitelist  storage.WhitelistRepository
	accounting *locks.Accounting
	engineName string
	logger     *slog.Logger
}

// NewService returns the monitor service. Runs started through it live
// until ctx is canceled or the monitor is stopped. accounting may be nil.
func NewService(
	ctx context.Context,
	controller Controller,
	worker *Worker,
	engine *threshold.Engine,
	alerts storage.AlertRepository,
	whitelist storage.WhitelistRepository,
	accounting *locks.Accounting,
	engineName string,
	logger *slog.Logger,
) Service {
	return &service{
		ctx:        ctx,
		controller: controller,
		worker:     worker,
		engine:     engine,
		alerts:     alerts,
		whitelist:  whitelist,
		accounting: accounting,
		engineName: engineName,
		logger:     logger,
	}
}

func (svc *service) State(_ context.Context) (Status, error) {
	return svc.status(), nil
}

func (svc *service) Start(_ context.Context) (Status, error) {
	if err := svc.controller.Start(svc.ctx); err != nil {
		return svc.status(), errors.Join(pkgerrors.ErrConflict, err)
	}

	return svc.status(), nil
}

func (svc *service) Stop(_ context.Context) (Status, error) {
	if err := svc.controller.Stop(); err != nil {
		return svc.status(), errors.Join(pkgerrors.ErrConflict, err)
	}

	return svc.status(), nil
}

func (svc *service) Restart(_ context.Context) (Status, error) {
	if err := svc.controller.Restart(svc.ctx); err != nil {
		return svc.status(), errors.Join(pkgerrors.ErrConflict, err)
	}

	return svc.status(), nil
}

func (svc *service) Processes(_ context.Context) (Snapshot, error) {
	return svc.worker.Snapshot(), nil
}

func (svc *service) ListAlerts(ctx context.Context, offset, limit uint64) (alert.Page, error) {
	alerts, total, err := svc.alerts.List(ctx, offset, limit)
	if err != nil {
		return alert.Page{}, err
	}

	return alert.Page{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Alerts: alerts,
	}, nil
}

func (svc *service) ClearAlerts(ctx context.Context) error {
	return svc.alerts.Clear(ctx)
}

func (svc *service) ListWhitelist(ctx context.Context) ([]string, error) {
	return svc.whitelist.List(ctx)
}

func (svc *service) AddWhitelist(ctx context.Context, name string) error {
	if name == "" {
		return pkgerrors.ErrEmptyKey
	}

	return svc.whitelist.Add(ctx, name)
}

func (svc *service) RemoveWhitelist(ctx context.Context, name string) error {
	if name == "" {
		return pkgerrors.ErrEmptyKey
	}

	return svc.whitelist.Remove(ctx, name)
}

func (svc *service) Locks(_ context.Context) (locks.View, error) {
	if svc.accounting == nil {
		return locks.View{}, nil
	}

	return svc.accounting.View(), nil
}

func (svc *service) ReleaseLocks(ctx context.Context, pid int32) error {
	if svc.accounting == nil {
		return errors.Join(pkgerrors.ErrNotFound, ErrNoLockAccounting)
	}
	if _, ok := svc.accounting.Lookup(pid); !ok {
		return pkgerrors.ErrNotFound
	}

	return svc.accounting.ReleaseForPID(ctx, pid)
}

func (svc *service) Pause(_ context.Context, reason string) (Status, error) {
	if err := svc.worker.Lock(reason); err != nil {
		return svc.status(), errors.Join(pkgerrors.ErrEmptyKey, err)
	}

	return svc.status(), nil
}

func (svc *service) Resume(_ context.Context, reason string) (Status, error) {
	if err := svc.worker.Release(reason); err != nil {
		return svc.status(), errors.Join(pkgerrors.ErrNotFound, err)
	}

	return svc.status(), nil
}

func (svc *service) status() Status {
	return Status{
		State:    svc.controller.State(),
		Engine:   svc.engineName,
		Interval: svc.engine.Policy().Interval,
		Paused:   svc.worker.Paused(),
	}
}

// NotifyRunning sends RunningNotice every time the monitor reaches STARTED,
// until ctx is canceled or states is closed.
func NotifyRunning(ctx context.Context, states <-chan scheduler.State, notifier Notifier, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-states:
			if !ok {
				return
			}
			if s != scheduler.Started {
				continue
			}
			if err := notifier.Notice(ctx, RunningNotice); err != nil {
				logger.Warn("failed to send running notice", slog.Any("error", err))
			}
		}
	}
}
