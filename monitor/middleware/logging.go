package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/guardian/monitor"
	"github.com/absmach/guardian/pkg/alert"
	"github.com/absmach/guardian/pkg/locks"
)

var _ monitor.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    monitor.Service
}

func Logging(logger *slog.Logger, svc monitor.Service) monitor.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) State(ctx context.Context) (status monitor.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("state", status.State.String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get state failed", args...)

			return
		}
		lm.logger.Debug("Get state completed successfully", args...)
	}(time.Now())

	return lm.svc.State(ctx)
}

func (lm *loggingMiddleware) Start(ctx context.Context) (status monitor.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("state", status.State.String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Start monitor failed", args...)

			return
		}
		lm.logger.Info("Start monitor completed successfully", args...)
	}(time.Now())

	return lm.svc.Start(ctx)
}

func (lm *loggingMiddleware) Stop(ctx context.Context) (status monitor.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("state", status.State.String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Stop monitor failed", args...)

			return
		}
		lm.logger.Info("Stop monitor completed successfully", args...)
	}(time.Now())

	return lm.svc.Stop(ctx)
}

func (lm *loggingMiddleware) Restart(ctx context.Context) (status monitor.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("state", status.State.String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Restart monitor failed", args...)

			return
		}
		lm.logger.Info("Restart monitor completed successfully", args...)
	}(time.Now())

	return lm.svc.Restart(ctx)
}

func (lm *loggingMiddleware) Processes(ctx context.Context) (snap monitor.Snapshot, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("processes", len(snap.Processes)),
			slog.Int("candidates", len(snap.Candidates)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List processes failed", args...)

			return
		}
		lm.logger.Debug("List processes completed successfully", args...)
	}(time.Now())

	return lm.svc.Processes(ctx)
}

func (lm *loggingMiddleware) ListAlerts(ctx context.Context, offset, limit uint64) (page alert.Page, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List alerts failed", args...)

			return
		}
		lm.logger.Info("List alerts completed successfully", args...)
	}(time.Now())

	return lm.svc.ListAlerts(ctx, offset, limit)
}

func (lm *loggingMiddleware) ClearAlerts(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Clear alerts failed", args...)

			return
		}
		lm.logger.Info("Clear alerts completed successfully", args...)
	}(time.Now())

	return lm.svc.ClearAlerts(ctx)
}

func (lm *loggingMiddleware) ListWhitelist(ctx context.Context) (names []string, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("count", len(names)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List whitelist failed", args...)

			return
		}
		lm.logger.Info("List whitelist completed successfully", args...)
	}(time.Now())

	return lm.svc.ListWhitelist(ctx)
}

func (lm *loggingMiddleware) AddWhitelist(ctx context.Context, name string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("name", name),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Add to whitelist failed", args...)

			return
		}
		lm.logger.Info("Add to whitelist completed successfully", args...)
	}(time.Now())

	return lm.svc.AddWhitelist(ctx, name)
}

func (lm *loggingMiddleware) RemoveWhitelist(ctx context.Context, name string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("name", name),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Remove from whitelist failed", args...)

			return
		}
		lm.logger.Info("Remove from whitelist completed successfully", args...)
	}(time.Now())

	return lm.svc.RemoveWhitelist(ctx, name)
}

func (lm *loggingMiddleware) Locks(ctx context.Context) (view locks.View, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("processes", len(view)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List locks failed", args...)

			return
		}
		lm.logger.Debug("List locks completed successfully", args...)
	}(time.Now())

	return lm.svc.Locks(ctx)
}

func (lm *loggingMiddleware) ReleaseLocks(ctx context.Context, pid int32) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("pid", int(pid)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Release locks failed", args...)

			return
		}
		lm.logger.Info("Release locks completed successfully", args...)
	}(time.Now())

	return lm.svc.ReleaseLocks(ctx, pid)
}

func (lm *loggingMiddleware) Pause(ctx context.Context, reason string) (status monitor.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("reason", reason),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Pause monitor failed", args...)

			return
		}
		lm.logger.Info("Pause monitor completed successfully", args...)
	}(time.Now())

	return lm.svc.Pause(ctx, reason)
}

func (lm *loggingMiddleware) Resume(ctx context.Context, reason string) (status monitor.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("reason", reason),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Resume monitor failed", args...)

			return
		}
		lm.logger.Info("Resume monitor completed successfully", args...)
	}(time.Now())

	return lm.svc.Resume(ctx, reason)
}
