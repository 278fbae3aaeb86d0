package middleware

import (
	"context"
	"time"

	"github.com/absmach/guardian/monitor"
	"github.com/absmach/guardian/pkg/alert"
	"github.com/absmach/guardian/pkg/locks"
	"github.com/go-kit/kit/metrics"
)

var _ monitor.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     monitor.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc monitor.Service) monitor.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) State(ctx context.Context) (monitor.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-state").Add(1)
		mm.latency.With("method", "get-state").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.State(ctx)
}

func (mm *metricsMiddleware) Start(ctx context.Context) (monitor.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "start").Add(1)
		mm.latency.With("method", "start").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Start(ctx)
}

func (mm *metricsMiddleware) Stop(ctx context.Context) (monitor.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "stop").Add(1)
		mm.latency.With("method", "stop").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Stop(ctx)
}

func (mm *metricsMiddleware) Restart(ctx context.Context) (monitor.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "restart").Add(1)
		mm.latency.With("method", "restart").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Restart(ctx)
}

func (mm *metricsMiddleware) Processes(ctx context.Context) (monitor.Snapshot, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-processes").Add(1)
		mm.latency.With("method", "list-processes").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Processes(ctx)
}

func (mm *metricsMiddleware) ListAlerts(ctx context.Context, offset, limit uint64) (alert.Page, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-alerts").Add(1)
		mm.latency.With("method", "list-alerts").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListAlerts(ctx, offset, limit)
}

func (mm *metricsMiddleware) ClearAlerts(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "clear-alerts").Add(1)
		mm.latency.With("method", "clear-alerts").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ClearAlerts(ctx)
}

func (mm *metricsMiddleware) ListWhitelist(ctx context.Context) ([]string, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-whitelist").Add(1)
		mm.latency.With("method", "list-whitelist").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListWhitelist(ctx)
}

func (mm *metricsMiddleware) AddWhitelist(ctx context.Context, name string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "add-whitelist").Add(1)
		mm.latency.With("method", "add-whitelist").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.AddWhitelist(ctx, name)
}

func (mm *metricsMiddleware) RemoveWhitelist(ctx context.Context, name string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "remove-whitelist").Add(1)
		mm.latency.With("method", "remove-whitelist").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.RemoveWhitelist(ctx, name)
}

func (mm *metricsMiddleware) Locks(ctx context.Context) (locks.View, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-locks").Add(1)
		mm.latency.With("method", "list-locks").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Locks(ctx)
}

func (mm *metricsMiddleware) ReleaseLocks(ctx context.Context, pid int32) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "release-locks").Add(1)
		mm.latency.With("method", "release-locks").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ReleaseLocks(ctx, pid)
}

func (mm *metricsMiddleware) Pause(ctx context.Context, reason string) (monitor.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "pause").Add(1)
		mm.latency.With("method", "pause").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Pause(ctx, reason)
}

func (mm *metricsMiddleware) Resume(ctx context.Context, reason string) (monitor.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "resume").Add(1)
		mm.latency.With("method", "resume").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Resume(ctx, reason)
}
