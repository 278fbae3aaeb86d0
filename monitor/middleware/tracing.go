package middleware

import (
	"context"

	"github.com/absmach/guardian/monitor"
	"github.com/absmach/guardian/pkg/alert"
	"github.com/absmach/guardian/pkg/locks"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ monitor.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    monitor.Service
}

func Tracing(tracer trace.Tracer, svc monitor.Service) monitor.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) State(ctx context.Context) (monitor.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "get-state")
	defer span.End()

	return tm.svc.State(ctx)
}

func (tm *tracing) Start(ctx context.Context) (monitor.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "start")
	defer span.End()

	return tm.svc.Start(ctx)
}

func (tm *tracing) Stop(ctx context.Context) (monitor.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "stop")
	defer span.End()

	return tm.svc.Stop(ctx)
}

func (tm *tracing) Restart(ctx context.Context) (monitor.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "restart")
	defer span.End()

	return tm.svc.Restart(ctx)
}

func (tm *tracing) Processes(ctx context.Context) (monitor.Snapshot, error) {
	ctx, span := tm.tracer.Start(ctx, "list-processes")
	defer span.End()

	return tm.svc.Processes(ctx)
}

func (tm *tracing) ListAlerts(ctx context.Context, offset, limit uint64) (alert.Page, error) {
	ctx, span := tm.tracer.Start(ctx, "list-alerts", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListAlerts(ctx, offset, limit)
}

func (tm *tracing) ClearAlerts(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "clear-alerts")
	defer span.End()

	return tm.svc.ClearAlerts(ctx)
}

func (tm *tracing) ListWhitelist(ctx context.Context) ([]string, error) {
	ctx, span := tm.tracer.Start(ctx, "list-whitelist")
	defer span.End()

	return tm.svc.ListWhitelist(ctx)
}

func (tm *tracing) AddWhitelist(ctx context.Context, name string) error {
	ctx, span := tm.tracer.Start(ctx, "add-whitelist", trace.WithAttributes(
		attribute.String("name", name),
	))
	defer span.End()

	return tm.svc.AddWhitelist(ctx, name)
}

func (tm *tracing) RemoveWhitelist(ctx context.Context, name string) error {
	ctx, span := tm.tracer.Start(ctx, "remove-whitelist", trace.WithAttributes(
		attribute.String("name", name),
	))
	defer span.End()

	return tm.svc.RemoveWhitelist(ctx, name)
}

func (tm *tracing) Locks(ctx context.Context) (locks.View, error) {
	ctx, span := tm.tracer.Start(ctx, "list-locks")
	defer span.End()

	return tm.svc.Locks(ctx)
}

func (tm *tracing) ReleaseLocks(ctx context.Context, pid int32) error {
	ctx, span := tm.tracer.Start(ctx, "release-locks", trace.WithAttributes(
		attribute.Int("pid", int(pid)),
	))
	defer span.End()

	return tm.svc.ReleaseLocks(ctx, pid)
}

func (tm *tracing) Pause(ctx context.Context, reason string) (monitor.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "pause", trace.WithAttributes(
		attribute.String("reason", reason),
	))
	defer span.End()

	return tm.svc.Pause(ctx, reason)
}

func (tm *tracing) Resume(ctx context.Context, reason string) (monitor.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "resume", trace.WithAttributes(
		attribute.String("reason", reason),
	))
	defer span.End()

	return tm.svc.Resume(ctx, reason)
}
