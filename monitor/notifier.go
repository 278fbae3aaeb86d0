package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/guardian/pkg/alert"
	"github.com/absmach/guardian/pkg/mqtt"
)

var _ Notifier = (*notifier)(nil)

type notifier struct {
	pubsub       mqtt.PubSub
	alertsTopic  string
	noticesTopic string
	logger       *slog.Logger
	now          func() time.Time
}

// NewNotifier logs every alert and notice and publishes them when pubsub
// is set.
func NewNotifier(pubsub mqtt.PubSub, alertsTopic, noticesTopic string, logger *slog.Logger) Notifier {
	return &notifier{
		pubsub:       pubsub,
		alertsTopic:  alertsTopic,
		noticesTopic: noticesTopic,
		logger:       logger,
		now:          time.Now,
	}
}

func (n *notifier) Notify(ctx context.Context, alerts []alert.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	for _, a := range alerts {
		n.logger.Warn("process over budget",
			slog.String("process", a.Process),
			slog.Int("pid", int(a.PID)),
			slog.String("reasons", a.Reasons.String()),
			slog.Float64("usage", a.Usage),
			slog.String("lock_time", a.LockTime.String()),
		)
	}

	if n.pubsub == nil {
		return nil
	}

	return n.pubsub.Publish(ctx, n.alertsTopic, map[string]any{
		"alerts":    alerts,
		"timestamp": n.now(),
	})
}

func (n *notifier) Notice(ctx context.Context, msg string) error {
	n.logger.Info(msg)

	if n.pubsub == nil {
		return nil
	}

	return n.pubsub.Publish(ctx, n.noticesTopic, map[string]any{
		"notice":    msg,
		"timestamp": n.now(),
	})
}
