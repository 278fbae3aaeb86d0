package locks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/absmach/guardian/pkg/mqtt"
)

// Event kinds carried on the lock feed topic.
const (
	EventAcquired    = "acquired"
	EventChanging    = "changing"
	EventReleased    = "released"
	EventInteractive = "interactive"
)

var (
	ErrUnknownEvent = errors.New("unknown lock event")
	ErrMissingField = errors.New("missing event field")
)

// Feed applies lock events received over MQTT to an Accounting.
type Feed struct {
	accounting *Accounting
	pubsub     mqtt.PubSub
	topic      string
	logger     *slog.Logger
}

func NewFeed(accounting *Accounting, pubsub mqtt.PubSub, topic string, logger *slog.Logger) *Feed {
	return &Feed{
		accounting: accounting,
		pubsub:     pubsub,
		topic:      topic,
		logger:     logger,
	}
}

func (f *Feed) Subscribe(ctx context.Context) error {
	return f.pubsub.Subscribe(ctx, f.topic, f.Handle)
}

func (f *Feed) Unsubscribe(ctx context.Context) error {
	return f.pubsub.Unsubscribe(ctx, f.topic)
}

// Handle decodes one event message and applies it.
func (f *Feed) Handle(_ string, msg map[string]any) error {
	event, _ := msg["event"].(string)

	switch event {
	case EventAcquired:
		id, err := stringField(msg, "handle")
		if err != nil {
			return err
		}
		pid, err := intField(msg, "pid")
		if err != nil {
			return err
		}
		uid, _ := intField(msg, "uid")
		flags, _ := intField(msg, "flags")
		tag, _ := msg["tag"].(string)
		f.accounting.Acquired(id, int32(pid), int32(uid), tag, uint32(flags))
	case EventChanging:
		id, err := stringField(msg, "handle")
		if err != nil {
			return err
		}
		tag, _ := msg["tag"].(string)
		if err := f.accounting.Changing(id, tag); err != nil {
			return fmt.Errorf("%w: %s", err, id)
		}
	case EventReleased:
		id, err := stringField(msg, "handle")
		if err != nil {
			return err
		}
		if err := f.accounting.Released(id); err != nil {
			return fmt.Errorf("%w: %s", err, id)
		}
	case EventInteractive:
		interactive, ok := msg["interactive"].(bool)
		if !ok {
			return fmt.Errorf("%w: interactive", ErrMissingField)
		}
		f.accounting.SetInteractive(interactive)
		f.logger.Debug("device interactive state changed", slog.Bool("interactive", interactive))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}

	return nil
}

// NewMQTTReleaser returns a Releaser that asks the lock owner to drop the
// handles by publishing on topic.
func NewMQTTReleaser(pubsub mqtt.PubSub, topic string) Releaser {
	return ReleaserFunc(func(ctx context.Context, pid int32, handles []string) error {
		return pubsub.Publish(ctx, topic, map[string]any{
			"pid":     pid,
			"handles": handles,
		})
	})
}

func stringField(msg map[string]any, key string) (string, error) {
	v, ok := msg[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}

	return v, nil
}

func intField(msg map[string]any, key string) (int64, error) {
	switch v := msg[key].(type) {
	case float64:
		return int64(v), nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrMissingField, key)
	}
}
