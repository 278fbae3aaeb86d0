package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/absmach/guardian/pkg/mqtt"
	"github.com/absmach/guardian/pkg/source"
)

var ErrMissingField = errors.New("missing classification field")

// Classifier keeps the classification codes published for managed processes.
// A message with a classification of zero or less drops the pid.
type Classifier struct {
	mu      sync.RWMutex
	filters map[int32]source.Filter
	pubsub  mqtt.PubSub
	topic   string
	logger  *slog.Logger
}

func NewClassifier(pubsub mqtt.PubSub, topic string, logger *slog.Logger) *Classifier {
	return &Classifier{
		filters: make(map[int32]source.Filter),
		pubsub:  pubsub,
		topic:   topic,
		logger:  logger,
	}
}

func (c *Classifier) Subscribe(ctx context.Context) error {
	return c.pubsub.Subscribe(ctx, c.topic, c.Handle)
}

func (c *Classifier) Unsubscribe(ctx context.Context) error {
	return c.pubsub.Unsubscribe(ctx, c.topic)
}

// Handle applies one {"pid", "uid", "classification"} message.
func (c *Classifier) Handle(_ string, msg map[string]any) error {
	pid, err := numField(msg, "pid")
	if err != nil {
		return err
	}
	class, err := numField(msg, "classification")
	if err != nil {
		return err
	}
	uid, _ := numField(msg, "uid")

	c.Set(source.Filter{
		PID:            int32(pid),
		UID:            int32(uid),
		Classification: int32(class),
	})

	return nil
}

func (c *Classifier) Set(f source.Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f.Classification <= 0 {
		delete(c.filters, f.PID)
		c.logger.Debug("process classification dropped", slog.Int("pid", int(f.PID)))

		return
	}
	c.filters[f.PID] = f
}

// Filters returns the classified processes ordered by pid.
func (c *Classifier) Filters() []source.Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]source.Filter, 0, len(c.filters))
	for _, f := range c.filters {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PID < out[j].PID
	})

	return out
}

func numField(msg map[string]any, key string) (int64, error) {
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
