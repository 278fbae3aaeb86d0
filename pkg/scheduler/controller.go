package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultWatchdog = 10 * time.Second

	TimeoutMessage = "the service request has timed out"
)

var (
	ErrNotStopped = errors.New("monitor is not stopped")
	ErrNotStarted = errors.New("monitor is not started")
)

// Cycle runs one monitoring pass and returns the delay before the next one.
// It receives the run context and must finish work it has begun even when
// that context is canceled.
type Cycle func(ctx context.Context) time.Duration

// Runner drives cycles until ctx is canceled. It calls started once it is
// running. A cycle in flight when ctx is canceled runs to completion.
type Runner interface {
	Run(ctx context.Context, cycle Cycle, started func())
}

type Controller struct {
	mu          sync.Mutex
	state       State
	gen         uint64
	runner      Runner
	cycle       Cycle
	watchdog    time.Duration
	timer       *time.Timer
	cancel      context.CancelFunc
	done        chan struct{}
	onTimeout   func(msg string)
	subscribers []chan State
	logger      *slog.Logger
}

type Option func(*Controller)

func WithWatchdog(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.watchdog = d
		}
	}
}

// WithTimeoutHandler sets the callback raised when a pending transition is
// not confirmed in time.
func WithTimeoutHandler(fn func(msg string)) Option {
	return func(c *Controller) {
		c.onTimeout = fn
	}
}

func NewController(runner Runner, cycle Cycle, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		state:    Stopped,
		runner:   runner,
		cycle:    cycle,
		watchdog: DefaultWatchdog,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Subscribe returns a channel receiving every state change. Slow readers
// miss changes rather than block the controller.
func (c *Controller) Subscribe() <-chan State {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 16)
	c.subscribers = append(c.subscribers, ch)

	return ch
}

// Start moves STOPPED to PENDING and launches the runner. ctx bounds the
// lifetime of the run, not of the call.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Stopped {
		return ErrNotStopped
	}

	c.gen++
	gen := c.gen
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.setState(Pending)
	c.arm(gen)

	go func() {
		defer close(done)
		c.runner.Run(runCtx, c.cycle, func() {
			c.confirm(gen, Started)
		})
		c.confirm(gen, Stopped)
	}()

	return nil
}

// Stop moves STARTED to PENDING and signals the runner. It does not wait.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Started {
		return ErrNotStarted
	}

	c.setState(Pending)
	c.arm(c.gen)
	c.cancel()

	return nil
}

// Restart stops a running monitor, waits for the runner to exit or the
// watchdog to fire, then starts it again.
func (c *Controller) Restart(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	switch err := c.Stop(); {
	case errors.Is(err, ErrNotStarted):
		if c.State() == Pending {
			return ErrNotStopped
		}
	case err != nil:
		return err
	default:
		select {
		case <-done:
		case <-time.After(c.watchdog):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return c.Start(ctx)
}

// Close stops the runner and waits for it to return.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	done := c.done
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (c *Controller) confirm(gen uint64, state State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A watchdog reset or a newer start invalidates the confirmation.
	if gen != c.gen || c.state == state {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.setState(state)
}

func (c *Controller) arm(gen uint64) {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.watchdog, func() {
		c.expire(gen)
	})
}

func (c *Controller) expire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != Pending {
		c.mu.Unlock()

		return
	}
	c.gen++
	c.timer = nil
	if c.cancel != nil {
		c.cancel()
	}
	c.setState(Stopped)
	onTimeout := c.onTimeout
	c.mu.Unlock()

	c.logger.Warn(TimeoutMessage, slog.Duration("watchdog", c.watchdog))
	if onTimeout != nil {
		onTimeout(TimeoutMessage)
	}
}

func (c *Controller) setState(s State) {
	c.state = s
	c.logger.Debug("monitor state changed", slog.String("state", s.String()))
	for _, ch := range c.subscribers {
		select {
		case ch <- s:
		default:
		}
	}
}
