package scheduler

import (
	"context"
	"time"

	"github.com/absmach/guardian/pkg/cron"
)

// Persistent runs cycles in a loop, sleeping for the requested delay in
// between. Stop wakes the sleep early.
type Persistent struct{}

func (Persistent) Run(ctx context.Context, cycle Cycle, started func()) {
	if ctx.Err() != nil {
		return
	}
	started()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}

		timeout := cycle(ctx)
		timer.Reset(timeout)
	}
}

// Alarm is a one-shot trigger that can be re-armed.
type Alarm interface {
	Set(d time.Duration)
	C() <-chan time.Time
	Stop()
}

type timerAlarm struct {
	timer *time.Timer
}

// NewTimerAlarm returns an unarmed alarm backed by a time.Timer.
func NewTimerAlarm() Alarm {
	t := time.NewTimer(time.Hour)
	t.Stop()

	return &timerAlarm{timer: t}
}

func (a *timerAlarm) Set(d time.Duration) {
	a.timer.Stop()
	a.timer.Reset(d)
}

func (a *timerAlarm) C() <-chan time.Time {
	return a.timer.C
}

func (a *timerAlarm) Stop() {
	a.timer.Stop()
}

// Scheduled runs one cycle per alarm trigger and re-arms the alarm after
// each cycle. With a cron schedule, delays of at least Interval follow the
// schedule instead; shorter rechecks are kept as requested.
type Scheduled struct {
	Alarm    Alarm
	Schedule *cron.Schedule
	Interval time.Duration
	Now      func() time.Time
}

func (s Scheduled) Run(ctx context.Context, cycle Cycle, started func()) {
	if ctx.Err() != nil {
		return
	}

	alarm := s.Alarm
	if alarm == nil {
		alarm = NewTimerAlarm()
	}
	defer alarm.Stop()

	started()
	alarm.Set(0)

	for {
		select {
		case <-ctx.Done():
			return
		case <-alarm.C():
		}
		if ctx.Err() != nil {
			return
		}

		timeout := cycle(ctx)
		alarm.Set(s.next(timeout))
	}
}

func (s Scheduled) next(timeout time.Duration) time.Duration {
	if s.Schedule == nil || timeout < s.Interval {
		return timeout
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if d := s.Schedule.Until(now()); d > 0 {
		return d
	}

	return timeout
}
