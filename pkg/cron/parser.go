package cron

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrInvalidCronExpression = errors.New("invalid cron expression")

// Schedule is a parsed five field cron expression bound to a time zone.
type Schedule struct {
	sched cron.Schedule
	loc   *time.Location
}

// Parse parses expr. An unknown or empty timezone falls back to UTC.
func Parse(expr, timezone string) (*Schedule, error) {
	if expr == "" {
		return nil, ErrInvalidCronExpression
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronExpression, err)
	}

	loc := time.UTC
	if timezone != "" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		}
	}

	return &Schedule{
		sched: sched,
		loc:   loc,
	}, nil
}

func Validate(expr string) error {
	_, err := Parse(expr, "")

	return err
}

// Next returns the first activation strictly after from.
func (s *Schedule) Next(from time.Time) time.Time {
	if s == nil || s.sched == nil {
		return time.Time{}
	}

	return s.sched.Next(from.In(s.loc))
}

// Until returns the delay from from to the next activation.
func (s *Schedule) Until(from time.Time) time.Duration {
	next := s.Next(from)
	if next.IsZero() {
		return 0
	}

	return next.Sub(from)
}
