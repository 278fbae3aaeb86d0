package cron_test

import (
	"testing"
	"time"

	"github.com/absmach/guardian/pkg/cron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	from := time.Date(2026, 5, 4, 10, 7, 30, 0, time.UTC)

	cases := []struct {
		desc  string
		expr  string
		until time.Duration
		err   error
	}{
		{desc: "every five minutes", expr: "*/5 * * * *", until: 2*time.Minute + 30*time.Second},
		{desc: "top of the hour", expr: "0 * * * *", until: 52*time.Minute + 30*time.Second},
		{desc: "descriptor", expr: "@hourly", until: 52*time.Minute + 30*time.Second},
		{desc: "empty", expr: "", err: cron.ErrInvalidCronExpression},
		{desc: "garbage", expr: "every now and then", err: cron.ErrInvalidCronExpression},
		{desc: "six fields", expr: "0 */5 * * * *", err: cron.ErrInvalidCronExpression},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			s, err := cron.Parse(tc.expr, "")
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				assert.ErrorIs(t, cron.Validate(tc.expr), tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.until, s.Until(from))
		})
	}
}

func TestNilSchedule(t *testing.T) {
	var s *cron.Schedule
	assert.True(t, s.Next(time.Now()).IsZero())
	assert.Zero(t, s.Until(time.Now()))
}
