package threshold_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/absmach/guardian/pkg/process"
	"github.com/absmach/guardian/pkg/source"
	"github.com/absmach/guardian/pkg/threshold"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pid        = int32(42)
	background = process.ImportanceBackground
	interval   = 5 * time.Minute
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type lockView map[int32]time.Duration

func (v lockView) ActiveHold(pid int32) (time.Duration, bool) {
	d, ok := v[pid]

	return d, ok
}

// cycles builds one table per usage value for a single process. Every cycle
// spans 1000 ticks, so a usage of u percent is u*10 busy ticks. sysIdle is
// the idle share of each cycle in ticks.
func cycles(t *testing.T, class int32, sysIdle int64, usages ...float64) []*process.Table {
	t.Helper()

	var (
		prev   *process.Table
		tables []*process.Table
		uptime int64 = 1000
		idle   int64
		utime  int64
	)

	first, _, err := process.Merge(nil, source.Rows{
		source.SystemRow(idle, uptime),
		source.ProcessRow(class, 10000, pid, "app", utime, 0, 0, 0, 1),
	})
	require.NoError(t, err)
	prev = first

	for _, u := range usages {
		uptime += 1000
		idle += sysIdle
		utime += int64(u * 10)
		table, _, err := process.Merge(prev, source.Rows{
			source.SystemRow(idle, uptime),
			source.ProcessRow(class, 10000, pid, "app", utime, 0, 0, 0, 1),
		})
		require.NoError(t, err)
		require.Equal(t, u, table.Usage(pid))
		tables = append(tables, table)
		prev = table
	}

	return tables
}

func defaultPolicy() threshold.Policy {
	return threshold.Policy{
		CPU:         threshold.Thresholds{Interactive: 20, NonInteractive: 20},
		LockMaxHold: 5 * time.Minute,
		Interval:    interval,
		SystemGate:  true,
	}
}

// run evaluates every table and returns the cycle index of the first
// confirmation, or -1.
func run(engine *threshold.Engine, tables []*process.Table, interactive bool, wl threshold.Whitelist) (int, []threshold.Result) {
	confirmedAt := -1
	results := []threshold.Result{}
	prev := threshold.CandidateSet{}
	for i, table := range tables {
		res := engine.Evaluate(threshold.Input{
			Table:       table,
			Previous:    prev,
			Interactive: interactive,
			Whitelist:   wl,
		})
		if confirmedAt < 0 && len(res.Confirmed) > 0 {
			confirmedAt = i
		}
		results = append(results, res)
		prev = res.Next
	}

	return confirmedAt, results
}

func TestHysteresis(t *testing.T) {
	cases := []struct {
		desc        string
		usages      []float64
		class       int32
		policy      func(p *threshold.Policy)
		interactive bool
		whitelist   threshold.Whitelist
		confirmedAt int
	}{
		{
			desc:        "non decreasing usage confirms on the second cycle",
			usages:      []float64{40, 45},
			class:       background,
			confirmedAt: 1,
		},
		{
			desc:        "equal usage confirms",
			usages:      []float64{40, 40},
			class:       background,
			confirmedAt: 1,
		},
		{
			desc:        "strictly decreasing usage never confirms",
			usages:      []float64{40, 35, 30, 25},
			class:       background,
			confirmedAt: -1,
		},
		{
			desc:        "a rise after a decrease confirms",
			usages:      []float64{40, 35, 36},
			class:       background,
			confirmedAt: 2,
		},
		{
			desc:        "single spike never confirms",
			usages:      []float64{90, 5, 90, 5},
			class:       background,
			confirmedAt: -1,
		},
		{
			desc:        "whitelisted process never becomes a candidate",
			usages:      []float64{40, 45, 50},
			class:       background,
			whitelist:   func(name string) bool { return name == "app" },
			confirmedAt: -1,
		},
		{
			desc:        "perceptible process is skipped without root",
			usages:      []float64{40, 45},
			class:       process.ImportancePerceptible,
			confirmedAt: -1,
		},
		{
			desc:        "service process is flagged without root",
			usages:      []float64{40, 45},
			class:       process.ImportanceService,
			confirmedAt: 1,
		},
		{
			desc:        "native process is flagged without root when unmanaged processes are monitored",
			usages:      []float64{60, 70, 80},
			class:       0,
			policy:      func(p *threshold.Policy) { p.MonitorUnmanaged = true },
			confirmedAt: 1,
		},
		{
			desc:   "native process is flagged with root",
			usages: []float64{40, 45},
			class:  0,
			policy: func(p *threshold.Policy) {
				p.Root = true
				p.MonitorUnmanaged = true
			},
			confirmedAt: 1,
		},
		{
			desc:        "native process is skipped unless unmanaged processes are monitored",
			usages:      []float64{40, 45},
			class:       0,
			policy:      func(p *threshold.Policy) { p.Root = true },
			confirmedAt: -1,
		},
		{
			desc:        "foreground process is flagged with root while interactive",
			usages:      []float64{40, 45},
			class:       process.ImportanceForeground,
			policy:      func(p *threshold.Policy) { p.Root = true },
			interactive: true,
			confirmedAt: 1,
		},
		{
			desc:        "foreground process is protected while interactive without root",
			usages:      []float64{40, 45},
			class:       process.ImportanceForeground,
			interactive: true,
			confirmedAt: -1,
		},
		{
			desc:        "foreground process is flagged with root while non interactive",
			usages:      []float64{40, 45},
			class:       process.ImportanceForeground,
			policy:      func(p *threshold.Policy) { p.Root = true },
			confirmedAt: 1,
		},
		{
			desc:        "usage under the threshold is ignored",
			usages:      []float64{10, 15, 19},
			class:       background,
			confirmedAt: -1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			policy := defaultPolicy()
			if tc.policy != nil {
				tc.policy(&policy)
			}
			engine := threshold.NewEngine(policy, logger)

			confirmedAt, results := run(engine, cycles(t, tc.class, 0, tc.usages...), tc.interactive, tc.whitelist)
			assert.Equal(t, tc.confirmedAt, confirmedAt)

			if tc.confirmedAt >= 0 {
				res := results[tc.confirmedAt]
				require.Len(t, res.Confirmed, 1)
				assert.Equal(t, pid, res.Confirmed[0].Sample.PID)
				assert.True(t, res.Confirmed[0].Reasons.Has(threshold.CPUOver))
				assert.Equal(t, tc.usages[tc.confirmedAt], res.Confirmed[0].Usage)
				assert.NotContains(t, res.Next, pid)
			}
		})
	}
}

func TestCarryForward(t *testing.T) {
	engine := threshold.NewEngine(defaultPolicy(), logger)
	_, results := run(engine, cycles(t, background, 0, 40, 35, 30), false, nil)

	for i, res := range results {
		require.Contains(t, res.Next, pid)
		assert.Equal(t, i+1, res.Next[pid].CPUCount)
		assert.Empty(t, res.Confirmed)
		assert.Equal(t, 2*time.Minute+30*time.Second, res.Timeout)
	}
	assert.Equal(t, 30.0, results[2].Next[pid].Usage)
}

func TestResolution(t *testing.T) {
	engine := threshold.NewEngine(defaultPolicy(), logger)
	_, results := run(engine, cycles(t, background, 0, 40, 10), false, nil)

	assert.Contains(t, results[0].Next, pid)
	assert.Empty(t, results[1].Next)
	assert.Empty(t, results[1].Confirmed)
	assert.Equal(t, []int32{pid}, results[1].Resolved)
	assert.Equal(t, interval, results[1].Timeout)
}

func TestResolutionWhenProcessExits(t *testing.T) {
	engine := threshold.NewEngine(defaultPolicy(), logger)
	tables := cycles(t, background, 0, 40)

	first := engine.Evaluate(threshold.Input{Table: tables[0], Previous: threshold.CandidateSet{}})
	require.Contains(t, first.Next, pid)

	empty, _, err := process.Merge(tables[0], source.Rows{source.SystemRow(0, 3000)})
	require.NoError(t, err)

	second := engine.Evaluate(threshold.Input{Table: empty, Previous: first.Next})
	assert.Empty(t, second.Next)
	assert.Equal(t, []int32{pid}, second.Resolved)
}

func TestPreviousNotMutated(t *testing.T) {
	engine := threshold.NewEngine(defaultPolicy(), logger)
	tables := cycles(t, background, 0, 40, 45)

	first := engine.Evaluate(threshold.Input{Table: tables[0], Previous: threshold.CandidateSet{}})
	snapshot := first.Next.Clone()

	engine.Evaluate(threshold.Input{Table: tables[1], Previous: first.Next})
	assert.Equal(t, snapshot, first.Next)
}

func TestSystemGate(t *testing.T) {
	cases := []struct {
		desc     string
		gate     bool
		detected bool
	}{
		{desc: "idle system skips process checks", gate: true, detected: false},
		{desc: "gate disabled checks every process", gate: false, detected: true},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			policy := defaultPolicy()
			policy.SystemGate = tc.gate
			engine := threshold.NewEngine(policy, logger)

			// 900 of every 1000 ticks idle: system usage 10.
			tables := cycles(t, background, 900, 40)
			res := engine.Evaluate(threshold.Input{Table: tables[0], Previous: threshold.CandidateSet{}})
			assert.Equal(t, 10.0, res.SystemUsage)
			_, ok := res.Next[pid]
			assert.Equal(t, tc.detected, ok)
		})
	}
}

func TestLockHysteresis(t *testing.T) {
	cases := []struct {
		desc        string
		holds       []time.Duration
		interactive bool
		confirmedAt int
	}{
		{
			desc:        "growing hold confirms on the second cycle",
			holds:       []time.Duration{6 * time.Minute, 9 * time.Minute},
			confirmedAt: 1,
		},
		{
			desc:        "released and reacquired lock defers",
			holds:       []time.Duration{6 * time.Minute, 0, 6 * time.Minute},
			confirmedAt: -1,
		},
		{
			desc:        "locks are not checked while interactive",
			holds:       []time.Duration{6 * time.Minute, 9 * time.Minute},
			interactive: true,
			confirmedAt: -1,
		},
		{
			desc:        "short holds are ignored",
			holds:       []time.Duration{time.Minute, 2 * time.Minute},
			confirmedAt: -1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			engine := threshold.NewEngine(defaultPolicy(), logger)
			tables := cycles(t, background, 0, make([]float64, len(tc.holds))...)

			confirmedAt := -1
			prev := threshold.CandidateSet{}
			for i, table := range tables {
				view := lockView{}
				if tc.holds[i] > 0 {
					view[pid] = tc.holds[i]
				}
				res := engine.Evaluate(threshold.Input{
					Table:       table,
					Previous:    prev,
					Interactive: tc.interactive,
					Locks:       view,
				})
				if confirmedAt < 0 && len(res.Confirmed) > 0 {
					confirmedAt = i
					assert.Equal(t, threshold.LockOver, res.Confirmed[0].Reasons)
					assert.Equal(t, tc.holds[i], res.Confirmed[0].LockTime)
				}
				prev = res.Next
			}
			assert.Equal(t, tc.confirmedAt, confirmedAt)
		})
	}
}

func TestIndependentReasons(t *testing.T) {
	engine := threshold.NewEngine(defaultPolicy(), logger)
	tables := cycles(t, background, 0, 40, 45)

	first := engine.Evaluate(threshold.Input{Table: tables[0], Previous: threshold.CandidateSet{}, Locks: lockView{}})
	require.Equal(t, threshold.CPUOver, first.Next[pid].Reasons)

	second := engine.Evaluate(threshold.Input{
		Table:    tables[1],
		Previous: first.Next,
		Locks:    lockView{pid: 6 * time.Minute},
	})

	require.Len(t, second.Confirmed, 1)
	assert.Equal(t, threshold.CPUOver, second.Confirmed[0].Reasons)

	require.Contains(t, second.Next, pid)
	pending := second.Next[pid]
	assert.Equal(t, threshold.LockOver, pending.Reasons)
	assert.Equal(t, 1, pending.LockCount)
	assert.Zero(t, pending.CPUCount)
}

func TestRecheck(t *testing.T) {
	cases := []struct {
		desc     string
		interval time.Duration
		recheck  time.Duration
	}{
		{desc: "half of the interval", interval: 5 * time.Minute, recheck: 150 * time.Second},
		{desc: "capped", interval: 30 * time.Minute, recheck: 5 * time.Minute},
		{desc: "floored", interval: 90 * time.Second, recheck: time.Minute},
		{desc: "never longer than the interval", interval: 30 * time.Second, recheck: 30 * time.Second},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			p := threshold.Policy{Interval: tc.interval}
			assert.Equal(t, tc.recheck, p.Recheck())
		})
	}
}

func TestReasonString(t *testing.T) {
	r := threshold.CPUOver | threshold.ActionKilled | threshold.ActionNotified
	assert.Equal(t, "cpu_over|killed|notified", r.String())
	assert.Equal(t, []string{"cpu_over", "killed", "notified"}, r.Names())
	assert.Equal(t, []string{}, threshold.Reason(0).Names())
	assert.True(t, r.Has(threshold.ActionKilled))
	assert.False(t, r.Has(threshold.LockOver))
}

func TestParseReason(t *testing.T) {
	cases := []struct {
		desc   string
		text   string
		reason threshold.Reason
		err    error
	}{
		{desc: "empty", text: "", reason: 0},
		{desc: "single", text: "lock_over", reason: threshold.LockOver},
		{desc: "combined", text: "cpu_over|rebooted", reason: threshold.CPUOver | threshold.ActionRebooted},
		{desc: "unknown name", text: "cpu_over|melted", err: threshold.ErrUnknownReason},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			var r threshold.Reason
			err := r.UnmarshalText([]byte(tc.text))
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.reason, r)

			text, err := r.MarshalText()
			require.NoError(t, err)
			assert.Equal(t, tc.text, string(text))
		})
	}
}
