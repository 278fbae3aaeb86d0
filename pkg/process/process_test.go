package process_test

import (
	"testing"
	"time"

	"github.com/absmach/guardian/pkg/process"
	"github.com/absmach/guardian/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockView map[int32]time.Duration

func (v lockView) HeldTime(pid int32) (time.Duration, bool) {
	d, ok := v[pid]

	return d, ok
}

func scan(idle, uptime int64, procs ...source.Row) source.Rows {
	return append(source.Rows{source.SystemRow(idle, uptime)}, procs...)
}

func TestUsage(t *testing.T) {
	cases := []struct {
		desc    string
		first   source.Rows
		second  source.Rows
		usage   float64
		sysUse  float64
		average float64
	}{
		{
			desc:    "busy process",
			first:   scan(0, 1000, source.ProcessRow(0, 0, 1, "p", 10, 10, 0, 0, 100)),
			second:  scan(500, 2000, source.ProcessRow(0, 0, 1, "p", 260, 10, 0, 0, 100)),
			usage:   25,
			sysUse:  50,
			average: 14.21,
		},
		{
			desc:    "idle process",
			first:   scan(0, 1000, source.ProcessRow(0, 0, 1, "p", 10, 10, 0, 0, 100)),
			second:  scan(1000, 2000, source.ProcessRow(0, 0, 1, "p", 10, 10, 0, 0, 100)),
			usage:   0,
			sysUse:  0,
			average: 1.05,
		},
		{
			desc:    "clock reset",
			first:   scan(0, 2000, source.ProcessRow(0, 0, 1, "p", 10, 10, 0, 0, 100)),
			second:  scan(0, 1500, source.ProcessRow(0, 0, 1, "p", 50, 10, 0, 0, 100)),
			usage:   0,
			sysUse:  0,
			average: 4.29,
		},
		{
			desc:    "usage above system uptime is clamped",
			first:   scan(0, 1000, source.ProcessRow(0, 0, 1, "p", 0, 0, 0, 0, 100)),
			second:  scan(0, 1100, source.ProcessRow(0, 0, 1, "p", 500, 0, 0, 0, 100)),
			usage:   100,
			sysUse:  100,
			average: 50,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			first, _, err := process.Merge(nil, tc.first)
			require.NoError(t, err)
			assert.Equal(t, 0.0, first.Usage(1), "first observation has no delta")

			second, skipped, err := process.Merge(first, tc.second)
			require.NoError(t, err)
			assert.Zero(t, skipped)

			s, ok := second.Lookup(1)
			require.True(t, ok)
			assert.Equal(t, tc.usage, s.Usage(second.System))
			assert.Equal(t, tc.sysUse, second.System.Usage())
			assert.InDelta(t, tc.average, s.AverageUsage(second.System), 0.001)
		})
	}
}

func TestMergeRotatesSlots(t *testing.T) {
	first, _, err := process.Merge(nil, scan(0, 1000, source.ProcessRow(0, 0, 1, "p", 10, 1, 0, 0, 100)))
	require.NoError(t, err)
	second, _, err := process.Merge(first, scan(0, 2000, source.ProcessRow(0, 0, 1, "p", 20, 2, 0, 0, 100)))
	require.NoError(t, err)
	third, _, err := process.Merge(second, scan(0, 3000, source.ProcessRow(0, 0, 1, "p", 35, 3, 0, 0, 100)))
	require.NoError(t, err)

	s, ok := third.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, process.Counter{20, 35}, s.UTime)
	assert.Equal(t, process.Counter{2, 3}, s.STime)
	assert.Equal(t, process.Counter{2000, 3000}, third.System.Uptime)

	old, ok := second.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, process.Counter{10, 20}, old.UTime, "previous table is left untouched")
}

func TestMergeSkipsBadRows(t *testing.T) {
	rows := scan(0, 1000,
		source.ProcessRow(0, 0, 1, "ok", 1, 1, 0, 0, 1),
		source.Row{"0", "0", "2", "short"},
		source.Row{"0", "0", "x", "nan", "1", "1", "0", "0", "1"},
		source.ProcessRow(0, 0, 1, "dup", 1, 1, 0, 0, 1),
		source.ProcessRow(100, 10000, 3, "app", 1, 1, 0, 0, 1),
	)

	table, skipped, err := process.Merge(nil, rows)
	require.NoError(t, err)
	assert.Equal(t, 3, skipped)
	assert.Equal(t, 2, table.Len())

	app, ok := table.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, process.Managed, app.Kind)
	assert.Equal(t, int32(100), app.Classification)

	_, _, err = process.Merge(nil, source.Rows{source.ProcessRow(0, 0, 1, "p", 1, 1, 0, 0, 1)})
	assert.ErrorIs(t, err, process.ErrMissingSystemRow)

	_, _, err = process.Merge(nil, nil)
	assert.ErrorIs(t, err, process.ErrMissingSystemRow)
}

func TestDroppedPIDs(t *testing.T) {
	first, _, err := process.Merge(nil, scan(0, 1000,
		source.ProcessRow(0, 0, 1, "a", 1, 1, 0, 0, 1),
		source.ProcessRow(0, 0, 2, "b", 1, 1, 0, 0, 1),
	))
	require.NoError(t, err)

	second, _, err := process.Merge(first, scan(0, 2000, source.ProcessRow(0, 0, 2, "b", 2, 1, 0, 0, 1)))
	require.NoError(t, err)

	_, ok := second.Lookup(1)
	assert.False(t, ok)
	assert.Equal(t, map[int32]struct{}{2: {}}, second.PIDs())
}

func tableWithUsage(t *testing.T, samples ...source.Row) *process.Table {
	t.Helper()

	zero := make([]source.Row, len(samples))
	for i, row := range samples {
		z := append(source.Row{}, row...)
		z[source.FieldUTime] = "0"
		z[source.FieldSTime] = "0"
		zero[i] = z
	}

	first, _, err := process.Merge(nil, scan(0, 1000, zero...))
	require.NoError(t, err)
	second, _, err := process.Merge(first, scan(0, 2000, samples...))
	require.NoError(t, err)

	return second
}

func order(table *process.Table) []int32 {
	pids := []int32{}
	for _, s := range table.Samples() {
		pids = append(pids, s.PID)
	}

	return pids
}

func TestSort(t *testing.T) {
	rows := []source.Row{
		source.ProcessRow(400, 0, 1, "bg", 100, 0, 0, 0, 1),
		source.ProcessRow(100, 0, 2, "fg", 100, 0, 0, 0, 1),
		source.ProcessRow(300, 0, 3, "svc", 100, 0, 0, 0, 1),
		source.ProcessRow(0, 0, 4, "hot", 500, 0, 0, 0, 1),
		source.ProcessRow(200, 0, 5, "idle", 0, 0, 0, 0, 1),
	}

	cases := []struct {
		desc  string
		locks process.LockLookup
		order []int32
	}{
		{
			desc:  "without lock data ties break on classification",
			locks: nil,
			order: []int32{4, 2, 3, 1, 5},
		},
		{
			desc:  "lock data wins a tie",
			locks: lockView{1: time.Second},
			order: []int32{4, 1, 2, 3, 5},
		},
		{
			desc:  "longer hold wins a tie",
			locks: lockView{1: time.Second, 3: time.Minute},
			order: []int32{4, 3, 1, 2, 5},
		},
		{
			desc:  "equal holds fall back to classification",
			locks: lockView{1: time.Second, 3: time.Second},
			order: []int32{4, 3, 1, 2, 5},
		},
		{
			desc:  "lock data does not override usage",
			locks: lockView{5: time.Hour},
			order: []int32{4, 2, 3, 1, 5},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			table := tableWithUsage(t, rows...)
			table.Sort(tc.locks)
			assert.Equal(t, tc.order, order(table))

			for _, pid := range tc.order {
				s, ok := table.Lookup(pid)
				require.True(t, ok)
				assert.Equal(t, pid, s.PID)
			}
		})
	}
}

func TestAdd(t *testing.T) {
	table := process.NewTable()
	require.NoError(t, table.Add(process.Sample{PID: 1}))
	assert.ErrorIs(t, table.Add(process.Sample{PID: 1}), process.ErrDuplicatePID)
	assert.Equal(t, 1, table.Len())
}

func TestClassification(t *testing.T) {
	cases := []struct {
		desc        string
		class       int32
		perceptible bool
		important   bool
	}{
		{desc: "native", class: 0, perceptible: false, important: false},
		{desc: "foreground", class: process.ImportanceForeground, perceptible: true, important: true},
		{desc: "perceptible", class: process.ImportancePerceptible, perceptible: true, important: true},
		{desc: "visible", class: process.ImportanceVisible, perceptible: true, important: true},
		{desc: "service", class: process.ImportanceService, perceptible: false, important: false},
		{desc: "background", class: process.ImportanceBackground, perceptible: false, important: false},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			s := process.Sample{Classification: tc.class}
			assert.Equal(t, tc.perceptible, s.Perceptible())
			assert.Equal(t, tc.important, s.Important(true))
			assert.False(t, s.Important(false))
		})
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "[12]", (&process.Sample{PID: 12}).Label())
	assert.Equal(t, "app", (&process.Sample{PID: 12, Name: "app", Kind: process.Managed}).Label())
}
