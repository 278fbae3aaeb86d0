//go:build linux

package source_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/absmach/guardian/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const procStat = `cpu  100 20 30 400 50 6 7 8 0 0
cpu0 50 10 15 200 25 3 3 4 0 0
intr 12345
`

func writeProc(t *testing.T, root, pid, stat, status, cmdline string) {
	t.Helper()

	dir := filepath.Join(root, pid)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stat"), []byte(stat), 0o644))
	if status != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "status"), []byte(status), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cmdline"), []byte(cmdline), 0o644))
}

func newProcRoot(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "stat"), []byte(procStat), 0o644))

	writeProc(t, root, "42",
		"42 (long-running-da) S 1 42 42 0 -1 4194560 0 0 0 0 120 30 4 2 20 0 1 0 5000 0 0",
		"Name:\tlong-running-da\nUid:\t1000\t1000\t1000\t1000\n",
		"/usr/bin/long-running-daemon--verbose\x00--flag\x00")
	writeProc(t, root, "7",
		"7 (kworker/0:1) I 2 0 0 0 -1 69238880 0 0 0 0 0 5 0 0 20 0 1 0 10 0 0",
		"Uid:\t0\t0\t0\t0\n",
		"")
	writeProc(t, root, "99", "99 (broken) S 1", "", "")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "self"), 0o755))

	return root
}

func TestProcFSScan(t *testing.T) {
	root := newProcRoot(t)
	src := source.NewProcFS(root)

	rows, err := src.Scan(context.Background(), source.Request{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.True(t, rows[0].IsSystem())
	idle, err := rows[0].Int(source.SystemIdle)
	require.NoError(t, err)
	assert.Equal(t, int64(450), idle)
	uptime, err := rows[0].Int(source.SystemUptime)
	require.NoError(t, err)
	assert.Equal(t, int64(621), uptime)

	byPID := map[string]source.Row{}
	for _, row := range rows[1:] {
		require.Len(t, row, source.NumFields)
		byPID[row.Field(source.FieldPID)] = row
	}

	daemon := byPID["42"]
	assert.Equal(t, "long-running-daemon", daemon.Field(source.FieldName))
	assert.Equal(t, "1000", daemon.Field(source.FieldUID))
	assert.Equal(t, "0", daemon.Field(source.FieldClass))
	assert.Equal(t, "120", daemon.Field(source.FieldUTime))
	assert.Equal(t, "30", daemon.Field(source.FieldSTime))
	assert.Equal(t, "4", daemon.Field(source.FieldCUTime))
	assert.Equal(t, "2", daemon.Field(source.FieldCSTime))
	assert.Equal(t, "5000", daemon.Field(source.FieldUptime))

	kthread := byPID["7"]
	assert.Equal(t, "kworker/0:1", kthread.Field(source.FieldName))
	assert.Equal(t, "0", kthread.Field(source.FieldUID))
}

func TestProcFSScanFiltered(t *testing.T) {
	root := newProcRoot(t)
	src := source.NewProcFS(root)

	cases := []struct {
		desc string
		req  source.Request
		pids []string
	}{
		{
			desc: "only listed processes",
			req:  source.Request{Filters: []source.Filter{{PID: 42, UID: 1000, Classification: 400}}},
			pids: []string{"42"},
		},
		{
			desc: "listed processes plus discovery",
			req:  source.Request{Filters: []source.Filter{{PID: 42, UID: 1000, Classification: 400}}, All: true},
			pids: []string{"42", "7"},
		},
		{
			desc: "listed process that does not exist",
			req:  source.Request{Filters: []source.Filter{{PID: 1234}}},
			pids: []string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			rows, err := src.Scan(context.Background(), tc.req)
			require.NoError(t, err)
			require.NotEmpty(t, rows)

			pids := []string{}
			for _, row := range rows[1:] {
				pids = append(pids, row.Field(source.FieldPID))
				if row.Field(source.FieldPID) == "42" {
					assert.Equal(t, "400", row.Field(source.FieldClass))
				}
			}
			assert.ElementsMatch(t, tc.pids, pids)
		})
	}
}

func TestProcFSNoDataSource(t *testing.T) {
	src := source.NewProcFS(filepath.Join(t.TempDir(), "missing"))

	rows, err := src.Scan(context.Background(), source.Request{})
	assert.Nil(t, rows)
	assert.True(t, errors.Is(err, source.ErrNoDataSource))
}

func TestProcFSCanceled(t *testing.T) {
	root := newProcRoot(t)
	src := source.NewProcFS(root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Scan(ctx, source.Request{})
	assert.ErrorIs(t, err, context.Canceled)
}
