package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/absmach/guardian/pkg/storage"
	"github.com/absmach/guardian/pkg/storage/testutil"
	"github.com/absmach/guardian/pkg/threshold"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRepositories(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		desc   string
		cfg    storage.Config
		closer bool
		err    error
	}{
		{desc: "memory", cfg: storage.Config{Type: "memory"}},
		{desc: "sqlite", cfg: storage.Config{Type: "sqlite", SQLitePath: filepath.Join(dir, "guardian.db")}, closer: true},
		{desc: "badger", cfg: storage.Config{Type: "badger", BadgerPath: filepath.Join(dir, "badger")}, closer: true},
		{desc: "unsupported", cfg: storage.Config{Type: "etcd"}, err: storage.ErrUnsupportedDBType},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			repos, err := storage.NewRepositories(tc.cfg)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.closer, repos.Closer != nil)

			ctx := context.Background()
			now := time.Now()
			require.NoError(t, repos.Alerts.Save(ctx, testutil.TestAlert("miner", now)))
			require.NoError(t, repos.Alerts.Save(ctx, testutil.TestAlert("indexer", now.Add(time.Second))))
			latest := testutil.TestAlert("miner", now.Add(2*time.Second))
			require.NoError(t, repos.Alerts.Save(ctx, latest))
			assert.ErrorIs(t, repos.Alerts.Save(ctx, testutil.TestAlert("", now)), storage.ErrEmptyName)
			noID := testutil.TestAlert("miner", now)
			noID.ID = ""
			assert.ErrorIs(t, repos.Alerts.Save(ctx, noID), storage.ErrEmptyID)

			alerts, total, err := repos.Alerts.List(ctx, 0, 10)
			require.NoError(t, err)
			assert.Equal(t, uint64(3), total)
			require.Len(t, alerts, 3)
			assert.Equal(t, []string{"miner", "indexer", "miner"}, []string{alerts[0].Process, alerts[1].Process, alerts[2].Process})

			latest.Reasons = threshold.CPUOver
			require.NoError(t, repos.Alerts.Save(ctx, latest))
			alerts, total, err = repos.Alerts.List(ctx, 0, 10)
			require.NoError(t, err)
			assert.Equal(t, uint64(3), total)
			require.Len(t, alerts, 3)
			assert.Equal(t, latest.ID, alerts[0].ID)
			assert.Equal(t, threshold.CPUOver, alerts[0].Reasons)

			require.NoError(t, repos.Whitelist.Add(ctx, "systemd"))
			has, err := repos.Whitelist.Has(ctx, "systemd")
			require.NoError(t, err)
			assert.True(t, has)
			require.NoError(t, repos.Whitelist.Remove(ctx, "systemd"))
			has, err = repos.Whitelist.Has(ctx, "systemd")
			require.NoError(t, err)
			assert.False(t, has)

			require.NoError(t, repos.Alerts.Clear(ctx))
			_, total, err = repos.Alerts.List(ctx, 0, 10)
			require.NoError(t, err)
			assert.Zero(t, total)

			if repos.Closer != nil {
				require.NoError(t, repos.Closer.Close())
			}
		})
	}
}

func TestMemoryAlertPagination(t *testing.T) {
	repos, err := storage.NewRepositories(storage.Config{Type: "memory"})
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Now()
	for i, name := range []string{"a", "b", "c"} {
		require.NoError(t, repos.Alerts.Save(ctx, testutil.TestAlert(name, now.Add(time.Duration(i)*time.Second))))
	}

	cases := []struct {
		desc     string
		offset   uint64
		limit    uint64
		expected []string
	}{
		{desc: "all newest first", offset: 0, limit: 10, expected: []string{"c", "b", "a"}},
		{desc: "middle", offset: 1, limit: 1, expected: []string{"b"}},
		{desc: "past the end", offset: 3, limit: 1, expected: []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			alerts, total, err := repos.Alerts.List(ctx, tc.offset, tc.limit)
			require.NoError(t, err)
			assert.Equal(t, uint64(3), total)

			got := []string{}
			for _, a := range alerts {
				got = append(got, a.Process)
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}
