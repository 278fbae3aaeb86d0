package badger_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/absmach/guardian/pkg/alert"
	"github.com/absmach/guardian/pkg/storage/badger"
	"github.com/absmach/guardian/pkg/storage/testutil"
	"github.com/absmach/guardian/pkg/threshold"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDB *badger.Database

func TestMain(m *testing.M) {
	tmpDir := os.TempDir()
	dbPath := filepath.Join(tmpDir, "badger_test_"+uuid.NewString())

	var err error
	testDB, err = badger.NewDatabase(dbPath)
	if err != nil {
		panic(err)
	}

	code := m.Run()

	testDB.Close()
	os.RemoveAll(dbPath)

	os.Exit(code)
}

func TestAlertRepository_Save(t *testing.T) {
	repo := badger.NewAlertRepository(testDB)
	ctx := context.Background()
	defer repo.Clear(ctx)

	now := time.Now()
	first := testutil.TestAlert("worker", now)
	first.PID = 10
	sibling := testutil.TestAlert("worker", now.Add(time.Second))
	sibling.PID = 11
	corrected := first
	corrected.Reasons = threshold.CPUOver
	noID := testutil.TestAlert("miner", now)
	noID.ID = ""

	cases := []struct {
		desc  string
		alert alert.Alert
		err   error
	}{
		{desc: "save new alert", alert: first},
		{desc: "keep alert of another process with the same name", alert: sibling},
		{desc: "save alert of another process", alert: testutil.TestAlert("indexer", now.Add(2*time.Second))},
		{desc: "update alert with the same id", alert: corrected},
		{desc: "save alert without process", alert: testutil.TestAlert("", now), err: badger.ErrEmptyName},
		{desc: "save alert without id", alert: noID, err: badger.ErrEmptyID},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := repo.Save(ctx, tc.alert)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	alerts, total, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	require.Len(t, alerts, 3)
	assert.Equal(t, "indexer", alerts[0].Process)
	assert.Equal(t, sibling.ID, alerts[1].ID)
	assert.Equal(t, int32(11), alerts[1].PID)
	assert.Equal(t, first.ID, alerts[2].ID)
	assert.True(t, alerts[2].CreatedAt.Equal(first.CreatedAt))
	assert.Equal(t, threshold.CPUOver, alerts[2].Reasons)
	assert.Equal(t, threshold.CPUOver|threshold.ActionNotified, alerts[0].Reasons)
}

func TestAlertRepository_List(t *testing.T) {
	repo := badger.NewAlertRepository(testDB)
	ctx := context.Background()
	defer repo.Clear(ctx)

	now := time.Now()
	names := []string{"a", "b", "c", "d", "e"}
	for i, name := range names {
		require.NoError(t, repo.Save(ctx, testutil.TestAlert(name, now.Add(time.Duration(i)*time.Minute))))
	}

	cases := []struct {
		desc     string
		offset   uint64
		limit    uint64
		expected []string
	}{
		{desc: "first page newest first", offset: 0, limit: 2, expected: []string{"e", "d"}},
		{desc: "second page", offset: 2, limit: 2, expected: []string{"c", "b"}},
		{desc: "last partial page", offset: 4, limit: 2, expected: []string{"a"}},
		{desc: "offset past the end", offset: 10, limit: 2, expected: []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			alerts, total, err := repo.List(ctx, tc.offset, tc.limit)
			require.NoError(t, err)
			assert.Equal(t, uint64(len(names)), total)

			got := []string{}
			for _, a := range alerts {
				got = append(got, a.Process)
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestAlertRepository_Clear(t *testing.T) {
	repo := badger.NewAlertRepository(testDB)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testutil.TestAlert("miner", time.Now())))
	require.NoError(t, repo.Clear(ctx))

	alerts, total, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, alerts)
}

func TestWhitelistRepository(t *testing.T) {
	repo := badger.NewWhitelistRepository(testDB)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "systemd"))
	require.NoError(t, repo.Add(ctx, "backup"))
	require.NoError(t, repo.Add(ctx, "backup"))
	assert.ErrorIs(t, repo.Add(ctx, ""), badger.ErrEmptyName)

	cases := []struct {
		desc string
		name string
		has  bool
	}{
		{desc: "listed process", name: "systemd", has: true},
		{desc: "unlisted process", name: "miner", has: false},
		{desc: "empty name", name: "", has: false},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			has, err := repo.Has(ctx, tc.name)
			require.NoError(t, err)
			assert.Equal(t, tc.has, has)
		})
	}

	names, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"backup", "systemd"}, names)

	require.NoError(t, repo.Remove(ctx, "backup"))
	require.NoError(t, repo.Remove(ctx, "systemd"))
	names, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}
