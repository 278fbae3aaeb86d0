package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/absmach/guardian/pkg/alert"
	"github.com/absmach/guardian/pkg/storage/postgres"
	"github.com/absmach/guardian/pkg/storage/testutil"
	"github.com/absmach/guardian/pkg/threshold"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDB *postgres.Database

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not connect to docker: %s", err)
	}

	container, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16.2-alpine",
		Env: []string{
			"POSTGRES_USER=test",
			"POSTGRES_PASSWORD=test",
			"POSTGRES_DB=test",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start container: %s", err)
	}

	port := container.GetPort("5432/tcp")

	pool.MaxWait = 120 * time.Second
	if err := pool.Retry(func() error {
		url := fmt.Sprintf("host=localhost port=%s user=test dbname=test password=test sslmode=disable", port)
		db, err := sql.Open("pgx", url)
		if err != nil {
			return err
		}
		defer db.Close()

		return db.Ping()
	}); err != nil {
		log.Fatalf("Could not connect to docker: %s", err)
	}

	testDB, err = postgres.NewDatabase("localhost", port, "test", "test", "test", "disable")
	if err != nil {
		log.Fatalf("Could not setup test DB connection: %s", err)
	}

	code := m.Run()

	testDB.Close()
	if err := pool.Purge(container); err != nil {
		log.Fatalf("Could not purge container: %s", err)
	}

	os.Exit(code)
}

func TestAlertRepository_Save(t *testing.T) {
	repo := postgres.NewAlertRepository(testDB)
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
		{desc: "save alert without process", alert: testutil.TestAlert("", now), err: postgres.ErrEmptyName},
		{desc: "save alert without id", alert: noID, err: postgres.ErrEmptyID},
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
	repo := postgres.NewAlertRepository(testDB)
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
	repo := postgres.NewAlertRepository(testDB)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testutil.TestAlert("miner", time.Now())))
	require.NoError(t, repo.Clear(ctx))

	alerts, total, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, alerts)
}

func TestWhitelistRepository(t *testing.T) {
	repo := postgres.NewWhitelistRepository(testDB)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "systemd"))
	require.NoError(t, repo.Add(ctx, "backup"))
	require.NoError(t, repo.Add(ctx, "backup"))
	assert.ErrorIs(t, repo.Add(ctx, ""), postgres.ErrEmptyName)

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
