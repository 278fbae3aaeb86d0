//go:build linux

package privilege_test

import (
	"context"
	"errors"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/absmach/guardian/pkg/privilege"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellSessionKill(t *testing.T) {
	target := exec.Command("sleep", "30")
	require.NoError(t, target.Start())

	opener := privilege.NewShellOpener("/bin/sh", nil)
	session, err := opener.Open(context.Background())
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Kill(context.Background(), int32(target.Process.Pid)))

	err = target.Wait()
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	assert.Equal(t, syscall.SIGKILL, status.Signal())
}

func TestShellSessionErrors(t *testing.T) {
	cases := []struct {
		desc string
		run  func(t *testing.T) error
		err  error
	}{
		{
			desc: "missing shell",
			run: func(t *testing.T) error {
				_, err := privilege.NewShellOpener("/nonexistent/shell", nil).Open(context.Background())
				return err
			},
			err: privilege.ErrOpen,
		},
		{
			desc: "shell that exits immediately",
			run: func(t *testing.T) error {
				_, err := privilege.NewShellOpener("/bin/false", nil).Open(context.Background())
				return err
			},
			err: privilege.ErrOpen,
		},
		{
			desc: "failing command",
			run: func(t *testing.T) error {
				session, err := privilege.NewShellOpener("/bin/sh", nil).Open(context.Background())
				require.NoError(t, err)
				defer session.Close()

				// Above any pid_max, so kill reports no such process.
				return session.Kill(context.Background(), 2147483647)
			},
			err: privilege.ErrCommand,
		},
		{
			desc: "closed session",
			run: func(t *testing.T) error {
				session, err := privilege.NewShellOpener("/bin/sh", nil).Open(context.Background())
				require.NoError(t, err)
				require.NoError(t, session.Close())
				require.NoError(t, session.Close())

				return session.Kill(context.Background(), 1)
			},
			err: privilege.ErrSessionClosed,
		},
		{
			desc: "canceled context",
			run: func(t *testing.T) error {
				session, err := privilege.NewShellOpener("/bin/sh", nil).Open(context.Background())
				require.NoError(t, err)
				defer session.Close()

				ctx, cancel := context.WithCancel(context.Background())
				cancel()

				return session.Kill(ctx, 1)
			},
			err: context.Canceled,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.ErrorIs(t, tc.run(t), tc.err)
		})
	}
}

func TestShellOpenDeadline(t *testing.T) {
	cases := []struct {
		desc    string
		opener  func() *privilege.ShellOpener
		timeout time.Duration
	}{
		{
			desc:    "context deadline",
			opener:  func() *privilege.ShellOpener { return privilege.NewShellOpener("sleep", nil, "3") },
			timeout: 200 * time.Millisecond,
		},
		{
			desc: "opener timeout",
			opener: func() *privilege.ShellOpener {
				o := privilege.NewShellOpener("sleep", nil, "3")
				o.Timeout = 200 * time.Millisecond

				return o
			},
			timeout: time.Minute,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), tc.timeout)
			defer cancel()

			start := time.Now()
			_, err := tc.opener().Open(ctx)
			assert.ErrorIs(t, err, privilege.ErrOpen)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
			assert.Less(t, time.Since(start), 2*time.Second)
		})
	}
}
