package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var locksCmd = []cobra.Command{
	{
		Use:   "list",
		Short: "List locks",
		Long:  `List wake lock accounting per process.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			records, err := gsdk.Locks()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, records)
		},
	},
	{
		Use:   "release <pid>",
		Short: "Release locks",
		Long:  `Ask the lock service to release every lock held by a process.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			pid, err := strconv.ParseInt(args[0], 10, 32)
			if err != nil || pid <= 0 {
				logErrorCmd(*cmd, fmt.Errorf("invalid pid %q", args[0]))

				return
			}

			if err := gsdk.ReleaseLocks(int32(pid)); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	},
}

func NewLocksCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "locks [list|release]",
		Short: "Lock accounting",
		Long:  `List lock accounting and release locks held by a process.`,
	}

	for i := range locksCmd {
		cmd.AddCommand(&locksCmd[i])
	}

	return &cmd
}
