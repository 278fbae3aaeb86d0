package cli

import (
	"github.com/spf13/cobra"
)

var (
	defOffset uint64 = 0
	defLimit  uint64 = 10
)

var alertsCmd = []cobra.Command{
	{
		Use:   "list",
		Short: "List alerts",
		Long:  `List alert history, newest first.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := gsdk.ListAlerts(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	},
	{
		Use:   "clear",
		Short: "Clear alerts",
		Long:  `Remove every alert from history.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := gsdk.ClearAlerts(); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	},
}

func NewAlertsCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "alerts [list|clear]",
		Short: "Alert history",
		Long:  `List and clear alert history.`,
	}

	for i := range alertsCmd {
		cmd.AddCommand(&alertsCmd[i])
	}

	cmd.PersistentFlags().Uint64VarP(
		&defOffset,
		"offset",
		"o",
		defOffset,
		"Offset",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defLimit,
		"limit",
		"l",
		defLimit,
		"Limit",
	)

	return &cmd
}
