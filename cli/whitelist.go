package cli

import (
	"github.com/spf13/cobra"
)

var whitelistCmd = []cobra.Command{
	{
		Use:   "list",
		Short: "List whitelist",
		Long:  `List process names exempt from monitoring.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			names, err := gsdk.Whitelist()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, names)
		},
	},
	{
		Use:   "add <name>",
		Short: "Add to whitelist",
		Long:  `Exempt a process name from monitoring.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := gsdk.AddWhitelist(args[0]); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	},
	{
		Use:   "remove <name>",
		Short: "Remove from whitelist",
		Long:  `Monitor a previously exempt process name again.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := gsdk.RemoveWhitelist(args[0]); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	},
}

func NewWhitelistCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "whitelist [list|add|remove]",
		Short: "Whitelist management",
		Long:  `List, add and remove whitelisted process names.`,
	}

	for i := range whitelistCmd {
		cmd.AddCommand(&whitelistCmd[i])
	}

	return &cmd
}
