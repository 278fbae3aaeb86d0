package cli

import (
	"github.com/absmach/guardian/pkg/sdk"
	"github.com/spf13/cobra"
)

var (
	DefTLSVerification = false
	DefGuardianURL     = "http://localhost:7070"
)

var gsdk sdk.SDK

func SetSDK(s sdk.SDK) {
	gsdk = s
}

func statusCmd(use, short string, fn func() (sdk.Status, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  short + ".",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			status, err := fn()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, status)
		},
	}
}

func NewMonitorCmds() []*cobra.Command {
	processesCmd := &cobra.Command{
		Use:   "processes",
		Short: "Show the last monitoring cycle",
		Long:  `Show per process CPU usage, candidates and alerts of the last monitoring cycle.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			snap, err := gsdk.Processes()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, snap)
		},
	}

	pauseCmd := &cobra.Command{
		Use:   "pause <reason>",
		Short: "Pause monitoring",
		Long: `Hold monitoring cycles until the reason is released.

Examples:
  # Pause monitoring during a system upgrade
  guardian-cli pause upgrade`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			status, err := gsdk.Pause(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, status)
		},
	}

	resumeCmd := &cobra.Command{
		Use:   "resume <reason>",
		Short: "Resume monitoring",
		Long:  `Release a pause reason. Monitoring resumes once no reason is held.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			status, err := gsdk.Resume(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, status)
		},
	}

	return []*cobra.Command{
		statusCmd("state", "Show monitor state", func() (sdk.Status, error) { return gsdk.State() }),
		statusCmd("start", "Start monitor", func() (sdk.Status, error) { return gsdk.Start() }),
		statusCmd("stop", "Stop monitor", func() (sdk.Status, error) { return gsdk.Stop() }),
		statusCmd("restart", "Restart monitor", func() (sdk.Status, error) { return gsdk.Restart() }),
		processesCmd,
		pauseCmd,
		resumeCmd,
	}
}
