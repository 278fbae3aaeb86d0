package main

import (
	"log"

	"github.com/absmach/guardian/cli"
	"github.com/absmach/guardian/pkg/sdk"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "guardian-cli",
		Short: "Guardian CLI",
		Long:  `Guardian CLI is a command line interface for controlling the Guardian monitor.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				GuardianURL:     cli.DefGuardianURL,
				TLSVerification: cli.DefTLSVerification,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetSDK(s)
		},
	}

	rootCmd.AddCommand(cli.NewMonitorCmds()...)
	rootCmd.AddCommand(
		cli.NewAlertsCmd(),
		cli.NewWhitelistCmd(),
		cli.NewLocksCmd(),
	)

	rootCmd.PersistentFlags().StringVarP(
		&cli.DefGuardianURL,
		"guardian-url",
		"g",
		cli.DefGuardianURL,
		"Guardian URL",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&cli.DefTLSVerification,
		"tls-verification",
		"v",
		cli.DefTLSVerification,
		"TLS Verification",
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
