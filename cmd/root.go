package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ap",
		Short:         "ATP Accounts CLI (ap): manage multi-account sessions",
		Long:          "ap (ATP Accounts CLI) keeps a roster of AT Protocol accounts, signs in and out, switches between stored sessions, and persists credentials across instances.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newAccountCmd(app),
		newSwitchCmd(app),
		newLogoutCmd(app),
		newSignoutCmd(app),
		newRefreshCmd(app),
		newStatusCmd(app),
	)

	return rootCmd
}
