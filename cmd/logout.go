package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd(app *app) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out everywhere and clear every stored credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := app.manager.Load(cmd.Context()); err != nil {
				return err
			}

			app.manager.Logout(cmd.Context(), reason)

			if err := app.manager.Flush(cmd.Context()); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Signed out of all accounts")
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "user request", "Reason recorded in the log")

	return cmd
}

func newSignoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out of the current account, keeping its stored credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			current, err := app.manager.Load(cmd.Context())
			if err != nil {
				return err
			}
			if current == nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No current account")
				return nil
			}

			app.manager.ClearCurrentAccount()

			if err := app.manager.Flush(cmd.Context()); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Signed out of @%s\n", current.Handle)
			return nil
		},
	}
}
