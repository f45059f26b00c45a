package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/atp-accounts-cli/internal/application"
	"github.com/bnema/atp-accounts-cli/internal/domain"
)

func newLoginCmd(app *app) *cobra.Command {
	var (
		service    string
		identifier string
		password   string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to an account and make it current",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := app.manager.Load(cmd.Context()); err != nil {
				return err
			}

			var account domain.Account
			err := runNetworkSpinner(cmd.Context(), cmd.OutOrStdout(), "Signing in...", func(ctx context.Context) error {
				var loginErr error
				account, loginErr = app.manager.Login(ctx, application.LoginParams{
					Service:    service,
					Identifier: identifier,
					Password:   password,
				})
				return loginErr
			})
			if errors.Is(err, domain.ErrAborted) {
				return nil
			}
			if err != nil {
				return err
			}

			if err := app.manager.Flush(cmd.Context()); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Signed in as @%s (%s)\n", account.Handle, account.DID)
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", app.defaultService, "Service endpoint")
	cmd.Flags().StringVar(&identifier, "identifier", "", "Handle, email, or DID")
	cmd.Flags().StringVar(&password, "password", "", "Account or app password")
	_ = cmd.MarkFlagRequired("identifier")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
