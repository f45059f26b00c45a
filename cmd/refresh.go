package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/atp-accounts-cli/internal/domain"
)

func newRefreshCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force a credential rotation for the current account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			current, err := app.manager.Load(cmd.Context())
			if err != nil {
				return err
			}
			if current == nil {
				return fmt.Errorf("refresh: %w", domain.ErrNoSession)
			}

			var account domain.Account
			err = runNetworkSpinner(cmd.Context(), cmd.OutOrStdout(), "Refreshing session...", func(ctx context.Context) error {
				if initErr := app.manager.InitSession(ctx, *current); initErr != nil {
					return initErr
				}
				var refreshErr error
				account, refreshErr = app.manager.RefreshSession(ctx)
				return refreshErr
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

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Refreshed session for @%s\n", account.Handle)
			return nil
		},
	}
}
