package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/atp-accounts-cli/internal/domain"
)

func newSwitchCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <handle|did>",
		Short: "Switch the current session to a stored account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.manager.Load(cmd.Context()); err != nil {
				return err
			}

			roster := app.manager.Accounts()
			account, ok := findRosterAccount(roster, args[0])
			if !ok && (len(roster) == 0 || strings.HasPrefix(args[0], "did:")) {
				return fmt.Errorf("switch to %q: %w", args[0], domain.ErrAccountNotFound)
			}
			if !ok {
				// A handle may have changed since it was stored; its DID
				// is the stable key.
				did, resolveErr := app.resolver.ResolveHandle(cmd.Context(), app.defaultService, strings.TrimPrefix(args[0], "@"))
				if resolveErr != nil {
					return fmt.Errorf("switch to %q: %w", args[0], domain.ErrAccountNotFound)
				}
				account, ok = roster.Find(did)
				if !ok {
					return fmt.Errorf("switch to %q: %w", args[0], domain.ErrAccountNotFound)
				}
			}

			err := runNetworkSpinner(cmd.Context(), cmd.OutOrStdout(), "Switching account...", func(ctx context.Context) error {
				return app.manager.SelectAccount(ctx, account)
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

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Now using @%s (%s)\n", account.Handle, account.DID)
			return nil
		},
	}
}
