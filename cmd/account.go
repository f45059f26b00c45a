package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/atp-accounts-cli/internal/application"
	"github.com/bnema/atp-accounts-cli/internal/domain"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the account roster",
	}

	cmd.AddCommand(
		newAccountListCmd(app),
		newAccountCreateCmd(app),
		newAccountRemoveCmd(app),
		newAccountLabelersCmd(app),
	)

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			current, err := app.manager.Load(cmd.Context())
			if err != nil {
				return err
			}

			for _, status := range markCurrent(application.StatusAll(app.manager), current) {
				marker := " "
				if status.Current {
					marker = "*"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\t%s\n", marker, status.Account.Handle, status.Account.DID, status.State)
			}

			return nil
		},
	}
}

func newAccountCreateCmd(app *app) *cobra.Command {
	var params application.CreateAccountParams

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new account and sign in to it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := app.manager.Load(cmd.Context()); err != nil {
				return err
			}

			var account domain.Account
			err := runNetworkSpinner(cmd.Context(), cmd.OutOrStdout(), "Creating account...", func(ctx context.Context) error {
				var createErr error
				account, createErr = app.manager.CreateAccount(ctx, params)
				return createErr
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

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created @%s (%s)\n", account.Handle, account.DID)
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Service, "service", app.defaultService, "Service endpoint")
	cmd.Flags().StringVar(&params.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&params.Password, "password", "", "Account password")
	cmd.Flags().StringVar(&params.Handle, "handle", "", "Desired handle")
	cmd.Flags().StringVar(&params.InviteCode, "invite", "", "Invite code")
	cmd.Flags().StringVar(&params.VerificationPhone, "phone", "", "Verification phone number")
	cmd.Flags().StringVar(&params.VerificationCode, "code", "", "Phone verification code")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("handle")

	return cmd
}

func newAccountRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <handle|did>",
		Short: "Remove a stored account from the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.manager.Load(cmd.Context()); err != nil {
				return err
			}

			account, ok := findRosterAccount(app.manager.Accounts(), args[0])
			if !ok {
				return fmt.Errorf("remove account %q: %w", args[0], domain.ErrAccountNotFound)
			}

			if err := app.manager.RemoveAccount(account); err != nil {
				return fmt.Errorf("remove account %q: %w", args[0], err)
			}

			if err := app.manager.Flush(cmd.Context()); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed @%s\n", account.Handle)
			return nil
		},
	}
}

func newAccountLabelersCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "labelers <handle|did> [labeler-did]...",
		Short: "Show or set the extra label sources applied when the account signs in",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.manager.Load(cmd.Context()); err != nil {
				return err
			}

			account, ok := findRosterAccount(app.manager.Accounts(), args[0])
			if !ok {
				return fmt.Errorf("account %q: %w", args[0], domain.ErrAccountNotFound)
			}

			if len(args) == 1 {
				sources, err := app.labelCache.LabelSources(cmd.Context(), account.DID)
				if err != nil {
					return fmt.Errorf("read label sources: %w", err)
				}
				for _, source := range sources {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(source))
				}
				return nil
			}

			sources := make([]domain.DID, 0, len(args)-1)
			for _, arg := range args[1:] {
				if !strings.HasPrefix(arg, "did:") {
					return fmt.Errorf("label source %q is not a DID", arg)
				}
				sources = append(sources, domain.DID(arg))
			}

			if err := app.labelCache.SaveLabelSources(cmd.Context(), account.DID, sources); err != nil {
				return fmt.Errorf("save label sources: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored %d label source(s) for @%s\n", len(sources), account.Handle)
			return nil
		},
	}
}

// findRosterAccount matches a roster entry by DID or by handle. Handles
// compare case-insensitively and tolerate a leading @.
func findRosterAccount(accounts domain.Roster, identifier string) (domain.Account, bool) {
	if strings.HasPrefix(identifier, "did:") {
		return accounts.Find(domain.DID(identifier))
	}

	handle := strings.ToLower(strings.TrimPrefix(identifier, "@"))
	for _, account := range accounts {
		if strings.ToLower(account.Handle) == handle {
			return account, true
		}
	}
	return domain.Account{}, false
}

// markCurrent flags the persisted current account in statuses produced
// without an active client.
func markCurrent(statuses []application.Status, current *domain.Account) []application.Status {
	if current == nil {
		return statuses
	}
	for i := range statuses {
		if statuses[i].Account.DID == current.DID {
			statuses[i].Current = true
		}
	}
	return statuses
}
