package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	statusadapter "github.com/bnema/atp-accounts-cli/internal/adapters/render/status"
	"github.com/bnema/atp-accounts-cli/internal/application"
)

func newStatusCmd(app *app) *cobra.Command {
	var (
		asJSON       bool
		showServices bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the account roster and the current account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			current, err := app.manager.Load(cmd.Context())
			if err != nil {
				return err
			}

			statuses := markCurrent(application.StatusAll(app.manager), current)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(redactStatuses(statuses))
			}

			rendered, err := app.statusRenderer(statuses, statusadapter.RenderOptions{
				ShowServices: showServices,
			})
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showServices, "services", false, "Show service endpoints")

	return cmd
}

// redactStatuses strips credentials before they reach stdout.
func redactStatuses(statuses []application.Status) []application.Status {
	redacted := make([]application.Status, len(statuses))
	for i, status := range statuses {
		status.Account = status.Account.WithoutCredentials()
		redacted[i] = status
	}
	return redacted
}
