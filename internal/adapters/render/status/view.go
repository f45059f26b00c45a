package status

import (
	"fmt"
	"strings"

	"github.com/bnema/atp-accounts-cli/internal/application"
)

// RenderOptions tweak the roster view.
type RenderOptions struct {
	// ShowServices prints each account's service endpoint.
	ShowServices bool
}

func renderView(statuses []application.Status, opts RenderOptions, st styles) string {
	var b strings.Builder

	b.WriteString(st.title.Render("Accounts"))
	b.WriteString("\n")

	if len(statuses) == 0 {
		b.WriteString(st.empty.Render("no accounts yet, run `ap login`"))
		b.WriteString("\n")
		return b.String()
	}

	for _, status := range statuses {
		marker := "  "
		nameStyle := st.account
		if status.Current {
			marker = st.current.Render("▸ ")
			nameStyle = st.current
		}

		line := fmt.Sprintf("%s%s", marker, nameStyle.Render(status.Account.Handle))
		line += "  " + st.detail.Render(string(status.Account.DID))

		stateStyle := st.state
		if status.State == application.AccountStateDeactivated {
			stateStyle = st.warning
		}
		line += "  " + stateStyle.Render(string(status.State))

		b.WriteString(line)
		b.WriteString("\n")

		if opts.ShowServices {
			b.WriteString("    " + st.detail.Render(status.Account.Service))
			b.WriteString("\n")
		}
	}

	return b.String()
}
