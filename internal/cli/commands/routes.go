package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/routable/internal/cli/ui"
)

// NewRoutesCommand creates the routes command
func NewRoutesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the connected route templates and the groups bound to them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(_ context.Context, a *app) error {
				bound := make(map[string][]string)
				for _, name := range a.behavior.Groups() {
					g, err := a.behavior.Group(name)
					if err != nil {
						return err
					}
					bound[g.Route.Pattern] = append(bound[g.Route.Pattern], name)
				}

				table := ui.NewTable(cmd.OutOrStdout(), noColor, "ROUTE", "GROUPS")
				for _, tpl := range a.routes.Routes() {
					groups := bound[tpl.Pattern]
					if len(groups) == 0 {
						table.AddMissing(tpl.Pattern, "-")
						continue
					}
					table.AddRow(tpl.Pattern, strings.Join(groups, ", "))
				}
				table.Render()
				return nil
			})
		},
	}
}
