package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/routable/internal/cli/ui"
	"github.com/conduit-lang/routable/internal/orm/query"
	"github.com/conduit-lang/routable/internal/routable"
)

// NewPathsCommand creates the paths command
func NewPathsCommand() *cobra.Command {
	return newMapCommand("paths", "Print the path of every record of a group", false)
}

// NewURLsCommand creates the urls command
func NewURLsCommand() *cobra.Command {
	return newMapCommand("urls", "Print the full URL of every record of a group", true)
}

func newMapCommand(use, short string, full bool) *cobra.Command {
	var where []string

	cmd := &cobra.Command{
		Use:   use + " <group>",
		Short: short,
		Long: fmt.Sprintf(`%s.

Records are read through the group scope. Additional conditions narrow the
set further, for example:

  routable %s FlagTree --where "flag = 1" --where "name LIKE 1.%%"`, short, use),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extra, err := parseWhere(where)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.group(cmd, args[0]); err != nil {
					return err
				}

				generate := a.behavior.GeneratePathMap
				if full {
					generate = a.behavior.GenerateURLMap
				}
				list, err := generate(ctx, args[0], extra)
				if err != nil {
					return err
				}
				renderPaths(cmd, list)
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, `Extra condition such as "flag = 1" (repeatable)`)
	return cmd
}

// parseWhere joins the --where expressions conjunctively
func parseWhere(exprs []string) (*query.PredicateGroup, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	pg := query.NewPredicateGroup(false)
	for _, expr := range exprs {
		cond, err := query.ParseCondition(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid --where %q: %w", expr, err)
		}
		pg.AddCondition(cond)
	}
	return pg, nil
}

func renderPaths(cmd *cobra.Command, list routable.PathList) {
	table := ui.NewTable(cmd.OutOrStdout(), noColor, "ID", "PATH")
	for _, entry := range list {
		id := fmt.Sprint(entry.ID)
		if entry.Path == nil {
			table.AddMissing(id, "(no route)")
			continue
		}
		table.AddRow(id, fmt.Sprint(entry.Path))
	}
	table.Render()
}
