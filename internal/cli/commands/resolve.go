package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/routable/internal/cli/ui"
	"github.com/conduit-lang/routable/internal/routable"
)

// ErrNoRoute is returned when a path resolves to no record
var ErrNoRoute = errors.New("no route")

// NewResolveCommand creates the resolve command
func NewResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <group> <path>",
		Short: "Find the record of a group a path was generated from",
		Example: `  routable resolve FlagTree "/1.%20Root/1.1"
  routable resolve Advertisement "/2007/3/18/First Ad/1"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.group(cmd, args[0]); err != nil {
					return err
				}
				record, ok, err := a.behavior.ResolveRecord(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if !ok {
					ui.NoRoute(args[0], args[1], noColor).Write(cmd.ErrOrStderr())
					return ErrNoRoute
				}
				renderRecord(cmd, args[0], record)
				return nil
			})
		},
	}
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve <path>",
		Short: "Route a path to its template and resolve it against the bound groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				match, ok, err := a.behavior.Serve(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					ui.NoRoute("routed", args[0], noColor).Write(cmd.ErrOrStderr())
					return ErrNoRoute
				}
				renderRecord(cmd, match.Group, match.Record)
				return nil
			})
		},
	}
}

func renderRecord(cmd *cobra.Command, group string, record routable.Record) {
	pairs := [][2]string{{"group", group}}

	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, fmt.Sprint(record[k])})
	}
	ui.KeyValue(cmd.OutOrStdout(), noColor, pairs...)
}
