package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/routable/internal/web/router"
	"github.com/conduit-lang/routable/internal/web/server"
)

// NewListenCommand creates the listen command
func NewListenCommand() *cobra.Command {
	var (
		addr            string
		shutdownTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Serve record lookups over HTTP",
		Long: `Serve record lookups over HTTP.

Every GET request path is routed to its template and resolved against the
groups bound to it; the matched record is returned as JSON. Path maps are
available under /_routable/paths/<group> and the bound groups under
/_routable/groups.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				cfg := server.DefaultConfig(router.New(a.behavior, a.logger.Named("http")))
				cfg.Address = addr
				cfg.ShutdownTimeout = shutdownTimeout
				cfg.Logger = a.logger.Named("server")

				srv, err := server.New(cfg)
				if err != nil {
					return err
				}
				if err := srv.Listen(); err != nil {
					return err
				}

				successColor := color.New(color.FgGreen, color.Bold)
				if noColor {
					successColor.DisableColor()
				}
				successColor.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				return srv.Serve(ctx)
			})
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "Address to listen on")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "Time allowed for in-flight requests on shutdown")
	return cmd
}
