package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/routable/internal/cli/config"
	"github.com/conduit-lang/routable/internal/cli/ui"
	"github.com/conduit-lang/routable/internal/orm/query"
	"github.com/conduit-lang/routable/internal/orm/store"
	"github.com/conduit-lang/routable/internal/routable"
	"github.com/conduit-lang/routable/internal/routing"
)

// app is the wiring shared by the commands: configuration, database handle,
// route registry and the bound groups
type app struct {
	cfg      *config.Config
	db       *sql.DB
	routes   *routing.Registry
	behavior *routable.Behavior
	logger   *zap.Logger
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openApp loads the configuration and binds every configured group
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		ui.ConfigError(err, noColor).Write(cmd.ErrOrStderr())
		return nil, err
	}

	logger, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	resources, err := cfg.BuildResources()
	if err != nil {
		ui.ConfigError(err, noColor).Write(cmd.ErrOrStderr())
		return nil, err
	}
	routes, err := cfg.BuildRoutes()
	if err != nil {
		ui.ConfigError(err, noColor).Write(cmd.ErrOrStderr())
		return nil, err
	}

	db, err := sql.Open(cfg.Database.Driver, cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	st := store.NewSQLStore(db,
		store.WithPlaceholder(query.ParsePlaceholder(cfg.Database.Driver)),
		store.WithMaxDepth(cfg.MaxDepth),
		store.WithLogger(logger.Named("store")),
	)
	behavior := routable.New(resources, routes, st, routable.WithLogger(logger.Named("routable")))

	for _, gc := range cfg.Groups {
		if _, err := behavior.Setup(gc); err != nil {
			db.Close()
			ui.ConfigError(err, noColor).Write(cmd.ErrOrStderr())
			return nil, err
		}
	}

	return &app{cfg: cfg, db: db, routes: routes, behavior: behavior, logger: logger}, nil
}

func (a *app) Close() error {
	_ = a.logger.Sync()
	return a.db.Close()
}

// group checks that name is bound, printing suggestions when it is not
func (a *app) group(cmd *cobra.Command, name string) error {
	if _, err := a.behavior.Group(name); err != nil {
		if errors.Is(err, routable.ErrUnknownGroup) {
			ui.GroupNotFound(name, a.behavior.Groups(), noColor).Write(cmd.ErrOrStderr())
		}
		return err
	}
	return nil
}

// withApp runs fn with an opened app and closes it afterwards
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}
