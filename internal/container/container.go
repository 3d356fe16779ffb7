package container

import (
	"context"
	"fmt"
	"os"

	"phaengine/adapters/postgres"
	"phaengine/adapters/sqlite"
	"phaengine/app"
	"phaengine/domain/quantity"
	"phaengine/internal"
	"phaengine/internal/config"
	"phaengine/internal/errors"
	"phaengine/internal/testkit"
	"phaengine/ports"
)

// Container holds the application's dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Log    *internal.Logger

	store ports.QuantityStore
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{
		Config: cfg,
		Log:    internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)),
	}, nil
}

// NewEnv builds a fresh engine environment from the configured settings,
// extended by UNIT_CATALOG when set. Every loaded workspace gets its own.
func (c *Container) NewEnv() (*quantity.Env, error) {
	env := quantity.BuildEnv(c.Config.Settings(), c.Log)
	if path := c.Config.Paths.UnitCatalog; path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open unit catalogue")
		}
		defer f.Close()
		if err := env.Units.LoadCatalog(f); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, err)
		}
	}
	return env, nil
}

// Display returns the display options with the configured bounds.
func (c *Container) Display() app.DisplayOptions {
	opts := app.DefaultDisplayOptions()
	opts.SciUpper, opts.SciLower = c.Config.SciBounds()
	return opts
}

// Store opens the configured workspace store on first use. DATABASE_URL
// selects PostgreSQL, otherwise SQLITE_PATH selects SQLite.
func (c *Container) Store(ctx context.Context) (ports.QuantityStore, error) {
	if c.store != nil {
		return c.store, nil
	}
	s := c.Config.Storage
	switch {
	case s.DatabaseURL != "":
		pg, err := postgres.Open(ctx, s.DatabaseURL)
		if err != nil {
			return nil, err
		}
		c.store = pg
	case s.SQLitePath != "":
		lite, err := sqlite.Open(ctx, s.SQLitePath, c.Log)
		if err != nil {
			return nil, err
		}
		c.store = lite
	default:
		return nil, errors.ConfigInvalid("DATABASE_URL or SQLITE_PATH is required")
	}
	return c.store, nil
}

// StoreService wraps the configured store.
func (c *Container) StoreService(ctx context.Context) (*app.StoreService, error) {
	store, err := c.Store(ctx)
	if err != nil {
		return nil, err
	}
	return app.NewStoreService(store, c.Log), nil
}

// OpenFile loads a workspace file into a fresh environment.
func (c *Container) OpenFile(path string) (*app.Workspace, error) {
	doc, err := app.ReadWorkspaceFile(path)
	if err != nil {
		return nil, err
	}
	env, err := c.NewEnv()
	if err != nil {
		return nil, err
	}
	return app.LoadWorkspace(env, doc, c.Log)
}

// Workspace resolves the workspace to serve: WORKSPACE_FILE when set, then
// the named document from the store, then the built-in demo.
func (c *Container) Workspace(ctx context.Context, name string) (*app.Workspace, error) {
	if path := c.Config.Paths.WorkspaceFile; path != "" {
		return c.OpenFile(path)
	}
	if name != "" {
		svc, err := c.StoreService(ctx)
		if err != nil {
			return nil, err
		}
		env, err := c.NewEnv()
		if err != nil {
			return nil, err
		}
		return svc.Open(ctx, name, env)
	}
	c.Log.Warn("no workspace configured, serving the demo workspace")
	d, err := testkit.NewDemo(c.Log)
	if err != nil {
		return nil, err
	}
	return d.Workspace, nil
}

// Shutdown releases the store.
func (c *Container) Shutdown(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}
