// Package cli implements the schemagraph command-line interface.
//
// The CLI reads database connections and defaults from the config file
// (see [config.Load]), builds diagrams through the shared pipeline, and
// offers an interactive terminal viewer on top of a [session.Session].
//
// # Commands
//
//   - render: Generate a diagram and export it to SVG, PNG, PDF, DOT or JSON
//   - inspect: Print tables, relationships, layers and foreign-key cycles
//   - view: Explore a diagram interactively in the terminal
//   - configs: List, show and delete saved diagrams
//   - serve: Run the HTTP API
//   - cache: Manage the layout and artifact cache
//
// # Connections
//
// Commands take a connection id from the config file. A path to a .toml or
// .json catalog file works too, so small schemas can be drawn without any
// configuration:
//
//	schemagraph render examples/shop.toml -f svg,png
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/schemagraph/pkg/buildinfo"
	"github.com/matzehuels/schemagraph/pkg/cache"
	"github.com/matzehuels/schemagraph/pkg/config"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/observability"
	"github.com/matzehuels/schemagraph/pkg/persist"
	"github.com/matzehuels/schemagraph/pkg/pipeline"
	"github.com/matzehuels/schemagraph/pkg/schema"
	"github.com/matzehuels/schemagraph/pkg/schema/catalog"
	"github.com/matzehuels/schemagraph/pkg/schema/postgres"
	"github.com/matzehuels/schemagraph/pkg/schema/sqlite"
	"github.com/matzehuels/schemagraph/pkg/storage"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "schemagraph"

	// defaultSchema is used for postgres and catalog connections when no
	// --schema flag is given.
	defaultSchema = "public"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	noCache    bool
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Schemagraph draws and explores entity-relationship diagrams",
		Long:         `Schemagraph reads table, column and foreign-key metadata from PostgreSQL, SQLite or a catalog file, lays the tables out as a diagram and exports it or opens it in an interactive terminal viewer.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/schemagraph/config.toml)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the layout and artifact cache")

	// Register all subcommands
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.configsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config loads the configuration once per process.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// =============================================================================
// Connections
// =============================================================================

// newRegistry builds a schema registry over the configured connections
// with the postgres, sqlite and catalog drivers registered.
func newRegistry(cfg *config.Config) (*schema.Registry, error) {
	reg := schema.NewRegistry()
	reg.RegisterDriver(config.DriverPostgres, postgres.New(reg))
	reg.RegisterDriver(config.DriverSQLite, sqlite.New(reg))
	reg.RegisterDriver(config.DriverCatalog, catalog.NewSource(reg))

	for _, conn := range cfg.ConnectionList() {
		if err := reg.AddConnection(conn); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// isCatalogPath reports whether arg names a catalog file rather than a
// configured connection.
func isCatalogPath(arg string) bool {
	ext := strings.ToLower(filepath.Ext(arg))
	if ext != ".toml" && ext != ".json" {
		return false
	}
	info, err := os.Stat(arg)
	return err == nil && !info.IsDir()
}

// resolveConnection returns the connection id for arg, registering an ad
// hoc catalog connection when arg is a catalog file.
func resolveConnection(reg *schema.Registry, arg string) (schema.Connection, error) {
	if !isCatalogPath(arg) {
		conn, ok := reg.Connection(arg)
		if !ok {
			return conn, schema.ErrUnknownConnection
		}
		return conn, nil
	}

	id := strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
	id = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, id)
	if id == "" || id[0] == '_' || id[0] == '-' {
		id = "catalog" + id
	}

	conn := schema.Connection{ID: id, Driver: config.DriverCatalog, DSN: arg}
	return conn, reg.AddConnection(conn)
}

// defaultSchemas returns the schema list used when none was requested.
func defaultSchemas(conn schema.Connection) []string {
	if conn.Driver == config.DriverSQLite {
		return []string{sqlite.MainSchema}
	}
	return []string{defaultSchema}
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. Cache keys are scoped
// by connection.
func (c *CLI) newRunner(cfg *config.Config, src schema.Source, connID string) (*pipeline.Runner, error) {
	ch, err := c.newCache(cfg)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(src, ch, cache.NewScopedKeyer(nil, cache.ConnectionScope(connID)), c.Logger)
	r.Hooks = observability.Logging(c.Logger)
	return r, nil
}

func (c *CLI) newCache(cfg *config.Config) (cache.Cache, error) {
	if c.noCache || !cfg.Cache.Enabled {
		return cache.NewNullCache(), nil
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// openRepository opens the configured diagram store.
func (c *CLI) openRepository(ctx context.Context, cfg *config.Config) (*persist.Repository, error) {
	store, err := storage.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return nil, err
	}
	return persist.New(store, persist.WithHooks(observability.Logging(c.Logger).Storage)), nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/schemagraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.DefaultFormat}
	}
	return strings.Split(s, ",")
}

// =============================================================================
// Workspace - per-command connection state
// =============================================================================

// workspace bundles what a command needs to build diagrams for one
// connection.
type workspace struct {
	cfg    *config.Config
	reg    *schema.Registry
	conn   schema.Connection
	runner *pipeline.Runner
}

// open resolves arg to a connection and builds a runner for it.
func (c *CLI) open(arg string) (*workspace, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := resolveConnection(reg, arg)
	if err != nil {
		reg.Close()
		return nil, errors.Wrap(errors.ErrCodeUnknownConnection, err, "connection %q", arg)
	}
	runner, err := c.newRunner(cfg, reg, conn.ID)
	if err != nil {
		reg.Close()
		return nil, err
	}
	return &workspace{cfg: cfg, reg: reg, conn: conn, runner: runner}, nil
}

// Close releases the runner's cache and the database pools.
func (w *workspace) Close() error {
	return stderrors.Join(w.runner.Close(), w.reg.Close())
}
