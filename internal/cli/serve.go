package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/schemagraph/pkg/cache"
	"github.com/matzehuels/schemagraph/pkg/config"
	"github.com/matzehuels/schemagraph/pkg/observability"
	"github.com/matzehuels/schemagraph/pkg/pipeline"
	"github.com/matzehuels/schemagraph/pkg/server"
)

// serveCommand creates the serve command, which runs the HTTP API over
// every configured connection.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Example: `  schemagraph serve
  SCHEMAGRAPH_SERVER_ADDR=:9000 schemagraph serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, "+config.DefaultAddr+")")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if addr == "" {
		addr = config.DefaultAddr
	}

	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	defer reg.Close()

	ch, err := c.newCache(cfg)
	if err != nil {
		return err
	}
	// Keys hash the diagram content, so one keyer serves all connections.
	runner := pipeline.NewRunner(reg, ch, cache.NewDefaultKeyer(), c.Logger)
	runner.Hooks = observability.Logging(c.Logger)
	defer runner.Close()

	repo, err := c.openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	srv := server.New(runner, repo,
		server.WithLogger(c.Logger),
		server.WithDefaults(cfg.Defaults.DiagramOptions()),
	)

	printSuccess("Listening on http://%s", addr)
	printDetail("%d connection(s), storage %s", len(reg.Connections()), cfg.StoreConfig().Backend)
	return srv.ListenAndServe(ctx, addr)
}
