package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/matzehuels/schemagraph/pkg/config"
	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/export"
	"github.com/matzehuels/schemagraph/pkg/pipeline"
	"github.com/matzehuels/schemagraph/pkg/schema"
)

// watchDebounce coalesces bursts of editor writes into one re-render.
const watchDebounce = 200 * time.Millisecond

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output       string   // output file (single format) or base path (multiple)
	formats      []string // svg, png, pdf, dot, json
	schemas      []string // schemas to include; default depends on the driver
	include      []string // table name globs to keep
	exclude      []string // table name globs to drop
	layout       string   // layout algorithm
	columns      string   // all, pkfk, none
	indexes      bool     // draw index rows
	noTypes      bool     // hide data types
	scale        float64  // PNG scale factor
	padding      float64  // padding around the content
	edgeLabels   bool     // label relationship edges
	grid         bool     // draw the background grid
	noBackground bool     // transparent background
	configID     string   // saved diagram whose layout to reuse
	refresh      bool     // bypass the cache
	watch        bool     // re-render when a catalog file changes
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [connection|catalog-file]",
		Short: "Render a schema diagram to SVG, PNG, PDF, DOT or JSON",
		Long: `Render fetches table metadata, lays the tables out and writes one file per format.

The argument is either a connection id from the config file or the path to a
.toml or .json catalog file.`,
		Example: `  schemagraph render shop -f svg,png
  schemagraph render examples/shop.toml --layout force -o shop.svg
  schemagraph render warehouse --schema sales --schema billing --exclude 'tmp_*'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, pdf, dot, json (comma-separated)")
	cmd.Flags().StringSliceVarP(&opts.schemas, "schema", "s", nil, "schema to include (repeatable)")
	cmd.Flags().StringSliceVar(&opts.include, "include", nil, "only tables matching these globs")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "skip tables matching these globs")
	cmd.Flags().StringVarP(&opts.layout, "layout", "l", "", "layout algorithm: hierarchical, force, grid, circular")
	cmd.Flags().StringVar(&opts.columns, "columns", "", "columns to show: all, pkfk, none")
	cmd.Flags().BoolVar(&opts.indexes, "indexes", false, "show index rows")
	cmd.Flags().BoolVar(&opts.noTypes, "no-types", false, "hide column data types")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "PNG scale factor")
	cmd.Flags().Float64Var(&opts.padding, "padding", 0, "padding around the diagram")
	cmd.Flags().BoolVar(&opts.edgeLabels, "edge-labels", false, "label relationship edges")
	cmd.Flags().BoolVar(&opts.grid, "grid", false, "draw the background grid")
	cmd.Flags().BoolVar(&opts.noBackground, "no-background", false, "transparent background")
	cmd.Flags().StringVar(&opts.configID, "config-id", "", "reuse the layout of a saved diagram")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached layouts and exports")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-render when the catalog file changes")

	return cmd
}

// runRender renders once, then keeps re-rendering on file changes when
// --watch is set.
func (c *CLI) runRender(ctx context.Context, arg string, opts *renderOpts) error {
	ws, err := c.open(arg)
	if err != nil {
		return err
	}
	defer ws.Close()

	popts, err := c.pipelineOptions(ctx, ws.cfg, ws.conn, opts)
	if err != nil {
		return err
	}

	base := basePath(opts.output, arg)
	if err := c.renderOnce(ctx, ws.runner, popts, base); err != nil {
		return err
	}
	if !opts.watch {
		printNewline()
		printNextStep("Explore interactively", "schemagraph view "+arg)
		return nil
	}
	if ws.conn.Driver != config.DriverCatalog {
		return errors.New(errors.ErrCodeUnsupported, "--watch needs a catalog connection, %q uses %s", ws.conn.ID, ws.conn.Driver)
	}
	path, err := ws.reg.DSN(ctx, ws.conn.ID)
	if err != nil {
		return err
	}
	return watchFile(ctx, path, func() {
		popts.Refresh = true
		if err := c.renderOnce(ctx, ws.runner, popts, base); err != nil {
			printError("%v", err)
		}
	})
}

// pipelineOptions merges flags, config defaults and an optional saved
// diagram into pipeline options.
func (c *CLI) pipelineOptions(ctx context.Context, cfg *config.Config, conn schema.Connection, opts *renderOpts) (pipeline.Options, error) {
	display := cfg.Defaults.DiagramOptions()
	algorithm := cfg.Defaults.Layout
	popts := pipeline.Options{
		ConnectionID: conn.ID,
		Schemas:      opts.schemas,
		Include:      opts.include,
		Exclude:      opts.exclude,
	}

	if opts.configID != "" {
		saved, err := c.loadSaved(ctx, cfg, opts.configID)
		if err != nil {
			return popts, err
		}
		if saved.ConnectionID != conn.ID {
			return popts, errors.New(errors.ErrCodeInvalidInput, "diagram %s belongs to connection %q", saved.ID, saved.ConnectionID)
		}
		display = saved.Options
		algorithm = saved.Layout.Algorithm
		popts.Positions = saved.Layout.NodePositions
		if len(popts.Schemas) == 0 {
			popts.Schemas = saved.Schemas
		}
		if len(popts.Include) == 0 {
			popts.Include = saved.Include
		}
		if len(popts.Exclude) == 0 {
			popts.Exclude = saved.Exclude
		}
	}

	if opts.columns != "" {
		cd, err := diagram.ParseColumnDisplay(opts.columns)
		if err != nil {
			return popts, errors.Wrap(errors.ErrCodeInvalidInput, err, "--columns")
		}
		display.ColumnDisplay = cd
	}
	if opts.indexes {
		display.ShowIndexes = true
	}
	if opts.noTypes {
		display.ShowDataTypes = false
	}
	if opts.layout != "" {
		algorithm = opts.layout
	}
	if len(popts.Schemas) == 0 {
		popts.Schemas = defaultSchemas(conn)
	}

	popts.Display = &display
	popts.Algorithm = algorithm
	popts.Formats = opts.formats
	popts.Scale = opts.scale
	popts.Padding = opts.padding
	popts.EdgeLabels = opts.edgeLabels
	popts.Grid = opts.grid
	popts.NoBackground = opts.noBackground
	popts.Refresh = opts.refresh
	popts.Logger = c.Logger
	return popts, nil
}

// loadSaved fetches a saved diagram by id.
func (c *CLI) loadSaved(ctx context.Context, cfg *config.Config, id string) (diagram.Config, error) {
	repo, err := c.openRepository(ctx, cfg)
	if err != nil {
		return diagram.Config{}, err
	}
	defer repo.Close()

	saved, found, err := repo.Load(ctx, id)
	if err != nil {
		return saved, err
	}
	if !found {
		return saved, errors.New(errors.ErrCodeNotFound, "no saved diagram %q", id)
	}
	return saved, nil
}

// renderOnce runs the pipeline and writes every artifact next to base.
func (c *CLI) renderOnce(ctx context.Context, runner *pipeline.Runner, popts pipeline.Options, base string) error {
	prog := newProgress(c.Logger)
	bar := newFetchBar(os.Stderr)
	popts.Progress = bar.update

	result, err := runner.Execute(ctx, popts)
	bar.finish()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %d tables", result.Stats.TableCount))
	printStats(result.Stats.TableCount, result.Stats.EdgeCount, result.CacheInfo.LayoutHit)

	for _, name := range popts.Formats {
		f, err := export.ParseFormat(name)
		if err != nil {
			return err
		}
		data, ok := result.Artifacts[string(f)]
		if !ok {
			continue
		}
		path := base + f.Extension()
		if err := writeOutput(path, data); err != nil {
			return err
		}
		printFile(path)
	}
	return nil
}

// basePath derives the base output path from the output flag and the
// command argument. Known format extensions are stripped from output.
func basePath(output, arg string) string {
	if output == "" {
		name := filepath.Base(arg)
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	ext := filepath.Ext(output)
	if _, err := export.ParseFormat(strings.TrimPrefix(ext, ".")); err == nil {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// writeOutput writes data to path, creating parent directories.
func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// =============================================================================
// Fetch Progress
// =============================================================================

// fetchBar shows a progress bar while table metadata is fetched. The bar
// is created on the first update, once the table count is known.
type fetchBar struct {
	mu  sync.Mutex
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newFetchBar(w io.Writer) *fetchBar {
	return &fetchBar{w: w}
}

// update implements schema.ProgressFunc.
func (b *fetchBar) update(done, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar == nil {
		b.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(b.w),
			progressbar.OptionSetDescription("Fetching tables"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = b.bar.Set(done)
}

func (b *fetchBar) finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		_ = b.bar.Finish()
	}
}

// =============================================================================
// Watch Mode
// =============================================================================

// watchFile calls fn after path is written, until ctx is cancelled. The
// parent directory is watched so editors that replace the file on save
// are still seen.
func watchFile(ctx context.Context, path string, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	printInfo("Watching %s (Ctrl+C to stop)", path)

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			fn()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			loggerFromContext(ctx).Warnf("watch: %v", err)
		}
	}
}
