package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/schemagraph/pkg/cache"
	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/geom"
	"github.com/matzehuels/schemagraph/pkg/observability"
	"github.com/matzehuels/schemagraph/pkg/schema"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Source schema.Source
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	Hooks  observability.Hooks
}

// NewRunner creates a runner reading metadata from src.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(src schema.Source, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Source: src,
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		Hooks:  observability.Noop(),
	}
}

// Execute runs the complete generate → layout → export pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Generate
	genStart := time.Now()
	d, err := r.Generate(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Diagram = d
	result.DiagramHash = cache.DiagramHash(d)
	result.Stats.GenerateTime = time.Since(genStart)
	result.Stats.TableCount = len(d.Nodes)
	result.Stats.EdgeCount = len(d.Edges)

	r.Logger.Info("built diagram",
		"tables", len(d.Nodes),
		"relationships", len(d.Edges),
		"duration", result.Stats.GenerateTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	layoutHit, err := r.LayoutWithCacheInfo(ctx, d, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"algorithm", opts.Algorithm,
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Export
	exportStart := time.Now()
	artifacts, exportHit, err := r.ExportWithCacheInfo(ctx, d, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.ExportTime = time.Since(exportStart)
	result.CacheInfo.ExportHit = exportHit

	r.Logger.Info("exported outputs",
		"formats", opts.Formats,
		"duration", result.Stats.ExportTime)

	return result, nil
}

// Generate fetches metadata and builds the diagram, reporting to the
// diagram hooks.
func (r *Runner) Generate(ctx context.Context, opts Options) (*diagram.Data, error) {
	r.applyLogger(&opts)
	if r.Source == nil {
		return nil, errors.New(errors.ErrCodeInternal, "runner has no schema source")
	}

	start := time.Now()
	r.Hooks.Diagram.OnGenerateStart(ctx, opts.ConnectionID, opts.Schemas)
	d, err := Generate(ctx, r.Source, opts)
	tables, edges := 0, 0
	if d != nil {
		tables, edges = len(d.Nodes), len(d.Edges)
	}
	r.Hooks.Diagram.OnGenerateComplete(ctx, opts.ConnectionID, tables, edges, time.Since(start), err)
	return d, err
}

// LayoutWithCacheInfo positions d with caching and returns whether the
// positions came from the cache. Saved positions in opts are applied after
// the cached or computed layout and are never cached themselves.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, d *diagram.Data, opts Options) (bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return false, err
	}

	cacheKey := r.Keyer.LayoutKey(cache.DiagramHash(d), opts.LayoutKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached map[string]geom.Point
			if err := json.Unmarshal(data, &cached); err == nil && len(cached) == len(d.Nodes) {
				d.ApplyPositions(cached)
				r.Hooks.Cache.OnCacheHit(ctx, "layout")
				applySaved(d, opts)
				return true, nil
			}
			// If deserialization fails, fall through to recompute
		}
		r.Hooks.Cache.OnCacheMiss(ctx, "layout")
	}

	start := time.Now()
	r.Hooks.Diagram.OnLayoutStart(ctx, opts.Algorithm, len(d.Nodes))
	err := runLayout(d, opts)
	r.Hooks.Diagram.OnLayoutComplete(ctx, opts.Algorithm, time.Since(start), err)
	if err != nil {
		return false, err
	}

	// Cache the result
	if data, err := json.Marshal(d.Positions()); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout); err == nil {
			r.Hooks.Cache.OnCacheSet(ctx, "layout", len(data))
		}
	}

	applySaved(d, opts)
	return false, nil
}

// ExportWithCacheInfo exports every requested format with caching and
// returns whether all artifacts came from the cache.
func (r *Runner) ExportWithCacheInfo(ctx context.Context, d *diagram.Data, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForExport(); err != nil {
		return nil, false, err
	}

	// Compute cache key from the positioned diagram
	diagramData, err := diagram.MarshalData(d)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeExport, err, "serialize diagram for cache key")
	}
	cacheKeyHash := cache.Hash(diagramData)

	artifacts := make(map[string][]byte, len(opts.Formats))
	allCached := !opts.Refresh
	for _, format := range opts.Formats {
		if !allCached {
			break
		}
		cacheKey := r.Keyer.ArtifactKey(cacheKeyHash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			artifacts[format] = data
			continue
		}
		allCached = false
	}
	if allCached && len(artifacts) == len(opts.Formats) {
		r.Hooks.Cache.OnCacheHit(ctx, "artifact")
		return artifacts, true, nil
	}

	rendered := make(map[string][]byte, len(opts.Formats))
	single := opts
	for _, format := range opts.Formats {
		single.Formats = []string{format}
		start := time.Now()
		r.Hooks.Diagram.OnExportStart(ctx, format)
		out, err := Export(ctx, d, single)
		r.Hooks.Diagram.OnExportComplete(ctx, format, len(out[format]), time.Since(start), err)
		if err != nil {
			return nil, false, err
		}
		rendered[format] = out[format]

		cacheKey := r.Keyer.ArtifactKey(cacheKeyHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, cacheKey, out[format], cache.TTLArtifact); err == nil {
			r.Hooks.Cache.OnCacheSet(ctx, "artifact", len(out[format]))
		}
	}
	return rendered, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
