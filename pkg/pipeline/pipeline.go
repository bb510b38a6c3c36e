// Package pipeline provides the headless diagram pipeline for schemagraph.
//
// This package implements the complete generate → layout → export pipeline
// used by the CLI `render` command and the HTTP API. By centralizing this
// logic, both entry points produce identical output for identical options.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Generate: Fetch schema metadata from a [schema.Source] and build the
//     diagram model
//  2. Layout: Position the tables with one of the layout algorithms, then
//     apply any saved positions on top
//  3. Export: Produce SVG, PNG, PDF, DOT or JSON output
//
// Each stage can be run independently or as part of the complete pipeline.
// Layout results and exported artifacts are cached by content hash.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(registry, cache, nil, logger)
//	opts := pipeline.Options{
//	    ConnectionID: "local",
//	    Schemas:      []string{"public"},
//	    Algorithm:    "hierarchical",
//	    Formats:      []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/schemagraph/pkg/cache"
	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/export"
	"github.com/matzehuels/schemagraph/pkg/geom"
	"github.com/matzehuels/schemagraph/pkg/layout"
	"github.com/matzehuels/schemagraph/pkg/schema"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// DefaultFormat is the output format when none is requested.
const DefaultFormat = string(export.FormatSVG)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the diagram pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Generate options
	ConnectionID string           `json:"connection_id"`
	Schemas      []string         `json:"schemas"`
	Include      []string         `json:"include,omitempty"`
	Exclude      []string         `json:"exclude,omitempty"`
	Display      *diagram.Options `json:"options,omitempty"` // nil means diagram.DefaultOptions()

	// Layout options
	Algorithm string                `json:"layout,omitempty"`
	Positions map[string]geom.Point `json:"positions,omitempty"` // saved positions applied after layout
	Refresh   bool                  `json:"refresh,omitempty"`   // bypass the layout and artifact caches

	// Export options
	Formats      []string `json:"formats,omitempty"`
	Scale        float64  `json:"scale,omitempty"`
	Padding      float64  `json:"padding,omitempty"`
	NoBackground bool     `json:"no_background,omitempty"`
	EdgeLabels   bool     `json:"edge_labels,omitempty"`
	Grid         bool     `json:"grid,omitempty"`
	Interaction  bool     `json:"interaction,omitempty"`

	// Runtime options (not serialized)
	Logger       *log.Logger         `json:"-"`
	Progress     schema.ProgressFunc `json:"-"`
	Concurrency  int                 `json:"-"`
	LayoutConfig *layout.Config      `json:"-"` // nil means layout.DefaultConfig()

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Diagram is the positioned diagram.
	Diagram *diagram.Data

	// DiagramHash is the content hash of the diagram structure.
	DiagramHash string

	// Artifacts contains exported outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	TableCount   int
	EdgeCount    int
	GenerateTime time.Duration
	LayoutTime   time.Duration
	ExportTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether positions came from cache
	ExportHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormats checks that all formats are supported.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if _, err := export.ParseFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForGenerate(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForExport(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForGenerate checks required fields for schema fetching.
func (o *Options) ValidateForGenerate() error {
	if err := errors.ValidateConnectionID(o.ConnectionID); err != nil {
		return err
	}
	if len(o.Schemas) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "at least one schema is required")
	}
	for _, s := range o.Schemas {
		if err := errors.ValidateIdentifier("schema", s); err != nil {
			return err
		}
	}
	o.setLogger()
	return nil
}

// ValidateForLayout normalizes the algorithm name.
func (o *Options) ValidateForLayout() error {
	alg, err := layout.ParseAlgorithm(o.Algorithm)
	if err != nil {
		return err
	}
	o.Algorithm = string(alg)
	o.setLogger()
	return nil
}

// ValidateForExport normalizes formats and applies export defaults.
func (o *Options) ValidateForExport() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	o.Formats = slices.Clone(o.Formats)
	for i, f := range o.Formats {
		parsed, err := export.ParseFormat(f)
		if err != nil {
			return err
		}
		o.Formats[i] = string(parsed)
	}
	if o.Scale == 0 {
		o.Scale = export.DefaultScale
	}
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "scale must be positive, got %v", o.Scale)
	}
	if o.Padding == 0 {
		o.Padding = export.DefaultPadding
	}
	o.setLogger()
	return nil
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// DisplayOptions returns the normalized diagram display options.
func (o *Options) DisplayOptions() diagram.Options {
	if o.Display == nil {
		return diagram.DefaultOptions()
	}
	d := *o.Display
	d.Normalize()
	return d
}

// LayoutParams returns the layout configuration.
func (o *Options) LayoutParams() layout.Config {
	if o.LayoutConfig == nil {
		return layout.DefaultConfig()
	}
	return *o.LayoutConfig
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	c := o.LayoutParams()
	return cache.LayoutKeyOpts{
		Algorithm: o.Algorithm,
		Params: []float64{
			c.HorizontalSpacing, c.LayerHeight,
			float64(c.Iterations), c.IdealLength, c.Temperature,
			c.RadiusPerNode, c.MinRadius,
			c.GridColumnGap, c.GridRowGap,
		},
	}
}

// ArtifactKeyOpts returns cache key options for an exported format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{
		Format:      format,
		Padding:     o.Padding,
		Background:  !o.NoBackground,
		EdgeLabels:  o.EdgeLabels,
		Grid:        o.Grid,
		Interaction: o.Interaction,
	}
	if format == string(export.FormatPNG) {
		opts.Scale = o.Scale
	}
	return opts
}

// ExportOptions converts the export fields to export package options.
func (o *Options) ExportOptions() []export.Option {
	opts := []export.Option{
		export.WithPadding(o.Padding),
		export.WithBackground(!o.NoBackground),
	}
	if o.Scale > 0 {
		opts = append(opts, export.WithScale(o.Scale))
	}
	if o.EdgeLabels {
		opts = append(opts, export.WithEdgeLabels())
	}
	if o.Grid {
		opts = append(opts, export.WithGrid())
	}
	if o.Interaction {
		opts = append(opts, export.WithInteraction())
	}
	return opts
}
