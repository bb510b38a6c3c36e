package pipeline

import (
	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/layout"
)

// ComputeLayout positions d's nodes with opts.Algorithm, then applies
// opts.Positions on top. Saved positions for tables that no longer exist
// are ignored.
func ComputeLayout(d *diagram.Data, opts Options) error {
	if err := opts.ValidateForLayout(); err != nil {
		return err
	}
	if err := runLayout(d, opts); err != nil {
		return err
	}
	applySaved(d, opts)
	return nil
}

func runLayout(d *diagram.Data, opts Options) error {
	return layout.ApplyData(d, layout.Algorithm(opts.Algorithm),
		layout.WithConfig(opts.LayoutParams()),
		layout.WithLogger(opts.Logger))
}

func applySaved(d *diagram.Data, opts Options) {
	if len(opts.Positions) == 0 {
		return
	}
	applied := d.ApplyPositions(opts.Positions)
	opts.Logger.Debug("applied saved positions", "requested", len(opts.Positions), "applied", applied)
}
