package pipeline

import (
	"context"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/export"
)

// Export renders d in every requested format.
func Export(ctx context.Context, d *diagram.Data, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForExport(); err != nil {
		return nil, err
	}

	exportOpts := opts.ExportOptions()
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, f := range opts.Formats {
		out, err := export.Render(ctx, d, export.Format(f), exportOpts...)
		if err != nil {
			return nil, err
		}
		artifacts[f] = out
	}
	return artifacts, nil
}
