package pipeline

import (
	"context"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/schema"
)

// Generate fetches the requested schemas from src and builds the diagram.
// Nodes come back on the fallback grid; run [ComputeLayout] next.
func Generate(ctx context.Context, src schema.Source, opts Options) (*diagram.Data, error) {
	if err := opts.ValidateForGenerate(); err != nil {
		return nil, err
	}

	filter, err := schema.NewFilter(opts.Include, opts.Exclude)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid table filter")
	}

	fetchOpts := []schema.FetchOption{
		schema.WithLogger(opts.Logger),
		schema.WithConcurrency(opts.Concurrency),
	}
	if opts.Progress != nil {
		fetchOpts = append(fetchOpts, schema.WithProgress(opts.Progress))
	}

	snap, err := schema.Fetch(ctx, src, schema.Request{
		ConnectionID: opts.ConnectionID,
		Schemas:      opts.Schemas,
		Filter:       filter,
	}, fetchOpts...)
	if err != nil {
		return nil, err
	}

	return diagram.NewBuilder(opts.Logger).Build(snap.Tables, snap.ForeignKeys, snap.Indexes, opts.DisplayOptions()), nil
}
