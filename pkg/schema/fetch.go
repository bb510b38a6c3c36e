package schema

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/schemagraph/pkg/errors"
)

// DefaultConcurrency bounds the number of in-flight per-table requests.
const DefaultConcurrency = 8

// Request describes what to fetch.
type Request struct {
	ConnectionID string
	Schemas      []string
	Filter       *Filter
}

// Snapshot is the metadata of every fetched table. Tables keep the order in
// which the source listed them, schema by schema.
type Snapshot struct {
	Tables      []Table
	ForeignKeys []ForeignKey
	Indexes     []Index
}

// ProgressFunc is called after each table has been fully fetched.
// It may be called from several goroutines, but never concurrently.
type ProgressFunc func(done, total int)

// FetchOption configures [Fetch].
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	concurrency int
	progress    ProgressFunc
	logger      *log.Logger
}

// WithConcurrency sets the maximum number of tables fetched in parallel.
func WithConcurrency(n int) FetchOption {
	return func(c *fetchConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) FetchOption {
	return func(c *fetchConfig) { c.progress = fn }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) FetchOption {
	return func(c *fetchConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Fetch reads the metadata of every table in req.Schemas that passes
// req.Filter. Any source error aborts the fetch and is returned as a
// GENERATION_FAILED error; no partial snapshot is ever returned.
func Fetch(ctx context.Context, src Source, req Request, opts ...FetchOption) (*Snapshot, error) {
	cfg := fetchConfig{
		concurrency: DefaultConcurrency,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := errors.ValidateConnectionID(req.ConnectionID); err != nil {
		return nil, err
	}
	if len(req.Schemas) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "at least one schema is required")
	}

	var tables []Table
	for _, s := range req.Schemas {
		if err := errors.ValidateIdentifier("schema", s); err != nil {
			return nil, err
		}
		listed, err := src.ListTables(ctx, req.ConnectionID, s)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeGeneration, err, "list tables of %s", s)
		}
		for _, t := range listed {
			if t.Schema == "" {
				t.Schema = s
			}
			if !req.Filter.Match(t.Schema, t.Name) {
				cfg.logger.Debug("table filtered out", "table", t.ID())
				continue
			}
			tables = append(tables, t)
		}
	}

	type result struct {
		columns []Column
		indexes []Index
		fks     []ForeignKey
	}
	results := make([]result, len(tables))

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)

	for i, t := range tables {
		g.Go(func() error {
			cols, err := src.ListColumns(gctx, req.ConnectionID, t.Schema, t.Name)
			if err != nil {
				return fmt.Errorf("list columns of %s: %w", t.ID(), err)
			}
			idx, err := src.ListIndexes(gctx, req.ConnectionID, t.Schema, t.Name)
			if err != nil {
				return fmt.Errorf("list indexes of %s: %w", t.ID(), err)
			}
			fks, err := src.ListForeignKeys(gctx, req.ConnectionID, t.Schema, t.Name)
			if err != nil {
				return fmt.Errorf("list foreign keys of %s: %w", t.ID(), err)
			}
			results[i] = result{columns: cols, indexes: idx, fks: fks}

			mu.Lock()
			done++
			if cfg.progress != nil {
				cfg.progress(done, len(tables))
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeGeneration, err, "fetch schema metadata")
	}

	snap := &Snapshot{Tables: make([]Table, len(tables))}
	for i, t := range tables {
		r := results[i]
		t.Columns = r.columns
		snap.Tables[i] = t
		for _, ix := range r.indexes {
			ix.Schema, ix.Table = t.Schema, t.Name
			snap.Indexes = append(snap.Indexes, ix)
		}
		for _, fk := range r.fks {
			fk.Schema, fk.Table = t.Schema, t.Name
			if fk.RefSchema == "" {
				fk.RefSchema = t.Schema
			}
			snap.ForeignKeys = append(snap.ForeignKeys, fk)
		}
	}

	cfg.logger.Debug("fetched schema metadata",
		"connection", req.ConnectionID,
		"tables", len(snap.Tables),
		"foreign_keys", len(snap.ForeignKeys),
		"indexes", len(snap.Indexes))

	return snap, nil
}
