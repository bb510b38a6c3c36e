// Package postgres implements [schema.Source] for PostgreSQL using pgx.
//
// One connection pool is opened lazily per connection id; the DSN comes from
// a [Resolver] (usually the [schema.Registry]). Metadata is read from
// information_schema for tables and columns and from pg_catalog for indexes
// and foreign keys, since information_schema does not expose non-constraint
// indexes nor the column order of composite keys reliably.
package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matzehuels/schemagraph/pkg/retry"
	"github.com/matzehuels/schemagraph/pkg/schema"
)

// Resolver maps a connection id to a DSN.
type Resolver interface {
	DSN(ctx context.Context, connID string) (string, error)
}

// Source reads schema metadata from PostgreSQL.
type Source struct {
	resolver Resolver

	mu    sync.Mutex
	pools map[string]*pgxpool.Pool
}

// New creates a PostgreSQL source.
func New(resolver Resolver) *Source {
	return &Source{resolver: resolver, pools: make(map[string]*pgxpool.Pool)}
}

// pool returns the pool for connID, opening and pinging it on first use.
// Failed pings are retried so a server that is still starting up is
// waited for.
func (s *Source) pool(ctx context.Context, connID string) (*pgxpool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pools[connID]; ok {
		return p, nil
	}

	dsn, err := s.resolver.DSN(ctx, connID)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool for %s: %w", connID, err)
	}
	err = retry.Do(ctx, func() error {
		return retry.Transient(p.Ping(ctx))
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("ping %s: %w", connID, err)
	}
	s.pools[connID] = p
	return p, nil
}

// ListTables returns the base tables of a schema ordered by name.
func (s *Source) ListTables(ctx context.Context, connID, schemaName string) ([]schema.Table, error) {
	p, err := s.pool(ctx, connID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := p.Query(ctx, query, schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []schema.Table
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, schema.Table{Schema: schemaName, Name: name})
	}
	return tables, rows.Err()
}

// ListColumns returns the columns of a table in ordinal order.
func (s *Source) ListColumns(ctx context.Context, connID, schemaName, table string) ([]schema.Column, error) {
	p, err := s.pool(ctx, connID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := p.Query(ctx, query, schemaName, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable); err != nil {
			return nil, err
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// ListIndexes returns every index of a table with its key columns in order.
// Expression indexes contribute no columns.
func (s *Source) ListIndexes(ctx context.Context, connID, schemaName, table string) ([]schema.Index, error) {
	p, err := s.pool(ctx, connID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT i.relname,
			ix.indisunique,
			ix.indisprimary,
			COALESCE(array_agg(a.attname ORDER BY k.ord) FILTER (WHERE a.attname IS NOT NULL), '{}')
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
		LEFT JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE n.nspname = $1 AND t.relname = $2
		GROUP BY i.relname, ix.indisunique, ix.indisprimary
		ORDER BY i.relname
	`

	rows, err := p.Query(ctx, query, schemaName, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		ix := schema.Index{Schema: schemaName, Table: table}
		if err := rows.Scan(&ix.Name, &ix.IsUnique, &ix.IsPrimary, &ix.Columns); err != nil {
			return nil, err
		}
		indexes = append(indexes, ix)
	}
	return indexes, rows.Err()
}

// ListForeignKeys returns the foreign keys declared on a table, with local
// and referenced columns paired by key position.
func (s *Source) ListForeignKeys(ctx context.Context, connID, schemaName, table string) ([]schema.ForeignKey, error) {
	p, err := s.pool(ctx, connID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT c.conname,
			rn.nspname,
			rt.relname,
			array_agg(la.attname ORDER BY k.ord),
			array_agg(ra.attname ORDER BY k.ord)
		FROM pg_constraint c
		JOIN pg_class t ON t.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_class rt ON rt.oid = c.confrelid
		JOIN pg_namespace rn ON rn.oid = rt.relnamespace
		CROSS JOIN LATERAL unnest(c.conkey, c.confkey) WITH ORDINALITY AS k(lnum, rnum, ord)
		JOIN pg_attribute la ON la.attrelid = c.conrelid AND la.attnum = k.lnum
		JOIN pg_attribute ra ON ra.attrelid = c.confrelid AND ra.attnum = k.rnum
		WHERE c.contype = 'f' AND n.nspname = $1 AND t.relname = $2
		GROUP BY c.conname, rn.nspname, rt.relname
		ORDER BY c.conname
	`

	rows, err := p.Query(ctx, query, schemaName, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	for rows.Next() {
		fk := schema.ForeignKey{Schema: schemaName, Table: table}
		if err := rows.Scan(&fk.Name, &fk.RefSchema, &fk.RefTable, &fk.Columns, &fk.RefColumns); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// Close closes every open pool.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.pools {
		p.Close()
		delete(s.pools, id)
	}
	return nil
}

var _ schema.Source = (*Source)(nil)
