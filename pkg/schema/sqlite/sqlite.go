// Package sqlite implements [schema.Source] for SQLite databases using
// mattn/go-sqlite3.
//
// SQLite has a single schema per database file, reported as "main". The
// connection's DSN is the database file path; databases are opened
// read-only.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/matzehuels/schemagraph/pkg/schema"
)

// MainSchema is the schema name SQLite reports for the primary database.
const MainSchema = "main"

// Resolver maps a connection id to a DSN.
type Resolver interface {
	DSN(ctx context.Context, connID string) (string, error)
}

// Source reads schema metadata from SQLite databases.
type Source struct {
	resolver Resolver

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

// New creates a SQLite source.
func New(resolver Resolver) *Source {
	return &Source{resolver: resolver, dbs: make(map[string]*sql.DB)}
}

func (s *Source) db(ctx context.Context, connID string) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[connID]; ok {
		return db, nil
	}

	dsn, err := s.resolver.DSN(ctx, connID)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(dsn, "file:") && !strings.Contains(dsn, "?") {
		dsn = "file:" + dsn + "?mode=ro"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s.dbs[connID] = db
	return db, nil
}

// ListTables returns user tables ordered by name. Only the main schema is supported.
func (s *Source) ListTables(ctx context.Context, connID, schemaName string) ([]schema.Table, error) {
	if schemaName != MainSchema {
		return nil, nil
	}
	db, err := s.db(ctx, connID)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
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
		tables = append(tables, schema.Table{Schema: MainSchema, Name: name})
	}
	return tables, rows.Err()
}

// ListColumns returns columns in declaration order.
func (s *Source) ListColumns(ctx context.Context, connID, _, table string) ([]schema.Column, error) {
	db, err := s.db(ctx, connID)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var (
			col     schema.Column
			notNull int
			pk      int
		)
		if err := rows.Scan(&col.Name, &col.DataType, &notNull, &pk); err != nil {
			return nil, err
		}
		// SQLite allows NULL in non-integer primary keys unless declared NOT NULL,
		// but every real schema treats them as required.
		col.Nullable = notNull == 0 && pk == 0
		if col.DataType == "" {
			col.DataType = "any"
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// ListIndexes returns declared indexes plus a synthetic primary index built
// from the table's primary-key columns when SQLite does not report one
// (rowid tables with INTEGER PRIMARY KEY).
func (s *Source) ListIndexes(ctx context.Context, connID, _, table string) ([]schema.Index, error) {
	db, err := s.db(ctx, connID)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT name, "unique", origin FROM pragma_index_list(?) ORDER BY name`, table)
	if err != nil {
		return nil, err
	}
	type listed struct {
		name   string
		unique bool
		origin string
	}
	var list []listed
	for rows.Next() {
		var l listed
		var unique int
		if err := rows.Scan(&l.name, &unique, &l.origin); err != nil {
			rows.Close()
			return nil, err
		}
		l.unique = unique == 1
		list = append(list, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var indexes []schema.Index
	hasPrimary := false
	for _, l := range list {
		cols, err := indexColumns(ctx, db, l.name)
		if err != nil {
			return nil, err
		}
		ix := schema.Index{
			Schema:    MainSchema,
			Table:     table,
			Name:      l.name,
			Columns:   cols,
			IsUnique:  l.unique,
			IsPrimary: l.origin == "pk",
		}
		hasPrimary = hasPrimary || ix.IsPrimary
		indexes = append(indexes, ix)
	}

	if !hasPrimary {
		pk, err := primaryKey(ctx, db, table)
		if err != nil {
			return nil, err
		}
		if len(pk) > 0 {
			indexes = append([]schema.Index{{
				Schema:    MainSchema,
				Table:     table,
				Name:      table + "_pkey",
				Columns:   pk,
				IsUnique:  true,
				IsPrimary: true,
			}}, indexes...)
		}
	}
	return indexes, nil
}

func indexColumns(ctx context.Context, db *sql.DB, index string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM pragma_index_info(?) ORDER BY seqno`, index)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if name.Valid {
			cols = append(cols, name.String)
		}
	}
	return cols, rows.Err()
}

func primaryKey(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, pk FROM pragma_table_info(?) WHERE pk > 0`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type pkCol struct {
		name string
		pos  int
	}
	var cols []pkCol
	for rows.Next() {
		var c pkCol
		if err := rows.Scan(&c.name, &c.pos); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].pos < cols[j].pos })

	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.name
	}
	return out, nil
}

// ListForeignKeys groups pragma_foreign_key_list rows by constraint id.
// SQLite foreign keys are unnamed, so names are synthesized as
// "<table>_fk<id>".
func (s *Source) ListForeignKeys(ctx context.Context, connID, _, table string) ([]schema.ForeignKey, error) {
	db, err := s.db(ctx, connID)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, "table", "from", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	byID := make(map[int]int)
	for rows.Next() {
		var (
			id       int
			refTable string
			from     string
			to       sql.NullString
		)
		if err := rows.Scan(&id, &refTable, &from, &to); err != nil {
			return nil, err
		}
		i, ok := byID[id]
		if !ok {
			i = len(fks)
			byID[id] = i
			fks = append(fks, schema.ForeignKey{
				Name:      fmt.Sprintf("%s_fk%d", table, id),
				Schema:    MainSchema,
				Table:     table,
				RefSchema: MainSchema,
				RefTable:  refTable,
			})
		}
		fks[i].Columns = append(fks[i].Columns, from)
		fks[i].RefColumns = append(fks[i].RefColumns, to.String)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// A missing "to" means the reference targets the parent's primary key.
	for i := range fks {
		if slicesAnyEmpty(fks[i].RefColumns) {
			pk, err := primaryKey(ctx, db, fks[i].RefTable)
			if err != nil {
				return nil, err
			}
			if len(pk) == len(fks[i].RefColumns) {
				fks[i].RefColumns = pk
			}
		}
	}
	return fks, nil
}

func slicesAnyEmpty(s []string) bool {
	for _, v := range s {
		if v == "" {
			return true
		}
	}
	return false
}

// Close closes every open database.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for id, db := range s.dbs {
		if err := db.Close(); err != nil && first == nil {
			first = err
		}
		delete(s.dbs, id)
	}
	return first
}

var _ schema.Source = (*Source)(nil)
