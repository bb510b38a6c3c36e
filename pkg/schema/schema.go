// Package schema defines the read-only schema collaborator consumed by the
// diagram engine, along with the metadata types it returns.
//
// # Sources
//
// A [Source] answers four questions about a live database, always scoped by
// a connection id and a schema name:
//
//   - ListTables: which tables exist in the schema
//   - ListColumns: the columns of one table, in ordinal order
//   - ListIndexes: the indexes of one table, including the primary key
//   - ListForeignKeys: the foreign keys declared on one table
//
// Implementations live in subpackages:
//
//   - [github.com/matzehuels/schemagraph/pkg/schema/postgres]: PostgreSQL via pgx
//   - [github.com/matzehuels/schemagraph/pkg/schema/sqlite]: SQLite via go-sqlite3
//   - [github.com/matzehuels/schemagraph/pkg/schema/catalog]: static TOML/JSON files
//
// A [Registry] routes connection ids to the right source by driver name.
//
// # Fetching
//
// [Fetch] is the asynchronous boundary of the engine. It lists the tables of
// every requested schema, applies the optional [Filter], then fans out the
// per-table column/index/foreign-key requests concurrently. Any collaborator
// failure fails the whole fetch so that a partial diagram is never produced.
// Foreign keys that point at tables outside the fetched set are kept in the
// [Snapshot]; the diagram builder drops them.
package schema

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors for schema operations.
var (
	// ErrUnknownConnection is returned when a connection id is not registered.
	ErrUnknownConnection = errors.New("unknown connection")

	// ErrUnknownDriver is returned when a connection names a driver with no source.
	ErrUnknownDriver = errors.New("unknown driver")
)

// Table identifies one table and, after a fetch, carries its columns.
type Table struct {
	Schema  string   `json:"schema" toml:"schema"`
	Name    string   `json:"name" toml:"name"`
	Columns []Column `json:"columns,omitempty" toml:"columns"`
}

// ID returns the qualified "schema.table" identifier.
func (t Table) ID() string { return QualifiedName(t.Schema, t.Name) }

// Column describes one table column.
type Column struct {
	Name     string `json:"name" toml:"name"`
	DataType string `json:"type" toml:"type"`
	Nullable bool   `json:"nullable" toml:"nullable"`
}

// Index describes one index of a table. The primary key is reported as an
// index with IsPrimary set.
type Index struct {
	Schema    string   `json:"schema" toml:"schema"`
	Table     string   `json:"table" toml:"table"`
	Name      string   `json:"name" toml:"name"`
	Columns   []string `json:"columns" toml:"columns"`
	IsUnique  bool     `json:"unique" toml:"unique"`
	IsPrimary bool     `json:"primary" toml:"primary"`
}

// TableID returns the qualified identifier of the owning table.
func (i Index) TableID() string { return QualifiedName(i.Schema, i.Table) }

// ForeignKey describes a foreign key declared on Schema.Table that references
// RefSchema.RefTable. Columns and RefColumns are parallel slices.
type ForeignKey struct {
	Name       string   `json:"name" toml:"name"`
	Schema     string   `json:"schema" toml:"schema"`
	Table      string   `json:"table" toml:"table"`
	Columns    []string `json:"columns" toml:"columns"`
	RefSchema  string   `json:"ref_schema" toml:"ref_schema"`
	RefTable   string   `json:"ref_table" toml:"ref_table"`
	RefColumns []string `json:"ref_columns" toml:"ref_columns"`
}

// TableID returns the qualified identifier of the referencing table.
func (fk ForeignKey) TableID() string { return QualifiedName(fk.Schema, fk.Table) }

// RefTableID returns the qualified identifier of the referenced table.
func (fk ForeignKey) RefTableID() string { return QualifiedName(fk.RefSchema, fk.RefTable) }

// Source is the schema collaborator. Implementations must be safe for
// concurrent use: [Fetch] calls them from several goroutines.
type Source interface {
	// ListTables returns the tables of a schema. Columns are left empty.
	ListTables(ctx context.Context, connID, schema string) ([]Table, error)

	// ListColumns returns the columns of a table in ordinal order.
	ListColumns(ctx context.Context, connID, schema, table string) ([]Column, error)

	// ListIndexes returns the indexes of a table, primary key included.
	ListIndexes(ctx context.Context, connID, schema, table string) ([]Index, error)

	// ListForeignKeys returns the foreign keys declared on a table.
	ListForeignKeys(ctx context.Context, connID, schema, table string) ([]ForeignKey, error)
}

// QualifiedName joins a schema and a name with a dot.
func QualifiedName(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}

// SplitQualified splits "schema.name" at the first dot. A name without a dot
// returns an empty schema.
func SplitQualified(s string) (schema, name string) {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}
