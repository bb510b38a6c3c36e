// Package catalog implements [schema.Source] over a static schema description
// stored in a TOML or JSON file.
//
// Catalog files let schemagraph draw diagrams without a live database, which
// is how the examples and most tests run. A TOML catalog looks like:
//
//	[[tables]]
//	schema = "public"
//	name = "users"
//
//	  [[tables.columns]]
//	  name = "id"
//	  type = "bigint"
//
//	  [[tables.indexes]]
//	  name = "users_pkey"
//	  columns = ["id"]
//	  unique = true
//	  primary = true
//
//	[[tables]]
//	schema = "public"
//	name = "orders"
//
//	  [[tables.foreign_keys]]
//	  name = "orders_user_fk"
//	  columns = ["user_id"]
//	  ref_table = "users"
//	  ref_columns = ["id"]
//
// The JSON form uses the same field names.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/schemagraph/pkg/schema"
)

// File is the on-disk catalog document.
type File struct {
	Tables []TableDef `json:"tables" toml:"tables"`
}

// TableDef describes one table in a catalog file.
type TableDef struct {
	Schema      string              `json:"schema" toml:"schema"`
	Name        string              `json:"name" toml:"name"`
	Columns     []schema.Column     `json:"columns" toml:"columns"`
	Indexes     []schema.Index      `json:"indexes" toml:"indexes"`
	ForeignKeys []schema.ForeignKey `json:"foreign_keys" toml:"foreign_keys"`
}

// Catalog is an in-memory schema built from a [File].
type Catalog struct {
	tables []TableDef
	byID   map[string]int
}

// New builds a catalog. Tables without a schema are placed in "public";
// foreign keys without a referenced schema point into their own schema.
func New(f File) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(f.Tables))}
	for _, t := range f.Tables {
		if t.Name == "" {
			return nil, fmt.Errorf("catalog: table without a name")
		}
		if t.Schema == "" {
			t.Schema = "public"
		}
		id := schema.QualifiedName(t.Schema, t.Name)
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("catalog: duplicate table %s", id)
		}
		for i := range t.ForeignKeys {
			fk := &t.ForeignKeys[i]
			if len(fk.Columns) != len(fk.RefColumns) {
				return nil, fmt.Errorf("catalog: foreign key %s on %s: %d columns reference %d columns",
					fk.Name, id, len(fk.Columns), len(fk.RefColumns))
			}
			fk.Schema, fk.Table = t.Schema, t.Name
			if fk.RefSchema == "" {
				fk.RefSchema = t.Schema
			}
		}
		for i := range t.Indexes {
			t.Indexes[i].Schema, t.Indexes[i].Table = t.Schema, t.Name
		}
		c.byID[id] = len(c.tables)
		c.tables = append(c.tables, t)
	}
	return c, nil
}

// Parse decodes a catalog document. format is "toml" or "json".
func Parse(data []byte, format string) (*Catalog, error) {
	var f File
	switch format {
	case "toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
			return nil, fmt.Errorf("parse toml catalog: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse json catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s", format)
	}
	return New(f)
}

// Load reads a catalog file, choosing the format from its extension.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, FormatOf(path))
}

// FormatOf returns "json" for .json files and "toml" otherwise.
func FormatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "toml"
}

// Schemas returns the distinct schema names in file order.
func (c *Catalog) Schemas() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range c.tables {
		if !seen[t.Schema] {
			seen[t.Schema] = true
			out = append(out, t.Schema)
		}
	}
	return out
}

func (c *Catalog) table(schemaName, name string) (TableDef, bool) {
	i, ok := c.byID[schema.QualifiedName(schemaName, name)]
	if !ok {
		return TableDef{}, false
	}
	return c.tables[i], true
}

// ListTables implements [schema.Source]. The connection id is ignored.
func (c *Catalog) ListTables(_ context.Context, _, schemaName string) ([]schema.Table, error) {
	var out []schema.Table
	for _, t := range c.tables {
		if t.Schema == schemaName {
			out = append(out, schema.Table{Schema: t.Schema, Name: t.Name})
		}
	}
	return out, nil
}

// ListColumns implements [schema.Source].
func (c *Catalog) ListColumns(_ context.Context, _, schemaName, table string) ([]schema.Column, error) {
	t, ok := c.table(schemaName, table)
	if !ok {
		return nil, fmt.Errorf("catalog: no table %s", schema.QualifiedName(schemaName, table))
	}
	return append([]schema.Column(nil), t.Columns...), nil
}

// ListIndexes implements [schema.Source].
func (c *Catalog) ListIndexes(_ context.Context, _, schemaName, table string) ([]schema.Index, error) {
	t, ok := c.table(schemaName, table)
	if !ok {
		return nil, fmt.Errorf("catalog: no table %s", schema.QualifiedName(schemaName, table))
	}
	return append([]schema.Index(nil), t.Indexes...), nil
}

// ListForeignKeys implements [schema.Source].
func (c *Catalog) ListForeignKeys(_ context.Context, _, schemaName, table string) ([]schema.ForeignKey, error) {
	t, ok := c.table(schemaName, table)
	if !ok {
		return nil, fmt.Errorf("catalog: no table %s", schema.QualifiedName(schemaName, table))
	}
	return append([]schema.ForeignKey(nil), t.ForeignKeys...), nil
}

var _ schema.Source = (*Catalog)(nil)

// =============================================================================
// File-backed source
// =============================================================================

// Resolver maps a connection id to a DSN, here a catalog file path.
type Resolver interface {
	DSN(ctx context.Context, connID string) (string, error)
}

// Source serves catalogs loaded from files named by connection DSNs. Files
// are reloaded when their modification time changes, so a watcher can
// simply regenerate after an edit.
type Source struct {
	resolver Resolver

	mu     sync.Mutex
	loaded map[string]loadedCatalog
}

type loadedCatalog struct {
	modTime time.Time
	catalog *Catalog
}

// NewSource creates a file-backed catalog source.
func NewSource(resolver Resolver) *Source {
	return &Source{resolver: resolver, loaded: make(map[string]loadedCatalog)}
}

func (s *Source) catalog(ctx context.Context, connID string) (*Catalog, error) {
	path, err := s.resolver.DSN(ctx, connID)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.loaded[path]; ok && l.modTime.Equal(info.ModTime()) {
		return l.catalog, nil
	}
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	s.loaded[path] = loadedCatalog{modTime: info.ModTime(), catalog: c}
	return c, nil
}

// ListTables implements [schema.Source].
func (s *Source) ListTables(ctx context.Context, connID, schemaName string) ([]schema.Table, error) {
	c, err := s.catalog(ctx, connID)
	if err != nil {
		return nil, err
	}
	return c.ListTables(ctx, connID, schemaName)
}

// ListColumns implements [schema.Source].
func (s *Source) ListColumns(ctx context.Context, connID, schemaName, table string) ([]schema.Column, error) {
	c, err := s.catalog(ctx, connID)
	if err != nil {
		return nil, err
	}
	return c.ListColumns(ctx, connID, schemaName, table)
}

// ListIndexes implements [schema.Source].
func (s *Source) ListIndexes(ctx context.Context, connID, schemaName, table string) ([]schema.Index, error) {
	c, err := s.catalog(ctx, connID)
	if err != nil {
		return nil, err
	}
	return c.ListIndexes(ctx, connID, schemaName, table)
}

// ListForeignKeys implements [schema.Source].
func (s *Source) ListForeignKeys(ctx context.Context, connID, schemaName, table string) ([]schema.ForeignKey, error) {
	c, err := s.catalog(ctx, connID)
	if err != nil {
		return nil, err
	}
	return c.ListForeignKeys(ctx, connID, schemaName, table)
}

// Schemas returns the schemas of the catalog behind connID.
func (s *Source) Schemas(ctx context.Context, connID string) ([]string, error) {
	c, err := s.catalog(ctx, connID)
	if err != nil {
		return nil, err
	}
	return c.Schemas(), nil
}

var _ schema.Source = (*Source)(nil)
