package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const shopTOML = `
[[tables]]
schema = "public"
name = "users"

  [[tables.columns]]
  name = "id"
  type = "bigint"

  [[tables.columns]]
  name = "email"
  type = "text"

  [[tables.indexes]]
  name = "users_pkey"
  columns = ["id"]
  unique = true
  primary = true

[[tables]]
name = "orders"

  [[tables.columns]]
  name = "id"
  type = "bigint"

  [[tables.columns]]
  name = "user_id"
  type = "bigint"
  nullable = true

  [[tables.foreign_keys]]
  name = "orders_user_fk"
  columns = ["user_id"]
  ref_table = "users"
  ref_columns = ["id"]

[[tables]]
schema = "billing"
name = "invoices"
`

const shopJSON = `{
  "tables": [
    {"schema": "public", "name": "users", "columns": [{"name": "id", "type": "bigint"}]},
    {"schema": "public", "name": "orders",
     "columns": [{"name": "user_id", "type": "bigint", "nullable": true}],
     "foreign_keys": [{"name": "orders_user_fk", "columns": ["user_id"], "ref_table": "users", "ref_columns": ["id"]}]}
  ]
}`

func TestParseTOML(t *testing.T) {
	c, err := Parse([]byte(shopTOML), "toml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	ctx := context.Background()

	if got := c.Schemas(); len(got) != 2 || got[0] != "public" || got[1] != "billing" {
		t.Errorf("Schemas() = %v, want [public billing]", got)
	}

	tables, _ := c.ListTables(ctx, "", "public")
	if len(tables) != 2 || tables[0].Name != "users" || tables[1].Name != "orders" {
		t.Errorf("ListTables(public) = %+v", tables)
	}

	cols, err := c.ListColumns(ctx, "", "public", "orders")
	if err != nil {
		t.Fatalf("ListColumns() error = %v", err)
	}
	if len(cols) != 2 || !cols[1].Nullable || cols[1].DataType != "bigint" {
		t.Errorf("orders columns = %+v", cols)
	}

	fks, _ := c.ListForeignKeys(ctx, "", "public", "orders")
	if len(fks) != 1 {
		t.Fatalf("len(fks) = %d, want 1", len(fks))
	}
	if fks[0].RefSchema != "public" || fks[0].Schema != "public" || fks[0].Table != "orders" {
		t.Errorf("fk owner/ref not defaulted: %+v", fks[0])
	}

	idx, _ := c.ListIndexes(ctx, "", "public", "users")
	if len(idx) != 1 || !idx[0].IsPrimary || idx[0].Table != "users" {
		t.Errorf("users indexes = %+v", idx)
	}

	if _, err := c.ListColumns(ctx, "", "public", "missing"); err == nil {
		t.Error("ListColumns() on missing table expected error")
	}
}

func TestParseJSON(t *testing.T) {
	c, err := Parse([]byte(shopJSON), "json")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	fks, _ := c.ListForeignKeys(context.Background(), "", "public", "orders")
	if len(fks) != 1 || fks[0].RefTable != "users" {
		t.Errorf("fks = %+v", fks)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format string
	}{
		{"bad toml", "[[tables]\nname=", "toml"},
		{"bad json", "{", "json"},
		{"unknown format", "", "yaml"},
		{"missing name", "[[tables]]\nschema = \"x\"\n", "toml"},
		{"duplicate", "[[tables]]\nname = \"a\"\n[[tables]]\nname = \"a\"\n", "toml"},
		{"fk arity", `{"tables":[{"name":"a","foreign_keys":[{"columns":["x","y"],"ref_table":"b","ref_columns":["id"]}]}]}`, "json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data), tt.format); err == nil {
				t.Error("Parse() expected error")
			}
		})
	}
}

func TestFormatOf(t *testing.T) {
	if got := FormatOf("a/b/schema.JSON"); got != "json" {
		t.Errorf("FormatOf(.JSON) = %s, want json", got)
	}
	if got := FormatOf("schema.toml"); got != "toml" {
		t.Errorf("FormatOf(.toml) = %s, want toml", got)
	}
}

type staticResolver string

func (r staticResolver) DSN(context.Context, string) (string, error) { return string(r), nil }

func TestSourceReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.toml")
	if err := os.WriteFile(path, []byte(shopTOML), 0644); err != nil {
		t.Fatal(err)
	}

	src := NewSource(staticResolver(path))
	ctx := context.Background()

	tables, err := src.ListTables(ctx, "shop", "billing")
	if err != nil || len(tables) != 1 {
		t.Fatalf("ListTables() = %v, %v; want 1 table", tables, err)
	}

	updated := shopTOML + "\n[[tables]]\nschema = \"billing\"\nname = \"payments\"\n"
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	tables, err = src.ListTables(ctx, "shop", "billing")
	if err != nil || len(tables) != 2 {
		t.Errorf("after edit ListTables() = %v, %v; want 2 tables", tables, err)
	}

	schemas, err := src.Schemas(ctx, "shop")
	if err != nil || len(schemas) != 2 {
		t.Errorf("Schemas() = %v, %v", schemas, err)
	}
}
