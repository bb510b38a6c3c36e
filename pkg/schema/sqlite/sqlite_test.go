package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

type staticResolver string

func (r staticResolver) DSN(context.Context, string) (string, error) { return string(r), nil }

const ddl = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	nickname TEXT
);
CREATE TABLE profiles (
	user_id INTEGER NOT NULL REFERENCES users(id),
	bio TEXT
);
CREATE UNIQUE INDEX profiles_user_idx ON profiles (user_id);
CREATE TABLE order_items (
	order_id INTEGER NOT NULL,
	line INTEGER NOT NULL,
	sku TEXT,
	PRIMARY KEY (order_id, line)
);
CREATE TABLE shipments (
	id INTEGER PRIMARY KEY,
	order_id INTEGER,
	line INTEGER,
	FOREIGN KEY (order_id, line) REFERENCES order_items (order_id, line)
);
`

func newTestSource(t *testing.T) *Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(ddl); err != nil {
		t.Fatalf("apply ddl: %v", err)
	}
	db.Close()

	src := New(staticResolver(path))
	t.Cleanup(func() { src.Close() })
	return src
}

func TestListTables(t *testing.T) {
	src := newTestSource(t)
	ctx := context.Background()

	tables, err := src.ListTables(ctx, "test", MainSchema)
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	want := []string{"order_items", "profiles", "shipments", "users"}
	if len(tables) != len(want) {
		t.Fatalf("len(tables) = %d, want %d", len(tables), len(want))
	}
	for i, name := range want {
		if tables[i].Name != name || tables[i].Schema != MainSchema {
			t.Errorf("tables[%d] = %s.%s, want main.%s", i, tables[i].Schema, tables[i].Name, name)
		}
	}

	other, err := src.ListTables(ctx, "test", "public")
	if err != nil || len(other) != 0 {
		t.Errorf("ListTables(public) = %v, %v; want empty", other, err)
	}
}

func TestListColumns(t *testing.T) {
	src := newTestSource(t)

	cols, err := src.ListColumns(context.Background(), "test", MainSchema, "users")
	if err != nil {
		t.Fatalf("ListColumns() error = %v", err)
	}
	if len(cols) != 3 {
		t.Fatalf("len(cols) = %d, want 3", len(cols))
	}
	if cols[0].Name != "id" || cols[0].Nullable {
		t.Errorf("cols[0] = %+v, want non-null id", cols[0])
	}
	if cols[1].Nullable {
		t.Errorf("email should be NOT NULL")
	}
	if !cols[2].Nullable || cols[2].DataType != "TEXT" {
		t.Errorf("cols[2] = %+v, want nullable TEXT", cols[2])
	}
}

func TestListIndexes(t *testing.T) {
	src := newTestSource(t)
	ctx := context.Background()

	idx, err := src.ListIndexes(ctx, "test", MainSchema, "users")
	if err != nil {
		t.Fatalf("ListIndexes() error = %v", err)
	}
	var pk, unique bool
	for _, ix := range idx {
		if ix.IsPrimary && len(ix.Columns) == 1 && ix.Columns[0] == "id" {
			pk = true
		}
		if ix.IsUnique && !ix.IsPrimary && len(ix.Columns) == 1 && ix.Columns[0] == "email" {
			unique = true
		}
	}
	if !pk || !unique {
		t.Errorf("indexes = %+v, want synthetic pk on id and unique on email", idx)
	}

	composite, err := src.ListIndexes(ctx, "test", MainSchema, "order_items")
	if err != nil {
		t.Fatalf("ListIndexes() error = %v", err)
	}
	found := false
	for _, ix := range composite {
		if ix.IsPrimary {
			found = true
			if len(ix.Columns) != 2 || ix.Columns[0] != "order_id" || ix.Columns[1] != "line" {
				t.Errorf("composite pk columns = %v, want [order_id line]", ix.Columns)
			}
		}
	}
	if !found {
		t.Errorf("no primary index on order_items: %+v", composite)
	}
}

func TestListForeignKeys(t *testing.T) {
	src := newTestSource(t)
	ctx := context.Background()

	fks, err := src.ListForeignKeys(ctx, "test", MainSchema, "shipments")
	if err != nil {
		t.Fatalf("ListForeignKeys() error = %v", err)
	}
	if len(fks) != 1 {
		t.Fatalf("len(fks) = %d, want 1", len(fks))
	}
	fk := fks[0]
	if fk.RefTable != "order_items" {
		t.Errorf("RefTable = %s, want order_items", fk.RefTable)
	}
	if len(fk.Columns) != 2 || fk.Columns[0] != "order_id" || fk.Columns[1] != "line" {
		t.Errorf("Columns = %v, want [order_id line]", fk.Columns)
	}
	if len(fk.RefColumns) != 2 || fk.RefColumns[1] != "line" {
		t.Errorf("RefColumns = %v, want [order_id line]", fk.RefColumns)
	}

	single, err := src.ListForeignKeys(ctx, "test", MainSchema, "profiles")
	if err != nil {
		t.Fatalf("ListForeignKeys() error = %v", err)
	}
	if len(single) != 1 || single[0].RefTable != "users" || single[0].RefColumns[0] != "id" {
		t.Errorf("profiles fks = %+v", single)
	}
}
