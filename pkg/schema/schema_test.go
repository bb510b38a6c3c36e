package schema

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/matzehuels/schemagraph/pkg/errors"
)

// fakeSource serves a fixed set of tables and optionally fails on one table.
type fakeSource struct {
	tables  map[string][]Table
	fks     map[string][]ForeignKey
	failOn  string
	mu      sync.Mutex
	columns int
}

func (f *fakeSource) ListTables(_ context.Context, _, schema string) ([]Table, error) {
	return f.tables[schema], nil
}

func (f *fakeSource) ListColumns(_ context.Context, _, schema, table string) ([]Column, error) {
	if QualifiedName(schema, table) == f.failOn {
		return nil, fmt.Errorf("boom")
	}
	f.mu.Lock()
	f.columns++
	f.mu.Unlock()
	return []Column{{Name: "id", DataType: "bigint"}}, nil
}

func (f *fakeSource) ListIndexes(_ context.Context, _, schema, table string) ([]Index, error) {
	return []Index{{Name: table + "_pkey", Columns: []string{"id"}, IsUnique: true, IsPrimary: true}}, nil
}

func (f *fakeSource) ListForeignKeys(_ context.Context, _, schema, table string) ([]ForeignKey, error) {
	return f.fks[QualifiedName(schema, table)], nil
}

func newFake() *fakeSource {
	return &fakeSource{
		tables: map[string][]Table{
			"public":  {{Name: "users"}, {Name: "orders"}, {Name: "audit_log"}},
			"billing": {{Name: "invoices"}},
		},
		fks: map[string][]ForeignKey{
			"public.orders":    {{Name: "orders_user_fk", Columns: []string{"user_id"}, RefTable: "users", RefColumns: []string{"id"}}},
			"billing.invoices": {{Name: "inv_order_fk", Columns: []string{"order_id"}, RefSchema: "public", RefTable: "orders", RefColumns: []string{"id"}}},
		},
	}
}

func TestFetch(t *testing.T) {
	src := newFake()
	var calls []int
	snap, err := Fetch(context.Background(), src, Request{
		ConnectionID: "local",
		Schemas:      []string{"public", "billing"},
	}, WithProgress(func(done, total int) {
		calls = append(calls, done)
		if total != 4 {
			t.Errorf("total = %d, want 4", total)
		}
	}), WithConcurrency(2))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	wantIDs := []string{"public.users", "public.orders", "public.audit_log", "billing.invoices"}
	if len(snap.Tables) != len(wantIDs) {
		t.Fatalf("len(Tables) = %d, want %d", len(snap.Tables), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got := snap.Tables[i].ID(); got != id {
			t.Errorf("Tables[%d] = %s, want %s", i, got, id)
		}
		if len(snap.Tables[i].Columns) != 1 {
			t.Errorf("Tables[%d] columns = %d, want 1", i, len(snap.Tables[i].Columns))
		}
	}

	if len(calls) != 4 || calls[3] != 4 {
		t.Errorf("progress calls = %v, want 4 calls ending at 4", calls)
	}

	if len(snap.ForeignKeys) != 2 {
		t.Fatalf("len(ForeignKeys) = %d, want 2", len(snap.ForeignKeys))
	}
	fk := snap.ForeignKeys[0]
	if fk.TableID() != "public.orders" || fk.RefTableID() != "public.users" {
		t.Errorf("fk = %s -> %s, want public.orders -> public.users", fk.TableID(), fk.RefTableID())
	}
	if got := snap.ForeignKeys[1].RefTableID(); got != "public.orders" {
		t.Errorf("cross-schema ref = %s, want public.orders", got)
	}

	for _, ix := range snap.Indexes {
		if ix.Schema == "" || ix.Table == "" {
			t.Errorf("index %s missing owner: %+v", ix.Name, ix)
		}
	}
}

func TestFetchFilter(t *testing.T) {
	f, err := NewFilter(nil, []string{"audit_*"})
	if err != nil {
		t.Fatalf("NewFilter() error = %v", err)
	}
	snap, err := Fetch(context.Background(), newFake(), Request{
		ConnectionID: "local",
		Schemas:      []string{"public"},
		Filter:       f,
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	for _, tbl := range snap.Tables {
		if tbl.Name == "audit_log" {
			t.Error("audit_log should have been filtered out")
		}
	}
	if len(snap.Tables) != 2 {
		t.Errorf("len(Tables) = %d, want 2", len(snap.Tables))
	}
}

func TestFetchFailureIsAllOrNothing(t *testing.T) {
	src := newFake()
	src.failOn = "public.orders"

	snap, err := Fetch(context.Background(), src, Request{
		ConnectionID: "local",
		Schemas:      []string{"public"},
	})
	if err == nil {
		t.Fatal("Fetch() expected error")
	}
	if snap != nil {
		t.Error("Fetch() returned a partial snapshot")
	}
	if !errors.Is(err, errors.ErrCodeGeneration) {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeGeneration)
	}
}

func TestFetchValidation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"no schemas", Request{ConnectionID: "local"}},
		{"bad connection", Request{ConnectionID: "a b", Schemas: []string{"public"}}},
		{"bad schema", Request{ConnectionID: "local", Schemas: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Fetch(context.Background(), newFake(), tt.req); err == nil {
				t.Error("Fetch() expected error")
			}
		})
	}
}

func TestFilterMatch(t *testing.T) {
	f, err := NewFilter([]string{"public.*", "invoices"}, []string{"*_tmp"})
	if err != nil {
		t.Fatalf("NewFilter() error = %v", err)
	}

	tests := []struct {
		schema, table string
		want          bool
	}{
		{"public", "users", true},
		{"billing", "invoices", true},
		{"billing", "payments", false},
		{"public", "import_tmp", false},
	}
	for _, tt := range tests {
		if got := f.Match(tt.schema, tt.table); got != tt.want {
			t.Errorf("Match(%s, %s) = %v, want %v", tt.schema, tt.table, got, tt.want)
		}
	}

	var nilFilter *Filter
	if !nilFilter.Match("x", "y") {
		t.Error("nil filter should match everything")
	}

	if _, err := NewFilter([]string{"[unclosed"}, nil); err == nil {
		t.Error("NewFilter() expected error for bad pattern")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.RegisterDriver("fake", newFake())

	if err := r.AddConnection(Connection{ID: "b", Driver: "fake"}); err != nil {
		t.Fatalf("AddConnection() error = %v", err)
	}
	if err := r.AddConnection(Connection{ID: "a", Driver: "missing", DSN: "x"}); err != nil {
		t.Fatalf("AddConnection() error = %v", err)
	}
	if err := r.AddConnection(Connection{ID: "c"}); err == nil {
		t.Error("AddConnection() without driver expected error")
	}

	conns := r.Connections()
	if len(conns) != 2 || conns[0].ID != "a" || conns[1].ID != "b" {
		t.Errorf("Connections() = %+v, want sorted [a b]", conns)
	}

	ctx := context.Background()
	tables, err := r.ListTables(ctx, "b", "public")
	if err != nil || len(tables) != 3 {
		t.Errorf("ListTables() = %d tables, err %v; want 3, nil", len(tables), err)
	}

	if _, err := r.ListTables(ctx, "nope", "public"); !stderrors.Is(err, ErrUnknownConnection) {
		t.Errorf("unknown connection error = %v, want ErrUnknownConnection", err)
	}
	if _, err := r.ListColumns(ctx, "a", "public", "t"); !stderrors.Is(err, ErrUnknownDriver) {
		t.Errorf("unknown driver error = %v, want ErrUnknownDriver", err)
	}

	dsn, err := r.DSN(ctx, "a")
	if err != nil || dsn != "x" {
		t.Errorf("DSN() = %q, %v; want x, nil", dsn, err)
	}
}

func TestSplitQualified(t *testing.T) {
	tests := []struct {
		in, schema, name string
	}{
		{"public.users", "public", "users"},
		{"users", "", "users"},
		{"a.b.c", "a", "b.c"},
	}
	for _, tt := range tests {
		s, n := SplitQualified(tt.in)
		if s != tt.schema || n != tt.name {
			t.Errorf("SplitQualified(%q) = %q, %q; want %q, %q", tt.in, s, n, tt.schema, tt.name)
		}
	}
}
