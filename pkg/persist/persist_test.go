package persist

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/geom"
	"github.com/matzehuels/schemagraph/pkg/storage"
	"github.com/matzehuels/schemagraph/pkg/viewport"
)

// tick returns a clock advancing one minute per call.
func tick() func() time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func sample(conn, name string) diagram.Config {
	return diagram.Config{
		ConnectionID: conn,
		Name:         name,
		Schemas:      []string{"public"},
		Options:      diagram.DefaultOptions(),
		Layout: diagram.LayoutState{
			Algorithm:     "hierarchical",
			NodePositions: map[string]geom.Point{"public.users": {X: -110, Y: 0}},
			Viewport:      viewport.Viewport{X: 12, Y: -4, Zoom: 1.25},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := New(storage.NewMemory(), WithClock(tick()))

	saved, err := repo.Save(ctx, sample("local", "overview"))
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("Save() should assign an id")
	}
	if saved.CreatedAt.IsZero() || !saved.CreatedAt.Equal(saved.UpdatedAt) {
		t.Errorf("timestamps = %v / %v", saved.CreatedAt, saved.UpdatedAt)
	}

	got, found, err := repo.Load(ctx, saved.ID)
	if err != nil || !found {
		t.Fatalf("Load() = found %v, err %v", found, err)
	}
	if got.Name != "overview" || got.ConnectionID != "local" {
		t.Errorf("Load() = %+v", got)
	}
	if p := got.Layout.NodePositions["public.users"]; p != (geom.Point{X: -110, Y: 0}) {
		t.Errorf("position = %v, want (-110, 0)", p)
	}
	if got.Layout.Viewport.Zoom != 1.25 {
		t.Errorf("zoom = %v, want 1.25", got.Layout.Viewport.Zoom)
	}
	if got.Options != diagram.DefaultOptions() {
		t.Errorf("options = %+v", got.Options)
	}
}

func TestSaveKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := New(storage.NewMemory(), WithClock(tick()))

	first, _ := repo.Save(ctx, sample("local", "v1"))
	first.Name = "v2"
	second, err := repo.Save(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID || !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("resaving should keep id and CreatedAt")
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Error("resaving should advance UpdatedAt")
	}
}

func TestLoadMissing(t *testing.T) {
	repo := New(storage.NewMemory())
	_, found, err := repo.Load(context.Background(), "does-not-exist")
	if err != nil || found {
		t.Errorf("Load(missing) = found %v, err %v, want false, nil", found, err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	repo := New(storage.NewMemory(), WithClock(tick()))

	a, _ := repo.Save(ctx, sample("local", "a"))
	b, _ := repo.Save(ctx, sample("local", "b"))
	_, _ = repo.Save(ctx, sample("prod", "c"))

	all, err := repo.List(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("List(\"\") = %d configs, %v", len(all), err)
	}
	if all[0].Name != "c" {
		t.Errorf("List()[0] = %s, want most recent first", all[0].Name)
	}

	local, err := repo.List(ctx, "local")
	if err != nil || len(local) != 2 {
		t.Fatalf("List(local) = %d configs, %v", len(local), err)
	}
	if local[0].ID != b.ID || local[1].ID != a.ID {
		t.Errorf("List(local) order = %s, %s", local[0].Name, local[1].Name)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := New(storage.NewMemory())

	cfg, _ := repo.Save(ctx, sample("local", "gone"))
	if err := repo.Delete(ctx, cfg.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, found, _ := repo.Load(ctx, cfg.ID); found {
		t.Error("config still present after Delete")
	}
	if err := repo.Delete(ctx, cfg.ID); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	repo := New(storage.NewMemory())

	if _, _, err := repo.Load(ctx, "../etc/passwd"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Load(traversal) error = %v, want INVALID_INPUT", err)
	}
	bad := sample("bad conn!", "x")
	if _, err := repo.Save(ctx, bad); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Save(bad connection) error = %v, want INVALID_INPUT", err)
	}
}

type failingStore struct{ storage.Store }

var errDisk = stderrors.New("disk on fire")

func (failingStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errDisk }
func (failingStore) Set(context.Context, string, []byte) error         { return errDisk }
func (failingStore) ListByPrefix(context.Context, string) ([]storage.Entry, error) {
	return nil, errDisk
}

func TestPersistenceErrors(t *testing.T) {
	ctx := context.Background()
	repo := New(failingStore{storage.NewMemory()})

	if _, err := repo.Save(ctx, sample("local", "x")); !errors.Is(err, errors.ErrCodePersistence) {
		t.Errorf("Save() error = %v, want PERSISTENCE_FAILED", err)
	}
	_, found, err := repo.Load(ctx, "abc")
	if !errors.Is(err, errors.ErrCodePersistence) || found {
		t.Errorf("Load() = %v, %v, want PERSISTENCE_FAILED", found, err)
	}
	if _, err := repo.List(ctx, ""); !stderrors.Is(err, errDisk) {
		t.Errorf("List() error = %v, should wrap the store error", err)
	}
}

func TestCorruptEntry(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	_ = store.Set(ctx, Key("broken"), []byte("{not json"))
	repo := New(store)

	if _, _, err := repo.Load(ctx, "broken"); !errors.Is(err, errors.ErrCodePersistence) {
		t.Errorf("Load(corrupt) error = %v, want PERSISTENCE_FAILED", err)
	}
	list, err := repo.List(ctx, "")
	if err != nil || len(list) != 0 {
		t.Errorf("List() = %v, %v, want corrupt entries skipped", list, err)
	}
}
