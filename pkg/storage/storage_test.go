package storage

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
)

// testStore runs the behavior every backend must share.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		v, found, err := s.Get(ctx, "diagram:none")
		if err != nil || found || v != nil {
			t.Errorf("Get(missing) = %q, %v, %v, want nil, false, nil", v, found, err)
		}
	})

	t.Run("set get overwrite", func(t *testing.T) {
		if err := s.Set(ctx, "diagram:a", []byte("one")); err != nil {
			t.Fatalf("Set() error: %v", err)
		}
		if err := s.Set(ctx, "diagram:a", []byte("two")); err != nil {
			t.Fatalf("Set() error: %v", err)
		}
		v, found, err := s.Get(ctx, "diagram:a")
		if err != nil || !found || string(v) != "two" {
			t.Errorf("Get() = %q, %v, %v, want two, true, nil", v, found, err)
		}
	})

	t.Run("list by prefix", func(t *testing.T) {
		for _, k := range []string{"diagram:c", "diagram:b", "other:x", "diagram%:y", "Diagram:z"} {
			if err := s.Set(ctx, k, []byte(k)); err != nil {
				t.Fatalf("Set(%s) error: %v", k, err)
			}
		}
		entries, err := s.ListByPrefix(ctx, "diagram:")
		if err != nil {
			t.Fatalf("ListByPrefix() error: %v", err)
		}
		want := []string{"diagram:a", "diagram:b", "diagram:c"}
		if len(entries) != len(want) {
			t.Fatalf("ListByPrefix() returned %d entries, want %d: %v", len(entries), len(want), entries)
		}
		for i, e := range entries {
			if e.Key != want[i] {
				t.Errorf("entries[%d].Key = %q, want %q", i, e.Key, want[i])
			}
		}
		if string(entries[1].Value) != "diagram:b" {
			t.Errorf("entries[1].Value = %q", entries[1].Value)
		}

		all, err := s.ListByPrefix(ctx, "")
		if err != nil || len(all) != 6 {
			t.Errorf("ListByPrefix(\"\") = %d entries, %v, want 6", len(all), err)
		}
	})

	t.Run("special characters", func(t *testing.T) {
		key := "diagram:a/b?c*d [e]"
		if err := s.Set(ctx, key, []byte{0, 1, 2}); err != nil {
			t.Fatalf("Set() error: %v", err)
		}
		v, found, err := s.Get(ctx, key)
		if err != nil || !found || len(v) != 3 || v[2] != 2 {
			t.Errorf("Get(%q) = %v, %v, %v", key, v, found, err)
		}
		entries, err := s.ListByPrefix(ctx, "diagram:a/b?")
		if err != nil || len(entries) != 1 {
			t.Errorf("ListByPrefix(glob chars) = %v, %v, want one entry", entries, err)
		}
		if err := s.Delete(ctx, key); err != nil {
			t.Errorf("Delete() error: %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Delete(ctx, "diagram:a"); err != nil {
			t.Fatalf("Delete() error: %v", err)
		}
		if _, found, _ := s.Get(ctx, "diagram:a"); found {
			t.Error("key still present after Delete")
		}
		if err := s.Delete(ctx, "diagram:a"); err != nil {
			t.Errorf("Delete(missing) error: %v", err)
		}
	})
}

// testClosed checks that a closed store refuses work.
func testClosed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	if _, _, err := s.Get(ctx, "k"); !stderrors.Is(err, ErrClosed) {
		t.Errorf("Get after Close error = %v, want ErrClosed", err)
	}
	if err := s.Set(ctx, "k", nil); !stderrors.Is(err, ErrClosed) {
		t.Errorf("Set after Close error = %v, want ErrClosed", err)
	}
	if _, err := s.ListByPrefix(ctx, ""); !stderrors.Is(err, ErrClosed) {
		t.Errorf("ListByPrefix after Close error = %v, want ErrClosed", err)
	}
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	testStore(t, s)
	testClosed(t, s)
}

func TestMemoryCopiesValues(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	buf := []byte("abc")
	_ = s.Set(ctx, "k", buf)
	buf[0] = 'x'
	v, _, _ := s.Get(ctx, "k")
	if string(v) != "abc" {
		t.Errorf("stored value aliased caller buffer: %q", v)
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	testStore(t, s)
	testClosed(t, s)
}

func TestFileStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := s.Set(ctx, "diagram:../x", []byte("v")); err != nil {
		t.Fatal(err)
	}
	files, _ := os.ReadDir(dir)
	if len(files) != 1 || filepath.Ext(files[0].Name()) != ".json" {
		t.Fatalf("unexpected files: %v", files)
	}
	info, _ := files[0].Info()
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %v, want 0600", perm)
	}

	// Corrupt files are skipped by listing and surface as errors on Get.
	if err := os.WriteFile(filepath.Join(dir, "diagram%3Abad.json"), []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	entries, err := s.ListByPrefix(ctx, "diagram:")
	if err != nil || len(entries) != 1 {
		t.Errorf("ListByPrefix() = %v, %v, want the one valid entry", entries, err)
	}
	if _, _, err := s.Get(ctx, "diagram:bad"); err == nil {
		t.Error("Get(corrupt) should fail")
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	testStore(t, s)
	testClosed(t, s)
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "diagram:1", []byte("saved")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	v, found, err := s.Get(ctx, "diagram:1")
	if err != nil || !found || string(v) != "saved" {
		t.Errorf("Get() after reopen = %q, %v, %v", v, found, err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{Backend: "memory"}, false},
		{Config{Backend: "FILE", Path: t.TempDir()}, false},
		{Config{Backend: "sqlite"}, false},
		{Config{Backend: "etcd"}, true},
	}
	for _, tt := range tests {
		s, err := Open(ctx, tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("Open(%+v) error = %v, wantErr %v", tt.cfg, err, tt.wantErr)
			continue
		}
		if s != nil {
			s.Close()
		}
	}
}

func TestEscapeGlob(t *testing.T) {
	tests := []struct{ in, want string }{
		{"diagram:", "diagram:"},
		{"a*b", `a\*b`},
		{"[x]?", `\[x\]\?`},
	}
	for _, tt := range tests {
		if got := escapeGlob(tt.in); got != tt.want {
			t.Errorf("escapeGlob(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
