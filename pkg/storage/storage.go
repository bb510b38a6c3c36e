package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// Store is a byte-oriented key-value store.
type Store interface {
	// Get returns the value stored under key. A missing key returns
	// found=false and a nil error.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// ListByPrefix returns all entries whose key starts with prefix,
	// sorted by key.
	ListByPrefix(ctx context.Context, prefix string) ([]Entry, error)

	// Close releases backend resources.
	Close() error
}

// Entry is a key with its value.
type Entry struct {
	Key   string
	Value []byte
}

// Backend names accepted by [Open].
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Backends returns the supported backend names.
func Backends() []string {
	return []string{BackendMemory, BackendFile, BackendSQLite, BackendRedis, BackendMongo}
}

// Config selects and configures a backend.
type Config struct {
	Backend  string // one of Backends(); empty means file
	Path     string // file: directory, sqlite: database file
	URL      string // redis://... or mongodb://...
	Database string // mongo database name
}

// DefaultDir returns ~/.config/schemagraph/diagrams.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "schemagraph", "diagrams"), nil
}

// Open creates the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendMemory:
		return NewMemory(), nil
	case "", BackendFile:
		return NewFileStore(cfg.Path)
	case BackendSQLite:
		return OpenSQLite(ctx, cfg.Path)
	case BackendRedis:
		return OpenRedis(ctx, cfg.URL)
	case BackendMongo:
		return OpenMongo(ctx, cfg.URL, cfg.Database)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want one of %s)",
			cfg.Backend, strings.Join(Backends(), ", "))
	}
}
