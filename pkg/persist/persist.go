// Package persist saves and restores diagram configurations.
//
// A [diagram.Config] captures what is needed to reproduce a diagram: the
// connection and schemas it was generated from, display options, node
// positions and the viewport. Configs are stored as JSON in a
// [storage.Store] under "diagram:<id>".
//
// A missing id is reported as found=false, never as an error. Every I/O or
// decoding failure is a PERSISTENCE_FAILED error.
package persist

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/observability"
	"github.com/matzehuels/schemagraph/pkg/storage"
)

// KeyPrefix namespaces saved diagrams inside a shared store.
const KeyPrefix = "diagram:"

// Key returns the storage key of a config id.
func Key(id string) string { return KeyPrefix + id }

// Repository stores diagram configs in a [storage.Store].
type Repository struct {
	store storage.Store
	hooks observability.StorageHooks
	now   func() time.Time
	newID func() string
}

// Option configures a Repository.
type Option func(*Repository)

// WithHooks reports every store operation to h.
func WithHooks(h observability.StorageHooks) Option {
	return func(r *Repository) {
		if h != nil {
			r.hooks = h
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// New creates a repository over store.
func New(store storage.Store, opts ...Option) *Repository {
	r := &Repository{
		store: store,
		hooks: observability.NoopStorageHooks{},
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save stores cfg. A config without an id gets a fresh UUID and a
// CreatedAt; UpdatedAt is always set. The stored config is returned.
func (r *Repository) Save(ctx context.Context, cfg diagram.Config) (diagram.Config, error) {
	if cfg.ID == "" {
		cfg.ID = r.newID()
	}
	if err := errors.ValidateConfigID(cfg.ID); err != nil {
		return cfg, err
	}
	if cfg.ConnectionID != "" {
		if err := errors.ValidateConnectionID(cfg.ConnectionID); err != nil {
			return cfg, err
		}
	}

	now := r.now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	data, err := json.Marshal(cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodePersistence, err, "encode diagram %s", cfg.ID)
	}

	start := time.Now()
	err = r.store.Set(ctx, Key(cfg.ID), data)
	r.hooks.OnStorageOp(ctx, "save", Key(cfg.ID), time.Since(start), err)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodePersistence, err, "save diagram %s", cfg.ID)
	}
	return cfg, nil
}

// Load returns the config stored under id. found is false when no such
// config exists.
func (r *Repository) Load(ctx context.Context, id string) (cfg diagram.Config, found bool, err error) {
	if err := errors.ValidateConfigID(id); err != nil {
		return cfg, false, err
	}

	start := time.Now()
	data, found, err := r.store.Get(ctx, Key(id))
	r.hooks.OnStorageOp(ctx, "load", Key(id), time.Since(start), err)
	if err != nil {
		return cfg, false, errors.Wrap(errors.ErrCodePersistence, err, "load diagram %s", id)
	}
	if !found {
		return cfg, false, nil
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, false, errors.Wrap(errors.ErrCodePersistence, err, "decode diagram %s", id)
	}
	cfg.Options.Normalize()
	return cfg, true, nil
}

// List returns the saved configs, most recently updated first. A non-empty
// connID restricts the result to that connection. Entries that fail to
// decode are skipped.
func (r *Repository) List(ctx context.Context, connID string) ([]diagram.Config, error) {
	start := time.Now()
	entries, err := r.store.ListByPrefix(ctx, KeyPrefix)
	r.hooks.OnStorageOp(ctx, "list", KeyPrefix, time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistence, err, "list diagrams")
	}

	configs := make([]diagram.Config, 0, len(entries))
	for _, e := range entries {
		var cfg diagram.Config
		if err := json.Unmarshal(e.Value, &cfg); err != nil {
			continue
		}
		if cfg.ID == "" {
			cfg.ID = strings.TrimPrefix(e.Key, KeyPrefix)
		}
		if connID != "" && cfg.ConnectionID != connID {
			continue
		}
		configs = append(configs, cfg)
	}

	sort.SliceStable(configs, func(i, j int) bool {
		if !configs[i].UpdatedAt.Equal(configs[j].UpdatedAt) {
			return configs[i].UpdatedAt.After(configs[j].UpdatedAt)
		}
		return configs[i].ID < configs[j].ID
	})
	return configs, nil
}

// Delete removes the config stored under id. Deleting a missing config is
// not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := errors.ValidateConfigID(id); err != nil {
		return err
	}

	start := time.Now()
	err := r.store.Delete(ctx, Key(id))
	r.hooks.OnStorageOp(ctx, "delete", Key(id), time.Since(start), err)
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistence, err, "delete diagram %s", id)
	}
	return nil
}

// Close closes the underlying store.
func (r *Repository) Close() error {
	return r.store.Close()
}
