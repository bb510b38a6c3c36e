package schema

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/matzehuels/schemagraph/pkg/errors"
)

// Connection is a named database connection.
type Connection struct {
	ID     string `json:"id" mapstructure:"id"`
	Driver string `json:"driver" mapstructure:"driver"`
	DSN    string `json:"-" mapstructure:"dsn"`
}

// Registry maps connection ids to connections and drivers to sources. It
// implements [Source] by routing each call to the source registered for the
// connection's driver, and it can serve as the DSN resolver of those sources.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]Connection
	drivers map[string]Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[string]Connection),
		drivers: make(map[string]Source),
	}
}

// RegisterDriver binds a driver name ("postgres", "sqlite", "catalog") to a source.
func (r *Registry) RegisterDriver(name string, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[name] = src
}

// AddConnection registers or replaces a connection.
func (r *Registry) AddConnection(c Connection) error {
	if err := errors.ValidateConnectionID(c.ID); err != nil {
		return err
	}
	if c.Driver == "" {
		return errors.New(errors.ErrCodeInvalidInput, "connection %s: driver is required", c.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID] = c
	return nil
}

// Connection returns the connection with the given id.
func (r *Registry) Connection(id string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Connections returns all registered connections sorted by id.
func (r *Registry) Connections() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Connection) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// DSN resolves a connection id to its data source name.
func (r *Registry) DSN(_ context.Context, connID string) (string, error) {
	c, ok := r.Connection(connID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownConnection, connID)
	}
	return c.DSN, nil
}

func (r *Registry) source(connID string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConnection, connID)
	}
	src, ok := r.drivers[c.Driver]
	if !ok {
		return nil, fmt.Errorf("%w: %s (connection %s)", ErrUnknownDriver, c.Driver, connID)
	}
	return src, nil
}

// ListTables implements [Source].
func (r *Registry) ListTables(ctx context.Context, connID, schema string) ([]Table, error) {
	src, err := r.source(connID)
	if err != nil {
		return nil, err
	}
	return src.ListTables(ctx, connID, schema)
}

// ListColumns implements [Source].
func (r *Registry) ListColumns(ctx context.Context, connID, schema, table string) ([]Column, error) {
	src, err := r.source(connID)
	if err != nil {
		return nil, err
	}
	return src.ListColumns(ctx, connID, schema, table)
}

// ListIndexes implements [Source].
func (r *Registry) ListIndexes(ctx context.Context, connID, schema, table string) ([]Index, error) {
	src, err := r.source(connID)
	if err != nil {
		return nil, err
	}
	return src.ListIndexes(ctx, connID, schema, table)
}

// ListForeignKeys implements [Source].
func (r *Registry) ListForeignKeys(ctx context.Context, connID, schema, table string) ([]ForeignKey, error) {
	src, err := r.source(connID)
	if err != nil {
		return nil, err
	}
	return src.ListForeignKeys(ctx, connID, schema, table)
}

// Close closes every registered source that holds resources.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for _, src := range r.drivers {
		if c, ok := src.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

var _ Source = (*Registry)(nil)
