// Package config loads the schemagraph configuration file.
//
// Settings are resolved with the following priority, highest first:
//
//  1. Environment variables (SCHEMAGRAPH_*, with "." replaced by "_")
//  2. The config file (~/.config/schemagraph/config.toml or --config)
//  3. Built-in defaults
//
// A .env file in the working directory is loaded into the environment
// before anything else, without overriding variables already set.
//
// Example file:
//
//	[storage]
//	backend = "sqlite"
//	path = "~/.config/schemagraph/diagrams.db"
//
//	[connections.shop]
//	driver = "postgres"
//	dsn = "postgres://localhost:5432/shop"
//
//	[defaults]
//	layout = "force"
//	indexes = true
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/layout"
	"github.com/matzehuels/schemagraph/pkg/schema"
	"github.com/matzehuels/schemagraph/pkg/storage"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCHEMAGRAPH"

// DefaultAddr is the default HTTP listen address.
const DefaultAddr = "127.0.0.1:8080"

// Config is the complete application configuration.
type Config struct {
	Storage     StorageConfig               `mapstructure:"storage"`
	Connections map[string]ConnectionConfig `mapstructure:"connections"`
	Defaults    DefaultsConfig              `mapstructure:"defaults"`
	Cache       CacheConfig                 `mapstructure:"cache"`
	Server      ServerConfig                `mapstructure:"server"`
}

// StorageConfig selects the backend for saved diagrams.
type StorageConfig struct {
	Backend  string `mapstructure:"backend"`
	Path     string `mapstructure:"path"`
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// ConnectionConfig is one named database connection. For the catalog
// driver the DSN is the path of a TOML or JSON catalog file.
type ConnectionConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// DefaultsConfig holds the default diagram options.
type DefaultsConfig struct {
	Layout        string  `mapstructure:"layout"`
	Columns       string  `mapstructure:"columns"`
	Types         bool    `mapstructure:"types"`
	Nullable      bool    `mapstructure:"nullable"`
	Indexes       bool    `mapstructure:"indexes"`
	Grid          bool    `mapstructure:"grid"`
	Snap          bool    `mapstructure:"snap"`
	ColorBySchema bool    `mapstructure:"color_by_schema"`
	GridSize      float64 `mapstructure:"grid_size"`
}

// CacheConfig controls the layout and artifact cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	opts := diagram.DefaultOptions()
	return &Config{
		Storage:     StorageConfig{Backend: storage.BackendFile},
		Connections: map[string]ConnectionConfig{},
		Defaults: DefaultsConfig{
			Layout:        string(layout.DefaultAlgorithm),
			Columns:       string(opts.ColumnDisplay),
			Types:         opts.ShowDataTypes,
			Nullable:      opts.ShowNullable,
			Indexes:       opts.ShowIndexes,
			Grid:          opts.ShowGrid,
			Snap:          opts.SnapToGrid,
			ColorBySchema: opts.ColorBySchema,
			GridSize:      opts.GridSize,
		},
		Cache:  CacheConfig{Enabled: true},
		Server: ServerConfig{Addr: DefaultAddr},
	}
}

// DefaultPath returns ~/.config/schemagraph/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "schemagraph", "config.toml"), nil
}

// StoreConfig returns the storage settings with "~" expanded.
func (c *Config) StoreConfig() storage.Config {
	return storage.Config{
		Backend:  c.Storage.Backend,
		Path:     expandHome(c.Storage.Path),
		URL:      c.Storage.URL,
		Database: c.Storage.Database,
	}
}

// ConnectionList returns the configured connections sorted by id.
func (c *Config) ConnectionList() []schema.Connection {
	out := make([]schema.Connection, 0, len(c.Connections))
	for id, conn := range c.Connections {
		dsn := conn.DSN
		if conn.Driver == DriverCatalog || conn.Driver == DriverSQLite {
			dsn = expandHome(dsn)
		}
		out = append(out, schema.Connection{ID: id, Driver: conn.Driver, DSN: dsn})
	}
	sortConnections(out)
	return out
}

// DiagramOptions converts the defaults section into diagram options.
func (d DefaultsConfig) DiagramOptions() diagram.Options {
	opts := diagram.Options{
		ColumnDisplay: diagram.ColumnDisplay(d.Columns),
		ShowDataTypes: d.Types,
		ShowNullable:  d.Nullable,
		ShowIndexes:   d.Indexes,
		ShowGrid:      d.Grid,
		SnapToGrid:    d.Snap,
		ColorBySchema: d.ColorBySchema,
		GridSize:      d.GridSize,
	}
	opts.Normalize()
	return opts
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
