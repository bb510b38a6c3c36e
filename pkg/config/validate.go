package config

import (
	stderrors "errors"
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/layout"
	"github.com/matzehuels/schemagraph/pkg/storage"
)

// Connection drivers understood by the CLI and server.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverCatalog  = "catalog"
)

// Drivers returns all supported connection drivers.
func Drivers() []string {
	return []string{DriverPostgres, DriverSQLite, DriverCatalog}
}

var (
	// ErrInvalidBackend indicates an unsupported storage backend.
	ErrInvalidBackend = stderrors.New("invalid storage backend")

	// ErrInvalidConnection indicates a malformed connection entry.
	ErrInvalidConnection = stderrors.New("invalid connection")

	// ErrInvalidDefaults indicates invalid default diagram options.
	ErrInvalidDefaults = stderrors.New("invalid defaults")
)

// Validate checks the configuration and reports every problem at once.
func Validate(cfg *Config) error {
	var errs []error

	backend := strings.ToLower(cfg.Storage.Backend)
	if backend != "" && !slices.Contains(storage.Backends(), backend) {
		errs = append(errs, fmt.Errorf("%w: %q (want one of %s)",
			ErrInvalidBackend, cfg.Storage.Backend, strings.Join(storage.Backends(), ", ")))
	}

	for _, id := range sortedKeys(cfg.Connections) {
		conn := cfg.Connections[id]
		if err := errors.ValidateConnectionID(id); err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidConnection, err))
			continue
		}
		if !slices.Contains(Drivers(), conn.Driver) {
			errs = append(errs, fmt.Errorf("%w %s: driver %q (want one of %s)",
				ErrInvalidConnection, id, conn.Driver, strings.Join(Drivers(), ", ")))
		}
		if conn.DSN == "" {
			errs = append(errs, fmt.Errorf("%w %s: dsn is required", ErrInvalidConnection, id))
		}
	}

	if _, err := layout.ParseAlgorithm(cfg.Defaults.Layout); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidDefaults, err))
	}
	if _, err := diagram.ParseColumnDisplay(cfg.Defaults.Columns); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidDefaults, err))
	}
	if cfg.Defaults.GridSize < 0 {
		errs = append(errs, fmt.Errorf("%w: grid_size must not be negative", ErrInvalidDefaults))
	}

	return stderrors.Join(errs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
