package config

import (
	"cmp"
	stderrors "errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/matzehuels/schemagraph/pkg/schema"
)

// Load reads the configuration from path, or from [DefaultPath] when path
// is empty. A missing default file is not an error; a missing explicit
// file is.
func Load(path string) (*Config, error) {
	// .env never overrides variables that are already set.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		path = p
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if explicit || !isNotFound(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Connections == nil {
		cfg.Connections = map[string]ConnectionConfig{}
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// envKeys are the keys that SCHEMAGRAPH_* variables may override.
var envKeys = []string{
	"storage.backend",
	"storage.path",
	"storage.url",
	"storage.database",
	"defaults.layout",
	"defaults.columns",
	"defaults.types",
	"defaults.nullable",
	"defaults.indexes",
	"defaults.grid",
	"defaults.snap",
	"defaults.color_by_schema",
	"defaults.grid_size",
	"cache.enabled",
	"cache.dir",
	"server.addr",
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("storage.backend", d.Storage.Backend)

	v.SetDefault("defaults.layout", d.Defaults.Layout)
	v.SetDefault("defaults.columns", d.Defaults.Columns)
	v.SetDefault("defaults.types", d.Defaults.Types)
	v.SetDefault("defaults.nullable", d.Defaults.Nullable)
	v.SetDefault("defaults.indexes", d.Defaults.Indexes)
	v.SetDefault("defaults.grid", d.Defaults.Grid)
	v.SetDefault("defaults.snap", d.Defaults.Snap)
	v.SetDefault("defaults.color_by_schema", d.Defaults.ColorBySchema)
	v.SetDefault("defaults.grid_size", d.Defaults.GridSize)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("server.addr", d.Server.Addr)
}

// isNotFound reports whether err means the config file does not exist.
// SetConfigFile bypasses viper's search, so a missing file surfaces as an
// fs error rather than ConfigFileNotFoundError.
func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	if stderrors.As(err, &nf) {
		return true
	}
	return stderrors.Is(err, fs.ErrNotExist)
}

func sortConnections(conns []schema.Connection) {
	slices.SortFunc(conns, func(a, b schema.Connection) int { return cmp.Compare(a.ID, b.ID) })
}
