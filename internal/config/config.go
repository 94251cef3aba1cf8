// Package config loads geokit's user configuration.
//
// Settings come from a TOML file, by default
// $XDG_CONFIG_HOME/geokit/config.toml, and are then overridden by
// environment variables. A .env file in the working directory is loaded
// into the environment first when present.
//
//	[plot]
//	width   = 20
//	height  = 5
//	dpi     = 300
//	formats = ["png", "pdf"]
//
//	[crs]
//	source = "EPSG:4326"
//	target = "EPSG:3857"
//
//	[cache]
//	dir       = "/var/cache/geokit"
//	redis_url = "redis://localhost:6379/0"
//	ttl       = "168h"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/geokit/pkg/errors"
)

const appName = "geokit"

// Environment variables read by [Load].
const (
	EnvRedisURL   = "GEOKIT_REDIS_URL"
	EnvCacheDir   = "GEOKIT_CACHE_DIR"
	EnvCacheScope = "GEOKIT_CACHE_SCOPE"
	EnvDataPath   = "DATAPATH"
)

// Config is the merged user configuration.
type Config struct {
	Plot  Plot  `toml:"plot"`
	CRS   CRS   `toml:"crs"`
	Cache Cache `toml:"cache"`

	// DataPath is the directory relative input paths are resolved against.
	// It is only set from the environment.
	DataPath string `toml:"-"`
}

// Plot holds chart output defaults. Zero values defer to the pipeline's.
type Plot struct {
	Width   float64  `toml:"width"`
	Height  float64  `toml:"height"`
	DPI     int      `toml:"dpi"`
	Formats []string `toml:"formats"`
}

// CRS holds the default source and target reference systems.
type CRS struct {
	Source string `toml:"source"`
	Target string `toml:"target"`
}

// Cache configures the artifact cache.
type Cache struct {
	Dir      string   `toml:"dir"`
	RedisURL string   `toml:"redis_url"`
	TTL      Duration `toml:"ttl"`

	// Scope prefixes every cache key, letting deployments share one Redis
	// without reading each other's entries.
	Scope string `toml:"scope"`
}

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CRS: CRS{Source: "EPSG:4326", Target: "EPSG:3857"},
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, "config.toml"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// Load reads the config file at path and applies environment overrides.
// An empty path means [Path]; a missing default file is not an error, but a
// missing explicit one is.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			cfg.applyEnv()
			return cfg, nil
		}
		path = p
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
	}
	if err := Decode(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// Decode reads a TOML file into cfg. Keys that geokit does not know are
// reported as an error so typos do not pass silently.
func Decode(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeParse, err, "config file %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.New(errors.ErrCodeInvalidInput, "config file %s: unknown key %q", path, undecoded[0].String())
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Cache.RedisURL = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv(EnvCacheScope); v != "" {
		c.Cache.Scope = v
	}
	if v := os.Getenv(EnvDataPath); v != "" {
		c.DataPath = v
	}
}

// Resolve joins a relative path onto DataPath. Absolute paths and paths
// with no DataPath set are returned unchanged.
func (c *Config) Resolve(path string) string {
	if path == "" || c.DataPath == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataPath, path)
}

// Write encodes cfg as TOML at path, creating parent directories.
func Write(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}
