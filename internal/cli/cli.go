package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/geokit/internal/config"
	"github.com/matzehuels/geokit/pkg/cache"
	"github.com/matzehuels/geokit/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "geokit"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *config.Config
	Out    io.Writer

	configPath string
	noCache    bool
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
		Out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// loadConfig reads the config file named by --config, or the default one.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context) (*pipeline.Runner, error) {
	store, err := c.openCache(ctx)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(store, c.keyer(), c.Logger)
	if ttl := c.Config.Cache.TTL.Duration; ttl > 0 {
		r.TTL = ttl
	}
	return r, nil
}

// keyer returns the cache keyer, scoped when the config names a scope.
func (c *CLI) keyer() cache.Keyer {
	if scope := c.Config.Cache.Scope; scope != "" {
		return cache.NewScopedKeyer(cache.NewDefaultKeyer(), scope+":")
	}
	return cache.NewDefaultKeyer()
}

// openCache opens the configured cache. A file cache that cannot be created
// degrades to no caching; an unreachable Redis is an error.
func (c *CLI) openCache(ctx context.Context) (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	if c.Config.Cache.RedisURL != "" {
		return cache.Open(ctx, cache.Options{RedisURL: c.Config.Cache.RedisURL})
	}
	dir, err := c.cacheDir()
	if err != nil {
		c.Logger.Warn("caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	store, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return store, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, falling back to
// $XDG_CACHE_HOME/geokit.
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cache.DefaultDir()
}

// input resolves a user-supplied input path against DATAPATH.
func (c *CLI) input(path string) string {
	return c.Config.Resolve(path)
}

// =============================================================================
// Options Helpers
// =============================================================================

// setPlotDefaults fills output settings left unset on the command line
// from the [plot] config section.
func (c *CLI) setPlotDefaults(opts *pipeline.Options) {
	p := c.Config.Plot
	if opts.Width == 0 {
		opts.Width = p.Width
	}
	if opts.Height == 0 {
		opts.Height = p.Height
	}
	if opts.DPI == 0 {
		opts.DPI = p.DPI
	}
	if len(opts.Formats) == 0 {
		opts.Formats = p.Formats
	}
	opts.SetRenderDefaults()
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}
