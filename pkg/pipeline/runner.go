package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/geokit/pkg/cache"
	"github.com/matzehuels/geokit/pkg/observability"
)

// Runner executes chart runs with artifact caching.
// Both CLI and API use it so caching behaves the same for each.
//
// The Runner keeps no per-run state. Multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		TTL:    DefaultTTL,
	}
}

// Execute loads the inputs, renders every requested format and caches the
// result. When every format is cached and Refresh is not set, nothing is
// rendered.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	in, err := readInputs(opts)
	if err != nil {
		return nil, err
	}
	result := &Result{InputHash: in.hash()}

	if !opts.Refresh {
		if artifacts, ok := r.cached(ctx, result.InputHash, opts); ok {
			result.Artifacts = artifacts
			result.CacheHit = true
			opts.Logger.Debug("artifacts from cache", "chart", opts.Chart, "formats", opts.Formats)
			return result, nil
		}
	}

	loadStart := time.Now()
	f, err := build(ctx, in, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Chart, err)
	}
	result.Fit = f.fit
	result.Stats.Records = f.records
	result.Stats.LoadTime = time.Since(loadStart)

	renderStart := time.Now()
	artifacts, err := encode(ctx, f, opts, opts.Formats)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)

	opts.Logger.Info("rendered chart",
		"chart", opts.Chart,
		"records", result.Stats.Records,
		"formats", opts.Formats,
		"duration", result.Stats.LoadTime+result.Stats.RenderTime)

	r.store(ctx, result.InputHash, opts, artifacts)
	return result, nil
}

// cached returns all requested artifacts, or false if any is missing.
func (r *Runner) cached(ctx context.Context, inputHash string, opts Options) (map[string][]byte, bool) {
	out := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(inputHash, opts.ArtifactKeyOpts(format))
		var (
			data []byte
			hit  bool
		)
		err := cache.RetryWithBackoff(ctx, func() error {
			var err error
			data, hit, err = r.Cache.Get(ctx, key)
			return err
		})
		if err != nil {
			opts.Logger.Warn("cache read failed", "err", err)
			return nil, false
		}
		if !hit {
			observability.Cache().OnCacheMiss(ctx, "artifact")
			return nil, false
		}
		observability.Cache().OnCacheHit(ctx, "artifact")
		out[format] = data
	}
	return out, true
}

// store writes artifacts to the cache. Failures are logged, not returned.
func (r *Runner) store(ctx context.Context, inputHash string, opts Options, artifacts map[string][]byte) {
	for format, data := range artifacts {
		key := r.Keyer.ArtifactKey(inputHash, opts.ArtifactKeyOpts(format))
		err := cache.RetryWithBackoff(ctx, func() error {
			return r.Cache.Set(ctx, key, data, r.TTL)
		})
		if err != nil {
			opts.Logger.Warn("cache write failed", "format", format, "err", err)
			continue
		}
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
