package cache

import "context"

// Options selects a backend for [Open].
type Options struct {
	Disabled bool   // use a NullCache
	RedisURL string // use Redis when set
	Dir      string // FileCache root; DefaultDir when empty
	Prefix   string // Redis key prefix
}

// Open returns the backend described by opts: null when disabled, Redis
// when a URL is given, otherwise a file cache.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch {
	case opts.Disabled:
		return NewNullCache(), nil
	case opts.RedisURL != "":
		return NewRedisCache(ctx, RedisConfig{URL: opts.RedisURL, Prefix: opts.Prefix})
	}
	dir := opts.Dir
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return NewFileCache(dir)
}
