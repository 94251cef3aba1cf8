// Package server implements the geokit HTTP API started by `geokit serve`.
//
// # Routes
//
//	GET  /healthz                       liveness
//	GET  /v1/crs                        registered EPSG codes
//	GET  /v1/webmercator?lat=&lon=      geographic to Web Mercator
//	GET  /v1/latlon?x=&y=               Web Mercator to geographic
//	GET  /v1/utm?lat=&lon=              geographic to UTM
//	POST /v1/reproject?from=&to=        reproject a GeoJSON body
//	POST /v1/plot                       render a chart from files under the data root
//
// Errors are JSON objects with "error", "code" and "request_id" fields.
// The status follows the error code, see errors.HTTPStatus.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/geokit/pkg/cache"
	"github.com/matzehuels/geokit/pkg/pipeline"
)

// DefaultMaxBody caps request bodies.
const DefaultMaxBody = 32 << 20

// Config wires the server's dependencies.
type Config struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// DataRoot is the directory /v1/plot reads input files from. The plot
	// route answers 501 when it is empty.
	DataRoot string

	// MaxBody caps request bodies in bytes; DefaultMaxBody when zero.
	MaxBody int64

	// TTL is how long reprojection results stay cached.
	TTL time.Duration
}

// Server serves the HTTP API.
type Server struct {
	cfg    Config
	runner *pipeline.Runner
	router chi.Router
}

// New builds a server. A nil cache disables caching.
func New(cfg Config) *Server {
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNullCache()
	}
	if cfg.Keyer == nil {
		cfg.Keyer = cache.NewDefaultKeyer()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = DefaultMaxBody
	}
	if cfg.TTL == 0 {
		cfg.TTL = pipeline.DefaultTTL
	}

	s := &Server{
		cfg:    cfg,
		runner: pipeline.NewRunner(cfg.Cache, cfg.Keyer, cfg.Logger),
	}
	s.runner.TTL = cfg.TTL
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/crs", s.handleCRS)
		r.Get("/webmercator", s.handleWebMercator)
		r.Get("/latlon", s.handleLatLon)
		r.Get("/utm", s.handleUTM)
		r.Post("/reproject", s.handleReproject)
		r.Post("/plot", s.handlePlot)
	})
	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.cfg.Logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
