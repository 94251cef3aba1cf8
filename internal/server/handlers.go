package server

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/matzehuels/geokit/pkg/buildinfo"
	"github.com/matzehuels/geokit/pkg/cache"
	"github.com/matzehuels/geokit/pkg/chart"
	"github.com/matzehuels/geokit/pkg/coord"
	"github.com/matzehuels/geokit/pkg/errors"
	"github.com/matzehuels/geokit/pkg/observability"
	"github.com/matzehuels/geokit/pkg/pipeline"
	"github.com/matzehuels/geokit/pkg/reproject"
)

// CacheHeader reports whether a response came from the cache ("HIT" or "MISS").
const CacheHeader = "X-Cache"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleCRS(w http.ResponseWriter, r *http.Request) {
	codes := reproject.Codes()
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = "EPSG:" + strconv.Itoa(c)
	}
	s.writeJSON(w, r, http.StatusOK, map[string][]string{"crs": out})
}

func (s *Server) handleWebMercator(w http.ResponseWriter, r *http.Request) {
	p, err := latLonParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	xy, err := coord.LatLonToWebMercator(p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, xy)
}

func (s *Server) handleLatLon(w http.ResponseWriter, r *http.Request) {
	x, err := floatParam(r, "x")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	y, err := floatParam(r, "y")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ll, err := coord.WebMercatorToLatLon(coord.XY{X: x, Y: y})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, ll)
}

func (s *Server) handleUTM(w http.ResponseWriter, r *http.Request) {
	p, err := latLonParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := coord.LatLonToUTM(p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, u)
}

func latLonParams(r *http.Request) (coord.LatLon, error) {
	lat, err := floatParam(r, "lat")
	if err != nil {
		return coord.LatLon{}, err
	}
	lon, err := floatParam(r, "lon")
	if err != nil {
		return coord.LatLon{}, err
	}
	return coord.LatLon{Lat: lat, Lon: lon}, nil
}

// handleReproject converts a GeoJSON geometry, feature or feature
// collection between two CRSs. Results are cached by CRS pair and body hash.
func (s *Server) handleReproject(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	for _, c := range []string{from, to} {
		if err := errors.ValidateCRS(c); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	tr, err := reproject.New(from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBody))
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body"))
		return
	}
	if len(body) == 0 {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "empty request body"))
		return
	}

	ctx := r.Context()
	key := s.cfg.Keyer.TransformKey(tr.Source(), tr.Target(), cache.Hash(body))
	if data, ok, err := s.cfg.Cache.Get(ctx, key); err != nil {
		s.cfg.Logger.Warn("cache read failed", "err", err)
	} else if ok {
		observability.Cache().OnCacheHit(ctx, "reproject")
		s.writeGeoJSON(w, r, data, "HIT")
		return
	}
	observability.Cache().OnCacheMiss(ctx, "reproject")

	out, err := tr.GeoJSON(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.cfg.Cache.Set(ctx, key, out, s.cfg.TTL); err != nil {
		s.cfg.Logger.Warn("cache write failed", "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "reproject", len(out))
	}
	s.writeGeoJSON(w, r, out, "MISS")
}

func (s *Server) writeGeoJSON(w http.ResponseWriter, r *http.Request, data []byte, cacheStatus string) {
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set(CacheHeader, cacheStatus)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.cfg.Logger.Warn("write response failed", "path", r.URL.Path, "err", err)
	}
}

// handlePlot renders one chart. The body is a JSON pipeline.Options whose
// file paths are relative to the data root. At most one format may be
// requested; the response body is the rendered artifact.
func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	if s.cfg.DataRoot == "" {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "plotting is disabled: no data root configured"))
		return
	}

	var opts pipeline.Options
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid json body"))
		return
	}
	if len(opts.Formats) > 1 {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "request one format at a time, got %d", len(opts.Formats)))
		return
	}

	var err error
	for _, p := range []*string{&opts.Discharge, &opts.Params, &opts.Input} {
		if *p, err = s.resolve(*p); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	opts.Logger = s.cfg.Logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid options"))
		return
	}

	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	format := opts.Formats[0]
	w.Header().Set("Content-Type", chart.ContentType(format))
	if res.CacheHit {
		w.Header().Set(CacheHeader, "HIT")
	} else {
		w.Header().Set(CacheHeader, "MISS")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Artifacts[format]); err != nil {
		s.cfg.Logger.Warn("write response failed", "path", r.URL.Path, "err", err)
	}
}

// resolve maps a request path into the data root, refusing paths that
// would leave it.
func (s *Server) resolve(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if !filepath.IsLocal(p) {
		return "", errors.New(errors.ErrCodeInvalidInput, "path %q must be relative to the data root", p)
	}
	return filepath.Join(s.cfg.DataRoot, p), nil
}
