package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/geokit/pkg/buildinfo"
	"github.com/matzehuels/geokit/pkg/cache"
	"github.com/matzehuels/geokit/pkg/coord"
	"github.com/matzehuels/geokit/pkg/observability"
)

func newTestServer(t *testing.T, dataRoot string) *httptest.Server {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := New(Config{
		Cache:    c,
		Logger:   log.New(io.Discard),
		DataRoot: dataRoot,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func post(t *testing.T, url, contentType string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, contentType, bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "")
	resp, body := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("body = %s", body)
	}
	if _, err := uuid.Parse(resp.Header.Get(RequestIDHeader)); err != nil {
		t.Errorf("request id %q: %v", resp.Header.Get(RequestIDHeader), err)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	ts := newTestServer(t, "")
	id := uuid.NewString()
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}
	if got := resp.Header.Get("Server"); got != buildinfo.UserAgent() {
		t.Errorf("Server = %q", got)
	}
}

func TestWebMercator(t *testing.T) {
	ts := newTestServer(t, "")

	resp, body := get(t, ts.URL+"/v1/webmercator?lat=52.37&lon=4.89")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var got coord.XY
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	want, _ := coord.LatLonToWebMercator(coord.LatLon{Lat: 52.37, Lon: 4.89})
	if math.Abs(got.X-want.X) > 1e-6 || math.Abs(got.Y-want.Y) > 1e-6 {
		t.Errorf("got %+v, want %+v", got, want)
	}

	tests := []struct {
		query  string
		status int
		code   string
	}{
		{"lat=95&lon=0", http.StatusUnprocessableEntity, "OUT_OF_RANGE"},
		{"lat=10", http.StatusBadRequest, "INVALID_INPUT"},
		{"lat=abc&lon=1", http.StatusBadRequest, "INVALID_INPUT"},
		{"lat=NaN&lon=1", http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		resp, body := get(t, ts.URL+"/v1/webmercator?"+tt.query)
		if resp.StatusCode != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.query, resp.StatusCode, tt.status)
		}
		var e errorResponse
		if err := json.Unmarshal(body, &e); err != nil {
			t.Fatalf("%s: %v", tt.query, err)
		}
		if string(e.Code) != tt.code || e.RequestID == "" {
			t.Errorf("%s: error = %+v", tt.query, e)
		}
	}
}

func TestLatLonAndUTM(t *testing.T) {
	ts := newTestServer(t, "")

	resp, body := get(t, ts.URL+"/v1/latlon?x=0&y=0")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var ll coord.LatLon
	if err := json.Unmarshal(body, &ll); err != nil {
		t.Fatal(err)
	}
	if math.Abs(ll.Lat) > 1e-9 || math.Abs(ll.Lon) > 1e-9 {
		t.Errorf("latlon = %+v", ll)
	}

	resp, body = get(t, ts.URL+"/v1/utm?lat=52.37&lon=4.89")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var u coord.UTMPoint
	if err := json.Unmarshal(body, &u); err != nil {
		t.Fatal(err)
	}
	if u.ZoneNumber != 31 {
		t.Errorf("zone = %d, want 31", u.ZoneNumber)
	}
}

func TestCRS(t *testing.T) {
	ts := newTestServer(t, "")
	_, body := get(t, ts.URL+"/v1/crs")
	if !strings.Contains(string(body), `"EPSG:3857"`) {
		t.Errorf("body = %s", body)
	}
}

func TestReproject(t *testing.T) {
	ts := newTestServer(t, "")
	url := ts.URL + "/v1/reproject?from=EPSG:4326&to=EPSG:3857"
	payload := []byte(`{"type":"Point","coordinates":[4.89,52.37]}`)

	resp, body := post(t, url, "application/geo+json", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if resp.Header.Get(CacheHeader) != "MISS" {
		t.Errorf("first %s = %q", CacheHeader, resp.Header.Get(CacheHeader))
	}
	g, err := geojson.UnmarshalGeometry(body)
	if err != nil {
		t.Fatal(err)
	}
	p, ok := g.Geometry().(orb.Point)
	if !ok {
		t.Fatalf("geometry = %T", g.Geometry())
	}
	want, _ := coord.LatLonToWebMercator(coord.LatLon{Lat: 52.37, Lon: 4.89})
	if math.Abs(p[0]-want.X) > 1e-3 || math.Abs(p[1]-want.Y) > 1e-3 {
		t.Errorf("point = %v, want %+v", p, want)
	}

	resp, cached := post(t, url, "application/geo+json", payload)
	if resp.Header.Get(CacheHeader) != "HIT" {
		t.Errorf("second %s = %q", CacheHeader, resp.Header.Get(CacheHeader))
	}
	if !bytes.Equal(body, cached) {
		t.Error("cached body differs")
	}

	tests := []struct {
		name, query string
		body        string
		status      int
	}{
		{"bad crs", "from=EPSG:4326&to=bogus", string(payload), http.StatusBadRequest},
		{"missing crs", "from=EPSG:4326", string(payload), http.StatusBadRequest},
		{"unknown code", "from=EPSG:4326&to=EPSG:9999", string(payload), http.StatusBadRequest},
		{"unimplemented projection", "from=EPSG:4326&to=%2Bproj%3Dlaea+%2Blat_0%3D90", string(payload), http.StatusNotImplemented},
		{"empty body", "from=EPSG:4326&to=EPSG:3857", "", http.StatusBadRequest},
		{"bad json", "from=EPSG:4326&to=EPSG:3857", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, body := post(t, ts.URL+"/v1/reproject?"+tt.query, "application/json", []byte(tt.body))
		if resp.StatusCode != tt.status {
			t.Errorf("%s: status = %d, want %d (%s)", tt.name, resp.StatusCode, tt.status, body)
		}
	}
}

func TestReprojectScopedKeys(t *testing.T) {
	shared, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	serve := func(scope string) *httptest.Server {
		s := New(Config{
			Cache:  shared,
			Keyer:  cache.NewScopedKeyer(cache.NewDefaultKeyer(), scope),
			Logger: log.New(io.Discard),
		})
		ts := httptest.NewServer(s.Handler())
		t.Cleanup(ts.Close)
		return ts
	}
	staging, prod := serve("staging:"), serve("prod:")
	query := "/v1/reproject?from=EPSG:4326&to=EPSG:3857"
	payload := []byte(`{"type":"Point","coordinates":[4.89,52.37]}`)

	for _, step := range []struct {
		ts   *httptest.Server
		want string
	}{
		{staging, "MISS"},
		{staging, "HIT"},
		{prod, "MISS"},
	} {
		resp, body := post(t, step.ts.URL+query, "application/geo+json", payload)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d: %s", resp.StatusCode, body)
		}
		if got := resp.Header.Get(CacheHeader); got != step.want {
			t.Errorf("%s = %q, want %q", CacheHeader, got, step.want)
		}
	}
}

func TestPlot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "pairs.csv"), []byte("a,b\n1,1.2\n2,1.9\n3,3.2\n4,3.8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ts := newTestServer(t, root)
	req := `{"chart":"scatter","input":"pairs.csv","x":"a","y":"b","width":3,"height":3,"dpi":72}`

	resp, body := post(t, ts.URL+"/v1/plot", "application/json", []byte(req))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if resp.Header.Get("Content-Type") != "image/png" || !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Errorf("content type %q, %d bytes", resp.Header.Get("Content-Type"), len(body))
	}
	resp, _ = post(t, ts.URL+"/v1/plot", "application/json", []byte(req))
	if resp.Header.Get(CacheHeader) != "HIT" {
		t.Errorf("second %s = %q", CacheHeader, resp.Header.Get(CacheHeader))
	}

	tests := []struct {
		name, body string
		status     int
	}{
		{"escape", `{"chart":"hist","input":"../pairs.csv","x":"a"}`, http.StatusBadRequest},
		{"missing file", `{"chart":"hist","input":"none.csv","x":"a"}`, http.StatusNotFound},
		{"bad chart", `{"chart":"pie","input":"pairs.csv","x":"a"}`, http.StatusBadRequest},
		{"two formats", `{"chart":"hist","input":"pairs.csv","x":"a","formats":["png","pdf"]}`, http.StatusBadRequest},
		{"unknown field", `{"chart":"hist","colour":"red"}`, http.StatusBadRequest},
		{"missing column", `{"chart":"hist","input":"pairs.csv","x":"zzz"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, body := post(t, ts.URL+"/v1/plot", "application/json", []byte(tt.body))
		if resp.StatusCode != tt.status {
			t.Errorf("%s: status = %d, want %d (%s)", tt.name, resp.StatusCode, tt.status, body)
		}
	}
}

func TestPlotDisabled(t *testing.T) {
	ts := newTestServer(t, "")
	resp, _ := post(t, ts.URL+"/v1/plot", "application/json", []byte(`{}`))
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", resp.StatusCode)
	}
}

type httpRecorder struct {
	mu     sync.Mutex
	routes []string
	status []int
}

func (h *httpRecorder) OnRequest(context.Context, string, string) {}

func (h *httpRecorder) OnResponse(_ context.Context, _, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, route)
	h.status = append(h.status, status)
}

func TestHTTPHooks(t *testing.T) {
	rec := &httpRecorder{}
	observability.SetHTTPHooks(rec)
	t.Cleanup(observability.Reset)

	ts := newTestServer(t, "")
	get(t, ts.URL+"/v1/latlon?x=0&y=0")
	get(t, ts.URL+"/nowhere")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.routes) != 2 {
		t.Fatalf("routes = %v", rec.routes)
	}
	if rec.routes[0] != "/v1/latlon" || rec.status[0] != http.StatusOK {
		t.Errorf("first = %s %d", rec.routes[0], rec.status[0])
	}
	if rec.status[1] != http.StatusNotFound {
		t.Errorf("unrouted status = %d", rec.status[1])
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	s := New(Config{Logger: log.New(io.Discard)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
