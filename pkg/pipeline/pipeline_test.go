package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/geokit/pkg/cache"
	"github.com/matzehuels/geokit/pkg/errors"
)

func TestValidateChart(t *testing.T) {
	tests := []struct {
		chart   string
		wantErr bool
	}{
		{"hydrograph", false},
		{"fdc", false},
		{"hist", false},
		{"scatter", false},
		{"density", false},
		{"FDC", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateChart(tt.chart)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateChart(%q) error = %v, wantErr %v", tt.chart, err, tt.wantErr)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"png", "pdf", "svg"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}
	if err := ValidateFormats([]string{"png", "gif"}); err == nil {
		t.Error("Invalid format should fail")
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"fdc", Options{Chart: ChartFDC, Discharge: "q.csv"}, false},
		{"fdc without discharge", Options{Chart: ChartFDC}, true},
		{"hist", Options{Chart: ChartHistogram, Input: "t.csv", XCol: "v"}, false},
		{"hist without x", Options{Chart: ChartHistogram, Input: "t.csv"}, true},
		{"scatter without y", Options{Chart: ChartScatter, Input: "t.csv", XCol: "a"}, true},
		{"bad start", Options{Chart: ChartFDC, Discharge: "q.csv", Start: "soon"}, true},
		{"bad format", Options{Chart: ChartFDC, Discharge: "q.csv", Formats: []string{"bmp"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetRenderDefaults(t *testing.T) {
	opts := Options{}
	opts.SetRenderDefaults()

	if len(opts.Formats) != 1 || opts.Formats[0] != "png" {
		t.Errorf("Formats should be [png], got %v", opts.Formats)
	}
	if opts.Width != DefaultWidth || opts.Height != DefaultHeight {
		t.Errorf("size = %v×%v", opts.Width, opts.Height)
	}
	if opts.DPI != DefaultDPI || opts.Bins != DefaultBins {
		t.Errorf("dpi %d bins %d", opts.DPI, opts.Bins)
	}
}

func TestOptionsValidateAndSetDefaultsIdempotent(t *testing.T) {
	opts := Options{Chart: ChartHydrograph, Discharge: "q.csv"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	opts.Chart = "bogus"
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Error("second call should not re-validate")
	}
}

func TestArtifactKeyOptsDistinguishOptions(t *testing.T) {
	k := cache.NewDefaultKeyer()
	a := Options{Chart: ChartDensity, XCol: "obs", YCol: "sim"}
	b := a
	b.Regression = true
	if k.ArtifactKey("h", a.ArtifactKeyOpts("png")) == k.ArtifactKey("h", b.ArtifactKeyOpts("png")) {
		t.Error("regression flag should change the key")
	}
}

const discharge = `datetime,q_obs,q_ats_1,q_ats_2,q_ats_3
2015-01-01,5,4,6,5
2015-01-02,7,6,8,9
2015-01-03,3,2,4,3
2015-01-04,9,8,11,10
2015-01-05,4,3,5,6
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func testRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	r := NewRunner(c, nil, log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel}))
	t.Cleanup(func() { r.Close() })
	return r, &buf
}

func TestRunnerEnsembleCharts(t *testing.T) {
	dir := t.TempDir()
	q := writeFile(t, dir, "q.csv", discharge)
	r, _ := testRunner(t)
	ctx := context.Background()

	for _, name := range []string{ChartHydrograph, ChartFDC} {
		res, err := r.Execute(ctx, Options{
			Chart: name, Discharge: q, Members: true,
			Start: "2015-01-01", End: "2016-01-01",
			Formats: []string{"png", "svg"}, Width: 4, Height: 3, DPI: 72,
		})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !bytes.HasPrefix(res.Artifacts["png"], []byte("\x89PNG")) {
			t.Errorf("%s: png artifact missing", name)
		}
		if !bytes.Contains(res.Artifacts["svg"], []byte("<svg")) {
			t.Errorf("%s: svg artifact missing", name)
		}
		if res.Stats.Records != 5 || res.CacheHit {
			t.Errorf("%s: records %d hit %v", name, res.Stats.Records, res.CacheHit)
		}
	}
}

func TestRunnerCaches(t *testing.T) {
	dir := t.TempDir()
	csv := "obs,sim\n"
	for i := 0; i < 30; i++ {
		csv += fmt.Sprintf("%d,%d\n", i, i+i%4)
	}
	in := writeFile(t, dir, "pairs.csv", csv)
	r, logs := testRunner(t)
	ctx := context.Background()

	opts := Options{
		Chart: ChartDensity, Input: in, XCol: "obs", YCol: "sim", Regression: true,
		Width: 4, Height: 4, DPI: 72,
	}
	first, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit || first.Fit == nil || first.Fit.N != 30 {
		t.Fatalf("first run: hit %v fit %+v", first.CacheHit, first.Fit)
	}

	second, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit {
		t.Error("second run should come from cache")
	}
	if !bytes.Equal(first.Artifacts["png"], second.Artifacts["png"]) {
		t.Error("cached artifact differs")
	}
	if !strings.Contains(logs.String(), "artifacts from cache") {
		t.Error("runner logger should be used when options carry none")
	}

	opts.Refresh = true
	third, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheHit {
		t.Error("refresh should bypass the cache")
	}

	// Changing the input contents changes the key.
	writeFile(t, dir, "pairs.csv", csv+"30,31\n")
	opts.Refresh = false
	fourth, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if fourth.CacheHit {
		t.Error("edited input should miss the cache")
	}
}

func TestRunnerTableCharts(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "v.json", `[{"a": 1, "b": 2}, {"a": 2, "b": 2.5}, {"a": 3, "b": 2.9}]`)
	r := NewRunner(nil, nil, log.New(io.Discard))

	for _, opts := range []Options{
		{Chart: ChartHistogram, Input: in, XCol: "a", Bins: 3},
		{Chart: ChartScatter, Input: in, XCol: "a", YCol: "b"},
	} {
		opts.Width, opts.Height, opts.DPI = 3, 3, 72
		res, err := r.Execute(context.Background(), opts)
		if err != nil {
			t.Fatalf("%s: %v", opts.Chart, err)
		}
		if len(res.Artifacts["png"]) == 0 {
			t.Errorf("%s: no png", opts.Chart)
		}
	}
}

func TestRunnerErrors(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))
	ctx := context.Background()

	_, err := r.Execute(ctx, Options{Chart: ChartFDC, Discharge: filepath.Join(t.TempDir(), "none.csv")})
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v", err)
	}

	dir := t.TempDir()
	in := writeFile(t, dir, "t.csv", "a,b\n1,2\n")
	_, err = r.Execute(ctx, Options{Chart: ChartScatter, Input: in, XCol: "a", YCol: "zzz"})
	if !errors.Is(err, errors.ErrCodeInvalidColumn) {
		t.Errorf("missing column error = %v", err)
	}
}
