package chart

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/matzehuels/geokit/pkg/errors"
	"github.com/matzehuels/geokit/pkg/hydro"
)

const (
	testW = 4 * vg.Inch
	testH = 3 * vg.Inch
)

func series(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func assertPNG(t *testing.T, p Figure) {
	t.Helper()
	data, err := Encode(p, "png", testW, testH, 72)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("Encode did not produce a PNG (%d bytes)", len(data))
	}
}

func TestNewAppliesStyle(t *testing.T) {
	s := DefaultStyle()
	p := New(s)
	if p.X.Label.TextStyle.Font.Size != vg.Points(24) {
		t.Errorf("label size = %v", p.X.Label.TextStyle.Font.Size)
	}
	if p.Y.Tick.Label.Font.Size != vg.Points(20) {
		t.Errorf("tick size = %v", p.Y.Tick.Label.Font.Size)
	}
	if p.X.Tick.Length != vg.Points(6) || p.X.Tick.LineStyle.Width != vg.Points(2) {
		t.Errorf("tick = %v × %v", p.X.Tick.Length, p.X.Tick.LineStyle.Width)
	}
}

func TestHydrograph(t *testing.T) {
	obs := series(50, func(i int) float64 { return 10 + 5*math.Sin(float64(i)/5) })
	mean := series(50, func(i int) float64 { return 11 + 5*math.Sin(float64(i)/5) })
	members := [][]float64{
		series(50, func(i int) float64 { return 9 + float64(i%7) }),
		series(50, func(i int) float64 { return 12 + float64(i%5) }),
	}

	p := New(DefaultStyle())
	if err := HydrographEnsemble(p, obs, mean, members, HydrographOptions{YMax: 80, TickSpacing: 10}); err != nil {
		t.Fatal(err)
	}
	if p.Y.Min != 0 || p.Y.Max != 80 {
		t.Errorf("y limits = [%v, %v], want [0, 80]", p.Y.Min, p.Y.Max)
	}
	ticks := p.X.Tick.Marker.Ticks(0, 49)
	if len(ticks) != 5 || ticks[1].Value != 10 || ticks[1].Label != "10" {
		t.Errorf("ticks = %+v", ticks)
	}
	assertPNG(t, p)

	if err := Hydrograph(New(DefaultStyle()), obs, mean[:10], HydrographOptions{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("length mismatch error = %v", err)
	}
	if err := Hydrograph(New(DefaultStyle()), nil, nil, HydrographOptions{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty error = %v", err)
	}
}

func TestFDC(t *testing.T) {
	members := [][]float64{
		series(40, func(i int) float64 { return 1 + float64(i) }),
		series(40, func(i int) float64 { return 2 + float64(i)*1.5 }),
		series(40, func(i int) float64 { return 0.5 + float64(i)*0.5 }),
	}
	exceed, flows, err := hydro.EnsembleFDC(members)
	if err != nil {
		t.Fatal(err)
	}
	mean, lower, upper, err := hydro.EnsembleStats(flows)
	if err != nil {
		t.Fatal(err)
	}
	ox, oy := hydro.FlowDuration(series(40, func(i int) float64 { return float64(i) }))

	curves := make([]Curve, len(flows))
	for i, f := range flows {
		curves[i] = Curve{X: exceed, Y: f}
	}
	p := New(DefaultStyle())
	err = FDCEnsemble(p, Curve{X: ox, Y: oy}, Band{X: exceed, Mean: mean, Lower: lower, Upper: upper}, curves)
	if err != nil {
		t.Fatal(err)
	}
	if p.X.Min != 0 || p.X.Max != 100 {
		t.Errorf("x limits = [%v, %v], want [0, 100]", p.X.Min, p.X.Max)
	}
	if _, ok := p.Y.Scale.(plot.LogScale); !ok {
		t.Errorf("y scale = %T, want plot.LogScale", p.Y.Scale)
	}
	assertPNG(t, p)

	err = FDC(New(DefaultStyle()), Curve{}, Band{X: []float64{1}, Mean: []float64{0}, Lower: []float64{0}, Upper: []float64{0}})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("non-positive flows error = %v", err)
	}
	if err := FDC(New(DefaultStyle()), Curve{}, Band{X: []float64{1, 2}, Mean: []float64{1}}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ragged band error = %v", err)
	}
}

func TestHistogram(t *testing.T) {
	p := New(DefaultStyle())
	vals := series(100, func(i int) float64 { return float64(i % 10) })
	vals = append(vals, math.NaN())
	if err := Histogram(p, vals, 10); err != nil {
		t.Fatal(err)
	}
	assertPNG(t, p)

	if err := Histogram(New(DefaultStyle()), []float64{math.NaN()}, 10); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("all-NaN error = %v", err)
	}
}

func TestScatter1to1(t *testing.T) {
	p := New(DefaultStyle())
	if err := Scatter1to1(p, []float64{1, 2, 3}, []float64{1.5, 1.8, 3.3}); err != nil {
		t.Fatal(err)
	}
	assertPNG(t, p)
}

func TestDensity(t *testing.T) {
	// Nine points packed near the origin and one far away.
	x := []float64{0, 0.1, 0.2, 0, 0.1, 0.2, 0, 0.1, 0.2, 10}
	y := []float64{0, 0, 0, 0.1, 0.1, 0.1, 0.2, 0.2, 0.2, 10}
	z := Density(x, y, 5)
	for i := 0; i < 9; i++ {
		if z[i] <= z[9] {
			t.Errorf("z[%d] = %v, want above isolated point %v", i, z[i], z[9])
		}
	}
}

func TestScatterDensity(t *testing.T) {
	x := series(60, func(i int) float64 { return float64(i % 12) })
	y := series(60, func(i int) float64 { return float64(i%12) + float64(i%3)*0.5 })

	p := New(DefaultStyle())
	xs, ys, zs, err := ScatterDensity(p, x, y, DensityOptions{Bins: 8, Regression: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(xs) != 60 || len(ys) != 60 || len(zs) != 60 {
		t.Fatalf("lengths = %d %d %d", len(xs), len(ys), len(zs))
	}
	if !sort.Float64sAreSorted(zs) {
		t.Error("zs not sorted ascending")
	}
	assertPNG(t, p)

	if _, _, _, err := ScatterDensity(New(DefaultStyle()), []float64{1}, []float64{1}, DensityOptions{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("single point error = %v", err)
	}
}

func TestRegressionLabel(t *testing.T) {
	got := RegressionLabel(hydro.FitStats{Slope: 0.98, Intercept: -1.234, R2: 0.9, RMSE: 2.26, MBE: -0.44, N: 12})
	want := "y=0.98x-1.23; r²=0.90\nRMSE=2.3; MBE=-0.4\nn=12"
	if got != want {
		t.Errorf("RegressionLabel = %q, want %q", got, want)
	}
}

func TestGridShape(t *testing.T) {
	tests := []struct{ n, rows, cols int }{
		{0, 0, 0}, {1, 1, 1}, {3, 1, 3}, {4, 2, 2}, {5, 2, 3}, {7, 3, 3},
	}
	for _, tt := range tests {
		r, c := GridShape(tt.n)
		if r != tt.rows || c != tt.cols {
			t.Errorf("GridShape(%d) = %d×%d, want %d×%d", tt.n, r, c, tt.rows, tt.cols)
		}
	}
}

func TestPermOneToOne(t *testing.T) {
	real := mat.NewDense(4, 5, series(20, func(i int) float64 { return float64(i) }))
	pred := mat.NewDense(4, 5, series(20, func(i int) float64 { return float64(i) + 0.3 }))
	names := []string{"s3", "s6", "g1", "g5", "g7"}

	g, err := PermOneToOne(DefaultStyle(), real, pred, names, "m/d")
	if err != nil {
		t.Fatal(err)
	}
	if r, c := g.Dims(); r != 2 || c != 3 {
		t.Fatalf("Dims = %d×%d, want 2×3", r, c)
	}
	if g.Plots[1][2] != nil {
		t.Error("unused cell should be nil")
	}
	if g.Plots[1][0].Y.Label.Text != "Predicted - m/d" || g.Plots[1][1].Y.Label.Text != "" {
		t.Errorf("y labels = %q, %q", g.Plots[1][0].Y.Label.Text, g.Plots[1][1].Y.Label.Text)
	}
	if g.Plots[0][2].Title.Text != "g1" {
		t.Errorf("title = %q", g.Plots[0][2].Title.Text)
	}
	assertPNG(t, g)

	if _, err := PermOneToOne(DefaultStyle(), real, mat.NewDense(2, 5, nil), names, ""); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("shape mismatch error = %v", err)
	}
}

func TestSave(t *testing.T) {
	p := New(DefaultStyle())
	if err := Scatter1to1(p, []float64{1, 2}, []float64{2, 1}); err != nil {
		t.Fatal(err)
	}
	base := filepath.Join(t.TempDir(), "nested", "scatter")
	files, err := Save(p, base, testW, testH, 72, "png", ".SVG", "pdf")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{base + ".png", base + ".svg", base + ".pdf"}
	for i, w := range want {
		if files[i] != w {
			t.Errorf("files[%d] = %q, want %q", i, files[i], w)
		}
		st, err := os.Stat(w)
		if err != nil || st.Size() == 0 {
			t.Errorf("%s: %v", w, err)
		}
	}
	svg, _ := os.ReadFile(base + ".svg")
	if !strings.Contains(string(svg), "<svg") {
		t.Error("svg output has no <svg element")
	}

	if _, err := Save(p, base, testW, testH, 72, "bmp"); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("bmp error = %v", err)
	}
}

func TestContentType(t *testing.T) {
	for format, want := range map[string]string{
		"png": "image/png", "PDF": "application/pdf", ".svg": "image/svg+xml", "xyz": "application/octet-stream",
	} {
		if got := ContentType(format); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", format, got, want)
		}
	}
}
