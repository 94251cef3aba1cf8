package chart

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/matzehuels/geokit/pkg/errors"
	"github.com/matzehuels/geokit/pkg/hydro"
)

// Histogram draws a density-normalised histogram of the finite values.
func Histogram(p *plot.Plot, values []float64, bins int) error {
	var v plotter.Values
	for _, f := range values {
		if finite(f) {
			v = append(v, f)
		}
	}
	if len(v) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no finite values")
	}
	if bins <= 0 {
		bins = 20
	}
	h, err := plotter.NewHist(v, bins)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "histogram")
	}
	h.Normalize(1)
	h.FillColor = withAlpha(Blue, 0.5)
	h.LineStyle.Color = Black
	h.LineStyle.Width = vg.Points(1)
	p.Add(h)
	p.Y.Label.Text = "Density"
	return nil
}

// Scatter1to1 draws y against x with a black 1:1 line over the combined
// range of both series.
func Scatter1to1(p *plot.Plot, x, y []float64) error {
	pts := xys(x, y)
	if len(pts) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no finite pairs")
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "scatter")
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(3)
	p.Add(s)

	lo, hi := dataRange(pts)
	ref, err := diagonal(lo, hi, Black, nil)
	if err != nil {
		return err
	}
	p.Add(ref)
	return nil
}

// DensityOptions configures [ScatterDensity].
type DensityOptions struct {
	Bins       int  // histogram bins per axis, default 20
	Regression bool // draw the least-squares line with its fit scores
}

// ScatterDensity draws y against x with each point coloured by the local
// point density. Density is a 2D histogram interpolated bilinearly between
// bin centres. Points are drawn and returned in increasing density so the
// densest sit on top. A dashed red 1:1 line is always drawn.
func ScatterDensity(p *plot.Plot, x, y []float64, opts DensityOptions) (xs, ys, zs []float64, err error) {
	pts := xys(x, y)
	if len(pts) < 2 {
		return nil, nil, nil, errors.New(errors.ErrCodeInvalidInput, "need at least 2 finite pairs, have %d", len(pts))
	}
	if opts.Bins <= 0 {
		opts.Bins = 20
	}

	xs = make([]float64, len(pts))
	ys = make([]float64, len(pts))
	for i, pt := range pts {
		xs[i], ys[i] = pt.X, pt.Y
	}
	zs = Density(xs, ys, opts.Bins)

	idx := make([]int, len(zs))
	floats.Argsort(zs, idx)
	sx := make([]float64, len(idx))
	sy := make([]float64, len(idx))
	for i, j := range idx {
		sx[i], sy[i] = xs[j], ys[j]
	}
	xs, ys = sx, sy

	zmax := zs[len(zs)-1]
	if zmax == zs[0] {
		zmax++
	}
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(zs[0])
	cmap.SetMax(zmax)
	sorted := xys(xs, ys)
	s, err := plotter.NewScatter(sorted)
	if err != nil {
		return nil, nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "scatter")
	}
	s.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		c, err := cmap.At(zs[i])
		if err != nil {
			c = color.Gray{Y: 128}
		}
		return draw.GlyphStyle{Color: c, Radius: vg.Points(3), Shape: draw.CircleGlyph{}}
	}
	p.Add(s)

	lo, hi := dataRange(sorted)
	ref, err := diagonal(lo, hi, Red, dashed)
	if err != nil {
		return nil, nil, nil, err
	}
	p.Add(ref)
	p.Legend.Add("1:1", ref)

	if opts.Regression {
		fit, err := hydro.Fit(xs, ys)
		if err != nil {
			return nil, nil, nil, err
		}
		reg, err := plotter.NewLine(plotter.XYs{
			{X: lo, Y: fit.Intercept + fit.Slope*lo},
			{X: hi, Y: fit.Intercept + fit.Slope*hi},
		})
		if err != nil {
			return nil, nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "regression line")
		}
		reg.LineStyle.Color = Black
		reg.LineStyle.Width = vg.Points(2)
		p.Add(reg)
		p.Legend.Add(RegressionLabel(fit), reg)
	}
	return xs, ys, zs, nil
}

// RegressionLabel formats fit scores for a legend entry.
func RegressionLabel(s hydro.FitStats) string {
	return fmt.Sprintf("y=%.2fx%+.2f; r²=%.2f\nRMSE=%.1f; MBE=%.1f\nn=%d",
		s.Slope, s.Intercept, s.R2, s.RMSE, s.MBE, s.N)
}

// Density estimates the point density at each (x, y) from a bins × bins
// histogram normalised to unit volume, interpolated bilinearly between
// bin centres and clamped at the outermost centres.
func Density(x, y []float64, bins int) []float64 {
	n := len(x)
	x0, x1 := span(x)
	y0, y1 := span(y)
	wx := (x1 - x0) / float64(bins)
	wy := (y1 - y0) / float64(bins)

	h := make([][]float64, bins)
	for i := range h {
		h[i] = make([]float64, bins)
	}
	scale := 1 / (float64(n) * wx * wy)
	for k := 0; k < n; k++ {
		h[bin(x[k], x0, wx, bins)][bin(y[k], y0, wy, bins)] += scale
	}

	z := make([]float64, n)
	for k := 0; k < n; k++ {
		i0, i1, tx := cell(x[k], x0, wx, bins)
		j0, j1, ty := cell(y[k], y0, wy, bins)
		z[k] = (1-tx)*(1-ty)*h[i0][j0] + tx*(1-ty)*h[i1][j0] +
			(1-tx)*ty*h[i0][j1] + tx*ty*h[i1][j1]
	}
	return z
}

// span returns the range of v, widened when all values are equal.
func span(v []float64) (lo, hi float64) {
	lo, hi = floats.Min(v), floats.Max(v)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	return lo, hi
}

func bin(v, lo, w float64, bins int) int {
	i := int((v - lo) / w)
	if i < 0 {
		return 0
	}
	if i >= bins {
		return bins - 1
	}
	return i
}

// cell locates v between two neighbouring bin centres.
func cell(v, lo, w float64, bins int) (i0, i1 int, t float64) {
	f := (v-lo)/w - 0.5
	f = math.Max(0, math.Min(float64(bins-1), f))
	i0 = int(math.Floor(f))
	i1 = i0 + 1
	if i1 >= bins {
		i1 = bins - 1
	}
	return i0, i1, f - float64(i0)
}

func dataRange(pts plotter.XYs) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		lo = math.Min(lo, math.Min(p.X, p.Y))
		hi = math.Max(hi, math.Max(p.X, p.Y))
	}
	return lo, hi
}

func diagonal(lo, hi float64, c color.Color, dashes []vg.Length) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "1:1 line")
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = vg.Points(2)
	l.LineStyle.Dashes = dashes
	return l, nil
}
