package chart

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/matzehuels/geokit/pkg/errors"
)

// HydrographOptions configures [Hydrograph] and [HydrographEnsemble].
type HydrographOptions struct {
	YMax        float64 // upper y limit; 0 leaves the axis automatic
	TickSpacing float64 // major x tick spacing in steps; 0 uses default ticks
	MemberAlpha float64 // member opacity, default 0.3
	XLabel      string
	YLabel      string
}

func (o HydrographOptions) withDefaults() HydrographOptions {
	if o.MemberAlpha == 0 {
		o.MemberAlpha = 0.3
	}
	if o.XLabel == "" {
		o.XLabel = "Time step"
	}
	if o.YLabel == "" {
		o.YLabel = "Discharge"
	}
	return o
}

// Hydrograph draws the observed series as a solid black line and the
// ensemble mean as a dashed rosy-brown line against the time step.
func Hydrograph(p *plot.Plot, obs, mean []float64, opts HydrographOptions) error {
	return HydrographEnsemble(p, obs, mean, nil, opts)
}

// HydrographEnsemble is [Hydrograph] with every member drawn underneath as
// a thin translucent line.
func HydrographEnsemble(p *plot.Plot, obs, mean []float64, members [][]float64, opts HydrographOptions) error {
	if len(obs) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no observations")
	}
	if mean != nil && len(mean) != len(obs) {
		return errors.New(errors.ErrCodeInvalidInput, "mean has %d steps, observations have %d", len(mean), len(obs))
	}
	opts = opts.withDefaults()
	x := steps(len(obs))

	memberColor := withAlpha(Member, opts.MemberAlpha)
	for i, m := range members {
		if len(m) != len(obs) {
			return errors.New(errors.ErrCodeInvalidInput, "member %d has %d steps, observations have %d", i, len(m), len(obs))
		}
		l, err := line(x, m)
		if err != nil {
			return err
		}
		l.LineStyle.Color = memberColor
		l.LineStyle.Width = vg.Points(0.1)
		p.Add(l)
	}

	o, err := line(x, obs)
	if err != nil {
		return err
	}
	o.LineStyle.Color = Black
	o.LineStyle.Width = vg.Points(2.5)
	p.Add(o)
	p.Legend.Add("Observed", o)

	if mean != nil {
		m, err := line(x, mean)
		if err != nil {
			return err
		}
		m.LineStyle.Color = RosyBrown
		m.LineStyle.Width = vg.Points(2.5)
		m.LineStyle.Dashes = dashed
		p.Add(m)
		p.Legend.Add("Ensemble mean", m)
	}

	if opts.TickSpacing > 0 {
		p.X.Tick.Marker = spacedTicks(opts.TickSpacing)
	}
	if opts.YMax > 0 {
		p.Y.Min = 0
		p.Y.Max = opts.YMax
	}
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	return nil
}

// Curve is an x/y series such as one flow duration curve.
type Curve struct {
	X, Y []float64
}

// Band is an ensemble summary over shared x values.
type Band struct {
	X, Mean, Lower, Upper []float64
}

func (b Band) check() error {
	n := len(b.X)
	if n == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "empty band")
	}
	if len(b.Mean) != n || len(b.Lower) != n || len(b.Upper) != n {
		return errors.New(errors.ErrCodeInvalidInput, "band series lengths differ from %d", n)
	}
	return nil
}

// FDC draws observed and mean flow duration curves over the shaded
// lower/upper band, on a log y axis with exceedance from 0 to 100 %.
// Non-positive flows cannot be shown on the log axis and are dropped; the
// band floor is raised to the smallest positive flow.
func FDC(p *plot.Plot, obs Curve, band Band) error {
	return FDCEnsemble(p, obs, band, nil)
}

// FDCEnsemble is [FDC] with the member curves drawn as thin lines.
func FDCEnsemble(p *plot.Plot, obs Curve, band Band, members []Curve) error {
	if err := band.check(); err != nil {
		return err
	}
	floor := minPositive(obs.Y, band.Mean, band.Upper)
	if math.IsInf(floor, 1) {
		return errors.New(errors.ErrCodeInvalidInput, "no positive flows to draw on a log axis")
	}

	lower := make([]float64, len(band.Lower))
	for i, v := range band.Lower {
		lower[i] = math.Max(v, floor)
	}
	upper := make([]float64, len(band.Upper))
	for i, v := range band.Upper {
		upper[i] = math.Max(v, floor)
	}
	poly, err := plotter.NewPolygon(bandOutline(band.X, lower, upper))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "band")
	}
	poly.Color = withAlpha(RosyBrown, 0.4)
	poly.LineStyle.Width = 0
	p.Add(poly)
	p.Legend.Add("Mean ± 2σ", poly)

	for _, m := range members {
		l, err := line(m.X, positive(m.Y))
		if err != nil {
			return err
		}
		l.LineStyle.Color = withAlpha(Member, 0.5)
		l.LineStyle.Width = vg.Points(0.5)
		p.Add(l)
	}

	mean, err := line(band.X, positive(band.Mean))
	if err != nil {
		return err
	}
	mean.LineStyle.Color = RosyBrown
	mean.LineStyle.Width = vg.Points(2.5)
	mean.LineStyle.Dashes = dashed
	p.Add(mean)
	p.Legend.Add("Ensemble mean", mean)

	if len(obs.X) > 0 {
		o, err := line(obs.X, positive(obs.Y))
		if err != nil {
			return err
		}
		o.LineStyle.Color = Black
		o.LineStyle.Width = vg.Points(2.5)
		p.Add(o)
		p.Legend.Add("Observed", o)
	}

	p.X.Min, p.X.Max = 0, 100
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.X.Label.Text = "Exceedance probability (%)"
	p.Y.Label.Text = "Discharge"
	return nil
}

func line(x, y []float64) (*plotter.Line, error) {
	pts := xys(x, y)
	if len(pts) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "series has no finite points")
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line")
	}
	return l, nil
}

// bandOutline walks the upper edge forward and the lower edge back.
func bandOutline(x, lower, upper []float64) plotter.XYs {
	top := xys(x, upper)
	bottom := xys(x, lower)
	out := make(plotter.XYs, 0, len(top)+len(bottom))
	out = append(out, top...)
	for i := len(bottom) - 1; i >= 0; i-- {
		out = append(out, bottom[i])
	}
	return out
}

// positive replaces non-positive values with NaN so xys drops them.
func positive(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		if f > 0 {
			out[i] = f
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

func minPositive(series ...[]float64) float64 {
	m := math.Inf(1)
	for _, s := range series {
		for _, v := range s {
			if v > 0 && v < m && finite(v) {
				m = v
			}
		}
	}
	return m
}
