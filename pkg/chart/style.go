// Package chart draws hydrological and model-comparison figures with
// gonum.org/v1/plot.
//
// Every routine draws onto a caller-supplied *plot.Plot, so several series
// can share one figure and nothing is kept in package state. Create plots
// with [New] to get the house style, then write them with [Save] or
// [Encode].
//
// # Example
//
//	p := chart.New(chart.DefaultStyle())
//	if err := chart.Hydrograph(p, obs, mean, chart.HydrographOptions{YMax: 80}); err != nil {
//	    return err
//	}
//	files, err := chart.Save(p, "out/hydrograph", 20*vg.Inch, 5*vg.Inch, 300, "png", "pdf")
package chart

import (
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Style holds the font and tick sizes applied by [New].
type Style struct {
	TitleSize  vg.Length
	LabelSize  vg.Length
	TickSize   vg.Length
	TickLength vg.Length
	TickWidth  vg.Length
	LegendSize vg.Length
	LineWidth  vg.Length
}

// DefaultStyle returns 24pt labels with 20pt tick labels on 6pt × 2pt ticks.
func DefaultStyle() Style {
	return Style{
		TitleSize:  vg.Points(28),
		LabelSize:  vg.Points(24),
		TickSize:   vg.Points(20),
		TickLength: vg.Points(6),
		TickWidth:  vg.Points(2),
		LegendSize: vg.Points(18),
		LineWidth:  vg.Points(2.5),
	}
}

// New creates a plot styled with s.
func New(s Style) *plot.Plot {
	p := plot.New()
	s.Apply(p)
	return p
}

// Apply restyles an existing plot.
func (s Style) Apply(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = s.TitleSize
	p.Legend.TextStyle.Font.Size = s.LegendSize
	p.Legend.Top = true
	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		ax.Label.TextStyle.Font.Size = s.LabelSize
		ax.Tick.Label.Font.Size = s.TickSize
		ax.Tick.Length = s.TickLength
		ax.Tick.LineStyle.Width = s.TickWidth
		ax.LineStyle.Width = s.TickWidth
	}
}

var (
	// Black draws observed series.
	Black = color.RGBA{A: 255}
	// RosyBrown draws ensemble means.
	RosyBrown = color.RGBA{R: 188, G: 143, B: 143, A: 255}
	// Member draws individual ensemble members.
	Member = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	// Red draws reference lines.
	Red = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	// Blue fills histograms.
	Blue = color.RGBA{B: 255, A: 255}
)

var dashed = []vg.Length{vg.Points(8), vg.Points(4)}

// withAlpha returns c with opacity a in [0, 1].
func withAlpha(c color.Color, a float64) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(math.Round(math.Max(0, math.Min(1, a)) * 255))
	return n
}

// xys pairs x and y, dropping pairs with a non-finite value, which
// plotter constructors reject.
func xys(x, y []float64) plotter.XYs {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	out := make(plotter.XYs, 0, n)
	for i := 0; i < n; i++ {
		if finite(x[i]) && finite(y[i]) {
			out = append(out, plotter.XY{X: x[i], Y: y[i]})
		}
	}
	return out
}

// steps returns 0..n-1 as float64.
func steps(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// spacedTicks places major ticks at multiples of its value.
type spacedTicks float64

func (s spacedTicks) Ticks(min, max float64) []plot.Tick {
	step := float64(s)
	if step <= 0 || (max-min)/step > 1000 {
		return plot.DefaultTicks{}.Ticks(min, max)
	}
	var ticks []plot.Tick
	for v := math.Ceil(min/step) * step; v <= max; v += step {
		ticks = append(ticks, plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', -1, 64)})
	}
	return ticks
}
