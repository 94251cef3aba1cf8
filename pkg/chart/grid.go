package chart

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/matzehuels/geokit/pkg/errors"
)

// Figure is anything that can draw itself onto a canvas. *plot.Plot and
// *Grid are Figures.
type Figure interface {
	Draw(draw.Canvas)
}

// Grid lays plots out in rows and columns. Nil cells stay blank.
type Grid struct {
	Plots [][]*plot.Plot // [row][col]
	Pad   vg.Length
}

// Dims returns the number of rows and columns.
func (g *Grid) Dims() (rows, cols int) {
	rows = len(g.Plots)
	for _, r := range g.Plots {
		if len(r) > cols {
			cols = len(r)
		}
	}
	return rows, cols
}

// Draw implements [Figure].
func (g *Grid) Draw(c draw.Canvas) {
	rows, cols := g.Dims()
	if rows == 0 || cols == 0 {
		return
	}
	tiles := draw.Tiles{
		Rows: rows, Cols: cols,
		PadX: g.Pad, PadY: g.Pad,
		PadTop: g.Pad, PadBottom: g.Pad, PadLeft: g.Pad, PadRight: g.Pad,
	}
	for i, row := range g.Plots {
		for j, p := range row {
			if p != nil {
				p.Draw(tiles.At(c, j, i))
			}
		}
	}
}

// GridShape returns the layout used for n panels: ceil(n/3) rows and as
// many columns as needed to hold n, so rows carry at most three panels.
func GridShape(n int) (rows, cols int) {
	if n <= 0 {
		return 0, 0
	}
	rows = int(math.Ceil(float64(n) / 3))
	cols = int(math.Ceil(float64(n) / float64(rows)))
	return rows, cols
}

// PermOneToOne builds one real-versus-predicted panel per parameter column.
// real and pred are members × parameters. Each panel carries a red line
// from the smallest to the largest real value. Only the first panel of
// each row gets a y label.
func PermOneToOne(s Style, real, pred mat.Matrix, names []string, units string) (*Grid, error) {
	rr, rc := real.Dims()
	pr, pc := pred.Dims()
	if rr != pr || rc != pc {
		return nil, errors.New(errors.ErrCodeInvalidInput, "real is %d×%d, pred is %d×%d", rr, rc, pr, pc)
	}
	if len(names) != rc {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%d names for %d parameters", len(names), rc)
	}
	rows, cols := GridShape(rc)
	g := &Grid{Plots: make([][]*plot.Plot, rows), Pad: vg.Points(12)}
	for i := range g.Plots {
		g.Plots[i] = make([]*plot.Plot, cols)
	}

	suffix := ""
	if units != "" {
		suffix = " - " + units
	}
	for k := 0; k < rc; k++ {
		x := mat.Col(nil, k, real)
		y := mat.Col(nil, k, pred)

		p := New(s)
		p.Title.Text = names[k]
		p.X.Label.Text = "Real" + suffix
		if k%cols == 0 {
			p.Y.Label.Text = "Predicted" + suffix
		}

		pts := xys(x, y)
		if len(pts) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "parameter %q has no finite pairs", names[k])
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parameter %q", names[k])
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)

		lo, hi := math.Inf(1), math.Inf(-1)
		for _, pt := range pts {
			lo, hi = math.Min(lo, pt.X), math.Max(hi, pt.X)
		}
		ref, err := diagonal(lo, hi, Red, nil)
		if err != nil {
			return nil, err
		}
		p.Add(ref)

		g.Plots[k/cols][k%cols] = p
	}
	return g, nil
}
