package pipeline

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/plot/vg"

	"github.com/matzehuels/geokit/pkg/chart"
	"github.com/matzehuels/geokit/pkg/hydro"
	"github.com/matzehuels/geokit/pkg/observability"
)

// figure is a built chart ready for encoding.
type figure struct {
	fig     chart.Figure
	fit     *hydro.FitStats
	records int
}

// build loads the inputs and draws the chart named by opts.
func build(ctx context.Context, in inputs, opts Options) (figure, error) {
	if opts.IsEnsemble() {
		e, err := loadEnsemble(ctx, in, opts)
		if err != nil {
			return figure{}, err
		}
		return buildEnsemble(e, opts)
	}

	t, err := loadTable(ctx, in, opts)
	if err != nil {
		return figure{}, err
	}
	x, err := t.Floats(opts.XCol)
	if err != nil {
		return figure{}, err
	}
	var y []float64
	if opts.Chart != ChartHistogram {
		if y, err = t.Floats(opts.YCol); err != nil {
			return figure{}, err
		}
	}
	f, err := buildXY(x, y, opts)
	f.records = t.Len()
	return f, err
}

func buildEnsemble(e *hydro.Ensemble, opts Options) (figure, error) {
	p := chart.New(chart.DefaultStyle())
	f := figure{fig: p, records: e.Len()}

	switch opts.Chart {
	case ChartHydrograph:
		mean, _, _, err := hydro.EnsembleStats(e.Flows)
		if err != nil {
			return f, err
		}
		var members [][]float64
		if opts.Members {
			members = e.Flows
		}
		return f, chart.HydrographEnsemble(p, e.Observed, mean, members, chart.HydrographOptions{
			YMax:        opts.YMax,
			TickSpacing: opts.Ticks,
		})

	case ChartFDC:
		exceed, flows, err := hydro.EnsembleFDC(e.Flows)
		if err != nil {
			return f, err
		}
		mean, lower, upper, err := hydro.EnsembleStats(flows)
		if err != nil {
			return f, err
		}
		ox, oy := hydro.FlowDuration(e.Observed)
		var members []chart.Curve
		if opts.Members {
			for _, fl := range flows {
				members = append(members, chart.Curve{X: exceed, Y: fl})
			}
		}
		band := chart.Band{X: exceed, Mean: mean, Lower: lower, Upper: upper}
		return f, chart.FDCEnsemble(p, chart.Curve{X: ox, Y: oy}, band, members)
	}
	return f, fmt.Errorf("chart %q does not take an ensemble", opts.Chart)
}

func buildXY(x, y []float64, opts Options) (figure, error) {
	p := chart.New(chart.DefaultStyle())
	f := figure{fig: p}
	p.X.Label.Text = opts.XCol
	if opts.YCol != "" {
		p.Y.Label.Text = opts.YCol
	}

	switch opts.Chart {
	case ChartHistogram:
		return f, chart.Histogram(p, x, opts.Bins)
	case ChartScatter:
		if err := chart.Scatter1to1(p, x, y); err != nil {
			return f, err
		}
	case ChartDensity:
		if _, _, _, err := chart.ScatterDensity(p, x, y, chart.DensityOptions{Bins: opts.Bins, Regression: opts.Regression}); err != nil {
			return f, err
		}
	default:
		return f, fmt.Errorf("chart %q does not take a table", opts.Chart)
	}

	fit, err := hydro.Fit(x, y)
	if err != nil {
		return f, err
	}
	f.fit = &fit
	return f, nil
}

// encode renders f in every requested format.
func encode(ctx context.Context, f figure, opts Options, formats []string) (map[string][]byte, error) {
	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Chart, formats)

	w := vg.Length(opts.Width) * vg.Inch
	h := vg.Length(opts.Height) * vg.Inch
	out := make(map[string][]byte, len(formats))
	var err error
	for _, format := range formats {
		var data []byte
		if data, err = chart.Encode(f.fig, format, w, h, opts.DPI); err != nil {
			err = fmt.Errorf("render %s: %w", format, err)
			break
		}
		out[format] = data
	}
	observability.Pipeline().OnRenderComplete(ctx, opts.Chart, formats, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}
