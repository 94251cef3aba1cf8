package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"

	"github.com/matzehuels/geokit/pkg/chart"
	"github.com/matzehuels/geokit/pkg/errors"
	"github.com/matzehuels/geokit/pkg/hydro"
	"github.com/matzehuels/geokit/pkg/pipeline"
	"github.com/matzehuels/geokit/pkg/table"
)

// plotOpts holds the output flags shared by the plot subcommands.
type plotOpts struct {
	output  string
	formats string
	width   float64
	height  float64
	dpi     int
	refresh bool
}

func (o *plotOpts) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output base path; extensions are added per format")
	cmd.Flags().StringVarP(&o.formats, "format", "f", "", "output format(s): "+strings.Join(chart.Formats, ", ")+" (comma-separated, default png)")
	cmd.Flags().Float64Var(&o.width, "width", 0, "figure width in inches")
	cmd.Flags().Float64Var(&o.height, "height", 0, "figure height in inches")
	cmd.Flags().IntVar(&o.dpi, "dpi", 0, "raster resolution")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "render even when cached")
}

func (o *plotOpts) apply(opts *pipeline.Options) {
	opts.Formats = parseFormats(o.formats)
	opts.Width = o.width
	opts.Height = o.height
	opts.DPI = o.dpi
	opts.Refresh = o.refresh
}

// plotCommand creates the chart command.
func (c *CLI) plotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render hydrographs, flow duration curves and scatter charts",
	}

	cmd.AddCommand(c.plotEnsembleCommand(pipeline.ChartHydrograph, "Plot observed and ensemble-mean discharge over time"))
	cmd.AddCommand(c.plotEnsembleCommand(pipeline.ChartFDC, "Plot flow duration curves with an ensemble ±1σ band"))
	cmd.AddCommand(c.plotTableCommand(pipeline.ChartHistogram, "Plot a normalized histogram of one column"))
	cmd.AddCommand(c.plotTableCommand(pipeline.ChartScatter, "Scatter two columns against the 1:1 line"))
	cmd.AddCommand(c.plotTableCommand(pipeline.ChartDensity, "Scatter two columns colored by point density"))
	cmd.AddCommand(c.plotPermCommand())

	return cmd
}

// plotEnsembleCommand creates the hydrograph and fdc subcommands.
func (c *CLI) plotEnsembleCommand(name, short string) *cobra.Command {
	var (
		out  plotOpts
		opts = pipeline.Options{Chart: name}
	)
	cmd := &cobra.Command{
		Use:   name + " [discharge.csv]",
		Short: short,
		Long: short + `.

The discharge file has a datetime column, the observed flow in q_obs and one
column per ensemble member named with --prefix. Rows outside [--start,
--end) are dropped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Discharge = c.input(args[0])
			opts.Params = c.input(opts.Params)
			out.apply(&opts)
			return c.runPlot(cmd.Context(), opts, out.output, args[0])
		},
	}
	out.bind(cmd)
	cmd.Flags().StringVar(&opts.Params, "params", "", "member parameter table")
	cmd.Flags().StringVar(&opts.Start, "start", "", "first date kept (default 2014-08-31)")
	cmd.Flags().StringVar(&opts.End, "end", "", "first date dropped (default 2016-09-01)")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "member column prefix (default "+hydro.DefaultPrefix+")")
	cmd.Flags().StringSliceVar(&opts.Fields, "fields", nil, "parameter fields to join (default "+strings.Join(hydro.DefaultFields, ",")+")")
	cmd.Flags().BoolVar(&opts.Members, "members", false, "draw every ensemble member")
	if name == pipeline.ChartHydrograph {
		cmd.Flags().Float64Var(&opts.YMax, "ymax", 0, "upper y limit (default automatic)")
		cmd.Flags().Float64Var(&opts.Ticks, "ticks", 0, "x tick spacing in time steps")
	}
	return cmd
}

// plotTableCommand creates the hist, scatter and density subcommands.
func (c *CLI) plotTableCommand(name, short string) *cobra.Command {
	var (
		out  plotOpts
		opts = pipeline.Options{Chart: name}
	)
	cmd := &cobra.Command{
		Use:   name + " [table]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Input = c.input(args[0])
			out.apply(&opts)
			return c.runPlot(cmd.Context(), opts, out.output, args[0])
		},
	}
	out.bind(cmd)
	cmd.Flags().StringVarP(&opts.XCol, "x", "x", "", "x column (observed)")
	_ = cmd.MarkFlagRequired("x")
	if name != pipeline.ChartHistogram {
		cmd.Flags().StringVarP(&opts.YCol, "y", "y", "", "y column (simulated)")
		_ = cmd.MarkFlagRequired("y")
	}
	if name != pipeline.ChartScatter {
		cmd.Flags().IntVar(&opts.Bins, "bins", 0, fmt.Sprintf("bin count (default %d)", pipeline.DefaultBins))
	}
	if name == pipeline.ChartDensity {
		cmd.Flags().BoolVar(&opts.Regression, "regression", false, "overlay the least-squares fit and its scores")
	}
	return cmd
}

// runPlot executes a chart through the pipeline and writes every artifact.
func (c *CLI) runPlot(ctx context.Context, opts pipeline.Options, output, input string) error {
	c.setPlotDefaults(&opts)
	opts.Logger = loggerFromContext(ctx)

	runner, err := c.newRunner(ctx)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinner(ctx, os.Stderr, "Rendering "+opts.Chart+"...")
	spinner.Start()
	result, err := runner.Execute(ctx, opts)
	spinner.Stop()
	if err != nil {
		return err
	}

	base := plotBase(output, input, opts.Chart)
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	printSuccess("Rendered %s", opts.Chart)
	for _, format := range opts.Formats {
		path := base + "." + format
		if err := os.WriteFile(path, result.Artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	printStats(result.Stats.Records, result.Stats.LoadTime+result.Stats.RenderTime, result.CacheHit)
	if result.Fit != nil {
		printFit(*result.Fit)
	}
	return nil
}

// plotBase derives the output base path. Without --output the chart name
// is appended to the input name; a known format extension on --output is
// dropped.
func plotBase(output, input, chartName string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input)) + "_" + chartName
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(output), "."))
	for _, f := range chart.Formats {
		if ext == f {
			return strings.TrimSuffix(output, filepath.Ext(output))
		}
	}
	return output
}

func printFit(f hydro.FitStats) {
	printKeyValue("slope", fmt.Sprintf("%.3f", f.Slope))
	printKeyValue("intercept", fmt.Sprintf("%.3f", f.Intercept))
	printKeyValue("r²", fmt.Sprintf("%.3f", f.R2))
	printKeyValue("RMSE", fmt.Sprintf("%.3f", f.RMSE))
	printKeyValue("MBE", fmt.Sprintf("%.3f", f.MBE))
	printKeyValue("bias", fmt.Sprintf("%.3f", f.Bias))
	printKeyValue("NSE", fmt.Sprintf("%.3f", f.NSE))
	printKeyValue("KGE", fmt.Sprintf("%.3f", f.KGE))
	printKeyValue("n", fmt.Sprint(f.N))
}

// plotPermCommand creates the "plot perm" subcommand.
func (c *CLI) plotPermCommand() *cobra.Command {
	var (
		out    plotOpts
		fields []string
		units  string
	)
	cmd := &cobra.Command{
		Use:   "perm [real] [predicted]",
		Short: "Plot real against predicted parameters, one panel per field",
		Long: `Plot real against predicted parameters, one panel per field.

Both tables hold one row per ensemble member and one column per parameter,
with rows in the same order. Panels are laid out at most three per row.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			real, err := table.ReadFile(c.input(args[0]))
			if err != nil {
				return err
			}
			pred, err := table.ReadFile(c.input(args[1]))
			if err != nil {
				return err
			}
			if len(fields) == 0 {
				fields = hydro.DefaultFields
			}
			rm, err := paramMatrix(real, fields)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			pm, err := paramMatrix(pred, fields)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}
			g, err := chart.PermOneToOne(chart.DefaultStyle(), rm, pm, fields, units)
			if err != nil {
				return err
			}

			opts := pipeline.Options{}
			out.apply(&opts)
			c.setPlotDefaults(&opts)
			if out.width == 0 && c.Config.Plot.Width == 0 {
				opts.Width = 18
			}
			if out.height == 0 && c.Config.Plot.Height == 0 {
				opts.Height = 10
			}
			files, err := chart.Save(g, plotBase(out.output, args[1], "perm"),
				vg.Length(opts.Width)*vg.Inch, vg.Length(opts.Height)*vg.Inch, opts.DPI, opts.Formats...)
			if err != nil {
				return err
			}
			printSuccess("Rendered %d panels", len(fields))
			for _, f := range files {
				printFile(f)
			}
			return nil
		},
	}
	out.bind(cmd)
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "parameter columns (default "+strings.Join(hydro.DefaultFields, ",")+")")
	cmd.Flags().StringVar(&units, "units", "", "units appended to the axis labels")
	return cmd
}

// paramMatrix stacks the named columns of t into a rows × fields matrix.
func paramMatrix(t *table.Table, fields []string) (*mat.Dense, error) {
	if t.Len() == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "table has no rows")
	}
	m := mat.NewDense(t.Len(), len(fields), nil)
	for j, f := range fields {
		vals, err := t.Floats(f)
		if err != nil {
			return nil, err
		}
		m.SetCol(j, vals)
	}
	return m, nil
}
