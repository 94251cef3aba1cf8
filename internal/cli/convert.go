package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/geokit/pkg/coord"
	"github.com/matzehuels/geokit/pkg/errors"
	"github.com/matzehuels/geokit/pkg/table"
)

// convertCommand creates the closed-form coordinate conversion command.
func (c *CLI) convertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert between latitude/longitude, Web Mercator and UTM",
	}

	cmd.AddCommand(c.convertWebMercCommand())
	cmd.AddCommand(c.convertLatLonCommand())
	cmd.AddCommand(c.convertUTMCommand())

	return cmd
}

// tableOpts selects table mode for the convert commands.
type tableOpts struct {
	input   string
	output  string
	latCol  string
	lonCol  string
	inPlace bool
}

func (o *tableOpts) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.input, "input", "i", "", "CSV, JSON or XLSX table to convert instead of a single point")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output CSV (default stdout)")
	cmd.Flags().StringVar(&o.latCol, "lat-col", "lat", "latitude column")
	cmd.Flags().StringVar(&o.lonCol, "lon-col", "lon", "longitude column")
}

// convertWebMercCommand creates the "convert webmerc" subcommand.
func (c *CLI) convertWebMercCommand() *cobra.Command {
	var opts tableOpts
	cmd := &cobra.Command{
		Use:   "webmerc [lat lon]",
		Short: "Project latitude/longitude to Web Mercator (EPSG:3857)",
		Long: `Project latitude/longitude to Web Mercator (EPSG:3857).

With two arguments a single point is converted and "x y" printed. With
--input every row of a table is converted: x and y columns are added, or
with --in-place the latitude and longitude columns are overwritten.`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.input != "" {
				return c.runConvertTable(cmd.Context(), &opts)
			}
			vals, err := parseArgs(args, "lat", "lon")
			if err != nil {
				return err
			}
			xy, err := coord.LatLonToWebMercator(coord.LatLon{Lat: vals[0], Lon: vals[1]})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Out, "%s %s\n", table.FormatFloat(xy.X), table.FormatFloat(xy.Y))
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.inPlace, "in-place", false, "overwrite the lat/lon columns instead of adding x/y")
	return cmd
}

// convertLatLonCommand creates the "convert latlon" subcommand.
func (c *CLI) convertLatLonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "latlon x y",
		Short: "Unproject Web Mercator to latitude/longitude",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vals, err := parseArgs(args, "x", "y")
			if err != nil {
				return err
			}
			ll, err := coord.WebMercatorToLatLon(coord.XY{X: vals[0], Y: vals[1]})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Out, "%s %s\n", table.FormatFloat(ll.Lat), table.FormatFloat(ll.Lon))
			return nil
		},
	}
}

// convertUTMCommand creates the "convert utm" subcommand.
func (c *CLI) convertUTMCommand() *cobra.Command {
	var reverse bool
	cmd := &cobra.Command{
		Use:   "utm lat lon | --reverse zone letter easting northing",
		Short: "Convert latitude/longitude to UTM and back",
		Args:  cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !reverse {
				if len(args) != 2 {
					return errors.New(errors.ErrCodeInvalidInput, "want lat lon, got %d arguments", len(args))
				}
				vals, err := parseArgs(args, "lat", "lon")
				if err != nil {
					return err
				}
				u, err := coord.LatLonToUTM(coord.LatLon{Lat: vals[0], Lon: vals[1]})
				if err != nil {
					return err
				}
				fmt.Fprintln(c.Out, u.String())
				return nil
			}

			if len(args) != 4 {
				return errors.New(errors.ErrCodeInvalidInput, "want zone letter easting northing, got %d arguments", len(args))
			}
			zone, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "zone %q", args[0])
			}
			vals, err := parseArgs(args[2:], "easting", "northing")
			if err != nil {
				return err
			}
			ll, err := coord.UTMToLatLon(coord.UTMPoint{Easting: vals[0], Northing: vals[1], ZoneNumber: zone, ZoneLetter: args[1]})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Out, "%s %s\n", table.FormatFloat(ll.Lat), table.FormatFloat(ll.Lon))
			return nil
		},
	}
	cmd.Flags().BoolVar(&reverse, "reverse", false, "convert UTM to latitude/longitude")
	return cmd
}

func (c *CLI) runConvertTable(ctx context.Context, opts *tableOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	t, err := table.ReadFile(c.input(opts.input))
	if err != nil {
		return err
	}
	if opts.inPlace {
		t, err = coord.TransformColumns(t, opts.latCol, opts.lonCol)
	} else {
		t, err = coord.TableToWebMercator(t, opts.latCol, opts.lonCol)
	}
	if err != nil {
		return err
	}
	if err := writeTable(t, opts.output, c.Out); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Converted %d rows", t.Len()))
	return nil
}

// writeTable writes t as CSV to path, or to stdout when path is empty.
func writeTable(t *table.Table, path string, stdout io.Writer) error {
	if path == "" {
		return table.WriteCSV(t, stdout)
	}
	return table.WriteCSVFile(t, path)
}

// parseArgs parses positional float arguments named by names.
func parseArgs(args []string, names ...string) ([]float64, error) {
	if len(args) != len(names) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "want %d arguments (%v), got %d", len(names), names, len(args))
	}
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := table.ParseFloat(a)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s %q", names[i], a)
		}
		out[i] = v
	}
	return out, nil
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(data []byte, path string, stdout io.Writer) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
