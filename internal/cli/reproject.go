package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/geokit/pkg/cache"
	"github.com/matzehuels/geokit/pkg/errors"
	"github.com/matzehuels/geokit/pkg/reproject"
	"github.com/matzehuels/geokit/pkg/table"
)

// crsFlags holds the --from/--to pair shared by the reproject commands.
type crsFlags struct {
	from string
	to   string
}

func (f *crsFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "source CRS: EPSG:<code> or +proj=... (default from config)")
	cmd.Flags().StringVar(&f.to, "to", "", "target CRS (default from config)")
}

// transformer builds a transformer, filling unset CRSs from the [crs]
// config section.
func (c *CLI) transformer(f crsFlags) (*reproject.Transformer, error) {
	if f.from == "" {
		f.from = c.Config.CRS.Source
	}
	if f.to == "" {
		f.to = c.Config.CRS.Target
	}
	for _, s := range []string{f.from, f.to} {
		if err := errors.ValidateCRS(s); err != nil {
			return nil, err
		}
	}
	return reproject.New(f.from, f.to)
}

// reprojectCommand creates the EPSG reprojection command.
func (c *CLI) reprojectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reproject",
		Short: "Reproject coordinates and GeoJSON between EPSG systems",
	}

	cmd.AddCommand(c.reprojectPointsCommand())
	cmd.AddCommand(c.reprojectGeoJSONCommand())
	cmd.AddCommand(c.reprojectListCommand())

	return cmd
}

// reprojectPointsCommand creates the "reproject points" subcommand.
func (c *CLI) reprojectPointsCommand() *cobra.Command {
	var (
		crs           crsFlags
		input, output string
		xCol, yCol    string
		outX, outY    string
	)
	cmd := &cobra.Command{
		Use:   "points [x y]",
		Short: "Reproject one point or the x/y columns of a table",
		Long: `Reproject one point or the x/y columns of a table.

Coordinates are (x, y), which is (longitude, latitude) for geographic
systems. In table mode the results go to --out-x/--out-y columns, which
default to the input columns.`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := c.transformer(crs)
			if err != nil {
				return err
			}
			if input == "" {
				vals, err := parseArgs(args, "x", "y")
				if err != nil {
					return err
				}
				x, y, err := tr.Point(vals[0], vals[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(c.Out, "%s %s\n", table.FormatFloat(x), table.FormatFloat(y))
				return nil
			}

			prog := newProgress(loggerFromContext(cmd.Context()))
			t, err := table.ReadFile(c.input(input))
			if err != nil {
				return err
			}
			if outX == "" {
				outX = xCol
			}
			if outY == "" {
				outY = yCol
			}
			t, err = tr.Table(t, xCol, yCol, outX, outY)
			if err != nil {
				return err
			}
			if err := writeTable(t, output, c.Out); err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Reprojected %d rows", t.Len()))
			return nil
		},
	}
	crs.bind(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "", "table to reproject instead of a single point")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV (default stdout)")
	cmd.Flags().StringVar(&xCol, "x-col", "x", "x (easting/longitude) column")
	cmd.Flags().StringVar(&yCol, "y-col", "y", "y (northing/latitude) column")
	cmd.Flags().StringVar(&outX, "out-x", "", "output x column (default --x-col)")
	cmd.Flags().StringVar(&outY, "out-y", "", "output y column (default --y-col)")
	return cmd
}

// reprojectGeoJSONCommand creates the "reproject geojson" subcommand.
func (c *CLI) reprojectGeoJSONCommand() *cobra.Command {
	var (
		crs    crsFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "geojson [file]",
		Short: "Reproject a GeoJSON geometry, feature or feature collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := c.transformer(crs)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(c.input(args[0]))
			if err != nil {
				if os.IsNotExist(err) {
					return errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", args[0])
				}
				return err
			}
			out, cached, err := c.reprojectCached(cmd.Context(), tr, data)
			if err != nil {
				return err
			}
			if err := writeOutput(out, output, c.Out); err != nil {
				return err
			}
			if output != "" {
				printSuccess("Reprojected %s", args[0])
				printFile(output)
				printStats(0, 0, cached)
			}
			return nil
		},
	}
	crs.bind(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

// reprojectCached runs tr.GeoJSON through the configured cache, keyed by
// the CRS pair and the document hash.
func (c *CLI) reprojectCached(ctx context.Context, tr *reproject.Transformer, data []byte) ([]byte, bool, error) {
	store, err := c.openCache(ctx)
	if err != nil {
		return nil, false, err
	}
	defer store.Close()

	key := c.keyer().TransformKey(tr.Source(), tr.Target(), cache.Hash(data))
	if out, ok, err := store.Get(ctx, key); err == nil && ok {
		return out, true, nil
	}
	out, err := tr.GeoJSON(data)
	if err != nil {
		return nil, false, err
	}
	if err := store.Set(ctx, key, out, c.Config.Cache.TTL.Duration); err != nil {
		loggerFromContext(ctx).Warn("cache write failed", "err", err)
	}
	return out, false, nil
}

// reprojectListCommand creates the "reproject list" subcommand.
func (c *CLI) reprojectListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered EPSG codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, code := range reproject.Codes() {
				def, err := reproject.Lookup(code)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.Out, "EPSG:%d\t%s\n", code, def)
			}
			fmt.Fprintln(c.Out, "EPSG:326xx/327xx\tWGS84 UTM zones north/south")
			return nil
		},
	}
}
