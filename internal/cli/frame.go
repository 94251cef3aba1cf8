package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/matzehuels/geokit/pkg/errors"
	"github.com/matzehuels/geokit/pkg/geoframe"
	"github.com/matzehuels/geokit/pkg/seq"
	"github.com/matzehuels/geokit/pkg/table"
)

// frameCommand creates the feature collection command.
func (c *CLI) frameCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Build, repair and inspect GeoJSON feature collections",
	}

	cmd.AddCommand(c.frameFromCSVCommand())
	cmd.AddCommand(c.frameFromShpCommand())
	cmd.AddCommand(c.frameMakeValidCommand())
	cmd.AddCommand(c.frameDropZCommand())
	cmd.AddCommand(c.frameRmShpCommand())
	cmd.AddCommand(c.frameCoordsCommand())
	cmd.AddCommand(c.frameWithinCommand())
	cmd.AddCommand(c.frameReprojectCommand())

	return cmd
}

// writeFrame encodes f as GeoJSON to path, or stdout when path is empty.
func (c *CLI) writeFrame(f *geoframe.Frame, path string) error {
	var buf bytes.Buffer
	if err := geoframe.WriteGeoJSON(f, &buf); err != nil {
		return err
	}
	return writeOutput(buf.Bytes(), path, c.Out)
}

// frameFromCSVCommand creates the "frame fromcsv" subcommand.
func (c *CLI) frameFromCSVCommand() *cobra.Command {
	var output, lonCol, latCol string
	cmd := &cobra.Command{
		Use:   "fromcsv [table]",
		Short: "Turn a table with longitude/latitude columns into point features",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := table.ReadFile(c.input(args[0]))
			if err != nil {
				return err
			}
			f, err := geoframe.FromTable(t, lonCol, latCol)
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Infof("Built %d point features", f.Len())
			return c.writeFrame(f, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output GeoJSON (default stdout)")
	cmd.Flags().StringVar(&lonCol, "lon-col", "lon", "longitude column")
	cmd.Flags().StringVar(&latCol, "lat-col", "lat", "latitude column")
	return cmd
}

// frameFromShpCommand creates the "frame fromshp" subcommand.
func (c *CLI) frameFromShpCommand() *cobra.Command {
	var (
		output string
		fields []string
	)
	cmd := &cobra.Command{
		Use:   "fromshp [file.shp]",
		Short: "Convert an ESRI shapefile to GeoJSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := geoframe.ReadShapefile(c.input(args[0]), fields...)
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Infof("Read %d shapes", f.Len())
			return c.writeFrame(f, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output GeoJSON (default stdout)")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "attribute fields to keep (comma-separated)")
	return cmd
}

// frameMakeValidCommand creates the "frame makevalid" subcommand.
func (c *CLI) frameMakeValidCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "makevalid [file]",
		Short: "Repair polygon rings and report what was fixed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := geoframe.ReadGeoJSONFile(c.input(args[0]))
			if err != nil {
				return err
			}
			out, rep := geoframe.MakeValid(in)

			logger := loggerFromContext(cmd.Context())
			if rep.AnyEmpty() {
				logger.Warn("input has empty geometries", "count", rep.Empty)
			}
			if rep.AllValid() {
				logger.Info("all geometries valid", "features", rep.Features)
			} else {
				logger.Info("repaired geometries",
					"invalid", rep.Invalid,
					"repaired", rep.Repaired,
					"emptied", rep.Emptied)
			}
			return c.writeFrame(out, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output GeoJSON (default stdout)")
	return cmd
}

// frameDropZCommand creates the "frame dropz" subcommand.
func (c *CLI) frameDropZCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "dropz [file]",
		Short: "Strip Z ordinates from a GeoJSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(c.input(args[0]))
			if err != nil {
				if os.IsNotExist(err) {
					return errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", args[0])
				}
				return err
			}
			out, dropped, err := geoframe.DropZ(data)
			if err != nil {
				return err
			}
			if !dropped {
				loggerFromContext(cmd.Context()).Info("no Z ordinates found")
			}
			return writeOutput(out, output, c.Out)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output GeoJSON (default stdout)")
	return cmd
}

// frameRmShpCommand creates the "frame rmshp" subcommand.
func (c *CLI) frameRmShpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rmshp [file.shp]",
		Short: "Delete a shapefile together with its sidecar files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := geoframe.RemoveShapefile(c.input(args[0]))
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				printInfo("Nothing to remove")
				return nil
			}
			printSuccess("Removed %d files", len(removed))
			for _, p := range removed {
				printFile(p)
			}
			return nil
		},
	}
}

// frameCoordsCommand creates the "frame coords" subcommand.
func (c *CLI) frameCoordsCommand() *cobra.Command {
	var flatten bool
	cmd := &cobra.Command{
		Use:   "coords [file]",
		Short: "Print feature coordinates, one feature per line",
		Long: `Print feature coordinates, one feature per line.

Points, line strings and polygon exteriors are supported; all features must
share one geometry type. Positions print as "x y" pairs separated by
commas. With --flatten all positions print on a single line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := geoframe.ReadGeoJSONFile(c.input(args[0]))
			if err != nil {
				return err
			}
			lists, err := geoframe.CoordinateList(f, flatten)
			if err != nil {
				return err
			}
			lines := make([]string, len(lists))
			for i, pts := range lists {
				lines[i] = formatPoints(pts)
			}
			return seq.WriteLines(c.Out, lines)
		},
	}
	cmd.Flags().BoolVar(&flatten, "flatten", false, "concatenate all features")
	return cmd
}

func formatPoints(pts []orb.Point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = table.FormatFloat(p[0]) + " " + table.FormatFloat(p[1])
	}
	return strings.Join(parts, ", ")
}

// frameWithinCommand creates the "frame within" subcommand.
func (c *CLI) frameWithinCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "within [points] [polygons]",
		Short: "List the point features inside each polygon",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := geoframe.ReadGeoJSONFile(c.input(args[0]))
			if err != nil {
				return err
			}
			polys, err := geoframe.ReadGeoJSONFile(c.input(args[1]))
			if err != nil {
				return err
			}
			hits, err := geoframe.PointsInPolygon(points, geoframe.Polygons(polys))
			if err != nil {
				return err
			}
			lines := make([]string, len(hits))
			for i, idx := range hits {
				ids := make([]string, len(idx))
				for j, k := range idx {
					ids[j] = points.Features[k].ID
				}
				lines[i] = fmt.Sprintf("%d\t%d\t%s", i, len(idx), strings.Join(ids, ","))
			}
			return seq.WriteLines(c.Out, lines)
		},
	}
}

// frameReprojectCommand creates the "frame reproject" subcommand.
func (c *CLI) frameReprojectCommand() *cobra.Command {
	var (
		crs    crsFlags
		output string
		valid  bool
	)
	cmd := &cobra.Command{
		Use:   "reproject [file]",
		Short: "Reproject every feature of a GeoJSON or shapefile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := c.transformer(crs)
			if err != nil {
				return err
			}
			path := c.input(args[0])
			var f *geoframe.Frame
			if strings.EqualFold(filepath.Ext(path), ".shp") {
				f, err = geoframe.ReadShapefile(path)
			} else {
				f, err = geoframe.ReadGeoJSONFile(path)
			}
			if err != nil {
				return err
			}
			if valid {
				f, _ = geoframe.MakeValid(f)
			}
			out, err := geoframe.Transform(f, tr)
			if err != nil {
				return err
			}
			return c.writeFrame(out, output)
		},
	}
	crs.bind(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output GeoJSON (default stdout)")
	cmd.Flags().BoolVar(&valid, "make-valid", false, "repair geometries before reprojecting")
	return cmd
}
