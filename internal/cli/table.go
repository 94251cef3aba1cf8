package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/geokit/pkg/errors"
	"github.com/matzehuels/geokit/pkg/seq"
	"github.com/matzehuels/geokit/pkg/table"
)

// tableCommand creates the tabular conversion command.
func (c *CLI) tableCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Convert and sort CSV, JSON and XLSX tables",
	}

	cmd.AddCommand(c.tableJSON2CSVCommand())
	cmd.AddCommand(c.tableXLSX2CSVCommand())
	cmd.AddCommand(c.tableCSV2XLSXCommand())
	cmd.AddCommand(c.tableSortCommand())

	return cmd
}

// tableJSON2CSVCommand creates the "table json2csv" subcommand.
func (c *CLI) tableJSON2CSVCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "json2csv [file]",
		Short: "Convert a JSON list of records or object of columns to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := os.Open(c.input(args[0]))
			if err != nil {
				if os.IsNotExist(err) {
					return errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", args[0])
				}
				return err
			}
			defer in.Close()

			if output == "" {
				return table.JSONToCSV(in, c.Out)
			}
			out, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := table.JSONToCSV(in, out); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			printSuccess("Converted %s", args[0])
			printFile(output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV (default stdout)")
	return cmd
}

// tableXLSX2CSVCommand creates the "table xlsx2csv" subcommand.
func (c *CLI) tableXLSX2CSVCommand() *cobra.Command {
	var output, sheet string
	cmd := &cobra.Command{
		Use:   "xlsx2csv [file]",
		Short: "Convert one sheet of an Excel workbook to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := table.ReadXLSX(c.input(args[0]), sheet)
			if err != nil {
				return err
			}
			return writeTable(t, output, c.Out)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV (default stdout)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "sheet name (default first sheet)")
	return cmd
}

// tableCSV2XLSXCommand creates the "table csv2xlsx" subcommand.
func (c *CLI) tableCSV2XLSXCommand() *cobra.Command {
	var output, sheet string
	cmd := &cobra.Command{
		Use:   "csv2xlsx [file]",
		Short: "Write a CSV or JSON table to an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := table.ReadFile(c.input(args[0]))
			if err != nil {
				return err
			}
			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".xlsx"
			}
			if err := table.WriteXLSX(t, output, sheet); err != nil {
				return err
			}
			printSuccess("Wrote %d rows", t.Len())
			printFile(output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output workbook (default input name with .xlsx)")
	cmd.Flags().StringVar(&sheet, "sheet", "Sheet1", "sheet name")
	return cmd
}

// tableSortCommand creates the "table sort" subcommand.
func (c *CLI) tableSortCommand() *cobra.Command {
	var output, col, order string
	cmd := &cobra.Command{
		Use:   "sort [file]",
		Short: "Sort table rows by a numeric column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := seq.ParseDirection(order)
			if err != nil {
				return err
			}
			t, err := table.ReadFile(c.input(args[0]))
			if err != nil {
				return err
			}
			sorted, err := sortTable(t, col, dir)
			if err != nil {
				return err
			}
			return writeTable(sorted, output, c.Out)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV (default stdout)")
	cmd.Flags().StringVar(&col, "by", "", "numeric column to sort by")
	cmd.Flags().StringVar(&order, "order", "desc", "sort order: asc or desc")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

// sortTable reorders the rows of t by col.
func sortTable(t *table.Table, col string, dir seq.Direction) (*table.Table, error) {
	vals, err := t.Floats(col)
	if err != nil {
		return nil, err
	}
	keys := make([][]float64, len(vals))
	for i, v := range vals {
		keys[i] = []float64{v}
	}
	_, idx, err := seq.SortRows(keys, 0, dir)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(idx))
	for k, i := range idx {
		rows[k] = t.Row(i)
	}
	return table.New(t.Columns(), rows)
}
