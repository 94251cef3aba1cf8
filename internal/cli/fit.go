package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/matzehuels/geokit/pkg/hydro"
	"github.com/matzehuels/geokit/pkg/table"
)

// fitCommand creates the goodness-of-fit command.
func (c *CLI) fitCommand() *cobra.Command {
	var (
		obsCol, simCol string
		asJSON         bool
	)
	cmd := &cobra.Command{
		Use:   "fit [table]",
		Short: "Score simulated against observed values (r², RMSE, MBE, NSE, KGE)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := table.ReadFile(c.input(args[0]))
			if err != nil {
				return err
			}
			obs, err := t.Floats(obsCol)
			if err != nil {
				return err
			}
			sim, err := t.Floats(simCol)
			if err != nil {
				return err
			}
			f, err := hydro.Fit(obs, sim)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(c.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(f)
			}
			printFit(f)
			return nil
		},
	}
	cmd.Flags().StringVar(&obsCol, "obs", hydro.ObservedColumn, "observed column")
	cmd.Flags().StringVar(&simCol, "sim", "", "simulated column")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the scores as JSON")
	_ = cmd.MarkFlagRequired("sim")
	return cmd
}
