package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/matzehuels/geokit/pkg/modeltools"
)

// modelCommand creates the model bookkeeping command.
func (c *CLI) modelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Name model runs and inspect their YAML configurations",
	}

	cmd.AddCommand(c.modelNextCommand())
	cmd.AddCommand(c.modelShowCommand())

	return cmd
}

// modelNextCommand creates the "model next" subcommand.
func (c *CLI) modelNextCommand() *cobra.Command {
	var (
		dir   string
		reuse bool
	)
	cmd := &cobra.Command{
		Use:   "next [prefix]",
		Short: "Print the next free model name in a directory",
		Long: `Print the next free model name in a directory.

Names are the prefix followed by an integer id. With no existing model the
id is 1; otherwise it is one more than the highest id found, or equal to it
with --reuse.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := modeltools.NextModelName(args[0], c.input(dir), reuse)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.Out, name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory holding the models")
	cmd.Flags().BoolVar(&reuse, "reuse", false, "return the latest existing name")
	return cmd
}

// modelShowCommand creates the "model show" subcommand.
func (c *CLI) modelShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [config.yaml]",
		Short: "Validate a YAML model configuration and list its top-level keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := modeltools.LoadYAML(c.input(args[0]))
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(cfg))
			for k := range cfg {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				printKeyValue(k, fmt.Sprint(cfg[k]))
			}
			return nil
		},
	}
}
