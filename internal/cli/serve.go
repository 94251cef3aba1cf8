package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/geokit/internal/server"
)

// serveCommand creates the HTTP API command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr, dataRoot string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion, reprojection and plotting HTTP API",
		Long: `Serve the conversion, reprojection and plotting HTTP API.

Reprojection results and rendered charts are cached in the configured
cache; point several replicas at one Redis instance to share it. The plot
route reads input files below --data, which defaults to DATAPATH.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if dataRoot == "" {
				dataRoot = c.Config.DataPath
			}
			s := server.New(server.Config{
				Cache:    store,
				Keyer:    c.keyer(),
				Logger:   c.Logger,
				DataRoot: dataRoot,
				TTL:      c.Config.Cache.TTL.Duration,
			})
			return s.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&dataRoot, "data", "", "directory the plot route reads from (default DATAPATH)")
	return cmd
}
