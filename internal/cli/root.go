package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/geokit/pkg/buildinfo"
	"github.com/matzehuels/geokit/pkg/observability"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// Persistent flags:
//   - --config: TOML config file (default $XDG_CONFIG_HOME/geokit/config.toml)
//   - --no-cache: skip the artifact and reprojection caches
//
// The config is loaded and the logger attached to the command context
// before any subcommand runs.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Geokit converts coordinates, reshapes geodata and plots hydrological ensembles",
		Long:         `Geokit is a toolkit for everyday geodata chores: Web Mercator and UTM conversion, EPSG reprojection, GeoJSON and shapefile cleanup, tabular format conversion and publication-style hydrological charts.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			hooks := observability.NewLogHooks(c.Logger)
			observability.SetPipelineHooks(hooks)
			observability.SetCacheHooks(hooks)
			observability.SetHTTPHooks(hooks)
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/geokit/config.toml)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable caching")

	// Register all subcommands
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.reprojectCommand())
	root.AddCommand(c.frameCommand())
	root.AddCommand(c.tableCommand())
	root.AddCommand(c.plotCommand())
	root.AddCommand(c.fitCommand())
	root.AddCommand(c.modelCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}
