package cli

import "github.com/spf13/cobra"

// completionCommand prints a shell completion script to the data output.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for geokit.

  bash        source <(geokit completion bash)
  zsh         geokit completion zsh > "${fpath[1]}/_geokit"
  fish        geokit completion fish > ~/.config/fish/completions/geokit.fish
  powershell  geokit completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			switch args[0] {
			case "zsh":
				return root.GenZshCompletion(c.Out)
			case "fish":
				return root.GenFishCompletion(c.Out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(c.Out)
			default:
				return root.GenBashCompletionV2(c.Out, true)
			}
		},
	}
}
