package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for rewritetree.

To load completions:

Bash:
  $ source <(rewritetree completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ rewritetree completion bash > /etc/bash_completion.d/rewritetree
  # macOS:
  $ rewritetree completion bash > $(brew --prefix)/etc/bash_completion.d/rewritetree

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ rewritetree completion zsh > "${fpath[1]}/_rewritetree"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ rewritetree completion fish | source

  # To load completions for each session, execute once:
  $ rewritetree completion fish > ~/.config/fish/completions/rewritetree.fish

PowerShell:
  PS> rewritetree completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> rewritetree completion powershell > rewritetree.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}
