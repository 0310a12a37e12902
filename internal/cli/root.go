package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/rewritetree/pkg/buildinfo"
	"github.com/matzehuels/rewritetree/pkg/observability"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// Before any subcommand runs, the root command:
//   - sets the log level from --verbose and --quiet
//   - loads the configuration file (--config, or the default location)
//   - registers logging hooks for builder and layout events
//   - attaches the logger to the command context
func (c *CLI) RootCommand() *cobra.Command {
	var verbose, quiet bool

	root := &cobra.Command{
		Use:   appName,
		Short: "Rewritetree builds and browses term-rewriting traces",
		Long: `Rewritetree turns the command stream of a term-rewriting engine into rewrite
trees and lays them out for browsing: replay a trace, explore it in the
terminal, or serve it over HTTP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case verbose:
				c.SetLogLevel(LogDebug)
			case quiet:
				c.SetLogLevel(LogWarn)
			default:
				c.SetLogLevel(LogInfo)
			}
			if err := c.loadConfig(); err != nil {
				return err
			}
			hooks := newLogHooks(c.Logger)
			observability.SetBuilderHooks(hooks)
			observability.SetLayoutHooks(hooks)
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/rewritetree/config.toml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	root.AddCommand(c.replayCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.archiveCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// versionCommand prints build information.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(buildinfo.String())
		},
	}
}
