package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/pagefit/pkg/buildinfo"
	"github.com/matzehuels/pagefit/pkg/config"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	info := buildinfo.Get()
	root := &cobra.Command{
		Use:   appName,
		Short: "pagefit tunes print layouts until every variant fits one page",
		Long: `pagefit calibrates per-variant print settings (scale, leading and top offset)
so that every variant of a shared template renders as exactly one page whose
bottom whitespace matches a reference-derived target.`,
		Version:       info.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(info.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.DefaultFile, "project file")

	root.AddCommand(c.calibrateCommand())
	root.AddCommand(c.measureCommand())
	root.AddCommand(c.baselineCommand())
	root.AddCommand(c.settingsCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
