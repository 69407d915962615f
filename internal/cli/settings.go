package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pagefit/pkg/errors"
	"github.com/matzehuels/pagefit/pkg/settings"
)

// settingsCommand creates the settings command group.
func (c *CLI) settingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect the per-variant print settings",
	}

	cmd.AddCommand(c.settingsShowCommand())
	cmd.AddCommand(c.settingsDiffCommand())

	return cmd
}

// settingsShowCommand creates the "settings show" subcommand.
func (c *CLI) settingsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the settings of every declared variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSettingsShow(cmd.Context())
		},
	}
}

func (c *CLI) runSettingsShow(ctx context.Context) error {
	cfg, err := c.loadProject()
	if err != nil {
		return err
	}
	block, err := settings.NewFileRepository(cfg.Project.Settings, c.Logger).Load(ctx)
	if err != nil {
		return err
	}

	printFile(cfg.Project.Settings)
	fmt.Println(settingsTable(block, cfg.VariantIDs(), cfg.Project.ReferenceVariant))
	return nil
}

// settingsTable lists ids in order, falling back to defaults for variants
// that have no record yet.
func settingsTable(block settings.Block, ids []string, reference string) string {
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		s := block.Settings(id)
		name := id
		if id == reference {
			name += " (reference)"
		}
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%.4f", s.Scale),
			fmt.Sprintf("%.4f", s.Leading),
			fmt.Sprintf("%+.2fpt", s.TopOffsetPts),
		})
	}

	return plainTable([]string{"Variant", "Scale", "Leading", "Top"}, rows)
}

// settingsDiffCommand creates the "settings diff" subcommand.
func (c *CLI) settingsDiffCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <file>",
		Short: "Show how the settings file differs from another settings file",
		Example: `  # Compare against the committed version
  git show HEAD:print-settings.json > /tmp/old.json
  pagefit settings diff /tmp/old.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSettingsDiff(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runSettingsDiff(ctx context.Context, other string) error {
	cfg, err := c.loadProject()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(other)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", other)
	}
	before, clamped, err := settings.Decode(data)
	if err != nil {
		return err
	}
	for _, cl := range clamped {
		c.Logger.Warn("Clamped out-of-range settings", "file", other, "variant", cl.Variant)
	}
	after, err := settings.NewFileRepository(cfg.Project.Settings, c.Logger).Load(ctx)
	if err != nil {
		return err
	}

	diff, err := settings.DiffBlocks(before, after)
	if err != nil {
		return err
	}
	if diff == "" {
		printInfo("No differences")
		return nil
	}
	printInfo("%s %s %s", other, iconArrow, cfg.Project.Settings)
	printDiff(diff)
	return nil
}
