package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pagefit/pkg/baseline"
)

// baselineCommand creates the baseline command group.
func (c *CLI) baselineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Show or derive the reference baseline",
	}

	cmd.AddCommand(c.baselineShowCommand())
	cmd.AddCommand(c.baselineDeriveCommand())

	return cmd
}

// baselineShowCommand creates the "baseline show" subcommand.
func (c *CLI) baselineShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the project's baseline descriptor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadProject()
			if err != nil {
				return err
			}
			b, err := baseline.Load(cfg.Project.Baseline)
			if err != nil {
				return err
			}
			printFile(cfg.Project.Baseline)
			printKeyValue("Ratio", fmt.Sprintf("%.4f", b.Ratio))
			printKeyValue("Tolerance", fmt.Sprintf("%.2fpt", b.TolerancePts))
			printKeyValue("Mode", b.Mode)
			if b.ReferencePath != "" {
				printKeyValue("Reference", b.ReferencePath)
			}
			return nil
		},
	}
}

// baselineDeriveOpts holds flags for "baseline derive".
type baselineDeriveOpts struct {
	tolerance float64
	output    string
	noCache   bool
}

// baselineDeriveCommand creates the "baseline derive" subcommand.
func (c *CLI) baselineDeriveCommand() *cobra.Command {
	opts := baselineDeriveOpts{}

	cmd := &cobra.Command{
		Use:   "derive <reference.pdf>",
		Short: "Measure a reference PDF and write a baseline descriptor",
		Long: `Derive measures a one-page reference PDF and writes a baseline whose
bottom whitespace ratio matches it. Without --output the descriptor is
written to the path named by [project] baseline.`,
		Example: `  pagefit baseline derive dist/print/reference.pdf --tolerance 2`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBaselineDerive(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().Float64Var(&opts.tolerance, "tolerance", 2, "allowed bottom whitespace deviation in points")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: [project] baseline)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the measurement cache")

	return cmd
}

func (c *CLI) runBaselineDerive(ctx context.Context, pdfPath string, opts baselineDeriveOpts) error {
	out := opts.output
	cacheDir := ""
	if out == "" {
		cfg, err := c.loadProject()
		if err != nil {
			return err
		}
		out = cfg.Project.Baseline
		cacheDir = cfg.Project.CacheDir
	}

	measurer, mc := c.newMeasurer(cacheDir, opts.noCache)
	defer mc.Close()

	spinner := newSpinnerWithContext(ctx, "Measuring reference...")
	spinner.Start()
	m, err := measurer.Measure(ctx, pdfPath)
	spinner.Stop()
	if err != nil {
		return err
	}

	d, err := baseline.Derive(m, opts.tolerance, pdfPath)
	if err != nil {
		return err
	}
	if err := baseline.Save(out, d); err != nil {
		return err
	}

	printSuccess("Baseline written")
	printFile(out)
	printKeyValue("Ratio", fmt.Sprintf("%.4f", d.Reference.BottomWhitespaceRatio))
	printKeyValue("Tolerance", fmt.Sprintf("%.2fpt", d.Enforcement.TolerancePts))
	printNextStep("Calibrate", appName+" calibrate")
	return nil
}
