package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pagefit/pkg/baseline"
	"github.com/matzehuels/pagefit/pkg/config"
	"github.com/matzehuels/pagefit/pkg/layout"
	"github.com/matzehuels/pagefit/pkg/observability"
)

// measureOpts holds flags for the measure command.
type measureOpts struct {
	jsonOut bool
	noCache bool
}

// measureCommand creates the measure command.
func (c *CLI) measureCommand() *cobra.Command {
	opts := measureOpts{}

	cmd := &cobra.Command{
		Use:   "measure <pdf>",
		Short: "Print page count and whitespace of a PDF",
		Example: `  pagefit measure dist/print/short.pdf
  pagefit measure dist/print/short.pdf --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMeasure(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the measurement as JSON")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the measurement cache")

	return cmd
}

func (c *CLI) runMeasure(ctx context.Context, path string, opts measureOpts) error {
	hooks := &cacheTracker{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	dir, _ := c.resolveCacheDir()
	measurer, mc := c.newMeasurer(dir, opts.noCache)
	defer mc.Close()

	m, err := measurer.Measure(ctx, path)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}

	printSuccess("Measured %s", path)
	printMeasurement(m)
	c.printAgainstBaseline(m, hooks.hit)
	return nil
}

func printMeasurement(m layout.Measurement) {
	printKeyValue("Pages", fmt.Sprintf("%d", m.Pages))
	printKeyValue("Page height", fmt.Sprintf("%.2fpt", m.PageHeightPts))
	printKeyValue("Top", fmt.Sprintf("%.2fpt", m.TopWhitespacePts))
	printKeyValue("Bottom", fmt.Sprintf("%.2fpt (%.4f)", m.BottomWhitespacePts, m.BottomRatio()))
}

// printAgainstBaseline shows the delta when a project baseline is available.
func (c *CLI) printAgainstBaseline(m layout.Measurement, cached bool) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return
	}
	b, err := baseline.Load(cfg.Project.Baseline)
	if err != nil {
		c.Logger.Debug("No baseline", "error", err)
		return
	}
	expected := b.ExpectedBottomPts(m.PageHeightPts)
	delta := m.BottomWhitespacePts - expected
	printKeyValue("Expected", fmt.Sprintf("%.2fpt", expected))
	printStats(m.Pages, delta, cached)
}

// cacheTracker remembers whether the last lookup hit the cache.
type cacheTracker struct {
	observability.NoopCacheHooks
	hit bool
}

func (p *cacheTracker) OnCacheHit(context.Context, string) { p.hit = true }
