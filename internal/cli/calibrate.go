package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pagefit/pkg/baseline"
	"github.com/matzehuels/pagefit/pkg/build"
	"github.com/matzehuels/pagefit/pkg/calibrate"
	"github.com/matzehuels/pagefit/pkg/config"
	"github.com/matzehuels/pagefit/pkg/journal"
	"github.com/matzehuels/pagefit/pkg/measure"
	"github.com/matzehuels/pagefit/pkg/observability"
	"github.com/matzehuels/pagefit/pkg/settings"
)

// calibrateOpts holds flags for the calibrate command.
type calibrateOpts struct {
	maxIterations int
	dryRun        bool
	skipBuild     bool
	only          string
	keepPartial   bool
	noCache       bool
	journal       string
	noJournal     bool
}

// calibrateCommand creates the calibrate command.
func (c *CLI) calibrateCommand() *cobra.Command {
	opts := calibrateOpts{}

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Tune print settings until every variant fits one page",
		Long: `Calibrate builds the print artifacts, measures every variant against the
reference baseline and adjusts scale, leading and top offset until each
variant renders as one page with bottom whitespace within tolerance.

If the run does not converge, the settings file is restored to its state
before the run (or to the best settings seen with --keep-partial).`,
		Example: `  # Calibrate all variants
  pagefit calibrate

  # Check without writing anything (exits non-zero if a variant fails)
  pagefit calibrate --dry-run

  # Tune one variant against artifacts that are already built
  pagefit calibrate --only short --skip-build`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("max-iterations") {
				opts.maxIterations = 0
			}
			ctx := withLogger(cmd.Context(), c.Logger)
			return c.runCalibrate(ctx, opts)
		},
	}

	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", calibrate.DefaultMaxIterations, "iteration budget (overrides [run] max_iterations)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "measure and propose once without writing settings")
	cmd.Flags().BoolVar(&opts.skipBuild, "skip-build", false, "measure existing artifacts without running the build command")
	cmd.Flags().StringVar(&opts.only, "only", "", "adjust only this variant")
	cmd.Flags().BoolVar(&opts.keepPartial, "keep-partial", false, "on failure keep the best settings seen instead of restoring")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the measurement cache")
	cmd.Flags().StringVar(&opts.journal, "journal", "", "journal database path (overrides [project] journal)")
	cmd.Flags().BoolVar(&opts.noJournal, "no-journal", false, "do not record the run")

	return cmd
}

// runCalibrate wires the project configuration into a driver and runs it.
func (c *CLI) runCalibrate(ctx context.Context, opts calibrateOpts) error {
	logger := loggerFromContext(ctx)

	cfg, err := c.loadProject()
	if err != nil {
		return err
	}

	rec, closeJournal := c.openJournal(cfg, opts)
	defer closeJournal()

	measurer, mc := c.newMeasurer(cfg.Project.CacheDir, opts.noCache)
	defer mc.Close()

	var builder build.Builder
	if cfg.Build.Command != "" {
		cb, err := build.NewCommandBuilder(build.Options{
			Command:       cfg.Build.Command,
			Dir:           cfg.Build.Dir,
			Port:          cfg.Build.Port,
			AlternatePort: cfg.Build.AlternatePort,
			Timeout:       cfg.Build.Timeout,
			Env:           cfg.Build.Env,
		}, logger)
		if err != nil {
			return err
		}
		builder = cb
	} else if !opts.skipBuild {
		logger.Info("No [build] command configured; measuring existing artifacts")
	}

	driver, err := calibrate.New(driverConfig(cfg, opts, builder, measurer, rec, logger))
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Calibrating...")
	observability.SetCalibrationHooks(runHooks{logger: logger, spinner: spinner})
	observability.SetBuildHooks(buildLogHooks{logger: logger, spinner: spinner})
	observability.SetCacheHooks(cacheLogHooks{logger: logger})
	defer observability.Reset()

	prog := newProgress(logger)
	spinner.Start()
	report, runErr := driver.Run(ctx)
	spinner.Stop()
	prog.done("Calibration finished", "status", report.Status, "iterations", report.Iterations)

	printReport(report, runErr)
	return runErr
}

// driverConfig maps the project file and flags onto the driver.
func driverConfig(cfg *config.Config, opts calibrateOpts, b build.Builder, m measure.Measurer, rec journal.Recorder, logger *log.Logger) calibrate.Config {
	ref, _ := cfg.Variant(cfg.Project.ReferenceVariant)

	targets := make([]calibrate.Variant, 0, len(cfg.Variants))
	for _, v := range cfg.Variants {
		targets = append(targets, calibrate.Variant{ID: v.ID, Artifact: v.Artifact})
	}

	maxIter := cfg.Run.MaxIterations
	if opts.maxIterations != 0 {
		maxIter = opts.maxIterations
	}

	return calibrate.Config{
		Reference: calibrate.Variant{ID: ref.ID, Artifact: ref.Artifact},
		Targets:   targets,
		Builder:   b,
		Measurer:  m,
		Baseline:  baseline.FileLoader{Path: cfg.Project.Baseline},
		Settings:  settings.NewFileRepository(cfg.Project.Settings, logger),
		Journal:   rec,
		Logger:    logger,
		Options: calibrate.Options{
			MaxIterations: maxIter,
			DryRun:        opts.dryRun,
			SkipBuild:     opts.skipBuild,
			Only:          opts.only,
			KeepPartial:   opts.keepPartial || cfg.Run.KeepPartial,
			Tuning:        cfg.Tuning,
		},
	}
}

// openJournal opens the run journal. A journal that cannot be opened is
// logged and replaced with a no-op recorder so calibration still runs.
func (c *CLI) openJournal(cfg *config.Config, opts calibrateOpts) (journal.Recorder, func()) {
	path := cfg.Project.Journal
	if opts.journal != "" {
		path = opts.journal
	}
	if opts.noJournal || path == "" {
		return journal.Nop{}, func() {}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		c.Logger.Warn("Journal disabled", "path", path, "error", err)
		return journal.Nop{}, func() {}
	}
	store, err := journal.Open(path)
	if err != nil {
		c.Logger.Warn("Journal disabled", "path", path, "error", err)
		return journal.Nop{}, func() {}
	}
	c.Logger.Debug("Journal", "path", path)
	return store, func() {
		if err := store.Close(); err != nil {
			c.Logger.Warn("Close journal", "error", err)
		}
	}
}
