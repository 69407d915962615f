// Package pkg provides the libraries behind pagefit, a print-layout
// calibrator.
//
// # Overview
//
// pagefit tunes three print parameters per content variant (scale, leading
// and a top offset in points) until every variant of a shared template
// renders as exactly one page whose bottom whitespace matches a reference
// variant. The pkg directory is organized into four areas:
//
//  1. Model - [layout] (settings, measurements, scoring) and [solver] (the
//     per-variant search)
//  2. Collaborators - [measure] (PDF measurement), [build] (the render
//     command), [baseline] (the reference target) and [settings] (the
//     persisted settings block)
//  3. Orchestration - [calibrate] (the iteration loop, reports, exit codes)
//  4. Infrastructure - [config], [journal], [cache], [observability],
//     [errors] and [buildinfo]
//
// # Architecture
//
// One calibration iteration flows through the packages like this:
//
//	[build] render artifacts for the pending variants
//	         ↓
//	[measure] page count and whitespace of every PDF
//	         ↓
//	[layout] assess against the [baseline] target
//	         ↓
//	[solver] propose the next settings per variant
//	         ↓
//	[settings] persist all proposals in one write
//
// [calibrate] repeats this until every variant passes, the solver stalls or
// the iteration budget runs out, and restores the settings block on failure.
//
// # Quick Start
//
//	cfg, _ := config.Load("pagefit.toml")
//	ref, _ := cfg.Variant(cfg.Project.ReferenceVariant)
//
//	d, err := calibrate.New(calibrate.Config{
//	    Reference: calibrate.Variant{ID: ref.ID, Artifact: ref.Artifact},
//	    Targets:   targets,
//	    Measurer:  measure.NewPDFMeasurer(logger),
//	    Baseline:  baseline.FileLoader{Path: cfg.Project.Baseline},
//	    Settings:  settings.NewFileRepository(cfg.Project.Settings, logger),
//	    Options:   calibrate.Options{MaxIterations: 8},
//	})
//	if err != nil {
//	    return err
//	}
//	report, err := d.Run(ctx)
//	os.Exit(calibrate.ExitCode(err))
//
// [layout]: https://pkg.go.dev/github.com/matzehuels/pagefit/pkg/layout
// [solver]: https://pkg.go.dev/github.com/matzehuels/pagefit/pkg/solver
// [measure]: https://pkg.go.dev/github.com/matzehuels/pagefit/pkg/measure
// [build]: https://pkg.go.dev/github.com/matzehuels/pagefit/pkg/build
// [baseline]: https://pkg.go.dev/github.com/matzehuels/pagefit/pkg/baseline
// [settings]: https://pkg.go.dev/github.com/matzehuels/pagefit/pkg/settings
// [calibrate]: https://pkg.go.dev/github.com/matzehuels/pagefit/pkg/calibrate
// [config]: https://pkg.go.dev/github.com/matzehuels/pagefit/pkg/config
// [journal]: https://pkg.go.dev/github.com/matzehuels/pagefit/pkg/journal
// [cache]: https://pkg.go.dev/github.com/matzehuels/pagefit/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/pagefit/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/pagefit/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/pagefit/pkg/buildinfo
package pkg
