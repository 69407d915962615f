package calibrate

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pagefit/pkg/baseline"
	"github.com/matzehuels/pagefit/pkg/build"
	"github.com/matzehuels/pagefit/pkg/errors"
	"github.com/matzehuels/pagefit/pkg/journal"
	"github.com/matzehuels/pagefit/pkg/layout"
	"github.com/matzehuels/pagefit/pkg/measure"
	"github.com/matzehuels/pagefit/pkg/observability"
	"github.com/matzehuels/pagefit/pkg/settings"
	"github.com/matzehuels/pagefit/pkg/solver"
)

// DefaultMaxIterations is the iteration budget when Options leaves it unset.
const DefaultMaxIterations = 8

// Variant is a content configuration and the artifact the build writes for it.
type Variant struct {
	ID       string
	Artifact string
}

// Options control a single run.
type Options struct {
	MaxIterations int
	DryRun        bool
	SkipBuild     bool
	Only          string // restrict adjustment to one target variant
	KeepPartial   bool
	Tuning        solver.Tuning
}

// Config wires a Driver to its collaborators.
type Config struct {
	Reference Variant
	Targets   []Variant

	Builder  build.Builder // nil means artifacts are produced elsewhere
	Measurer measure.Measurer
	Baseline baseline.Loader
	Settings settings.Repository
	Journal  journal.Recorder
	Logger   *log.Logger

	Options Options
}

// Driver runs calibration. A Driver is not safe for concurrent use; it is the
// sole writer of its settings repository for the duration of Run.
type Driver struct {
	cfg     Config
	targets []Variant
	logger  *log.Logger
	phase   Phase
}

// New validates cfg and returns a driver.
func New(cfg Config) (*Driver, error) {
	if cfg.Measurer == nil || cfg.Baseline == nil || cfg.Settings == nil {
		return nil, errors.New(errors.ErrCodeInternal, "driver needs a measurer, a baseline loader and a settings repository")
	}
	if err := errors.ValidateVariantID(cfg.Reference.ID); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "reference variant")
	}
	if cfg.Journal == nil {
		cfg.Journal = journal.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if cfg.Options.MaxIterations == 0 {
		cfg.Options.MaxIterations = DefaultMaxIterations
	}
	if cfg.Options.MaxIterations < 0 {
		return nil, errors.New(errors.ErrCodeConfig, "max iterations must be >= 1, got %d", cfg.Options.MaxIterations)
	}
	cfg.Options.Tuning = cfg.Options.Tuning.OrDefault()
	if err := cfg.Options.Tuning.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "tuning")
	}

	targets, err := selectTargets(cfg.Reference, cfg.Targets, cfg.Options.Only)
	if err != nil {
		return nil, err
	}
	return &Driver{cfg: cfg, targets: targets, logger: cfg.Logger}, nil
}

// selectTargets validates ids, drops the reference, applies the Only filter
// and sorts by id.
func selectTargets(ref Variant, all []Variant, only string) ([]Variant, error) {
	seen := map[string]bool{}
	var out []Variant
	for _, v := range all {
		if err := errors.ValidateVariantID(v.ID); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, err, "variant")
		}
		if seen[v.ID] {
			return nil, errors.New(errors.ErrCodeConfig, "duplicate variant %q", v.ID)
		}
		seen[v.ID] = true
		if v.ID == ref.ID {
			continue
		}
		if only != "" && v.ID != only {
			continue
		}
		out = append(out, v)
	}
	if only != "" && len(out) == 0 {
		if only == ref.ID {
			return nil, errors.New(errors.ErrCodeConfig, "%q is the reference variant and is never adjusted", only)
		}
		return nil, errors.New(errors.ErrCodeConfig, "unknown variant %q", only)
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrCodeConfig, "no target variants besides the reference %q", ref.ID)
	}
	sortVariants(out)
	return out, nil
}

func sortVariants(vs []Variant) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].ID < vs[j].ID })
}

// Phase returns the driver's current phase.
func (d *Driver) Phase() Phase {
	return d.phase
}

func (d *Driver) setPhase(p Phase) {
	if d.phase != p {
		d.logger.Debug("Phase", "from", d.phase, "to", p)
	}
	d.phase = p
}

// runState holds the mutable state of one Run call.
type runState struct {
	id     string
	begun  bool
	base   baseline.Baseline
	states map[string]*solver.State
	bound  map[string]*errors.BoundFailure
	last   map[string]*VariantReport
	report *Report
}

// Run executes one calibration run. The returned report is non-nil even
// when err is not.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	r := &runState{
		id:     journal.NewRunID(),
		states: map[string]*solver.State{},
		bound:  map[string]*errors.BoundFailure{},
		last:   map[string]*VariantReport{},
	}
	r.report = &Report{RunID: r.id, DryRun: d.cfg.Options.DryRun, Started: time.Now()}
	d.phase = PhaseIdle

	err := d.run(ctx, r)
	d.finish(ctx, r, err)
	return r.report, err
}

func (d *Driver) run(ctx context.Context, r *runState) error {
	base, err := d.cfg.Baseline.Load(ctx)
	if err != nil {
		return err
	}
	if err := base.Validate(); err != nil {
		return err
	}
	r.base = base

	before, err := d.cfg.Settings.Snapshot(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfig, err, "snapshot settings")
	}
	if _, err := d.cfg.Settings.Load(ctx); err != nil {
		return err
	}

	if err := d.cfg.Journal.BeginRun(ctx, r.id, d.cfg.Options.DryRun); err != nil {
		d.logger.Warn("Journal unavailable", "error", err)
	}
	r.begun = true
	observability.Calibration().OnRunStart(ctx, r.id, len(d.targets))
	d.logger.Info("Starting calibration", "run", r.id, "variants", len(d.targets),
		"ratio", base.Ratio, "tolerance", base.TolerancePts)

	if d.cfg.Options.DryRun {
		return d.dryRun(ctx, r)
	}

	err = settings.WithTransaction(ctx, d.cfg.Settings, func(tx *settings.Transaction) error {
		err := d.loop(ctx, r)
		if err != nil && d.cfg.Options.KeepPartial {
			best := d.bestSettings(r)
			d.logger.Info("Keeping best-known settings", "variants", len(best))
			if rerr := tx.RollbackTo(context.WithoutCancel(ctx), best); rerr != nil {
				d.logger.Error("Failed to restore best-known settings", "error", rerr)
				return err
			}
		}
		return err
	})

	if after, serr := d.cfg.Settings.Snapshot(context.WithoutCancel(ctx)); serr == nil {
		r.report.Diff = settings.Diff(before.Data, after.Data)
	}
	return err
}

// loop iterates until convergence or a terminal failure.
func (d *Driver) loop(ctx context.Context, r *runState) error {
	tuning := d.cfg.Options.Tuning
	for iter := 1; iter <= d.cfg.Options.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeCanceled, err, "interrupted before iteration %d", iter)
		}
		// An iteration runs to completion once started.
		step := context.WithoutCancel(ctx)
		r.report.Iterations = iter
		start := time.Now()
		observability.Calibration().OnIterationStart(step, iter)

		results, err := d.observe(step, r, iter)
		if err != nil {
			return err
		}

		var adjustable []*result
		allPass := true
		for _, res := range results {
			if res.class != ClassPass {
				allPass = false
			}
			if res.class == ClassAdjustable {
				adjustable = append(adjustable, res)
			}
		}
		if allPass {
			d.record(step, r, iter, results)
			d.setPhase(PhaseConverged)
			d.logger.Info("All variants pass", "iteration", iter)
			observability.Calibration().OnIterationComplete(step, iter, 0, time.Since(start))
			return nil
		}
		if len(adjustable) == 0 {
			d.record(step, r, iter, results)
			return errors.New(errors.ErrCodeUnconverged,
				"%d variant(s) bound at a parameter limit, nothing left to adjust", len(r.bound))
		}

		d.setPhase(PhaseAdjusting)
		next := map[string]layout.PrintSettings{}
		for _, res := range adjustable {
			p := solver.ComputeNext(r.states[res.variant.ID], res.settings, res.assessment, r.base.TolerancePts, tuning)
			res.proposal = &p
			d.logger.Debug("Proposal", "variant", res.variant.ID, "strategy", p.Strategy(), "next", p.Settings)
			if !p.Settings.Equal(res.settings, tuning.Tolerances) {
				next[res.variant.ID] = p.Settings
			}
		}
		d.record(step, r, iter, results)

		if len(next) == 0 {
			held := 0
			for _, res := range adjustable {
				if res.proposal.Converged() {
					held++
				}
			}
			if held > 0 {
				return errors.New(errors.ErrCodeStall,
					"no settings changed in iteration %d: %d variant(s) on target but with less whitespace than the reference", iter, held)
			}
			return errors.New(errors.ErrCodeStall, "no settings changed in iteration %d", iter)
		}
		err = d.cfg.Settings.Update(step, func(b settings.Block) (settings.Block, error) {
			for id, s := range next {
				b[id] = s
			}
			return b, nil
		})
		if err != nil {
			return err
		}
		d.logger.Info("Adjusted settings", "iteration", iter, "variants", len(next))
		observability.Calibration().OnIterationComplete(step, iter, len(next), time.Since(start))
	}
	return errors.New(errors.ErrCodeBudgetExhausted, "no convergence after %d iteration(s)", d.cfg.Options.MaxIterations)
}

// dryRun performs a single observe/propose pass without writing.
func (d *Driver) dryRun(ctx context.Context, r *runState) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeCanceled, err, "interrupted before dry run")
	}
	r.report.Iterations = 1
	step := context.WithoutCancel(ctx)
	results, err := d.observe(step, r, 1)
	if err != nil {
		return err
	}
	failing := 0
	for _, res := range results {
		if res.class == ClassPass {
			continue
		}
		failing++
		if res.class == ClassAdjustable {
			p := solver.ComputeNext(r.states[res.variant.ID], res.settings, res.assessment, r.base.TolerancePts, d.cfg.Options.Tuning)
			res.proposal = &p
		}
	}
	d.record(step, r, 1, results)
	if failing > 0 {
		return errors.New(errors.ErrCodeUnconverged, "%d variant(s) out of tolerance", failing)
	}
	d.setPhase(PhaseConverged)
	return nil
}

type result struct {
	variant    Variant
	settings   layout.PrintSettings
	assessment layout.Assessment
	class      Class
	obs        solver.Observation
	proposal   *solver.Proposal
}

// observe builds, measures, classifies and registers one iteration.
func (d *Driver) observe(ctx context.Context, r *runState, iter int) ([]*result, error) {
	if !d.cfg.Options.SkipBuild && d.cfg.Builder != nil {
		d.setPhase(PhaseBuilding)
		ids := []string{d.cfg.Reference.ID}
		for _, v := range d.targets {
			ids = append(ids, v.ID)
		}
		if err := d.cfg.Builder.Build(ctx, build.Request{Variants: ids}); err != nil {
			return nil, err
		}
	}

	d.setPhase(PhaseMeasuring)
	ref, err := d.cfg.Measurer.Measure(ctx, d.cfg.Reference.Artifact)
	if err != nil {
		return nil, err
	}
	if err := ref.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMeasurement, err, "reference %s", d.cfg.Reference.ID)
	}
	if ref.Pages != 1 {
		d.logger.Warn("Reference variant spans multiple pages", "pages", ref.Pages)
	}
	caps := layout.CapsFrom(ref)

	block, err := d.cfg.Settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*result, 0, len(d.targets))
	for _, v := range d.targets {
		m, err := d.cfg.Measurer.Measure(ctx, v.Artifact)
		if err != nil {
			return nil, err
		}
		if err := m.Validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeMeasurement, err, "variant %s", v.ID)
		}
		results = append(results, &result{
			variant:    v,
			settings:   block.Settings(v.ID),
			assessment: layout.Assess(m, caps, r.base.Ratio),
		})
	}

	d.setPhase(PhaseClassifying)
	tol := r.base.TolerancePts
	for _, res := range results {
		id := res.variant.ID
		res.class = Classify(res.assessment, res.settings, tol, d.cfg.Options.Tuning.Tolerances)
		if res.class != ClassPass {
			if prev, ok := r.bound[id]; ok {
				res.class = boundClass(prev)
			}
		}
		if res.class.Bound() {
			if _, ok := r.bound[id]; !ok {
				bf := boundFailure(id, res.class, res.assessment)
				r.bound[id] = bf
				d.logger.Warn("Variant bound", "variant", id, "limit", bf.Limit, "reason", bf.Reason)
			}
		}

		st := r.states[id]
		if st == nil {
			st = &solver.State{}
			r.states[id] = st
		}
		res.obs = st.Register(res.assessment, res.settings, tol, iter, d.cfg.Options.Tuning)

		observability.Calibration().OnVariantClassified(ctx, iter, id, string(res.class), res.assessment.DeltaPts)
		d.logger.Debug("Classified", "variant", id, "class", res.class,
			"pages", res.assessment.Measurement.Pages,
			"delta", fmt.Sprintf("%.2f", res.assessment.DeltaPts),
			"settings", res.settings)
	}
	return results, nil
}

func boundClass(bf *errors.BoundFailure) Class {
	if bf.Limit == "floor" {
		return ClassBoundFloor
	}
	return ClassBoundCeiling
}

// record journals the iteration and refreshes the per-variant report.
func (d *Driver) record(ctx context.Context, r *runState, iter int, results []*result) {
	for _, res := range results {
		id := res.variant.ID
		strategy := ""
		if res.proposal != nil {
			strategy = res.proposal.Strategy()
		}
		err := d.cfg.Journal.Record(ctx, journal.Entry{
			RunID:      r.id,
			Iteration:  iter,
			Variant:    id,
			Class:      string(res.class),
			Strategy:   strategy,
			Settings:   res.settings,
			Assessment: res.assessment,
			Score:      res.obs.Score,
		})
		if err != nil {
			d.logger.Debug("Journal write failed", "error", err)
		}

		vr := &VariantReport{
			ID:         id,
			Class:      res.class,
			Settings:   res.settings,
			Assessment: res.assessment,
			Score:      res.obs.Score,
			Strategy:   strategy,
			Bound:      r.bound[id],
		}
		if res.class == ClassPass {
			vr.Bound = nil
		}
		if res.proposal != nil {
			next := res.proposal.Settings
			vr.Proposed = &next
		}
		if st := r.states[id]; st != nil && st.Best != nil {
			vr.Best = st.Best.Settings
			vr.BestScore = st.Best.Score
		}
		r.last[id] = vr
	}
}

func (d *Driver) bestSettings(r *runState) map[string]layout.PrintSettings {
	best := map[string]layout.PrintSettings{}
	for id, st := range r.states {
		if s, ok := st.BestSettings(); ok {
			best[id] = s
		}
	}
	return best
}

func (d *Driver) finish(ctx context.Context, r *runState, err error) {
	rep := r.report
	for _, v := range d.targets {
		if vr, ok := r.last[v.ID]; ok {
			rep.Variants = append(rep.Variants, *vr)
		}
	}
	rep.Duration = time.Since(rep.Started)

	status := journal.StatusConverged
	switch {
	case err == nil && rep.DryRun:
		rep.Status = StatusDryRun
		status = journal.StatusDryRun
	case err == nil:
		rep.Status = StatusConverged
	case ExitCode(err) == ExitCanceled:
		rep.Status = StatusCanceled
		status = journal.StatusCanceled
	default:
		rep.Status = StatusFailed
		status = journal.StatusFailed
	}
	if rep.DryRun && err != nil && errors.Is(err, errors.ErrCodeUnconverged) {
		rep.Status = StatusDryRun
		status = journal.StatusDryRun
	}
	if err != nil {
		rep.Reason = errors.UserMessage(err)
		d.setPhase(PhaseFailed)
	} else {
		d.setPhase(PhaseConverged)
	}
	rep.Phase = d.phase

	if !r.begun {
		return
	}
	bg := context.WithoutCancel(ctx)
	if jerr := d.cfg.Journal.FinishRun(bg, r.id, status, rep.Iterations, rep.Reason); jerr != nil {
		d.logger.Debug("Journal finish failed", "error", jerr)
	}
	observability.Calibration().OnRunComplete(bg, r.id, string(rep.Status), rep.Iterations, rep.Duration, err)
}
