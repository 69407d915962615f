package solver

import (
	"math"
	"strings"
	"testing"

	"github.com/matzehuels/pagefit/pkg/layout"
)

const tol = 2.0

func assessment(pages int, delta float64) layout.Assessment {
	return layout.Assessment{
		Measurement: layout.Measurement{Pages: pages, PageHeightPts: 792},
		DeltaPts:    delta,
	}
}

func settings(scale, leading, top float64) layout.PrintSettings {
	return layout.PrintSettings{Scale: scale, Leading: leading, TopOffsetPts: top}
}

func inRange(s layout.PrintSettings) bool {
	return layout.ScaleRange.Contains(s.Scale) &&
		layout.LeadingRange.Contains(s.Leading) &&
		layout.TopOffsetRange.Contains(s.TopOffsetPts)
}

func TestComputeNextAlreadyWithinTolerance(t *testing.T) {
	tuning := DefaultTuning()
	current := settings(1.07, 1.01, 12.5)
	a := assessment(1, -1.5)

	var st State
	st.Register(a, current, tol, 1, tuning)
	p := ComputeNext(&st, current, a, tol, tuning)

	if p.Settings != current {
		t.Errorf("Settings = %v, want unchanged %v", p.Settings, current)
	}
	if p.Strategy() != string(RuleAlreadyWithinTolerance) {
		t.Errorf("Strategy() = %q, want %q", p.Strategy(), RuleAlreadyWithinTolerance)
	}
	if !p.Converged() {
		t.Error("Converged() = false, want true")
	}
}

func TestComputeNextOverflowContracts(t *testing.T) {
	tuning := DefaultTuning()
	current := settings(1.12, 1.03, 20)
	a := assessment(2, 24)

	var st State
	st.Register(a, current, tol, 1, tuning)
	p := ComputeNext(&st, current, a, tol, tuning)

	if !(p.Settings.Scale < 1.12 && p.Settings.Leading < 1.03 && p.Settings.TopOffsetPts < 20) {
		t.Errorf("Settings = %v, want every field below %v", p.Settings, current)
	}
	if !p.Has(RulePageFitContraction) {
		t.Errorf("Strategy() = %q, want page-fit-contraction", p.Strategy())
	}
}

func TestComputeNextOverflowContractsHarderWhenStalled(t *testing.T) {
	tuning := DefaultTuning()
	current := settings(1.12, 1.03, 20)
	a := assessment(2, 24)

	fresh := ComputeNext(&State{}, current, a, tol, tuning)
	stalled := ComputeNext(&State{NonImprovingSteps: 2}, current, a, tol, tuning)

	if stalled.Settings.Scale >= fresh.Settings.Scale {
		t.Errorf("stalled scale %v should be below fresh scale %v", stalled.Settings.Scale, fresh.Settings.Scale)
	}
}

func TestComputeNextPageBoundaryMidpoint(t *testing.T) {
	tuning := DefaultTuning()
	fit := settings(1.10, 1.02, 14)
	spill := settings(1.16, 1.06, 18)

	var st State
	st.Register(assessment(1, 5), fit, tol, 1, tuning)
	st.Register(assessment(2, 20), spill, tol, 2, tuning)
	p := ComputeNext(&st, spill, assessment(2, 20), tol, tuning)

	if !p.Has(RulePageBoundaryMidpoint) {
		t.Fatalf("Strategy() = %q, want page-boundary-midpoint", p.Strategy())
	}
	if !p.Has(RuleBiasBestSinglePage) {
		t.Errorf("Strategy() = %q, want bias-best-single-page (best observation fit one page)", p.Strategy())
	}
	// midpoint(spill, fit) = {1.13, 1.04, 16}, nudged to 15.5, then blended with fit.
	want := settings((1.13+1.10)/2, (1.04+1.02)/2, (15.5+14)/2)
	if !p.Settings.Equal(want, tuning.Tolerances) {
		t.Errorf("Settings = %v, want %v", p.Settings, want)
	}
}

func TestComputeNextBracketMidpoint(t *testing.T) {
	tuning := DefaultTuning()
	neg := settings(1.05, 1.0, 18)
	pos := settings(1.05, 1.0, 20)

	var st State
	st.Register(assessment(1, -4), neg, tol, 1, tuning)
	st.Register(assessment(1, 3.5), pos, tol, 2, tuning)
	p := ComputeNext(&st, pos, assessment(1, 3.5), tol, tuning)

	if p.Settings.TopOffsetPts != 19 {
		t.Errorf("TopOffsetPts = %v, want 19", p.Settings.TopOffsetPts)
	}
	if !strings.Contains(p.Strategy(), "top-offset-bracket-midpoint") {
		t.Errorf("Strategy() = %q, want top-offset-bracket-midpoint", p.Strategy())
	}
	if p.Settings.Scale != pos.Scale || p.Settings.Leading != pos.Leading {
		t.Errorf("scale/leading changed: %v", p.Settings)
	}
}

func TestComputeNextBracketNudge(t *testing.T) {
	tuning := DefaultTuning()
	st := State{
		Bracket: Bracket{
			Negative: &Observation{Assessment: assessment(1, -4), Settings: settings(1.05, 1.0, 18)},
			Positive: &Observation{Assessment: assessment(1, 3.5), Settings: settings(1.05, 1.0, 20)},
		},
	}

	tests := []struct {
		name  string
		top   float64
		delta float64
	}{
		{"exact midpoint, positive delta", 19, 3},
		{"inside window, negative delta", 19.03, -2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := settings(1.05, 1.0, tt.top)
			p := ComputeNext(&st, current, assessment(1, tt.delta), tol, tuning)

			if p.Settings.TopOffsetPts == current.TopOffsetPts {
				t.Errorf("TopOffsetPts = %v, want a move away from current", p.Settings.TopOffsetPts)
			}
			if moved := p.Settings.TopOffsetPts - current.TopOffsetPts; math.Signbit(moved) != math.Signbit(tt.delta) {
				t.Errorf("nudge moved %v for delta %v, want the sign of delta", moved, tt.delta)
			}
			if p.Settings.Scale != current.Scale || p.Settings.Leading != current.Leading {
				t.Errorf("scale/leading changed: %v", p.Settings)
			}
			if !p.Has(RuleBracketNudge) {
				t.Errorf("Strategy() = %q, want top-offset-bracket-nudge", p.Strategy())
			}
		})
	}
}

func TestComputeNextBracketNudgeAtOffsetLimit(t *testing.T) {
	tuning := DefaultTuning()
	limit := layout.TopOffsetRange.Max
	st := State{
		Bracket: Bracket{
			Negative: &Observation{Assessment: assessment(1, -4), Settings: settings(1.05, 1.0, limit-1)},
			Positive: &Observation{Assessment: assessment(1, 3.5), Settings: settings(1.05, 1.0, limit)},
		},
	}
	current := settings(1.05, 1.0, limit-0.5)

	p := ComputeNext(&st, current, assessment(1, 10), tol, tuning)

	if !p.Has(RuleBracketNudge) {
		t.Fatalf("Strategy() = %q, want top-offset-bracket-nudge", p.Strategy())
	}
	if p.Has(RuleBoundaryDensityStep) {
		t.Errorf("Strategy() = %q, density step should not follow a bracket nudge", p.Strategy())
	}
	if p.Settings.Scale != current.Scale || p.Settings.Leading != current.Leading {
		t.Errorf("scale/leading changed: %v", p.Settings)
	}
	if p.Settings.TopOffsetPts != limit {
		t.Errorf("TopOffsetPts = %v, want clamped to %v", p.Settings.TopOffsetPts, limit)
	}
}

func TestComputeNextTopOffsetStep(t *testing.T) {
	tuning := DefaultTuning()

	tests := []struct {
		name  string
		delta float64
		up    bool
	}{
		{"too much bottom whitespace pushes content down", 6, true},
		{"too little bottom whitespace pulls content up", -6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := settings(1.0, 1.0, 5)
			var st State
			st.Register(assessment(1, tt.delta), current, tol, 1, tuning)
			p := ComputeNext(&st, current, assessment(1, tt.delta), tol, tuning)

			if !p.Has(RuleTopOffsetStep) {
				t.Fatalf("Strategy() = %q, want top-offset-step", p.Strategy())
			}
			if moved := p.Settings.TopOffsetPts > current.TopOffsetPts; moved != tt.up {
				t.Errorf("TopOffsetPts = %v from %v, want up=%v", p.Settings.TopOffsetPts, current.TopOffsetPts, tt.up)
			}
		})
	}
}

func TestComputeNextLargerDeltaTakesLargerStep(t *testing.T) {
	tuning := DefaultTuning()
	current := settings(1.0, 1.0, 0)

	small := ComputeNext(&State{}, current, assessment(1, 3), tol, tuning)
	large := ComputeNext(&State{}, current, assessment(1, 9), tol, tuning)
	stalled := ComputeNext(&State{NonImprovingSteps: 2}, current, assessment(1, 3), tol, tuning)

	if large.Settings.TopOffsetPts <= small.Settings.TopOffsetPts {
		t.Errorf("large step %v should exceed small step %v", large.Settings.TopOffsetPts, small.Settings.TopOffsetPts)
	}
	if stalled.Settings.TopOffsetPts <= small.Settings.TopOffsetPts {
		t.Errorf("stalled step %v should exceed fresh step %v", stalled.Settings.TopOffsetPts, small.Settings.TopOffsetPts)
	}
}

func TestComputeNextSignCrossMidpoint(t *testing.T) {
	tuning := DefaultTuning()
	spill := settings(1.0, 1.0, 10)
	fit := settings(1.0, 1.0, 4)

	var st State
	st.Register(assessment(2, 30), spill, tol, 1, tuning)
	st.Register(assessment(1, -5), fit, tol, 2, tuning)
	p := ComputeNext(&st, fit, assessment(1, -5), tol, tuning)

	if !p.Has(RuleSignCrossMidpoint) {
		t.Fatalf("Strategy() = %q, want sign-cross-midpoint", p.Strategy())
	}
	if p.Settings.TopOffsetPts != 7 {
		t.Errorf("TopOffsetPts = %v, want 7", p.Settings.TopOffsetPts)
	}
}

func TestComputeNextBoundaryDensityStep(t *testing.T) {
	tuning := DefaultTuning()

	t.Run("offset at ceiling grows density", func(t *testing.T) {
		current := settings(1.1, 1.05, layout.TopOffsetRange.Max)
		p := ComputeNext(&State{}, current, assessment(1, 8), tol, tuning)
		if !p.Has(RuleBoundaryDensityStep) {
			t.Fatalf("Strategy() = %q, want boundary-density-step", p.Strategy())
		}
		if p.Settings.Scale <= current.Scale || p.Settings.Leading <= current.Leading {
			t.Errorf("Settings = %v, want denser than %v", p.Settings, current)
		}
	})

	t.Run("offset at floor shrinks density", func(t *testing.T) {
		current := settings(1.1, 1.05, layout.TopOffsetRange.Min)
		p := ComputeNext(&State{}, current, assessment(1, -8), tol, tuning)
		if !p.Has(RuleBoundaryDensityStep) {
			t.Fatalf("Strategy() = %q, want boundary-density-step", p.Strategy())
		}
		if p.Settings.Scale >= current.Scale || p.Settings.Leading >= current.Leading {
			t.Errorf("Settings = %v, want sparser than %v", p.Settings, current)
		}
	})
}

func TestComputeNextSafetyNudge(t *testing.T) {
	tuning := DefaultTuning()
	floor := settings(layout.ScaleRange.Min, layout.LeadingRange.Min, layout.TopOffsetRange.Min)

	p := ComputeNext(&State{}, floor, assessment(1, -8), tol, tuning)

	if !p.Has(RuleSafetyNudge) {
		t.Fatalf("Strategy() = %q, want safety-nudge", p.Strategy())
	}
	if p.Settings.Equal(floor, tuning.Tolerances) {
		t.Errorf("Settings = %v, want a change from %v", p.Settings, floor)
	}
	if !inRange(p.Settings) {
		t.Errorf("Settings = %v out of range", p.Settings)
	}
}

func TestComputeNextStaysInRange(t *testing.T) {
	tuning := DefaultTuning()
	starts := []layout.PrintSettings{
		settings(0.90, 0.90, -12),
		settings(1.35, 1.20, 28),
		settings(1.0, 1.0, 0),
		settings(1.34, 0.91, 27.9),
	}
	deltas := []float64{-60, -8, -2.5, 2.5, 8, 60}
	pages := []int{1, 2, 4}

	for _, s := range starts {
		for _, d := range deltas {
			for _, n := range pages {
				var st State
				st.Register(assessment(n, d), s, tol, 1, tuning)
				p := ComputeNext(&st, s, assessment(n, d), tol, tuning)
				if !inRange(p.Settings) {
					t.Errorf("ComputeNext(%v, pages=%d, delta=%v) = %v, out of range", s, n, d, p.Settings)
				}
			}
		}
	}
}

func TestRegisterKeepsBestObservation(t *testing.T) {
	tuning := DefaultTuning()
	var st State

	st.Register(assessment(1, 3), settings(1, 1, 10), tol, 1, tuning)
	st.Register(assessment(2, 12), settings(1.1, 1.1, 14), tol, 2, tuning)

	if st.Best.Iteration != 1 {
		t.Errorf("Best.Iteration = %d, want 1", st.Best.Iteration)
	}
	if st.Last.Iteration != 2 {
		t.Errorf("Last.Iteration = %d, want 2", st.Last.Iteration)
	}
	if st.Previous.Iteration != 1 {
		t.Errorf("Previous.Iteration = %d, want 1", st.Previous.Iteration)
	}
	if len(st.History) != 2 {
		t.Errorf("len(History) = %d, want 2", len(st.History))
	}
	if best, ok := st.BestSettings(); !ok || best != settings(1, 1, 10) {
		t.Errorf("BestSettings() = %v, %v", best, ok)
	}
}

func TestRegisterNonImprovingSteps(t *testing.T) {
	tuning := DefaultTuning()
	var st State
	s := settings(1, 1, 0)

	steps := []struct {
		delta float64
		want  int
	}{
		{10, 0},   // first observation
		{9.99, 1}, // improvement below threshold
		{9.95, 2},
		{5, 0}, // real improvement resets
		{6, 1}, // regression counts as non-improving
	}

	for i, step := range steps {
		st.Register(assessment(1, step.delta), s, tol, i+1, tuning)
		if st.NonImprovingSteps != step.want {
			t.Errorf("after delta %v: NonImprovingSteps = %d, want %d", step.delta, st.NonImprovingSteps, step.want)
		}
	}
}

func TestRegisterBracket(t *testing.T) {
	tuning := DefaultTuning()
	var st State

	st.Register(assessment(1, -6), settings(1, 1, 10), tol, 1, tuning)
	st.Register(assessment(1, -3), settings(1, 1, 12), tol, 2, tuning)
	st.Register(assessment(1, -5), settings(1, 1, 11), tol, 3, tuning)
	st.Register(assessment(2, 20), settings(1, 1, 20), tol, 4, tuning)
	st.Register(assessment(1, 4), settings(1, 1, 16), tol, 5, tuning)

	if st.Bracket.Negative == nil || st.Bracket.Negative.Iteration != 2 {
		t.Errorf("Bracket.Negative = %+v, want iteration 2 (tightest negative)", st.Bracket.Negative)
	}
	if st.Bracket.Positive == nil || st.Bracket.Positive.Iteration != 5 {
		t.Errorf("Bracket.Positive = %+v, want iteration 5 (multi-page ignored)", st.Bracket.Positive)
	}
	if !st.Bracket.Complete() {
		t.Error("Bracket.Complete() = false, want true")
	}
	if got := st.Bracket.Midpoint(); got != 14 {
		t.Errorf("Bracket.Midpoint() = %v, want 14", got)
	}
}

func TestTuningOrDefault(t *testing.T) {
	if got := (Tuning{}).OrDefault(); got != DefaultTuning() {
		t.Errorf("zero Tuning.OrDefault() = %+v, want defaults", got)
	}

	custom := DefaultTuning()
	custom.ImprovementThreshold = 0
	if got := custom.OrDefault(); got.ImprovementThreshold != 0 {
		t.Errorf("ImprovementThreshold = %v, want explicit 0 kept", got.ImprovementThreshold)
	}
}

func TestTuningValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Tuning)
		wantErr bool
	}{
		{"defaults", func(*Tuning) {}, false},
		{"zero threshold", func(t *Tuning) { t.ImprovementThreshold = 0 }, false},
		{"negative step", func(t *Tuning) { t.MaxOffsetStepPts = -1 }, true},
		{"zero contraction", func(t *Tuning) { t.ContractionFactor = 0 }, true},
		{"expanding contraction", func(t *Tuning) { t.StalledContractionFactor = 1.2 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuning := DefaultTuning()
			tt.mutate(&tuning)
			if err := tuning.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
