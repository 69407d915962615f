package solver

import (
	"fmt"

	"github.com/matzehuels/pagefit/pkg/layout"
)

// Tuning holds the step sizes and thresholds used by the solver. None of
// them is derived from a formula; they are exposed so a project file can
// override them.
type Tuning struct {
	// ImprovementThreshold is the minimum score decrease that counts as an
	// improving step.
	ImprovementThreshold float64 `toml:"improvement_threshold"`

	// Tolerances decide when a proposal equals the current settings.
	Tolerances layout.Tolerances `toml:"tolerances"`

	// BracketWindowPts is the distance under which the bracket midpoint is
	// considered equal to the current offset.
	BracketWindowPts float64 `toml:"bracket_window_pts"`

	// Overflow contraction
	ContractionFactor        float64 `toml:"contraction_factor"`         // scale/leading multiplier per overflow step
	StalledContractionFactor float64 `toml:"stalled_contraction_factor"` // used after 2+ non-improving steps
	OverflowStepPts          float64 `toml:"overflow_step_pts"`          // offset decrease per extra page
	OverflowDeltaGain        float64 `toml:"overflow_delta_gain"`        // extra offset decrease per point of |delta|
	MaxOverflowStepPts       float64 `toml:"max_overflow_step_pts"`
	BoundaryNudgePts         float64 `toml:"boundary_nudge_pts"` // extra offset decrease after a page-boundary midpoint

	// Single-page offset steps
	OffsetGain            float64 `toml:"offset_gain"` // offset step per point of |delta|
	MinOffsetStepPts      float64 `toml:"min_offset_step_pts"`
	MaxOffsetStepPts      float64 `toml:"max_offset_step_pts"`
	StalledStepMultiplier float64 `toml:"stalled_step_multiplier"`
	BracketNudgeGain      float64 `toml:"bracket_nudge_gain"`
	MinBracketNudgePts    float64 `toml:"min_bracket_nudge_pts"`
	MaxBracketNudgePts    float64 `toml:"max_bracket_nudge_pts"`

	// Density steps once the offset is pinned
	DensityGainPerPt float64 `toml:"density_gain_per_pt"`
	MaxDensityStep   float64 `toml:"max_density_step"`

	SafetyNudgePts float64 `toml:"safety_nudge_pts"`
}

// DefaultTuning returns the standard solver tuning.
func DefaultTuning() Tuning {
	return Tuning{
		ImprovementThreshold:     0.2,
		Tolerances:               layout.DefaultTolerances(),
		BracketWindowPts:         0.05,
		ContractionFactor:        0.985,
		StalledContractionFactor: 0.97,
		OverflowStepPts:          4,
		OverflowDeltaGain:        0.1,
		MaxOverflowStepPts:       10,
		BoundaryNudgePts:         0.5,
		OffsetGain:               0.6,
		MinOffsetStepPts:         0.25,
		MaxOffsetStepPts:         8,
		StalledStepMultiplier:    1.5,
		BracketNudgeGain:         0.1,
		MinBracketNudgePts:       0.1,
		MaxBracketNudgePts:       1,
		DensityGainPerPt:         0.002,
		MaxDensityStep:           0.03,
		SafetyNudgePts:           0.25,
	}
}

// OrDefault returns DefaultTuning when t is the zero value and t otherwise.
// Fields of a non-zero Tuning are taken as given, so 0 is a usable setting.
func (t Tuning) OrDefault() Tuning {
	if t == (Tuning{}) {
		return DefaultTuning()
	}
	return t
}

// Validate rejects negative values and contraction factors outside (0, 1].
func (t Tuning) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"improvement_threshold", t.ImprovementThreshold},
		{"tolerances.scale_leading", t.Tolerances.ScaleLeading},
		{"tolerances.offset_pts", t.Tolerances.OffsetPts},
		{"bracket_window_pts", t.BracketWindowPts},
		{"overflow_step_pts", t.OverflowStepPts},
		{"overflow_delta_gain", t.OverflowDeltaGain},
		{"max_overflow_step_pts", t.MaxOverflowStepPts},
		{"boundary_nudge_pts", t.BoundaryNudgePts},
		{"offset_gain", t.OffsetGain},
		{"min_offset_step_pts", t.MinOffsetStepPts},
		{"max_offset_step_pts", t.MaxOffsetStepPts},
		{"stalled_step_multiplier", t.StalledStepMultiplier},
		{"bracket_nudge_gain", t.BracketNudgeGain},
		{"min_bracket_nudge_pts", t.MinBracketNudgePts},
		{"max_bracket_nudge_pts", t.MaxBracketNudgePts},
		{"density_gain_per_pt", t.DensityGainPerPt},
		{"max_density_step", t.MaxDensityStep},
		{"safety_nudge_pts", t.SafetyNudgePts},
	}
	for _, f := range fields {
		if f.v < 0 {
			return fmt.Errorf("tuning.%s must be >= 0, got %v", f.name, f.v)
		}
	}
	for name, f := range map[string]float64{
		"contraction_factor":         t.ContractionFactor,
		"stalled_contraction_factor": t.StalledContractionFactor,
	} {
		if f <= 0 || f > 1 {
			return fmt.Errorf("tuning.%s must be in (0, 1], got %v", name, f)
		}
	}
	return nil
}
