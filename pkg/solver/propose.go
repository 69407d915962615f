package solver

import (
	"math"
	"strings"

	"github.com/matzehuels/pagefit/pkg/layout"
)

// Rule identifies one step of the proposal procedure.
type Rule string

// Rules in evaluation order.
const (
	RuleAlreadyWithinTolerance Rule = "already-within-tolerance"
	RulePageBoundaryMidpoint   Rule = "page-boundary-midpoint"
	RulePageFitContraction     Rule = "page-fit-contraction"
	RuleBiasBestSinglePage     Rule = "bias-best-single-page"
	RuleBracketMidpoint        Rule = "top-offset-bracket-midpoint"
	RuleBracketNudge           Rule = "top-offset-bracket-nudge"
	RuleSignCrossMidpoint      Rule = "sign-cross-midpoint"
	RuleTopOffsetStep          Rule = "top-offset-step"
	RuleBoundaryDensityStep    Rule = "boundary-density-step"
	RuleSafetyNudge            Rule = "safety-nudge"
)

// Proposal is the next settings to try together with the rules that
// produced them.
type Proposal struct {
	Settings layout.PrintSettings
	Rules    []Rule
}

// Strategy joins the rule names with "+", e.g.
// "page-fit-contraction+bias-best-single-page".
func (p Proposal) Strategy() string {
	names := make([]string, len(p.Rules))
	for i, r := range p.Rules {
		names[i] = string(r)
	}
	return strings.Join(names, "+")
}

// Has reports whether r contributed to the proposal.
func (p Proposal) Has(r Rule) bool {
	for _, got := range p.Rules {
		if got == r {
			return true
		}
	}
	return false
}

// Converged reports whether the proposal keeps already passing settings.
func (p Proposal) Converged() bool {
	return len(p.Rules) == 1 && p.Rules[0] == RuleAlreadyWithinTolerance
}

// ComputeNext proposes the settings for the next iteration.
//
// The observation for a must already be registered in state; the
// page-boundary and sign-cross rules compare against state.Previous.
// A nil state behaves like an empty one.
func ComputeNext(state *State, current layout.PrintSettings, a layout.Assessment, tolerancePts float64, tuning Tuning) Proposal {
	if state == nil {
		state = &State{}
	}

	if a.WithinTolerance(tolerancePts) {
		return Proposal{Settings: current, Rules: []Rule{RuleAlreadyWithinTolerance}}
	}

	var p Proposal
	if !a.SinglePage() {
		p = proposeOverflow(state, current, a, tuning)
	} else {
		p = proposeSinglePage(state, current, a, tuning)
	}

	p.Settings = p.Settings.Clamp()
	if p.Settings.Equal(current, tuning.Tolerances) {
		p = safetyNudge(p, current, a, tuning)
	}
	return p
}

// proposeOverflow contracts the layout when content spills onto extra pages.
func proposeOverflow(state *State, current layout.PrintSettings, a layout.Assessment, tuning Tuning) Proposal {
	var p Proposal

	if prev := state.Previous; prev != nil && prev.SinglePage() {
		p.Settings = current.Midpoint(prev.Settings)
		p.Settings.TopOffsetPts -= tuning.BoundaryNudgePts
		p.Rules = append(p.Rules, RulePageBoundaryMidpoint)
	} else {
		factor := tuning.ContractionFactor
		if state.NonImprovingSteps >= 2 {
			factor = tuning.StalledContractionFactor
		}
		overflow := float64(a.Measurement.Pages - 1)
		step := math.Min(tuning.MaxOverflowStepPts,
			tuning.OverflowStepPts*overflow+tuning.OverflowDeltaGain*math.Abs(a.DeltaPts))
		p.Settings = layout.PrintSettings{
			Scale:        current.Scale * factor,
			Leading:      current.Leading * factor,
			TopOffsetPts: current.TopOffsetPts - step,
		}
		p.Rules = append(p.Rules, RulePageFitContraction)
	}

	if best := state.Best; best != nil && best.SinglePage() {
		p.Settings = p.Settings.Midpoint(best.Settings)
		p.Rules = append(p.Rules, RuleBiasBestSinglePage)
	}
	return p
}

// proposeSinglePage moves the top offset toward zero delta, falling back to
// density changes once the offset is pinned. A bracket nudge only ever moves
// the offset.
func proposeSinglePage(state *State, current layout.PrintSettings, a layout.Assessment, tuning Tuning) Proposal {
	delta := a.DeltaPts
	dir := direction(delta)
	p := Proposal{Settings: current}

	switch prev := state.Previous; {
	case state.Bracket.Complete():
		mid := state.Bracket.Midpoint()
		if math.Abs(mid-current.TopOffsetPts) <= tuning.BracketWindowPts {
			p.Settings.TopOffsetPts = current.TopOffsetPts + dir*bracketNudge(delta, state.NonImprovingSteps, tuning)
			p.Rules = append(p.Rules, RuleBracketNudge)
		} else {
			p.Settings.TopOffsetPts = mid
			p.Rules = append(p.Rules, RuleBracketMidpoint)
		}
	case prev != nil && signFlipped(prev.DeltaPts(), delta):
		p.Settings.TopOffsetPts = (current.TopOffsetPts + prev.Settings.TopOffsetPts) / 2
		p.Rules = append(p.Rules, RuleSignCrossMidpoint)
	default:
		p.Settings.TopOffsetPts = current.TopOffsetPts + dir*offsetStep(delta, state.NonImprovingSteps, tuning)
		p.Rules = append(p.Rules, RuleTopOffsetStep)
	}

	offset := layout.TopOffsetRange.Clamp(p.Settings.TopOffsetPts)
	eps := tuning.Tolerances.OffsetPts
	pinnedHigh := dir > 0 && layout.TopOffsetRange.AtMax(offset, eps)
	pinnedLow := dir < 0 && layout.TopOffsetRange.AtMin(offset, eps)
	if (pinnedHigh || pinnedLow) && !p.Has(RuleBracketNudge) {
		ratio := math.Min(tuning.MaxDensityStep, tuning.DensityGainPerPt*math.Abs(delta))
		p.Settings.Scale = current.Scale * (1 + dir*ratio)
		p.Settings.Leading = current.Leading * (1 + dir*ratio)
		p.Rules = append(p.Rules, RuleBoundaryDensityStep)
	}
	return p
}

// safetyNudge moves the top offset by a fixed amount when clamping erased
// the proposal. Overflow and negative deltas move content up, positive
// deltas move it down; at a range limit the nudge goes the other way.
func safetyNudge(p Proposal, current layout.PrintSettings, a layout.Assessment, tuning Tuning) Proposal {
	dir := 1.0
	if !a.SinglePage() || a.DeltaPts < 0 {
		dir = -1.0
	}

	next := current.Clamp()
	next.TopOffsetPts = layout.TopOffsetRange.Clamp(current.TopOffsetPts + dir*tuning.SafetyNudgePts)
	if next.Equal(current, tuning.Tolerances) {
		next.TopOffsetPts = layout.TopOffsetRange.Clamp(current.TopOffsetPts - dir*tuning.SafetyNudgePts)
	}

	p.Settings = next
	p.Rules = append(p.Rules, RuleSafetyNudge)
	return p
}

// offsetStep grows with |delta| and is amplified after 2+ non-improving
// iterations.
func offsetStep(delta float64, nonImproving int, tuning Tuning) float64 {
	step := clamp(tuning.OffsetGain*math.Abs(delta), tuning.MinOffsetStepPts, tuning.MaxOffsetStepPts)
	if nonImproving >= 2 {
		step *= tuning.StalledStepMultiplier
	}
	return step
}

func bracketNudge(delta float64, nonImproving int, tuning Tuning) float64 {
	nudge := clamp(tuning.BracketNudgeGain*math.Abs(delta), tuning.MinBracketNudgePts, tuning.MaxBracketNudgePts)
	return nudge * (1 + 0.5*float64(min(nonImproving, 4)))
}

// direction is +1 when the offset should grow (too much bottom whitespace).
func direction(delta float64) float64 {
	if delta > 0 {
		return 1
	}
	return -1
}

func signFlipped(a, b float64) bool {
	return (a < 0 && b > 0) || (a > 0 && b < 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
