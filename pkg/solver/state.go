package solver

import (
	"math"

	"github.com/matzehuels/pagefit/pkg/layout"
)

// Observation is one measured iteration of a variant. It is never mutated
// after Register creates it.
type Observation struct {
	Iteration  int                  `json:"iteration"`
	Assessment layout.Assessment    `json:"assessment"`
	Settings   layout.PrintSettings `json:"settings"`
	Score      float64              `json:"score"`
}

// Pages is the rendered page count.
func (o *Observation) Pages() int { return o.Assessment.Measurement.Pages }

// DeltaPts is the signed bottom whitespace error.
func (o *Observation) DeltaPts() float64 { return o.Assessment.DeltaPts }

// SinglePage reports whether the observation fit on one page.
func (o *Observation) SinglePage() bool { return o.Assessment.SinglePage() }

// Bracket holds the tightest single-page observation on each side of zero
// delta.
type Bracket struct {
	Negative *Observation `json:"negative,omitempty"`
	Positive *Observation `json:"positive,omitempty"`
}

// Complete reports whether both sides are known.
func (b Bracket) Complete() bool {
	return b.Negative != nil && b.Positive != nil
}

// Midpoint returns the top offset halfway between both sides.
func (b Bracket) Midpoint() float64 {
	return (b.Negative.Settings.TopOffsetPts + b.Positive.Settings.TopOffsetPts) / 2
}

// State is everything the solver remembers about one variant.
type State struct {
	Previous          *Observation  `json:"previous,omitempty"`
	Last              *Observation  `json:"last,omitempty"`
	Best              *Observation  `json:"best,omitempty"`
	Bracket           Bracket       `json:"bracket"`
	NonImprovingSteps int           `json:"nonImprovingSteps"`
	History           []Observation `json:"history,omitempty"`
}

// Register records a new observation and updates the derived state:
//   - Last moves to Previous
//   - Best keeps the lowest score ever seen
//   - NonImprovingSteps counts consecutive steps whose score improved by less
//     than tuning.ImprovementThreshold
//   - the bracket side matching the sign of delta is replaced when the new
//     single-page observation is tighter
func (s *State) Register(a layout.Assessment, settings layout.PrintSettings, tolerancePts float64, iteration int, tuning Tuning) Observation {
	obs := &Observation{
		Iteration:  iteration,
		Assessment: a,
		Settings:   settings,
		Score:      layout.Score(a.Measurement.Pages, a.DeltaPts, tolerancePts),
	}

	prev := s.Last
	s.Previous = prev
	s.Last = obs
	s.History = append(s.History, *obs)

	if s.Best == nil || obs.Score < s.Best.Score {
		s.Best = obs
	}

	if prev != nil {
		if prev.Score-obs.Score < tuning.ImprovementThreshold {
			s.NonImprovingSteps++
		} else {
			s.NonImprovingSteps = 0
		}
	}

	if obs.SinglePage() {
		switch {
		case obs.DeltaPts() < 0:
			if tighter(obs, s.Bracket.Negative) {
				s.Bracket.Negative = obs
			}
		case obs.DeltaPts() > 0:
			if tighter(obs, s.Bracket.Positive) {
				s.Bracket.Positive = obs
			}
		}
	}

	return *obs
}

// BestSettings returns the settings of the lowest-score observation.
func (s *State) BestSettings() (layout.PrintSettings, bool) {
	if s == nil || s.Best == nil {
		return layout.PrintSettings{}, false
	}
	return s.Best.Settings, true
}

func tighter(obs, current *Observation) bool {
	return current == nil || math.Abs(obs.DeltaPts()) < math.Abs(current.DeltaPts())
}
