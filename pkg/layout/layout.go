// Package layout defines the print-layout data model shared by the solver,
// the measurement provider and the calibration driver.
//
// A variant is tuned through three scalars (see [PrintSettings]); each has a
// fixed allowed [Range]. Rendered artifacts are summarized as a
// [Measurement], and measurements are judged against the reference variant
// through an [Assessment].
package layout

import (
	"fmt"
	"math"
)

// Range is a closed interval of allowed parameter values.
type Range struct {
	Min float64
	Max float64
}

// Allowed ranges for the three tunable parameters.
var (
	ScaleRange     = Range{Min: 0.90, Max: 1.35}
	LeadingRange   = Range{Min: 0.90, Max: 1.20}
	TopOffsetRange = Range{Min: -12, Max: 28}
)

// Clamp limits v to the range.
func (r Range) Clamp(v float64) float64 {
	return math.Min(r.Max, math.Max(r.Min, v))
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// AtMin reports whether v sits on the lower bound within eps.
func (r Range) AtMin(v, eps float64) bool {
	return v <= r.Min+eps
}

// AtMax reports whether v sits on the upper bound within eps.
func (r Range) AtMax(v, eps float64) bool {
	return v >= r.Max-eps
}

// PrintSettings holds the per-variant layout parameters.
type PrintSettings struct {
	Scale        float64 `json:"scale" toml:"scale"`
	Leading      float64 `json:"leading" toml:"leading"`
	TopOffsetPts float64 `json:"topOffsetPts" toml:"top_offset_pts"`
}

// DefaultSettings returns the neutral settings used for variants that have
// no persisted record yet.
func DefaultSettings() PrintSettings {
	return PrintSettings{Scale: 1.0, Leading: 1.0, TopOffsetPts: 0}
}

// Clamp returns s with every field limited to its allowed range.
func (s PrintSettings) Clamp() PrintSettings {
	return PrintSettings{
		Scale:        ScaleRange.Clamp(s.Scale),
		Leading:      LeadingRange.Clamp(s.Leading),
		TopOffsetPts: TopOffsetRange.Clamp(s.TopOffsetPts),
	}
}

// Validate returns an error naming the first field outside its range.
func (s PrintSettings) Validate() error {
	switch {
	case !ScaleRange.Contains(s.Scale):
		return fmt.Errorf("scale %.4f outside [%.2f, %.2f]", s.Scale, ScaleRange.Min, ScaleRange.Max)
	case !LeadingRange.Contains(s.Leading):
		return fmt.Errorf("leading %.4f outside [%.2f, %.2f]", s.Leading, LeadingRange.Min, LeadingRange.Max)
	case !TopOffsetRange.Contains(s.TopOffsetPts):
		return fmt.Errorf("topOffsetPts %.2f outside [%.0f, %.0f]", s.TopOffsetPts, TopOffsetRange.Min, TopOffsetRange.Max)
	}
	return nil
}

// Midpoint returns the field-wise midpoint of s and o.
func (s PrintSettings) Midpoint(o PrintSettings) PrintSettings {
	return PrintSettings{
		Scale:        (s.Scale + o.Scale) / 2,
		Leading:      (s.Leading + o.Leading) / 2,
		TopOffsetPts: (s.TopOffsetPts + o.TopOffsetPts) / 2,
	}
}

// Tolerances are the rounding windows under which two settings count as
// unchanged.
type Tolerances struct {
	ScaleLeading float64 `toml:"scale_leading"`
	OffsetPts    float64 `toml:"offset_pts"`
}

// DefaultTolerances returns 0.0005 for scale/leading and 0.05pt for offset.
func DefaultTolerances() Tolerances {
	return Tolerances{ScaleLeading: 0.0005, OffsetPts: 0.05}
}

// Equal reports whether s and o differ by less than tol in every field.
func (s PrintSettings) Equal(o PrintSettings, tol Tolerances) bool {
	return math.Abs(s.Scale-o.Scale) < tol.ScaleLeading &&
		math.Abs(s.Leading-o.Leading) < tol.ScaleLeading &&
		math.Abs(s.TopOffsetPts-o.TopOffsetPts) < tol.OffsetPts
}

// AtFloor reports whether every field sits on its minimum: the densest
// packing the ranges allow.
func (s PrintSettings) AtFloor(tol Tolerances) bool {
	return ScaleRange.AtMin(s.Scale, tol.ScaleLeading) &&
		LeadingRange.AtMin(s.Leading, tol.ScaleLeading) &&
		TopOffsetRange.AtMin(s.TopOffsetPts, tol.OffsetPts)
}

// AtCeiling reports whether every field sits on its maximum.
func (s PrintSettings) AtCeiling(tol Tolerances) bool {
	return ScaleRange.AtMax(s.Scale, tol.ScaleLeading) &&
		LeadingRange.AtMax(s.Leading, tol.ScaleLeading) &&
		TopOffsetRange.AtMax(s.TopOffsetPts, tol.OffsetPts)
}

// String formats settings for logs.
func (s PrintSettings) String() string {
	return fmt.Sprintf("scale=%.4f leading=%.4f top=%.2fpt", s.Scale, s.Leading, s.TopOffsetPts)
}
