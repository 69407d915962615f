package layout

import (
	"fmt"
	"math"
)

// Measurement summarizes one rendered artifact. Whitespace values are
// distances in points from the page edges to the content bounds.
type Measurement struct {
	Pages               int     `json:"pages"`
	PageHeightPts       float64 `json:"pageHeightPts"`
	TopWhitespacePts    float64 `json:"topWhitespacePts"`
	BottomWhitespacePts float64 `json:"bottomWhitespacePts"`
}

// Validate checks the structural invariants of a measurement.
func (m Measurement) Validate() error {
	if m.Pages < 1 {
		return fmt.Errorf("measurement has %d pages", m.Pages)
	}
	if m.PageHeightPts <= 0 {
		return fmt.Errorf("page height must be > 0, got %v", m.PageHeightPts)
	}
	return nil
}

// BottomRatio is the bottom whitespace normalized by page height.
func (m Measurement) BottomRatio() float64 {
	if m.PageHeightPts <= 0 {
		return 0
	}
	return m.BottomWhitespacePts / m.PageHeightPts
}

// WhitespaceCaps are the minimum acceptable whitespace values, taken from
// the reference variant's measurement for the current iteration.
type WhitespaceCaps struct {
	TopMinPts     float64 `json:"topMinPts"`
	BottomMinPts  float64 `json:"bottomMinPts"`
	PageHeightPts float64 `json:"pageHeightPts"`
}

// CapsFrom derives whitespace caps from a reference measurement.
func CapsFrom(ref Measurement) WhitespaceCaps {
	return WhitespaceCaps{
		TopMinPts:     ref.TopWhitespacePts,
		BottomMinPts:  ref.BottomWhitespacePts,
		PageHeightPts: ref.PageHeightPts,
	}
}

// Assessment is a measurement judged against the expected bottom
// whitespace and this iteration's caps.
type Assessment struct {
	Measurement       Measurement `json:"measurement"`
	ExpectedBottomPts float64     `json:"expectedBottomPts"`
	DeltaPts          float64     `json:"deltaPts"`
	TopDeficitPts     float64     `json:"topDeficitPts"`
	BottomDeficitPts  float64     `json:"bottomDeficitPts"`
}

// Assess computes delta and deficits for m. The expected bottom whitespace
// is ratio times the reference page height; delta is positive when the
// variant leaves more bottom whitespace than expected.
func Assess(m Measurement, caps WhitespaceCaps, ratio float64) Assessment {
	height := caps.PageHeightPts
	if height <= 0 {
		height = m.PageHeightPts
	}
	expected := ratio * height
	return Assessment{
		Measurement:       m,
		ExpectedBottomPts: expected,
		DeltaPts:          m.BottomWhitespacePts - expected,
		TopDeficitPts:     math.Max(0, caps.TopMinPts-m.TopWhitespacePts),
		BottomDeficitPts:  math.Max(0, caps.BottomMinPts-m.BottomWhitespacePts),
	}
}

// SinglePage reports whether the artifact fit on one page.
func (a Assessment) SinglePage() bool {
	return a.Measurement.Pages == 1
}

// WithinTolerance reports whether |delta| <= tol on a single page.
func (a Assessment) WithinTolerance(tol float64) bool {
	return a.SinglePage() && math.Abs(a.DeltaPts) <= tol
}

// Passes reports whether the variant satisfies every constraint: one page,
// delta within tolerance and both whitespace deficits within tolerance.
func (a Assessment) Passes(tol float64) bool {
	return a.WithinTolerance(tol) && a.TopDeficitPts <= tol && a.BottomDeficitPts <= tol
}

// PagePenalty is 0 for a single page and 1000 + 250·|pages−1| otherwise.
func PagePenalty(pages int) float64 {
	if pages == 1 {
		return 0
	}
	return 1000 + 250*math.Abs(float64(pages-1))
}

// Score ranks an observation; lower is better. It combines the page penalty
// with the whitespace deviation and an extra weight on the part of the
// deviation beyond tolerance.
func Score(pages int, deltaPts, tolerancePts float64) float64 {
	d := math.Abs(deltaPts)
	return PagePenalty(pages) + d + 5*math.Max(0, d-tolerancePts)
}
