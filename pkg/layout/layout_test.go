package layout

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name string
		in   PrintSettings
		want PrintSettings
	}{
		{"inside", PrintSettings{1.1, 1.05, 10}, PrintSettings{1.1, 1.05, 10}},
		{"below", PrintSettings{0.5, 0.2, -40}, PrintSettings{0.90, 0.90, -12}},
		{"above", PrintSettings{2, 2, 99}, PrintSettings{1.35, 1.20, 28}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Clamp(); got != tt.want {
				t.Errorf("Clamp() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Errorf("DefaultSettings().Validate() = %v, want nil", err)
	}
	bad := []PrintSettings{
		{Scale: 0.8, Leading: 1, TopOffsetPts: 0},
		{Scale: 1, Leading: 1.3, TopOffsetPts: 0},
		{Scale: 1, Leading: 1, TopOffsetPts: 30},
	}
	for _, s := range bad {
		if err := s.Validate(); err == nil {
			t.Errorf("Validate(%v) = nil, want error", s)
		}
	}
}

func TestMidpoint(t *testing.T) {
	a := PrintSettings{1.0, 1.0, 10}
	b := PrintSettings{1.2, 1.1, 20}
	got := a.Midpoint(b)
	want := PrintSettings{1.1, 1.05, 15}
	if !got.Equal(want, DefaultTolerances()) {
		t.Errorf("Midpoint() = %v, want %v", got, want)
	}
}

func TestEqual(t *testing.T) {
	tol := DefaultTolerances()
	base := PrintSettings{1.1, 1.05, 10}

	tests := []struct {
		name  string
		other PrintSettings
		want  bool
	}{
		{"identical", base, true},
		{"scale within rounding", PrintSettings{1.1004, 1.05, 10}, true},
		{"scale moved", PrintSettings{1.101, 1.05, 10}, false},
		{"offset within rounding", PrintSettings{1.1, 1.05, 10.04}, true},
		{"offset moved", PrintSettings{1.1, 1.05, 10.06}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Equal(tt.other, tol); got != tt.want {
				t.Errorf("Equal(%v) = %v, want %v", tt.other, got, tt.want)
			}
		})
	}
}

func TestFloorAndCeiling(t *testing.T) {
	tol := DefaultTolerances()
	floor := PrintSettings{ScaleRange.Min, LeadingRange.Min, TopOffsetRange.Min}
	ceiling := PrintSettings{ScaleRange.Max, LeadingRange.Max, TopOffsetRange.Max}

	if !floor.AtFloor(tol) || floor.AtCeiling(tol) {
		t.Errorf("floor settings misclassified: AtFloor=%v AtCeiling=%v", floor.AtFloor(tol), floor.AtCeiling(tol))
	}
	if !ceiling.AtCeiling(tol) || ceiling.AtFloor(tol) {
		t.Errorf("ceiling settings misclassified: AtFloor=%v AtCeiling=%v", ceiling.AtFloor(tol), ceiling.AtCeiling(tol))
	}
	if DefaultSettings().AtFloor(tol) || DefaultSettings().AtCeiling(tol) {
		t.Error("default settings should be neither floor nor ceiling")
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		pages int
		delta float64
		tol   float64
		want  float64
	}{
		{"single page within tolerance", 1, -1.5, 2, 1.5},
		{"single page beyond tolerance", 1, 4, 2, 4 + 5*2},
		{"two pages", 2, 24, 2, 1000 + 250 + 24 + 5*22},
		{"three pages", 3, 0, 2, 1000 + 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.pages, tt.delta, tt.tol); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssess(t *testing.T) {
	caps := WhitespaceCaps{TopMinPts: 36, BottomMinPts: 40, PageHeightPts: 792}
	m := Measurement{Pages: 1, PageHeightPts: 792, TopWhitespacePts: 30, BottomWhitespacePts: 50}

	a := Assess(m, caps, 0.05)

	if math.Abs(a.ExpectedBottomPts-39.6) > 1e-9 {
		t.Errorf("ExpectedBottomPts = %v, want 39.6", a.ExpectedBottomPts)
	}
	if math.Abs(a.DeltaPts-10.4) > 1e-9 {
		t.Errorf("DeltaPts = %v, want 10.4", a.DeltaPts)
	}
	if a.TopDeficitPts != 6 {
		t.Errorf("TopDeficitPts = %v, want 6", a.TopDeficitPts)
	}
	if a.BottomDeficitPts != 0 {
		t.Errorf("BottomDeficitPts = %v, want 0", a.BottomDeficitPts)
	}
	if a.Passes(2) {
		t.Error("Passes() = true, want false (delta and top deficit exceed tolerance)")
	}
}

func TestAssessmentPasses(t *testing.T) {
	caps := WhitespaceCaps{TopMinPts: 36, BottomMinPts: 40, PageHeightPts: 800}
	ok := Assess(Measurement{Pages: 1, PageHeightPts: 800, TopWhitespacePts: 36, BottomWhitespacePts: 41}, caps, 0.05)
	if !ok.Passes(2) {
		t.Errorf("Passes() = false for %+v, want true", ok)
	}

	overflow := Assess(Measurement{Pages: 2, PageHeightPts: 800, TopWhitespacePts: 36, BottomWhitespacePts: 41}, caps, 0.05)
	if overflow.Passes(2) {
		t.Error("Passes() = true for two pages, want false")
	}
}

func TestMeasurementValidate(t *testing.T) {
	if err := (Measurement{Pages: 1, PageHeightPts: 792}).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	if err := (Measurement{Pages: 0, PageHeightPts: 792}).Validate(); err == nil {
		t.Error("Validate() with zero pages = nil, want error")
	}
	if err := (Measurement{Pages: 1, PageHeightPts: 0}).Validate(); err == nil {
		t.Error("Validate() with zero height = nil, want error")
	}
}
