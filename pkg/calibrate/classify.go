package calibrate

import (
	"github.com/matzehuels/pagefit/pkg/errors"
	"github.com/matzehuels/pagefit/pkg/layout"
)

// Class is the per-iteration verdict for a variant.
type Class string

const (
	ClassPass         Class = "pass"
	ClassAdjustable   Class = "adjustable"
	ClassBoundFloor   Class = "bound-floor"
	ClassBoundCeiling Class = "bound-ceiling"
)

// Bound reports whether the class excludes the variant from adjustment.
func (c Class) Bound() bool {
	return c == ClassBoundFloor || c == ClassBoundCeiling
}

// Classify judges one assessment made with the given settings.
//
// A variant is bound at the floor when every setting is at its minimum and
// the content still overflows or leaves too little bottom whitespace. It is
// bound at the ceiling when every setting is at its maximum and there is
// still too much bottom whitespace.
func Classify(a layout.Assessment, current layout.PrintSettings, tolerancePts float64, tol layout.Tolerances) Class {
	if a.Passes(tolerancePts) {
		return ClassPass
	}
	if current.AtFloor(tol) && (!a.SinglePage() || a.DeltaPts < -tolerancePts) {
		return ClassBoundFloor
	}
	if current.AtCeiling(tol) && a.SinglePage() && a.DeltaPts > tolerancePts {
		return ClassBoundCeiling
	}
	return ClassAdjustable
}

func boundFailure(id string, c Class, a layout.Assessment) *errors.BoundFailure {
	switch c {
	case ClassBoundFloor:
		reason := "bottom whitespace below target at minimum density"
		if !a.SinglePage() {
			reason = "content still spans multiple pages at minimum density"
		}
		return &errors.BoundFailure{Variant: id, Limit: "floor", Reason: reason}
	case ClassBoundCeiling:
		return &errors.BoundFailure{Variant: id, Limit: "ceiling", Reason: "bottom whitespace above target at maximum density"}
	}
	return nil
}
