package calibrate

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/matzehuels/pagefit/pkg/errors"
	"github.com/matzehuels/pagefit/pkg/layout"
	"github.com/matzehuels/pagefit/pkg/solver"
)

// Status is the terminal outcome of a run.
type Status string

const (
	StatusConverged Status = "converged"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
	StatusDryRun    Status = "dry-run"
)

// Report summarizes a run for the terminal and the journal.
type Report struct {
	RunID      string
	Status     Status
	Phase      Phase
	DryRun     bool
	Iterations int
	Started    time.Time
	Duration   time.Duration

	// Variants holds the final state of every target in id order.
	Variants []VariantReport

	// Diff is the line diff of the settings block between the start and the
	// end of the run. Empty when nothing changed.
	Diff string

	// Reason explains a failure.
	Reason string
}

// VariantReport is the outcome for one variant.
type VariantReport struct {
	ID    string
	Class Class

	// Last measured settings and their assessment.
	Settings   layout.PrintSettings
	Assessment layout.Assessment
	Score      float64

	// Best is the lowest-score settings observed during the run.
	Best      layout.PrintSettings
	BestScore float64

	// Strategy and Proposed describe the last proposal, if any.
	Strategy string
	Proposed *layout.PrintSettings

	// Bound is set for bound-failed variants.
	Bound *errors.BoundFailure
}

// WhitespaceOnly reports whether the variant hit the bottom whitespace
// target but still fails because its top or bottom whitespace is below the
// reference. The solver only moves bottom whitespace toward the target, so
// such a variant is held as-is and the run stalls.
func (v VariantReport) WhitespaceOnly() bool {
	return v.Class == ClassAdjustable && v.Strategy == string(solver.RuleAlreadyWithinTolerance)
}

// Passed returns the variants whose last measurement passed.
func (r *Report) Passed() []VariantReport {
	return r.filter(func(v VariantReport) bool { return v.Class == ClassPass })
}

// BoundFailed returns the variants pinned at a parameter limit.
func (r *Report) BoundFailed() []VariantReport {
	return r.filter(func(v VariantReport) bool { return v.Class.Bound() })
}

// Unresolved returns adjustable variants that never passed.
func (r *Report) Unresolved() []VariantReport {
	return r.filter(func(v VariantReport) bool { return v.Class == ClassAdjustable })
}

func (r *Report) filter(keep func(VariantReport) bool) []VariantReport {
	var out []VariantReport
	for _, v := range r.Variants {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Exit statuses.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitConfig   = 2
	ExitCanceled = 130
)

// ExitCode maps a Run error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if stderrors.Is(err, context.Canceled) {
		return ExitCanceled
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeCanceled:
		return ExitCanceled
	case errors.ErrCodeConfig, errors.ErrCodeInvalidVariant, errors.ErrCodeInvalidPath:
		return ExitConfig
	}
	return ExitFailure
}
