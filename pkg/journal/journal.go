// Package journal records calibration runs and their per-variant
// observations in a local SQLite database, so past runs can be inspected
// with `pagefit history`.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/pagefit/pkg/layout"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusConverged = "converged"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
	StatusDryRun    = "dry-run"
)

// Run is one calibration invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Status     string
	Iterations int
	Reason     string
	DryRun     bool
}

// Entry is one variant observed in one iteration.
type Entry struct {
	RunID      string
	Iteration  int
	Variant    string
	Class      string
	Strategy   string
	Settings   layout.PrintSettings
	Assessment layout.Assessment
	Score      float64
	CreatedAt  time.Time
}

// Recorder receives run events from the calibration driver.
type Recorder interface {
	BeginRun(ctx context.Context, runID string, dryRun bool) error
	Record(ctx context.Context, e Entry) error
	FinishRun(ctx context.Context, runID, status string, iterations int, reason string) error
}

// Nop discards everything. It is used when journaling is disabled.
type Nop struct{}

func (Nop) BeginRun(context.Context, string, bool) error                 { return nil }
func (Nop) Record(context.Context, Entry) error                          { return nil }
func (Nop) FinishRun(context.Context, string, string, int, string) error { return nil }

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

var (
	_ Recorder = Nop{}
	_ Recorder = (*Store)(nil)
)
