package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/matzehuels/pagefit/pkg/layout"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	id := NewRunID()

	if err := s.BeginRun(ctx, id, false); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	run, ok, err := s.Run(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Run: ok=%v err=%v", ok, err)
	}
	if run.Status != StatusRunning || !run.FinishedAt.IsZero() {
		t.Errorf("new run = %+v, want running and unfinished", run)
	}

	if err := s.FinishRun(ctx, id, StatusConverged, 3, ""); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	run, _, _ = s.Run(ctx, id)
	if run.Status != StatusConverged || run.Iterations != 3 || run.FinishedAt.IsZero() {
		t.Errorf("finished run = %+v", run)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	s := tempStore(t)
	if err := s.FinishRun(context.Background(), "nope", StatusFailed, 0, ""); err == nil {
		t.Error("FinishRun of unknown run should fail")
	}
}

func TestRunMissing(t *testing.T) {
	s := tempStore(t)
	_, ok, err := s.Run(context.Background(), "nope")
	if err != nil || ok {
		t.Errorf("Run(missing) = ok %v, err %v; want false, nil", ok, err)
	}
	_, ok, err = s.LatestRun(context.Background())
	if err != nil || ok {
		t.Errorf("LatestRun(empty) = ok %v, err %v; want false, nil", ok, err)
	}
}

func TestObservationsRoundTrip(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	id := NewRunID()
	if err := s.BeginRun(ctx, id, true); err != nil {
		t.Fatal(err)
	}

	entries := []Entry{
		{
			RunID: id, Iteration: 2, Variant: "a4", Class: "pass",
			Settings: layout.PrintSettings{Scale: 1, Leading: 1, TopOffsetPts: 2},
			Assessment: layout.Assessment{
				Measurement:       layout.Measurement{Pages: 1, PageHeightPts: 842, TopWhitespacePts: 40, BottomWhitespacePts: 60},
				ExpectedBottomPts: 59, DeltaPts: 1,
			},
			Score: 1,
		},
		{
			RunID: id, Iteration: 1, Variant: "letter", Class: "adjustable", Strategy: "page-fit-contraction",
			Settings: layout.PrintSettings{Scale: 1.1, Leading: 1.05, TopOffsetPts: 0},
			Assessment: layout.Assessment{
				Measurement: layout.Measurement{Pages: 2, PageHeightPts: 792, TopWhitespacePts: 30, BottomWhitespacePts: 500},
				DeltaPts:    441,
			},
			Score: 2000,
		},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := s.Observations(ctx, id)
	if err != nil {
		t.Fatalf("Observations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Variant != "letter" || got[1].Variant != "a4" {
		t.Errorf("order = %s, %s; want iteration order", got[0].Variant, got[1].Variant)
	}
	if got[0].Strategy != "page-fit-contraction" || got[0].Assessment.Measurement.Pages != 2 {
		t.Errorf("entry = %+v", got[0])
	}
	if got[1].Settings != entries[0].Settings || got[1].Assessment.ExpectedBottomPts != 59 {
		t.Errorf("entry = %+v", got[1])
	}

	run, _, _ := s.Run(ctx, id)
	if !run.DryRun {
		t.Error("DryRun flag lost")
	}
}

func TestRunsNewestFirst(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	ids := []string{NewRunID(), NewRunID(), NewRunID()}
	for _, id := range ids {
		if err := s.BeginRun(ctx, id, false); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := s.Runs(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != ids[2] {
		t.Errorf("Runs(2) = %+v, want newest first", runs)
	}
	latest, ok, err := s.LatestRun(ctx)
	if err != nil || !ok || latest.ID != ids[2] {
		t.Errorf("LatestRun = %v %v %v", latest.ID, ok, err)
	}
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	ctx := context.Background()
	if err := r.BeginRun(ctx, "x", false); err != nil {
		t.Error(err)
	}
	if err := r.Record(ctx, Entry{}); err != nil {
		t.Error(err)
	}
	if err := r.FinishRun(ctx, "x", StatusFailed, 0, ""); err != nil {
		t.Error(err)
	}
}
