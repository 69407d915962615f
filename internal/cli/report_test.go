package cli

import (
	"strings"
	"testing"

	"github.com/matzehuels/pagefit/pkg/calibrate"
	"github.com/matzehuels/pagefit/pkg/errors"
	"github.com/matzehuels/pagefit/pkg/layout"
	"github.com/matzehuels/pagefit/pkg/settings"
)

func sampleVariants() []calibrate.VariantReport {
	return []calibrate.VariantReport{
		{
			ID:       "long",
			Class:    calibrate.ClassBoundFloor,
			Settings: layout.PrintSettings{Scale: 0.9, Leading: 0.9, TopOffsetPts: -12},
			Assessment: layout.Assessment{
				Measurement: layout.Measurement{Pages: 2, PageHeightPts: 800},
				DeltaPts:    -30,
			},
			Bound: &errors.BoundFailure{Variant: "long", Limit: "floor", Reason: "overflows at minimum density"},
		},
		{
			ID:       "short",
			Class:    calibrate.ClassPass,
			Settings: layout.PrintSettings{Scale: 1, Leading: 1, TopOffsetPts: 8.4},
			Assessment: layout.Assessment{
				Measurement: layout.Measurement{Pages: 1, PageHeightPts: 800},
				DeltaPts:    1.6,
			},
		},
	}
}

func TestReportRows(t *testing.T) {
	rows := reportRows(sampleVariants())
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}

	tests := []struct {
		row, col int
		want     string
	}{
		{0, 0, "long"},
		{0, 1, "bound-floor"},
		{0, 2, "2"},
		{0, 3, "-30.00pt"},
		{0, 6, "-12.00pt"},
		{1, 1, "pass"},
		{1, 3, "+1.60pt"},
		{1, 4, "1.0000"},
		{1, 6, "+8.40pt"},
	}
	for _, tt := range tests {
		if got := rows[tt.row][tt.col]; got != tt.want {
			t.Errorf("rows[%d][%d] = %q, want %q", tt.row, tt.col, got, tt.want)
		}
	}
	for i, row := range rows {
		if len(row) != len(reportHeaders) {
			t.Errorf("row %d has %d columns, want %d", i, len(row), len(reportHeaders))
		}
	}
}

func TestReportTable(t *testing.T) {
	out := reportTable(sampleVariants())
	for _, want := range []string{"Variant", "long", "short", "bound-floor", "+8.40pt"} {
		if !strings.Contains(out, want) {
			t.Errorf("reportTable() missing %q:\n%s", want, out)
		}
	}
}

func TestPrintReportNil(t *testing.T) {
	printReport(nil, nil)
}

func TestFormatSettings(t *testing.T) {
	got := formatSettings(layout.PrintSettings{Scale: 1.05, Leading: 0.95, TopOffsetPts: -2})
	want := "scale 1.0500, leading 0.9500, top -2.00pt"
	if got != want {
		t.Errorf("formatSettings() = %q, want %q", got, want)
	}
}

func TestSettingsTable(t *testing.T) {
	block := settings.Block{"short": {Scale: 1.1, Leading: 1, TopOffsetPts: 4}}

	out := settingsTable(block, []string{"long", "reference", "short"}, "reference")
	for _, want := range []string{"reference (reference)", "1.1000", "+4.00pt", "long"} {
		if !strings.Contains(out, want) {
			t.Errorf("settingsTable() missing %q:\n%s", want, out)
		}
	}
}

func TestPlural(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "s"},
		{1, ""},
		{2, "s"},
	}
	for _, tt := range tests {
		if got := plural(tt.n); got != tt.want {
			t.Errorf("plural(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestWhitespaceHint(t *testing.T) {
	tests := []struct {
		name string
		a    layout.Assessment
		want string
	}{
		{"top", layout.Assessment{TopDeficitPts: 5}, "top 5.00pt;"},
		{"bottom", layout.Assessment{BottomDeficitPts: 3.5}, "bottom 3.50pt;"},
		{"both", layout.Assessment{TopDeficitPts: 5, BottomDeficitPts: 3.5}, "top 5.00pt, bottom 3.50pt;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := whitespaceHint(tt.a); !strings.Contains(got, tt.want) {
				t.Errorf("whitespaceHint() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
