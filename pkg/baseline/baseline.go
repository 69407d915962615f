// Package baseline loads the reference whitespace target every variant is
// judged against.
//
// The descriptor is a small YAML (or JSON) document:
//
//	reference:
//	  bottomWhitespaceRatio: 0.052
//	  pdfPath: out/reference.pdf
//	enforcement:
//	  tolerancePts: 2
//	  mode: normalized_ratio
package baseline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/pagefit/pkg/errors"
	"github.com/matzehuels/pagefit/pkg/layout"
)

// ModeNormalizedRatio is the only recognized enforcement mode: the expected
// bottom whitespace is the ratio times the reference page height.
const ModeNormalizedRatio = "normalized_ratio"

// Baseline is the validated target for a calibration run.
type Baseline struct {
	Ratio         float64
	TolerancePts  float64
	Mode          string
	ReferencePath string
}

// Descriptor is the on-disk form of a baseline.
type Descriptor struct {
	Reference   Reference   `yaml:"reference" json:"reference"`
	Enforcement Enforcement `yaml:"enforcement" json:"enforcement"`
}

// Reference describes the reference document.
type Reference struct {
	BottomWhitespaceRatio float64 `yaml:"bottomWhitespaceRatio" json:"bottomWhitespaceRatio"`
	PDFPath               string  `yaml:"pdfPath" json:"pdfPath"`
}

// Enforcement describes how strictly variants must match.
type Enforcement struct {
	TolerancePts float64 `yaml:"tolerancePts" json:"tolerancePts"`
	Mode         string  `yaml:"mode" json:"mode"`
}

// Loader supplies the baseline for a run.
type Loader interface {
	Load(ctx context.Context) (Baseline, error)
}

// FileLoader reads a descriptor from disk on every Load.
type FileLoader struct {
	Path string
}

// Load implements Loader.
func (l FileLoader) Load(ctx context.Context) (Baseline, error) {
	return Load(l.Path)
}

// Static is a Loader that always returns the same baseline.
type Static Baseline

// Load implements Loader.
func (s Static) Load(ctx context.Context) (Baseline, error) {
	b := Baseline(s)
	return b, b.Validate()
}

// Load reads and validates the descriptor at path. A relative pdfPath is
// resolved against the descriptor's directory.
func Load(path string) (Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Baseline{}, errors.Wrap(errors.ErrCodeConfig, err, "read baseline %s", path)
	}
	b, err := Parse(data)
	if err != nil {
		return Baseline{}, err
	}
	if b.ReferencePath != "" && !filepath.IsAbs(b.ReferencePath) {
		b.ReferencePath = filepath.Join(filepath.Dir(path), b.ReferencePath)
	}
	return b, nil
}

// Parse decodes and validates a descriptor.
func Parse(data []byte) (Baseline, error) {
	var d Descriptor
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return Baseline{}, errors.Wrap(errors.ErrCodeConfig, err, "parse baseline")
	}
	b := Baseline{
		Ratio:         d.Reference.BottomWhitespaceRatio,
		TolerancePts:  d.Enforcement.TolerancePts,
		Mode:          d.Enforcement.Mode,
		ReferencePath: d.Reference.PDFPath,
	}
	return b, b.Validate()
}

// Validate checks ratio > 0, tolerance >= 0 and the enforcement mode.
func (b Baseline) Validate() error {
	if b.Ratio <= 0 {
		return errors.New(errors.ErrCodeConfig, "baseline ratio must be > 0, got %v", b.Ratio)
	}
	if b.TolerancePts < 0 {
		return errors.New(errors.ErrCodeConfig, "baseline tolerance must be >= 0, got %v", b.TolerancePts)
	}
	if b.Mode != ModeNormalizedRatio {
		return errors.New(errors.ErrCodeConfig, "unrecognized baseline mode %q (want %q)", b.Mode, ModeNormalizedRatio)
	}
	return nil
}

// ExpectedBottomPts is the target bottom whitespace for a page of the given
// height.
func (b Baseline) ExpectedBottomPts(pageHeightPts float64) float64 {
	return b.Ratio * pageHeightPts
}

// Derive builds a descriptor from a measured reference document.
func Derive(m layout.Measurement, tolerancePts float64, pdfPath string) (Descriptor, error) {
	if err := m.Validate(); err != nil {
		return Descriptor{}, errors.Wrap(errors.ErrCodeMeasurement, err, "derive baseline")
	}
	if m.Pages != 1 {
		return Descriptor{}, errors.New(errors.ErrCodeConfig, "reference must render to one page, got %d", m.Pages)
	}
	d := Descriptor{
		Reference:   Reference{BottomWhitespaceRatio: m.BottomRatio(), PDFPath: pdfPath},
		Enforcement: Enforcement{TolerancePts: tolerancePts, Mode: ModeNormalizedRatio},
	}
	b := Baseline{Ratio: d.Reference.BottomWhitespaceRatio, TolerancePts: tolerancePts, Mode: ModeNormalizedRatio}
	if err := b.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// Save writes a descriptor as YAML.
func Save(path string, d Descriptor) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write baseline: %w", err)
	}
	return nil
}
