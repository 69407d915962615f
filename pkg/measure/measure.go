// Package measure turns rendered PDF artifacts into layout measurements.
//
// A measurement reports the page count, the page height and the whitespace
// between the page edges and the outermost positioned content: the top of the
// first page and the bottom of the last page. [PDFMeasurer] reads the PDF
// directly; [CachedMeasurer] memoizes results by artifact content hash so an
// unchanged artifact is never parsed twice.
package measure

import (
	"context"

	"github.com/matzehuels/pagefit/pkg/layout"
)

// Measurer measures the artifact at path. Failures carry
// errors.ErrCodeMeasurement.
type Measurer interface {
	Measure(ctx context.Context, path string) (layout.Measurement, error)
}

// Func adapts a function to the Measurer interface.
type Func func(ctx context.Context, path string) (layout.Measurement, error)

// Measure calls f.
func (f Func) Measure(ctx context.Context, path string) (layout.Measurement, error) {
	return f(ctx, path)
}
