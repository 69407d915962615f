package measure

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/log"
	pdflib "github.com/ledongthuc/pdf"

	"github.com/matzehuels/pagefit/pkg/errors"
	"github.com/matzehuels/pagefit/pkg/layout"
)

// descenderRatio approximates how far glyphs reach below the baseline,
// as a fraction of the font size.
const descenderRatio = 0.22

// maxParentDepth bounds the walk up the page tree for inherited attributes.
const maxParentDepth = 32

// PDFMeasurer measures PDFs with github.com/ledongthuc/pdf.
type PDFMeasurer struct {
	logger *log.Logger
}

// NewPDFMeasurer creates a measurer. A nil logger discards output.
func NewPDFMeasurer(logger *log.Logger) *PDFMeasurer {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &PDFMeasurer{logger: logger}
}

// Measure opens the PDF at path and measures it.
func (m *PDFMeasurer) Measure(ctx context.Context, path string) (layout.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return layout.Measurement{}, err
	}
	if err := errors.ValidatePath(path); err != nil {
		return layout.Measurement{}, errors.Wrap(errors.ErrCodeMeasurement, err, "artifact path")
	}

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return layout.Measurement{}, errors.Wrap(errors.ErrCodeMeasurement, err, "open %s", path)
	}
	defer f.Close()

	meas, err := measureReader(reader)
	if err != nil {
		return layout.Measurement{}, errors.Wrap(errors.ErrCodeMeasurement, err, "measure %s", path)
	}
	m.logger.Debug("Measured artifact", "path", path, "pages", meas.Pages,
		"top", fmt.Sprintf("%.2f", meas.TopWhitespacePts),
		"bottom", fmt.Sprintf("%.2f", meas.BottomWhitespacePts))
	return meas, nil
}

// measureReader extracts the measurement from an opened document. The PDF
// library panics on some malformed content streams; those panics become
// errors here.
func measureReader(r *pdflib.Reader) (meas layout.Measurement, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed pdf: %v", p)
		}
	}()

	n := r.NumPage()
	if n < 1 {
		return layout.Measurement{}, fmt.Errorf("document has no pages")
	}

	first := r.Page(1)
	if first.V.IsNull() {
		return layout.Measurement{}, fmt.Errorf("page 1 is missing")
	}
	firstBox, ok := mediaBox(first.V)
	if !ok {
		return layout.Measurement{}, fmt.Errorf("page 1 has no usable MediaBox")
	}
	top, bottom, ok := contentBounds(first.Content())
	if !ok {
		return layout.Measurement{}, fmt.Errorf("page 1 has no positioned content")
	}

	lastBox := firstBox
	if n > 1 {
		last := r.Page(n)
		if last.V.IsNull() {
			return layout.Measurement{}, fmt.Errorf("page %d is missing", n)
		}
		if lastBox, ok = mediaBox(last.V); !ok {
			return layout.Measurement{}, fmt.Errorf("page %d has no usable MediaBox", n)
		}
		if _, bottom, ok = contentBounds(last.Content()); !ok {
			return layout.Measurement{}, fmt.Errorf("page %d has no positioned content", n)
		}
	}

	return layout.Measurement{
		Pages:               n,
		PageHeightPts:       firstBox.height(),
		TopWhitespacePts:    math.Max(0, firstBox.ury-top),
		BottomWhitespacePts: math.Max(0, bottom-lastBox.lly),
	}, nil
}

type box struct {
	llx, lly, urx, ury float64
}

func (b box) height() float64 { return b.ury - b.lly }

// mediaBox resolves the page's MediaBox, following Parent links for the
// inherited attribute.
func mediaBox(page pdflib.Value) (box, bool) {
	v := page
	for depth := 0; depth < maxParentDepth && !v.IsNull(); depth++ {
		mb := v.Key("MediaBox")
		if mb.Kind() == pdflib.Array && mb.Len() == 4 {
			b := box{
				llx: mb.Index(0).Float64(),
				lly: mb.Index(1).Float64(),
				urx: mb.Index(2).Float64(),
				ury: mb.Index(3).Float64(),
			}
			if b.lly > b.ury {
				b.lly, b.ury = b.ury, b.lly
			}
			return b, b.height() > 0
		}
		v = v.Key("Parent")
	}
	return box{}, false
}

// contentBounds returns the highest and lowest y coordinate covered by
// visible text or drawn rectangles.
func contentBounds(c pdflib.Content) (top, bottom float64, ok bool) {
	top, bottom = math.Inf(-1), math.Inf(1)
	for _, t := range c.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		top = math.Max(top, t.Y+t.FontSize)
		bottom = math.Min(bottom, t.Y-descenderRatio*t.FontSize)
		ok = true
	}
	for _, r := range c.Rect {
		lo, hi := math.Min(r.Min.Y, r.Max.Y), math.Max(r.Min.Y, r.Max.Y)
		top = math.Max(top, hi)
		bottom = math.Min(bottom, lo)
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	return top, bottom, true
}
