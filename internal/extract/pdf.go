package extract

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/dslipak/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

var disableConfigDir sync.Once

// pageCount validates the PDF structure and returns its page count.
func pageCount(data []byte) (int, error) {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid pdf: %v", domain.ErrInvalidInput, err)
	}
	return n, nil
}

// extractPDF returns one Page per PDF page, including pages without a text layer.
// The text reader panics on some malformed content streams, so panics become errors.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) (pages []Page, err error) {
	count, err := pageCount(data)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: unreadable pdf content: %v", domain.ErrInvalidInput, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", domain.ErrInvalidInput, err)
	}

	n := r.NumPage()
	if n != count {
		e.logger.Debug("pdf page count mismatch",
			zap.Int("structure_pages", count),
			zap.Int("text_pages", n),
		)
	}

	pages = make([]Page, 0, count)
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := Page{Number: i}
		if i <= n {
			if p := r.Page(i); !p.V.IsNull() {
				page.Text = pageText(p.Content().Text)
			}
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// pageText joins positioned glyph runs into lines. A vertical jump starts a
// new line and a horizontal gap inserts a space.
func pageText(runs []pdf.Text) string {
	var b strings.Builder
	var lastY, lastEnd float64
	for i, t := range runs {
		if i > 0 {
			size := math.Max(t.FontSize, 1)
			switch {
			case math.Abs(t.Y-lastY) > size*0.5:
				b.WriteByte('\n')
			case t.X-lastEnd > size*0.15:
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		lastY = t.Y
		lastEnd = t.X + t.W
	}
	return b.String()
}
