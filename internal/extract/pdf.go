package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// pageSource yields the text layer of a paginated document. Pages are 1-based.
type pageSource interface {
	NumPage() int
	PageText(n int) (string, error)
}

type ledongthucSource struct {
	r *pdf.Reader
}

func (s ledongthucSource) NumPage() int { return s.r.NumPage() }

func (s ledongthucSource) PageText(n int) (string, error) {
	page := s.r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// extractPDF never panics: the reader panics on malformed object syntax, which is
// reported as an open error with no text.
func (e *Extractor) extractPDF(ctx context.Context, content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("open PDF: malformed document: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	return e.extractPages(ctx, ledongthucSource{r: r}, content), nil
}

// extractPages walks every page. A page whose text layer is too short is rendered
// and recognized instead. Failures stay local to their page, which then adds nothing.
func (e *Extractor) extractPages(ctx context.Context, src pageSource, content []byte) string {
	var buf strings.Builder
	numPages := src.NumPage()
	for n := 1; n <= numPages; n++ {
		if ctx.Err() != nil {
			break
		}
		text, err := e.pageText(ctx, src, content, n)
		if err != nil {
			e.logger.Warn("pdf page skipped", zap.Int("page", n), zap.Error(err))
			continue
		}
		buf.WriteString(text)
		buf.WriteByte('\n')
	}
	return buf.String()
}

func (e *Extractor) pageText(ctx context.Context, src pageSource, content []byte, n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic on page %d: %v", n, r)
		}
	}()

	text, err = src.PageText(n)
	if err == nil && len(strings.TrimSpace(text)) > e.minPageChars {
		return text, nil
	}
	if err != nil {
		e.logger.Debug("pdf text layer unreadable, trying ocr", zap.Int("page", n), zap.Error(err))
	}
	return e.ocrPage(ctx, content, n)
}

func (e *Extractor) ocrPage(ctx context.Context, content []byte, n int) (string, error) {
	if !e.OCREnabled() {
		return "", ErrOCRUnavailable
	}
	img, err := e.renderer.RenderPage(ctx, content, n)
	if err != nil {
		return "", fmt.Errorf("render page %d: %w", n, err)
	}
	text, err := e.ocr.Recognize(ctx, img)
	if err != nil {
		return "", fmt.Errorf("ocr page %d: %w", n, err)
	}
	return text, nil
}
