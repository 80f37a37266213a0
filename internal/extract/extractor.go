// Package extract provides text extraction from uploaded documents.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/NamanLimani/guardrail-ai/pkg/utils"
	"go.uber.org/zap"
)

// DefaultMinPageChars is the trimmed length at or below which a PDF page is treated as scanned.
const DefaultMinPageChars = 10

var pdfMagic = []byte("%PDF-")

// Extractor extracts plain text from document files.
type Extractor struct {
	logger       *zap.Logger
	ocr          OCR
	renderer     PageRenderer
	minPageChars int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for per-page failures.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithOCR enables the OCR fallback for PDF pages without a usable text layer.
func WithOCR(ocr OCR, renderer PageRenderer) Option {
	return func(e *Extractor) {
		e.ocr = ocr
		e.renderer = renderer
	}
}

// WithMinPageChars overrides DefaultMinPageChars.
func WithMinPageChars(n int) Option {
	return func(e *Extractor) {
		if n >= 0 {
			e.minPageChars = n
		}
	}
}

// NewExtractor returns a new Extractor. Without WithOCR, scanned PDF pages yield no text.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{minPageChars: DefaultMinPageChars}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

// OCREnabled reports whether scanned pages can be recognized.
func (e *Extractor) OCREnabled() bool {
	return e.ocr != nil && e.renderer != nil
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(ctx, content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Content that starts with the
// PDF header is parsed as PDF whatever its extension; anything else that is not a
// known binary format is returned as UTF-8 text.
func (e *Extractor) ExtractBytes(ctx context.Context, content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return e.extractPDF(ctx, content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	}
	if bytes.HasPrefix(content, pdfMagic) {
		return e.extractPDF(ctx, content)
	}
	return extractPlain(content)
}
