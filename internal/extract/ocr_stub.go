//go:build !tesseract

package extract

import "context"

// TesseractAvailable reports whether the binary was built with the tesseract tag.
const TesseractAvailable = false

// TesseractOCR is a placeholder when built without the tesseract tag.
type TesseractOCR struct{}

// NewTesseractOCR returns an engine whose Recognize always fails with ErrOCRUnavailable.
func NewTesseractOCR(languages ...string) *TesseractOCR {
	return &TesseractOCR{}
}

// Recognize always fails in builds without tesseract.
func (t *TesseractOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	return "", ErrOCRUnavailable
}
