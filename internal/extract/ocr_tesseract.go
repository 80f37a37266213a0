//go:build tesseract

package extract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractAvailable reports whether the binary was built with the tesseract tag.
const TesseractAvailable = true

// TesseractOCR runs Tesseract through gosseract. A client is created per call since
// gosseract clients are not safe for concurrent use.
type TesseractOCR struct {
	languages []string
}

// NewTesseractOCR returns an OCR engine for the given Tesseract language codes (default "eng").
func NewTesseractOCR(languages ...string) *TesseractOCR {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractOCR{languages: languages}
}

// Recognize returns the text tesseract finds in a rendered page image.
func (t *TesseractOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("tesseract language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("tesseract image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}
