package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// ErrOCRUnavailable is returned when a page needs OCR but no engine is configured or compiled in.
var ErrOCRUnavailable = errors.New("ocr unavailable")

// DefaultRenderDPI is the resolution used when rasterizing a PDF page for OCR.
const DefaultRenderDPI = 200

// OCR recognizes text in an encoded raster image.
type OCR interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// PageRenderer rasterizes one page of a PDF to PNG bytes.
type PageRenderer interface {
	RenderPage(ctx context.Context, pdf []byte, page int) ([]byte, error)
}

// PopplerRenderer renders pages with the pdftoppm tool.
type PopplerRenderer struct {
	Binary string
	DPI    int
}

// NewPopplerRenderer returns a renderer using pdftoppm from PATH.
func NewPopplerRenderer(dpi int) *PopplerRenderer {
	if dpi <= 0 {
		dpi = DefaultRenderDPI
	}
	return &PopplerRenderer{Binary: "pdftoppm", DPI: dpi}
}

// RenderPage writes pdf to a scratch directory and renders the requested page.
func (p *PopplerRenderer) RenderPage(ctx context.Context, pdf []byte, page int) ([]byte, error) {
	dir, err := os.MkdirTemp("", "guardrail-render-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	out := filepath.Join(dir, "page")
	n := strconv.Itoa(page)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Binary, "-f", n, "-l", n, "-r", strconv.Itoa(p.DPI), "-png", "-singlefile", in, out)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", p.Binary, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return os.ReadFile(out + ".png")
}
