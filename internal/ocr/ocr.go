package ocr

import (
	"context"
	"errors"
	"fmt"
)

// ErrOCRFailed means recognition produced less than MinChars of text.
// It is a length heuristic, not a confidence score.
var ErrOCRFailed = errors.New("ocr failed")

// DefaultMinChars is the shortest recognized text treated as meaningful.
const DefaultMinChars = 10

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language    string  // default "eng"
	Scale       float64 // rasterization up-scale over 72 DPI, default 2.0
	TessdataDir string

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	MinChars int // default DefaultMinChars
}

func (c Config) withDefaults() Config {
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Language == "" {
		c.Language = "eng"
	}
	if c.Scale <= 0 {
		c.Scale = 2.0
	}
	if c.MinChars <= 0 {
		c.MinChars = DefaultMinChars
	}
	return c
}

// ProgressFunc observes recognition progress. pct is in [0,1].
// It must not block; it never influences results.
type ProgressFunc func(stage string, pct float64)

// Recognizer turns one raster image into text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, lang string) (string, error)
}

// PageImage is one rendered PDF page, 1-based.
type PageImage struct {
	Number int
	PNG    []byte
}

// Rasterizer renders the first maxPages pages of a PDF.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte, scale float64, maxPages int) ([]PageImage, error)
}

// ImageEnhancer prepares an image for recognition.
type ImageEnhancer interface {
	Enhance(ctx context.Context, image []byte) ([]byte, error)
}

// Error carries the failing operation alongside an ocr sentinel.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ocr %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
