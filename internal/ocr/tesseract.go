package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Tesseract recognizes text by piping an image into the tesseract CLI.
type Tesseract struct {
	cfg      Config
	runner   Runner
	logger   *slog.Logger
	progress ProgressFunc
}

type TesseractOption func(*Tesseract)

// WithRunner swaps the command runner (tests).
func WithRunner(r Runner) TesseractOption {
	return func(t *Tesseract) {
		if r != nil {
			t.runner = r
		}
	}
}

// WithProgress registers a progress observer.
func WithProgress(fn ProgressFunc) TesseractOption {
	return func(t *Tesseract) { t.progress = fn }
}

func NewTesseract(cfg Config, logger *slog.Logger, opts ...TesseractOption) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tesseract{cfg: cfg.withDefaults(), logger: logger}
	for _, o := range opts {
		o(t)
	}
	if t.runner == nil {
		t.runner = NewExecRunner(logger)
	}
	return t
}

// Recognize runs OCR over one image. When fewer than MinChars characters are
// recognized it returns the (short) text together with an error wrapping
// ErrOCRFailed, so per-page callers can still keep what little was read.
func (t *Tesseract) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	if len(image) == 0 {
		return "", &Error{Op: "recognize", Err: fmt.Errorf("%w: empty image", ErrOCRFailed)}
	}
	if lang == "" {
		lang = t.cfg.Language
	}
	start := time.Now()
	t.report("recognize", 0)

	// tesseract stdin stdout -l <lang> [--tessdata-dir d] [--psm n] [--oem n]
	args := []string{"stdin", "stdout", "-l", lang}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}

	out, errb, err := t.runner.Run(ctx, image, t.cfg.Tesseract, args...)
	if err != nil {
		return "", &Error{Op: "tesseract", Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(truncate(string(errb), 512)))}
	}
	t.report("recognize", 1)

	txt := Normalize(string(out))
	n := utf8.RuneCountInString(txt)
	t.logger.Debug("ocr.recognize.done",
		"lang", lang,
		"image_bytes", len(image),
		"chars", n,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if n < t.cfg.MinChars {
		return txt, &Error{Op: "recognize", Err: fmt.Errorf("%w: recognized %d chars, need %d", ErrOCRFailed, n, t.cfg.MinChars)}
	}
	return txt, nil
}

func (t *Tesseract) report(stage string, pct float64) {
	if t.progress != nil {
		t.progress(stage, pct)
	}
}
