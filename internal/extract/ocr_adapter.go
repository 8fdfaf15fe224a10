package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docintake/internal/ocr"
)

// PageMarker precedes each page's text in per-page OCR output.
const PageMarker = "\n\n=== Page %d ===\n"

type OCRAdapterConfig struct {
	Language    string
	PageWorkers int // 1 keeps pages strictly sequential
	Progress    ocr.ProgressFunc
}

// OCRAdapter binds the ocr engine pieces into the two OCR steps the
// orchestrator knows about.
type OCRAdapter struct {
	enhancer   ocr.ImageEnhancer
	recognizer ocr.Recognizer
	rasterizer ocr.Rasterizer
	cfg        OCRAdapterConfig
	logger     *slog.Logger
}

func NewOCRAdapter(enh ocr.ImageEnhancer, rec ocr.Recognizer, ras ocr.Rasterizer, cfg OCRAdapterConfig, logger *slog.Logger) *OCRAdapter {
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{enhancer: enh, recognizer: rec, rasterizer: ras, cfg: cfg, logger: logger}
}

// Image enhances and recognizes a single image. Enhancement is best effort.
func (a *OCRAdapter) Image(ctx context.Context, img []byte) (string, error) {
	prepared := img
	if a.enhancer != nil {
		out, err := a.enhancer.Enhance(ctx, img)
		if err != nil {
			a.logger.Warn("ocr.enhance.skipped", "error", err)
		} else {
			prepared = out
		}
	}
	return a.recognizer.Recognize(ctx, prepared, a.cfg.Language)
}

// PDFPages rasterizes up to maxPages pages and recognizes each one, joining
// non-empty pages with PageMarker in page order.
func (a *OCRAdapter) PDFPages(ctx context.Context, pdf []byte, scale float64, maxPages, minChars int) (string, int, error) {
	if a.rasterizer == nil {
		return "", 0, &ocr.Error{Op: "rasterize", Err: errors.New("no rasterizer configured")}
	}
	pages, err := a.rasterizer.Rasterize(ctx, pdf, scale, maxPages)
	if err != nil {
		return "", 0, err
	}

	texts := make([]string, len(pages))
	var done atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.PageWorkers)
	for i, p := range pages {
		g.Go(func() error {
			txt, err := a.Image(gctx, p.PNG)
			switch {
			case err == nil, errors.Is(err, ocr.ErrOCRFailed):
				texts[i] = txt
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				a.logger.Warn("ocr.page.failed", "page", p.Number, "error", err)
			}
			if a.cfg.Progress != nil {
				a.cfg.Progress("pages", float64(done.Add(1))/float64(len(pages)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", len(pages), err
	}

	var b strings.Builder
	chars := 0
	for i, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		chars += utf8.RuneCountInString(t)
		fmt.Fprintf(&b, PageMarker, pages[i].Number)
		b.WriteString(t)
	}
	out := strings.TrimSpace(b.String())
	if chars < minChars {
		return out, len(pages), &ocr.Error{
			Op:  "pages",
			Err: fmt.Errorf("%w: recognized %d chars over %d pages, need %d", ocr.ErrOCRFailed, chars, len(pages), minChars),
		}
	}
	return out, len(pages), nil
}
