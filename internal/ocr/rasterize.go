package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFRasterizer renders PDF pages to PNG with pdftoppm.
type PDFRasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRasterizer(cfg Config, runner Runner, logger *slog.Logger) *PDFRasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = NewExecRunner(logger)
	}
	return &PDFRasterizer{cfg: cfg.withDefaults(), runner: runner, logger: logger}
}

// Rasterize renders pages 1..maxPages (all pages when maxPages <= 0) at
// 72*scale DPI. Pages past the cap are never rendered.
func (r *PDFRasterizer) Rasterize(ctx context.Context, pdf []byte, scale float64, maxPages int) ([]PageImage, error) {
	if len(pdf) == 0 {
		return nil, &Error{Op: "rasterize", Err: fmt.Errorf("empty pdf")}
	}
	if scale <= 0 {
		scale = r.cfg.Scale
	}
	start := time.Now()

	tmpDir, err := os.MkdirTemp("", "docintake-pp-*")
	if err != nil {
		return nil, &Error{Op: "rasterize", Err: err}
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			r.logger.Warn("ocr.rasterize.cleanup_failed", "dir", path, "error", err)
		}
	}(tmpDir)

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return nil, &Error{Op: "rasterize", Err: err}
	}

	// pdfcpu is stricter than poppler; an unreadable page tree is not fatal here.
	total, err := api.PageCountFile(in)
	if err != nil {
		r.logger.Warn("ocr.rasterize.page_count_failed", "error", err)
		total = 0
	}
	last := maxPages
	if total > 0 && (last <= 0 || total < last) {
		last = total
	}

	prefix := filepath.Join(tmpDir, "page")
	dpi := int(math.Round(72 * scale))
	// pdftoppm -png -r <dpi> -f 1 -l <last> <in.pdf> <tmp/page>
	args := []string{"-png", "-r", strconv.Itoa(dpi), "-f", "1"}
	if last > 0 {
		args = append(args, "-l", strconv.Itoa(last))
	}
	args = append(args, in, prefix)
	if _, errb, err := r.runner.Run(ctx, nil, r.cfg.Pdftoppm, args...); err != nil {
		return nil, &Error{Op: "rasterize", Err: fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(truncate(string(errb), 512)))}
	}

	// collect generated pngs (prefix-1.png, prefix-02.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	pages := make([]PageImage, 0, len(matches))
	for _, m := range matches {
		n, err := pageNumber(prefix, m)
		if err != nil {
			r.logger.Warn("ocr.rasterize.unexpected_file", "file", filepath.Base(m))
			continue
		}
		pages = append(pages, PageImage{Number: n})
		pages[len(pages)-1].PNG, err = os.ReadFile(m)
		if err != nil {
			return nil, &Error{Op: "rasterize", Err: err}
		}
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	if maxPages > 0 && len(pages) > maxPages {
		pages = pages[:maxPages]
	}
	if len(pages) == 0 {
		return nil, &Error{Op: "rasterize", Err: fmt.Errorf("no pages rendered")}
	}

	r.logger.Info("ocr.rasterize.ok",
		"pages", len(pages),
		"total_pages", total,
		"dpi", dpi,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, nil
}

func pageNumber(prefix, path string) (int, error) {
	s := strings.TrimSuffix(strings.TrimPrefix(path, prefix+"-"), ".png")
	return strconv.Atoi(s)
}
