package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// OCREngine is the OCR side of the chain. *OCRAdapter implements it.
type OCREngine interface {
	Image(ctx context.Context, img []byte) (string, error)
	PDFPages(ctx context.Context, pdf []byte, scale float64, maxPages, minChars int) (string, int, error)
}

type Orchestrator struct {
	policy     Policy
	native     map[Strategy]NativeExtractor
	ocr        OCREngine
	ocrTimeout time.Duration
	logger     *slog.Logger
}

type Option func(*Orchestrator)

// WithNative overrides the native extractor used for a strategy.
func WithNative(s Strategy, x NativeExtractor) Option {
	return func(o *Orchestrator) { o.native[s] = x }
}

// WithOCRTimeout bounds each OCR step. Zero means no extra bound.
func WithOCRTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.ocrTimeout = d }
}

func NewOrchestrator(policy Policy, engine OCREngine, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		policy: policy.withDefaults(),
		native: map[Strategy]NativeExtractor{
			StrategyPDF:       PDFExtractor{},
			StrategyDOCX:      DOCXExtractor{},
			StrategyPlainText: PlainTextExtractor{},
		},
		ocr:    engine,
		logger: logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type stepOutcome struct {
	text  string
	pages int
	err   error
}

// Extract runs the escalation chain for the file's strategy and returns the
// best text it produced.
func (o *Orchestrator) Extract(ctx context.Context, f UploadedFile) (Result, error) {
	start := time.Now()
	strategy := Classify(f.MIMEType, f.Filename)
	res := Result{Strategy: strategy}
	log := o.logger.With("strategy", strategy, "filename", f.Filename, "bytes", len(f.Data))

	steps := o.policy.Steps(strategy)
	if len(steps) == 0 {
		log.Warn("extract.unsupported", "mime", f.MIMEType)
		return res, &Error{Strategy: strategy, Kind: ErrUnsupportedFormat, Err: fmt.Errorf("mime %q", f.MIMEType)}
	}

	memo := map[Provenance]stepOutcome{}
	var lastErr error
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return res, &Error{Strategy: strategy, Attempted: res.Attempted, Kind: ErrExtractionFailed, Err: err}
		}

		if _, seen := memo[step.Provenance]; seen {
			log.Debug("extract.step.memoized", "step", i, "provenance", step.Provenance)
		} else {
			out := o.run(ctx, strategy, step.Provenance, f.Data)
			memo[step.Provenance] = out
			res.Attempted = append(res.Attempted, step.Provenance)

			if out.err != nil {
				lastErr = out.err
				res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", step.Provenance, out.err))
				log.Warn("extract.step.failed", "provenance", step.Provenance, "error", out.err)
				if ctx.Err() != nil {
					return res, &Error{Strategy: strategy, Attempted: res.Attempted, Kind: ErrExtractionFailed, Err: out.err}
				}
			} else {
				// a successful later step replaces earlier text
				res.Text, res.Provenance = out.text, step.Provenance
				if out.pages > 0 {
					res.Pages = out.pages
				}
			}
			log.Debug("extract.step.done", "provenance", step.Provenance, "chars", trimmedLen(out.text), "ok", out.err == nil)
		}

		if trimmedLen(res.Text) >= step.EscalateBelow {
			break
		}
	}

	res.Duration = time.Since(start)
	if n := trimmedLen(res.Text); n < o.policy.Floor(strategy) {
		log.Warn("extract.failed", "chars", n, "attempted", res.Attempted, "error", lastErr)
		return res, &Error{Strategy: strategy, Attempted: res.Attempted, Kind: ErrExtractionFailed, Err: lastErr}
	}

	log.Info("extract.ok",
		"provenance", res.Provenance,
		"chars", trimmedLen(res.Text),
		"pages", res.Pages,
		"attempted", res.Attempted,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, strategy Strategy, p Provenance, data []byte) stepOutcome {
	switch p {
	case ProvenanceNative:
		x, ok := o.native[strategy]
		if !ok {
			return stepOutcome{err: fmt.Errorf("no native extractor for %s", strategy)}
		}
		text, pages, err := x.ExtractText(ctx, data)
		return stepOutcome{text: text, pages: pages, err: err}

	case ProvenanceOCR, ProvenanceOCRPerPage:
		if o.ocr == nil {
			return stepOutcome{err: errors.New("ocr engine not configured")}
		}
		octx, cancel := ctx, context.CancelFunc(func() {})
		if o.ocrTimeout > 0 {
			octx, cancel = context.WithTimeout(ctx, o.ocrTimeout)
		}
		defer cancel()

		if p == ProvenanceOCR {
			text, err := o.ocr.Image(octx, data)
			return stepOutcome{text: text, pages: 1, err: err}
		}
		text, pages, err := o.ocr.PDFPages(octx, data, o.policy.Scale, o.policy.MaxPages, o.policy.MinOCRChars)
		return stepOutcome{text: text, pages: pages, err: err}
	}
	return stepOutcome{err: fmt.Errorf("unknown provenance %q", p)}
}

func trimmedLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
