package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/async"
	"github.com/joseph-ayodele/docintake/internal/extract"
	"github.com/joseph-ayodele/docintake/internal/llm"
)

// Outcome is what one run produced. Report is only set on success.
type Outcome struct {
	Extraction  extract.Result
	Report      *llm.Report
	State       constants.UploadState
	Transitions []constants.UploadState
	Elapsed     time.Duration
}

// Processor coordinates text extraction then summarization for one upload.
type Processor struct {
	Logger     *slog.Logger
	Extractor  extract.TextExtractor
	Summarizer llm.Summarizer
	Gate       *async.Gate // optional
}

func NewProcessor(logger *slog.Logger, ex extract.TextExtractor, sum llm.Summarizer, gate *async.Gate) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Extractor: ex, Summarizer: sum, Gate: gate}
}

// Process runs the upload through
// IDLE -> EXTRACTING -> EXTRACTED -> SUMMARIZING -> SUMMARIZED | FAILED.
// The returned Outcome is never nil; on error its State is FAILED.
func (p *Processor) Process(ctx context.Context, f extract.UploadedFile) (*Outcome, error) {
	out := &Outcome{State: constants.UploadStateIdle, Transitions: []constants.UploadState{constants.UploadStateIdle}}
	start := time.Now()
	run := func(ctx context.Context) error { return p.run(ctx, f, out) }

	var err error
	if p.Gate != nil {
		err = p.Gate.Do(ctx, run)
	} else {
		err = run(ctx)
	}
	out.Elapsed = time.Since(start)
	if err != nil {
		if out.State != constants.UploadStateFailed {
			p.transition(out, constants.UploadStateFailed, f.Filename)
		}
		return out, err
	}
	return out, nil
}

func (p *Processor) run(ctx context.Context, f extract.UploadedFile, out *Outcome) error {
	p.transition(out, constants.UploadStateExtracting, f.Filename)
	res, err := p.Extractor.Extract(ctx, f)
	out.Extraction = res
	if err != nil {
		p.Logger.Error("processor.extract.failed", "filename", f.Filename, "strategy", res.Strategy, "err", err)
		p.transition(out, constants.UploadStateFailed, f.Filename)
		return fmt.Errorf("extract: %w", err)
	}
	p.transition(out, constants.UploadStateExtracted, f.Filename)
	p.Logger.Info("processor.extract.ok",
		"filename", f.Filename,
		"strategy", res.Strategy,
		"provenance", res.Provenance,
		"pages", res.Pages,
		"elapsed_ms", res.Duration.Milliseconds(),
	)

	p.transition(out, constants.UploadStateSummarizing, f.Filename)
	report, err := p.Summarizer.Summarize(ctx, res.Text)
	if err != nil {
		p.Logger.Error("processor.summarize.failed", "filename", f.Filename, "err", err)
		p.transition(out, constants.UploadStateFailed, f.Filename)
		return fmt.Errorf("summarize: %w", err)
	}
	out.Report = &report
	p.transition(out, constants.UploadStateSummarized, f.Filename)
	p.Logger.Info("processor.summarize.ok", "filename", f.Filename)
	return nil
}

func (p *Processor) transition(out *Outcome, to constants.UploadState, filename string) {
	p.Logger.Debug("processor.state", "filename", filename, "from", out.State, "to", to)
	out.State = to
	out.Transitions = append(out.Transitions, to)
}
