package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultTemperature applies when GeneratorConfig.Temperature is negative.
const DefaultTemperature float32 = 0.3

type GeneratorConfig struct {
	Temperature     float32       // 0 is valid; negative means DefaultTemperature
	MaxOutputTokens int32         // default 4000
	MaxInputChars   int           // default DefaultMaxInputChars
	Timeout         time.Duration // bounds the completer call; 0 disables
}

// Generator turns document text into a validated Report.
type Generator struct {
	completer Completer
	cfg       GeneratorConfig
	logger    *slog.Logger
}

func NewGenerator(c Completer, cfg GeneratorConfig, logger *slog.Logger) *Generator {
	if cfg.Temperature < 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 4000
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = DefaultMaxInputChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{completer: c, cfg: cfg, logger: logger}
}

// Model names the backing model for report records.
func (g *Generator) Model() string {
	return g.completer.Model()
}

// Summarize asks the model for a report on text. It never returns a
// partially filled Report.
func (g *Generator) Summarize(ctx context.Context, text string) (Report, error) {
	rid := uuid.New().String()
	start := time.Now()

	input := Truncate(text, g.cfg.MaxInputChars)
	g.logger.Info("llm.summarize.start",
		"req_id", rid,
		"model", g.completer.Model(),
		"temp", g.cfg.Temperature,
		"text_chars", utf8.RuneCountInString(text),
		"sent_chars", utf8.RuneCountInString(input),
	)

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	raw, err := g.completer.Complete(ctx, BuildReportPrompt(input), GenerationConfig{
		Temperature:      g.cfg.Temperature,
		MaxOutputTokens:  g.cfg.MaxOutputTokens,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		if !errors.Is(err, ErrAIRequestFailed) && !errors.Is(err, ErrInvalidAIResponse) {
			err = RequestFailed("complete", err)
		}
		g.logger.Error("llm.summarize.completion_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Report{}, err
	}

	report, err := ParseReport(raw)
	if err != nil {
		g.logger.Error("llm.summarize.schema_validation_failed",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Report{}, err
	}

	g.logger.Info("llm.summarize.ok",
		"req_id", rid,
		"highlights", len(report.Highlights),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}
