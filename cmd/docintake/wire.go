package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docintake/internal/async"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/extract"
	"github.com/joseph-ayodele/docintake/internal/llm"
	"github.com/joseph-ayodele/docintake/internal/llm/gemini"
	"github.com/joseph-ayodele/docintake/internal/llm/vertex"
	"github.com/joseph-ayodele/docintake/internal/ocr"
	"github.com/joseph-ayodele/docintake/internal/pipeline"
	repo "github.com/joseph-ayodele/docintake/internal/repository"
	"github.com/joseph-ayodele/docintake/internal/server"
	"github.com/joseph-ayodele/docintake/internal/services/documents"
	"github.com/joseph-ayodele/docintake/internal/storage"
)

// app holds the long-lived dependencies shared by the commands.
type app struct {
	db        *repo.DB
	blobs     storage.BlobStore
	generator *llm.Generator
	gate      *async.Gate
	processor *pipeline.Processor
	docs      *documents.Service
	closers   []func() error
	logger    *slog.Logger
}

func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.gate != nil {
		if err := a.gate.Shutdown(ctx); err != nil {
			a.logger.Warn("pipeline gate did not drain", "error", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close(a.logger)
	}
}

func newExtractor(c *common.Config, logger *slog.Logger) *extract.Orchestrator {
	ocrCfg := ocr.Config{
		Pdftoppm:    c.OCR.Pdftoppm,
		Tesseract:   c.OCR.Tesseract,
		Language:    c.OCR.Language,
		Scale:       c.OCR.Scale,
		TessdataDir: c.OCR.TessdataDir,
		PSM:         c.OCR.PSM,
		OEM:         c.OCR.OEM,
		MinChars:    c.Extraction.MinOCRChars,
	}
	runner := ocr.NewExecRunner(logger)
	progress := ocrProgress(logger)
	adapter := extract.NewOCRAdapter(
		ocr.NewEnhancer(logger),
		ocr.NewTesseract(ocrCfg, logger, ocr.WithRunner(runner), ocr.WithProgress(progress)),
		ocr.NewRasterizer(ocrCfg, runner, logger),
		extract.OCRAdapterConfig{Language: c.OCR.Language, PageWorkers: c.OCR.PageWorkers, Progress: progress},
		logger,
	)
	policy := extract.Policy{
		ScannedThreshold: c.Extraction.ScannedThreshold,
		MinimalThreshold: c.Extraction.MinimalThreshold,
		MinOCRChars:      c.Extraction.MinOCRChars,
		MaxPages:         c.OCR.MaxPages,
		Scale:            c.OCR.Scale,
	}
	return extract.NewOrchestrator(policy, adapter, logger, extract.WithOCRTimeout(c.OCR.Timeout))
}

func ocrProgress(logger *slog.Logger) ocr.ProgressFunc {
	return func(stage string, pct float64) {
		logger.Debug("ocr.progress", "stage", stage, "pct", int(pct*100))
	}
}

// newCompleter picks the model backend. The returned close func may be nil.
func newCompleter(ctx context.Context, c *common.Config, logger *slog.Logger) (llm.Completer, func() error, error) {
	switch c.LLM.Provider {
	case "vertex":
		client, err := vertex.NewClient(ctx, vertex.Config{
			ProjectID: c.LLM.ProjectID,
			Region:    c.LLM.Region,
			Model:     c.LLM.Model,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("vertex client: %w", err)
		}
		return client, client.Close, nil
	case "gemini", "":
		return gemini.NewClient(gemini.Config{
			APIKey:  c.LLM.APIKey,
			BaseURL: c.LLM.BaseURL,
			Model:   c.LLM.Model,
			Timeout: c.LLM.Timeout,
		}, logger), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown llm provider %q", common.ErrInvalidInput, c.LLM.Provider)
	}
}

func newGenerator(ctx context.Context, c *common.Config, logger *slog.Logger) (*llm.Generator, func() error, error) {
	completer, closeFn, err := newCompleter(ctx, c, logger)
	if err != nil {
		return nil, nil, err
	}
	gen := llm.NewGenerator(completer, llm.GeneratorConfig{
		Temperature:     c.LLM.Temperature,
		MaxOutputTokens: c.LLM.MaxOutputTokens,
		MaxInputChars:   c.LLM.MaxInputChars,
		Timeout:         c.LLM.Timeout,
	}, logger)
	return gen, closeFn, nil
}

func newBlobStore(ctx context.Context, c *common.Config, logger *slog.Logger) (storage.BlobStore, func() error, error) {
	switch c.Storage.Backend {
	case "gcs":
		g, err := storage.NewGCS(ctx, c.Storage.GCSBucket, logger)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	default:
		l, err := storage.NewLocal(c.Storage.LocalDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return l, nil, nil
	}
}

func newPipeline(ctx context.Context, c *common.Config, logger *slog.Logger) (*pipeline.Processor, *llm.Generator, *async.Gate, func() error, error) {
	gen, closeFn, err := newGenerator(ctx, c, logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	gate := async.NewGate(logger,
		async.WithMaxConcurrent(c.Pipeline.MaxConcurrent),
		async.WithTimeout(c.Pipeline.Timeout),
	)
	proc := pipeline.NewProcessor(logger, newExtractor(c, logger), gen, gate)
	return proc, gen, gate, closeFn, nil
}

// buildApp wires the database, blob store and upload pipeline.
func buildApp(ctx context.Context, c *common.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	db, err := server.ConnectDB(ctx, c.Database, logger)
	if err != nil {
		return nil, err
	}
	a.db = db

	blobs, closeBlobs, err := newBlobStore(ctx, c, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.blobs = blobs
	if closeBlobs != nil {
		a.closers = append(a.closers, closeBlobs)
	}

	proc, gen, gate, closeLLM, err := newPipeline(ctx, c, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.processor, a.generator, a.gate = proc, gen, gate
	if closeLLM != nil {
		a.closers = append(a.closers, closeLLM)
	}

	a.docs = documents.NewService(repo.NewDocumentRepository(db, logger), blobs, proc, documents.Config{
		MaxUploadBytes: c.Server.MaxUploadBytes,
		KeyPrefix:      c.Storage.Prefix,
		Model:          gen.Model(),
	}, logger)
	return a, nil
}

func healthFunc(db *repo.DB, logger *slog.Logger) server.HealthFunc {
	return func(ctx context.Context) error {
		return repo.HealthCheck(ctx, db, 2*time.Second, logger)
	}
}
