package extract

import (
	"context"
	"time"
)

// Strategy is the extraction route chosen for an upload.
type Strategy string

const (
	StrategyPDF         Strategy = "pdf"
	StrategyDOCX        Strategy = "docx"
	StrategyPlainText   Strategy = "plain-text"
	StrategyImage       Strategy = "image"
	StrategyUnsupported Strategy = "unsupported"
)

// Provenance records which step produced the text.
type Provenance string

const (
	ProvenanceNative     Provenance = "native"
	ProvenanceOCR        Provenance = "ocr"
	ProvenanceOCRPerPage Provenance = "ocr-per-page"
)

// UploadedFile is the transient input of a single upload.
type UploadedFile struct {
	Data     []byte
	MIMEType string
	Filename string
	Size     int64
}

// Result is the outcome of a successful extraction.
type Result struct {
	Text       string
	Provenance Provenance
	Strategy   Strategy
	Attempted  []Provenance // in execution order, memoized steps excluded
	Pages      int
	Duration   time.Duration
	Warnings   []string
}

// NativeExtractor pulls embedded text from a container without rendering.
type NativeExtractor interface {
	ExtractText(ctx context.Context, data []byte) (text string, pages int, err error)
}

// TextExtractor is what callers of the orchestrator depend on.
type TextExtractor interface {
	Extract(ctx context.Context, f UploadedFile) (Result, error)
}
