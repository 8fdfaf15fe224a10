package extract

import "github.com/joseph-ayodele/docintake/internal/ocr"

// Thresholds are counted in runes of whitespace-trimmed text.
const (
	DefaultScannedThreshold = 100
	DefaultMinimalThreshold = 50
	DefaultMaxOCRPages      = 10
	DefaultRasterScale      = 2.0
)

// Step is one entry of a strategy's escalation chain. After the step runs,
// the next step is taken only while the best text so far is shorter than
// EscalateBelow.
type Step struct {
	Provenance    Provenance
	EscalateBelow int
}

// Policy holds the tunable heuristics of the extraction chain.
type Policy struct {
	ScannedThreshold int     // native PDF text below this is treated as scanned
	MinimalThreshold int     // text below this triggers one more OCR pass
	MinOCRChars      int     // OCR output below this counts as failure
	MaxPages         int     // page cap for per-page OCR
	Scale            float64 // rasterization scale over 72 DPI
}

func DefaultPolicy() Policy {
	return Policy{
		ScannedThreshold: DefaultScannedThreshold,
		MinimalThreshold: DefaultMinimalThreshold,
		MinOCRChars:      ocr.DefaultMinChars,
		MaxPages:         DefaultMaxOCRPages,
		Scale:            DefaultRasterScale,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.ScannedThreshold <= 0 {
		p.ScannedThreshold = d.ScannedThreshold
	}
	if p.MinimalThreshold <= 0 {
		p.MinimalThreshold = d.MinimalThreshold
	}
	if p.MinOCRChars <= 0 {
		p.MinOCRChars = d.MinOCRChars
	}
	if p.MaxPages <= 0 {
		p.MaxPages = d.MaxPages
	}
	if p.Scale <= 0 {
		p.Scale = d.Scale
	}
	return p
}

// Steps returns the escalation chain for a strategy. The trailing OCR entry
// of pdf and image is the minimal-text retry; the orchestrator memoizes OCR
// results so it never runs the engine twice on the same input.
func (p Policy) Steps(s Strategy) []Step {
	switch s {
	case StrategyPDF:
		return []Step{
			{Provenance: ProvenanceNative, EscalateBelow: p.ScannedThreshold},
			{Provenance: ProvenanceOCRPerPage, EscalateBelow: p.MinimalThreshold},
			{Provenance: ProvenanceOCRPerPage},
		}
	case StrategyImage:
		return []Step{
			{Provenance: ProvenanceOCR, EscalateBelow: p.MinimalThreshold},
			{Provenance: ProvenanceOCR},
		}
	case StrategyDOCX, StrategyPlainText:
		return []Step{{Provenance: ProvenanceNative}}
	default:
		return nil
	}
}

// Floor is the shortest final text accepted for a strategy. A PDF whose OCR
// failed keeps its native text only when that text reaches MinOCRChars, so a
// stray page header alone fails extraction instead of reaching the model.
func (p Policy) Floor(s Strategy) int {
	switch s {
	case StrategyPDF, StrategyImage:
		return p.MinOCRChars
	default:
		return 1
	}
}
