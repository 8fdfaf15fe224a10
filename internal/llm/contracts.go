package llm

import "context"

// Report is the structured summary produced for one document.
type Report struct {
	PurposeAndScope string   `json:"purposeAndScope"`
	Summary         string   `json:"summary"`
	Highlights      []string `json:"highlights"`
	Issues          string   `json:"issues"`          // numbered items, each with a "Basis:" line
	Recommendations string   `json:"recommendations"` // same convention as Issues
}

// GenerationConfig is passed through to the model provider.
type GenerationConfig struct {
	Temperature      float32
	MaxOutputTokens  int32
	ResponseMIMEType string
}

// Completer sends one prompt to a model and returns the raw answer text.
// Transport failures wrap ErrAIRequestFailed; a well-formed response with
// no answer wraps ErrInvalidAIResponse.
type Completer interface {
	Complete(ctx context.Context, prompt string, gen GenerationConfig) (string, error)
	Model() string
}

// Summarizer is what the upload pipeline depends on.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (Report, error)
}
