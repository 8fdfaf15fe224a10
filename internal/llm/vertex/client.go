package vertex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/joseph-ayodele/docintake/internal/llm"
)

type Config struct {
	ProjectID string
	Region    string // default us-central1
	Model     string // default gemini-2.5-flash
}

// Client is an llm.Completer backed by Vertex AI with application default credentials.
type Client struct {
	cfg    Config
	client *genai.Client
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("vertex: project id is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	c, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &Client{cfg: cfg, client: c, logger: logger}, nil
}

func (c *Client) Model() string { return c.cfg.Model }

func (c *Client) Close() error { return c.client.Close() }

func (c *Client) Complete(ctx context.Context, prompt string, gen llm.GenerationConfig) (string, error) {
	model := c.client.GenerativeModel(c.cfg.Model)
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: gen.ResponseMIMEType,
		Temperature:      genai.Ptr[float32](gen.Temperature),
		MaxOutputTokens:  genai.Ptr[int32](gen.MaxOutputTokens),
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", llm.RequestFailed("vertex.generate", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", llm.InvalidResponse("vertex.decode", "no candidates in response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	out := b.String()
	if strings.TrimSpace(out) == "" {
		return "", llm.InvalidResponse("vertex.decode", "empty answer")
	}
	c.logger.Debug("llm.vertex.answer", "model", c.cfg.Model, "chars", len(out))
	return out, nil
}
