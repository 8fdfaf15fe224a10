package gemini

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/joseph-ayodele/docintake/internal/llm"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float32 `json:"temperature"`
	MaxOutputTokens  int32   `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (c *Client) Model() string { return c.cfg.Model }

// Complete implements llm.Completer against models/{model}:generateContent.
func (c *Client) Complete(ctx context.Context, prompt string, gen llm.GenerationConfig) (string, error) {
	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      gen.Temperature,
			MaxOutputTokens:  gen.MaxOutputTokens,
			ResponseMIMEType: gen.ResponseMIMEType,
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/models/" + url.PathEscape(c.cfg.Model) +
		":generateContent?key=" + url.QueryEscape(c.cfg.APIKey)
	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, nil, c.logger)
	if err != nil {
		return "", llm.RequestFailed("gemini.generate", err)
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", llm.InvalidResponse("gemini.decode", "decode response: %v", err)
	}
	if len(resp.Candidates) == 0 {
		if r := resp.PromptFeedback.BlockReason; r != "" {
			return "", llm.InvalidResponse("gemini.decode", "prompt blocked: %s", r)
		}
		return "", llm.InvalidResponse("gemini.decode", "no candidates in response")
	}
	cand := resp.Candidates[0]
	if len(cand.Content.Parts) == 0 || strings.TrimSpace(cand.Content.Parts[0].Text) == "" {
		return "", llm.InvalidResponse("gemini.decode", "empty answer (finishReason=%s)", cand.FinishReason)
	}
	c.logger.Debug("llm.gemini.answer",
		"model", c.cfg.Model,
		"finish_reason", cand.FinishReason,
		"chars", len(cand.Content.Parts[0].Text),
	)
	return cand.Content.Parts[0].Text, nil
}
