package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"MarketBrief/internal/service/provider"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("gemini returned no text")

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	*provider.Base
	model string
}

// New creates a Gemini client for model.
func New(opts provider.Options, model string) *Client {
	if opts.Name == "" {
		opts.Name = "gemini"
	}
	if model == "" {
		model = "gemini-2.5-pro"
	}
	return &Client{Base: provider.NewBase(opts), model: model}
}

// Summarize sends prompt as a single user turn and returns the concatenated text parts
// of the first candidate.
func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}}}
	var resp generateResponse
	path := "/v1beta/models/" + url.PathEscape(c.model) + ":generateContent"
	if err := c.PostJSON(ctx, path, map[string]string{"x-goog-api-key": c.APIKey()}, req, &resp); err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
