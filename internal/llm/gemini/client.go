// Package gemini adapts Google's Gemini models to llm.Analyzer.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"intake-backend/internal/llm"
	"intake-backend/internal/profile"
	"intake-backend/internal/shared/telemetry"
)

const (
	DefaultModel   = "gemini-1.5-flash"
	defaultTimeout = 90 * time.Second
)

// Client implements llm.Analyzer. A genai client is opened per call and
// closed before returning.
type Client struct {
	apiKey      string
	model       string
	temperature float32
	timeout     time.Duration
}

// NewClient returns llm.ErrNotConfigured when apiKey is empty.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY: %w", llm.ErrNotConfigured)
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Client{apiKey: apiKey, model: model, temperature: 0.2, timeout: defaultTimeout}, nil
}

func (c *Client) AnalyzeProfile(ctx context.Context, p profile.BusinessProfile) (llm.Result, error) {
	userPrompt, err := llm.UserPrompt(p)
	if err != nil {
		return llm.Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return llm.Result{}, fmt.Errorf("gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	model.SetTemperature(c.temperature)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(llm.SystemPrompt())}}

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return llm.Result{}, fmt.Errorf("gemini generate: %w", err)
	}
	logUsage(c.model, resp)

	text, err := responseText(resp)
	if err != nil {
		return llm.Result{}, err
	}
	return llm.DecodeResult([]byte(text))
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates from gemini", llm.ErrMalformedResponse)
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("%w: empty gemini response", llm.ErrMalformedResponse)
	}
	return out, nil
}

func logUsage(model string, resp *genai.GenerateContentResponse) {
	fields := map[string]any{
		"provider":       "gemini",
		"model":          model,
		"prompt_version": llm.PromptVersion,
	}
	if resp != nil && resp.UsageMetadata != nil {
		fields["prompt_tokens"] = resp.UsageMetadata.PromptTokenCount
		fields["completion_tokens"] = resp.UsageMetadata.CandidatesTokenCount
		fields["total_tokens"] = resp.UsageMetadata.TotalTokenCount
	}
	telemetry.Info("llm.response", fields)
}

var _ llm.Analyzer = (*Client)(nil)
