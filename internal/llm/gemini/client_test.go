package gemini

import (
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"intake-backend/internal/llm"
)

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("", ""); !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	c, err := NewClient("key", "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.model != DefaultModel {
		t.Fatalf("model = %q, want %q", c.model, DefaultModel)
	}
}

func TestResponseTextJoinsTextParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text(`{"recommendations":`),
				genai.Blob{MIMEType: "image/png"},
				genai.Text(`[]}`),
			}},
		}},
	}
	got, err := responseText(resp)
	if err != nil {
		t.Fatalf("responseText: %v", err)
	}
	if got != `{"recommendations":[]}` {
		t.Fatalf("got %q", got)
	}
}

func TestResponseTextEmpty(t *testing.T) {
	cases := []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{}}},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text("  ")}}}}},
	}
	for i, resp := range cases {
		if _, err := responseText(resp); !errors.Is(err, llm.ErrMalformedResponse) {
			t.Fatalf("case %d: expected ErrMalformedResponse, got %v", i, err)
		}
	}
}
