package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"intake-backend/internal/llm"
	"intake-backend/internal/profile"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestNewClientWithoutKeyIsNotConfigured(t *testing.T) {
	_, err := NewClient(" ", "gpt-4o-mini")
	if !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func fakeServer(t *testing.T, reply string, seen *map[string]any) {
	t.Helper()
	oldURL := apiURL
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		*seen = payload
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	apiURL = server.URL
	t.Cleanup(func() {
		server.Close()
		apiURL = oldURL
	})
}

func TestAnalyzeProfileDecodesRecommendations(t *testing.T) {
	content := `{"recommendations":[{"title":"Managed backups","category":"Cybersecurity","priority":"High"}]}`
	reply, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
		"usage":   map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	var seen map[string]any
	fakeServer(t, string(reply), &seen)

	client, err := NewClient("test-key", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	res, err := client.AnalyzeProfile(context.Background(), profile.BusinessProfile{BusinessName: "Acme"})
	if err != nil {
		t.Fatalf("AnalyzeProfile: %v", err)
	}
	if len(res.Recommendations) != 1 || res.Recommendations[0].Title != "Managed backups" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Recommendations[0].Category != profile.CategoryCybersecurity {
		t.Fatalf("category not snapped: %q", res.Recommendations[0].Category)
	}
	if _, ok := seen["temperature"]; !ok {
		t.Fatalf("expected temperature for gpt-4o-mini")
	}
	msgs, _ := seen["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(msgs))
	}
	user, _ := msgs[1].(map[string]any)
	if !strings.Contains(user["content"].(string), "Acme") {
		t.Fatalf("user prompt missing profile: %v", user["content"])
	}
}

func TestAnalyzeProfileOmitsTemperatureForGPT5(t *testing.T) {
	var seen map[string]any
	fakeServer(t, `{"choices":[{"message":{"content":"{\"recommendations\":[]}"}}]}`, &seen)

	client, err := NewClient("test-key", "gpt-5-mini")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.AnalyzeProfile(context.Background(), profile.BusinessProfile{BusinessName: "Acme"}); err != nil {
		t.Fatalf("AnalyzeProfile: %v", err)
	}
	if _, ok := seen["temperature"]; ok {
		t.Fatalf("expected temperature to be omitted")
	}
}

func TestAnalyzeProfileSurfacesProviderError(t *testing.T) {
	var seen map[string]any
	fakeServer(t, `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`, &seen)

	client, _ := NewClient("test-key", "gpt-4o-mini")
	_, err := client.AnalyzeProfile(context.Background(), profile.BusinessProfile{BusinessName: "Acme"})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestAnalyzeProfileRejectsNonJSONContent(t *testing.T) {
	var seen map[string]any
	fakeServer(t, `{"choices":[{"message":{"content":"sorry, I cannot"}}]}`, &seen)

	client, _ := NewClient("test-key", "gpt-4o-mini")
	_, err := client.AnalyzeProfile(context.Background(), profile.BusinessProfile{BusinessName: "Acme"})
	if !errors.Is(err, llm.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}
