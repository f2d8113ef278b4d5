package llm

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"intake-backend/internal/profile"
)

//go:embed prompts/business_profile.txt
var businessProfilePrompt string

// PromptVersion identifies the embedded prompt template.
const PromptVersion = "business_profile_v1"

// SystemPrompt returns the instructions sent ahead of every profile.
func SystemPrompt() string {
	names := make([]string, 0, len(profile.Categories))
	for _, c := range profile.Categories {
		names = append(names, string(c))
	}
	return strings.ReplaceAll(businessProfilePrompt, "{{CATEGORIES}}", strings.Join(names, ", "))
}

// UserPrompt renders p as the user turn of the analysis request.
func UserPrompt(p profile.BusinessProfile) (string, error) {
	body, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal profile: %w", err)
	}
	return "Business profile:\n" + string(body), nil
}
