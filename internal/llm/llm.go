// Package llm defines the analyzer boundary: a business profile goes in,
// service recommendations and an optional project blueprint come out.
package llm

import (
	"context"
	"errors"

	"intake-backend/internal/profile"
)

var (
	// ErrNotConfigured is returned when no provider credentials are available.
	ErrNotConfigured = errors.New("analyzer not configured")
	// ErrMalformedResponse is returned when provider output cannot be destructured.
	ErrMalformedResponse = errors.New("analyzer returned malformed response")
)

// Result is the typed analyzer output.
type Result struct {
	Recommendations  []profile.Recommendation  `json:"recommendations"`
	ProjectBlueprint *profile.ProjectBlueprint `json:"projectBlueprint,omitempty"`
}

// Analyzer produces recommendations for a validated profile.
type Analyzer interface {
	AnalyzeProfile(ctx context.Context, p profile.BusinessProfile) (Result, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, p profile.BusinessProfile) (Result, error)

func (f AnalyzerFunc) AnalyzeProfile(ctx context.Context, p profile.BusinessProfile) (Result, error) {
	return f(ctx, p)
}

// PlaceholderClient stands in when no provider is configured.
type PlaceholderClient struct{}

// AnalyzeProfile returns ErrNotConfigured.
func (PlaceholderClient) AnalyzeProfile(ctx context.Context, p profile.BusinessProfile) (Result, error) {
	return Result{}, ErrNotConfigured
}
