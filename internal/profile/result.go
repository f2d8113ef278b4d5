package profile

import (
	"strings"

	"github.com/agext/levenshtein"
)

// Priority is the closed set of recommendation priorities.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ParsePriority maps raw analyzer output onto a Priority. Unknown values report false.
func ParsePriority(raw string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "critical", "urgent":
		return PriorityHigh, true
	case "medium", "moderate", "normal":
		return PriorityMedium, true
	case "low", "minor":
		return PriorityLow, true
	default:
		return "", false
	}
}

// Category is the closed set of service categories.
type Category string

const (
	CategoryProcessAutomation Category = "Process Automation & Optimization"
	CategorySoftware          Category = "Software Solutions"
	CategoryCybersecurity     Category = "Cybersecurity & Risk Reduction"
	CategoryModernization     Category = "Technology Modernization"
	CategoryAI                Category = "AI & Intelligent Automation"
	CategoryIndustrySpecific  Category = "Industry-Specific Solutions"
)

// Categories lists every Category in display order.
var Categories = []Category{
	CategoryProcessAutomation,
	CategorySoftware,
	CategoryCybersecurity,
	CategoryModernization,
	CategoryAI,
	CategoryIndustrySpecific,
}

const maxCategoryDistance = 4

// ParseCategory snaps raw analyzer output to the nearest Category.
func ParseCategory(raw string) (Category, bool) {
	needle := strings.ToLower(strings.TrimSpace(raw))
	if needle == "" {
		return "", false
	}
	best := Category("")
	bestDist := maxCategoryDistance + 1
	for _, c := range Categories {
		d := levenshtein.Distance(needle, strings.ToLower(string(c)), nil)
		if d == 0 {
			return c, true
		}
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist > maxCategoryDistance {
		return "", false
	}
	return best, true
}

// Recommendation is one suggested service.
type Recommendation struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Category          Category `json:"category"`
	Description       string   `json:"description"`
	WhyNeeded         string   `json:"whyNeeded"`
	HowItHelps        string   `json:"howItHelps"`
	BusinessImpact    string   `json:"businessImpact"`
	ExpectedROI       string   `json:"expectedROI"`
	Priority          Priority `json:"priority"`
	EstimatedTimeline string   `json:"estimatedTimeline"`
	EstimatedCost     string   `json:"estimatedCost"`
}

// Phase is one stage of a ProjectBlueprint.
type Phase struct {
	Name        string `json:"name"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// ProjectBlueprint is the high-level delivery plan attached to a completed analysis.
type ProjectBlueprint struct {
	Deliverables []string `json:"deliverables"`
	Timeline     string   `json:"timeline"`
	CostBracket  string   `json:"costBracket"`
	Phases       []Phase  `json:"phases"`
}
