package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"intake-backend/internal/profile"
)

type rawResult struct {
	Recommendations  *[]map[string]any `json:"recommendations"`
	ProjectBlueprint map[string]any    `json:"projectBlueprint"`
}

// DecodeResult destructures provider output into a Result. Categories and
// priorities are snapped to their closed sets, and missing ids are generated.
// Recommendations without a title are dropped.
func DecodeResult(raw []byte) (Result, error) {
	body := stripFences(raw)
	var parsed rawResult
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if parsed.Recommendations == nil {
		return Result{}, fmt.Errorf("%w: recommendations missing", ErrMalformedResponse)
	}

	out := Result{Recommendations: make([]profile.Recommendation, 0, len(*parsed.Recommendations))}
	for _, item := range *parsed.Recommendations {
		rec, ok := decodeRecommendation(item)
		if !ok {
			continue
		}
		out.Recommendations = append(out.Recommendations, rec)
	}
	if parsed.ProjectBlueprint != nil {
		bp := decodeBlueprint(parsed.ProjectBlueprint)
		out.ProjectBlueprint = &bp
	}
	return out, nil
}

func decodeRecommendation(item map[string]any) (profile.Recommendation, bool) {
	rec := profile.Recommendation{
		ID:                str(item["id"]),
		Title:             str(item["title"]),
		Description:       str(item["description"]),
		WhyNeeded:         str(item["whyNeeded"]),
		HowItHelps:        str(item["howItHelps"]),
		BusinessImpact:    str(item["businessImpact"]),
		ExpectedROI:       str(item["expectedROI"]),
		EstimatedTimeline: str(item["estimatedTimeline"]),
		EstimatedCost:     str(item["estimatedCost"]),
	}
	if rec.Title == "" {
		return profile.Recommendation{}, false
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if c, ok := profile.ParseCategory(str(item["category"])); ok {
		rec.Category = c
	} else {
		rec.Category = profile.CategorySoftware
	}
	if p, ok := profile.ParsePriority(str(item["priority"])); ok {
		rec.Priority = p
	} else {
		rec.Priority = profile.PriorityMedium
	}
	return rec, true
}

func decodeBlueprint(raw map[string]any) profile.ProjectBlueprint {
	bp := profile.ProjectBlueprint{
		Deliverables: []string{},
		Timeline:     str(raw["timeline"]),
		CostBracket:  str(raw["costBracket"]),
		Phases:       []profile.Phase{},
	}
	if items, ok := raw["deliverables"].([]any); ok {
		for _, item := range items {
			if s := str(item); s != "" {
				bp.Deliverables = append(bp.Deliverables, s)
			}
		}
	}
	if phases, ok := raw["phases"].([]any); ok {
		for _, item := range phases {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			phase := profile.Phase{
				Name:        str(m["name"]),
				Duration:    str(m["duration"]),
				Description: str(m["description"]),
			}
			if phase.Name == "" {
				continue
			}
			bp.Phases = append(bp.Phases, phase)
		}
	}
	return bp
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

func stripFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return []byte(s)
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}
