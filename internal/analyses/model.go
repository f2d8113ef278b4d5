package analyses

import (
	"encoding/json"
	"time"

	"intake-backend/internal/profile"
)

// Status is the lifecycle state of a Record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is one analysis attempt. It is overwritten in place, never appended to.
type Record struct {
	ID                    string                    `json:"id"`
	UserID                string                    `json:"userId"`
	CompanyName           string                    `json:"companyName"`
	Status                Status                    `json:"status"`
	ParsedData            json.RawMessage           `json:"parsedData,omitempty"`
	BusinessProfile       *profile.BusinessProfile  `json:"businessProfile,omitempty"`
	Recommendations       []profile.Recommendation  `json:"recommendations,omitempty"`
	ProjectBlueprint      *profile.ProjectBlueprint `json:"projectBlueprint,omitempty"`
	BusinessProfilePDFURL *string                   `json:"businessProfilePdfUrl,omitempty"`
	ErrorMessage          *string                   `json:"errorMessage,omitempty"`
	CreatedAt             time.Time                 `json:"createdAt"`
	UpdatedAt             time.Time                 `json:"updatedAt"`
}

// MarshalJSON always emits recommendations for completed records, as an
// empty list when the analyzer returned none.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	out := struct {
		plain
		Recommendations *[]profile.Recommendation `json:"recommendations,omitempty"`
	}{plain: plain(r)}
	if r.Status == StatusCompleted || len(r.Recommendations) > 0 {
		recs := r.Recommendations
		if recs == nil {
			recs = []profile.Recommendation{}
		}
		out.Recommendations = &recs
	}
	return json.Marshal(out)
}

// Summary is the history-list projection of a Record.
type Summary struct {
	ID                    string    `json:"id"`
	CompanyName           string    `json:"companyName"`
	Status                Status    `json:"status"`
	CreatedAt             time.Time `json:"createdAt"`
	BusinessProfilePDFURL *string   `json:"businessProfilePdfUrl,omitempty"`
	ErrorMessage          *string   `json:"errorMessage,omitempty"`
}

func (r Record) Summary() Summary {
	return Summary{
		ID:                    r.ID,
		CompanyName:           r.CompanyName,
		Status:                r.Status,
		CreatedAt:             r.CreatedAt,
		BusinessProfilePDFURL: r.BusinessProfilePDFURL,
		ErrorMessage:          r.ErrorMessage,
	}
}

// Completion is the analyzer output attached when a record completes.
type Completion struct {
	BusinessProfile  profile.BusinessProfile
	Recommendations  []profile.Recommendation
	ProjectBlueprint *profile.ProjectBlueprint
}

// Patch describes an in-place transition of a Record.
//
// A completed patch carries a Completion and clears parsed_data and
// error_message. A failed patch carries an ErrorMessage and leaves
// parsed_data and business_profile as they were.
type Patch struct {
	Status       Status
	CompanyName  string
	Completion   *Completion
	ErrorMessage *string
	PDFURL       *string
}

func (p Patch) validate() error {
	switch p.Status {
	case StatusCompleted:
		if p.Completion == nil {
			return ErrInvalidPatch
		}
	case StatusFailed:
		if p.ErrorMessage == nil {
			return ErrInvalidPatch
		}
	default:
		return ErrInvalidPatch
	}
	return nil
}
