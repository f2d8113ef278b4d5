package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"intake-backend/internal/profile"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Insert adds a new row and returns its id.
func (r *PGRepo) Insert(ctx context.Context, rec Record) (string, error) {
	const query = `
INSERT INTO analysis_history (
	id, user_id, company_name, status, parsed_data, business_profile, recommendations,
	project_blueprint, business_profile_pdf_url, error_message, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.CompanyName == "" {
		rec.CompanyName = profile.UnknownCompany
	}
	parsed := nullableRaw(rec.ParsedData)
	bp, err := marshalJSONB(rec.BusinessProfile, rec.BusinessProfile != nil)
	if err != nil {
		return "", err
	}
	recs, err := marshalJSONB(rec.Recommendations, rec.Recommendations != nil)
	if err != nil {
		return "", err
	}
	blueprint, err := marshalJSONB(rec.ProjectBlueprint, rec.ProjectBlueprint != nil)
	if err != nil {
		return "", err
	}
	_, err = r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.CompanyName,
		string(rec.Status),
		parsed,
		bp,
		recs,
		blueprint,
		nullString(rec.BusinessProfilePDFURL),
		nullString(rec.ErrorMessage),
		rec.CreatedAt,
	)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Update applies patch to the row owned by owner.
func (r *PGRepo) Update(ctx context.Context, id, owner string, patch Patch) (string, error) {
	if err := patch.validate(); err != nil {
		return "", err
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrNotFound
	}

	var row *sql.Row
	if patch.Completion != nil {
		const query = `
UPDATE analysis_history
SET status = $3,
    company_name = COALESCE(NULLIF($4, ''), company_name),
    business_profile = $5,
    recommendations = $6,
    project_blueprint = $7,
    parsed_data = NULL,
    error_message = NULL,
    business_profile_pdf_url = COALESCE($8, business_profile_pdf_url),
    updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING id`
		recs := patch.Completion.Recommendations
		if recs == nil {
			recs = []profile.Recommendation{}
		}
		bp, err := marshalJSONB(patch.Completion.BusinessProfile, true)
		if err != nil {
			return "", err
		}
		recPayload, err := marshalJSONB(recs, true)
		if err != nil {
			return "", err
		}
		blueprint, err := marshalJSONB(patch.Completion.ProjectBlueprint, patch.Completion.ProjectBlueprint != nil)
		if err != nil {
			return "", err
		}
		row = r.DB.QueryRowContext(ctx, query,
			id, owner, string(patch.Status), patch.CompanyName,
			bp, recPayload, blueprint, nullString(patch.PDFURL),
		)
	} else {
		const query = `
UPDATE analysis_history
SET status = $3,
    error_message = $4,
    updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING id`
		row = r.DB.QueryRowContext(ctx, query, id, owner, string(patch.Status), *patch.ErrorMessage)
	}

	var updated string
	if err := row.Scan(&updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return updated, nil
}

// GetByID returns the full row owned by owner.
func (r *PGRepo) GetByID(ctx context.Context, id, owner string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, ErrNotFound
	}
	const query = `
SELECT id, user_id, company_name, status, parsed_data, business_profile, recommendations,
       project_blueprint, business_profile_pdf_url, error_message, created_at, updated_at
FROM analysis_history
WHERE id = $1 AND user_id = $2
LIMIT 1`
	var rec Record
	var status string
	var parsedData sql.NullString
	var businessProfile sql.NullString
	var recommendations sql.NullString
	var blueprint sql.NullString
	var pdfURL sql.NullString
	var errorMessage sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id, owner).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.CompanyName,
		&status,
		&parsedData,
		&businessProfile,
		&recommendations,
		&blueprint,
		&pdfURL,
		&errorMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.Status = Status(status)
	if parsedData.Valid {
		rec.ParsedData = json.RawMessage(parsedData.String)
	}
	if businessProfile.Valid {
		var bp profile.BusinessProfile
		if err := json.Unmarshal([]byte(businessProfile.String), &bp); err != nil {
			return Record{}, fmt.Errorf("decode business_profile: %w", err)
		}
		rec.BusinessProfile = &bp
	}
	if recommendations.Valid {
		if err := json.Unmarshal([]byte(recommendations.String), &rec.Recommendations); err != nil {
			return Record{}, fmt.Errorf("decode recommendations: %w", err)
		}
	}
	if blueprint.Valid {
		var bp profile.ProjectBlueprint
		if err := json.Unmarshal([]byte(blueprint.String), &bp); err != nil {
			return Record{}, fmt.Errorf("decode project_blueprint: %w", err)
		}
		rec.ProjectBlueprint = &bp
	}
	rec.BusinessProfilePDFURL = stringPtr(pdfURL)
	rec.ErrorMessage = stringPtr(errorMessage)
	return rec, nil
}

// ListByOwner lists summaries for owner ordered newest-first.
func (r *PGRepo) ListByOwner(ctx context.Context, owner string) ([]Summary, error) {
	const query = `
SELECT id, company_name, status, created_at, business_profile_pdf_url, error_message
FROM analysis_history
WHERE user_id = $1
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var s Summary
		var status string
		var pdfURL sql.NullString
		var errorMessage sql.NullString
		if err := rows.Scan(&s.ID, &s.CompanyName, &status, &s.CreatedAt, &pdfURL, &errorMessage); err != nil {
			return nil, err
		}
		s.Status = Status(status)
		s.BusinessProfilePDFURL = stringPtr(pdfURL)
		s.ErrorMessage = stringPtr(errorMessage)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func marshalJSONB(value any, present bool) (any, error) {
	if !present {
		return nil, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func nullableRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

var _ Repo = (*PGRepo)(nil)
