package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"intake-backend/internal/llm"
	"intake-backend/internal/profile"
	"intake-backend/internal/shared/apperr"
	"intake-backend/internal/shared/metrics"
	"intake-backend/internal/shared/telemetry"
)

// Service runs the analyze half of the ingestion pipeline and serves history.
type Service struct {
	Repo     Repo
	Analyzer llm.Analyzer
	Now      func() time.Time
}

// NewService constructs a Service. A nil analyzer behaves as not configured.
func NewService(repo Repo, analyzer llm.Analyzer) *Service {
	if analyzer == nil {
		analyzer = llm.PlaceholderClient{}
	}
	return &Service{Repo: repo, Analyzer: analyzer, Now: func() time.Time { return time.Now().UTC() }}
}

// SavePendingRequest carries parsed document data awaiting analysis.
type SavePendingRequest struct {
	ParsedData  json.RawMessage `json:"parsedData"`
	CompanyName string          `json:"companyName"`
	PDFURL      string          `json:"pdfUrl"`
}

// AnalyzeRequest is a raw intake payload plus its reconciliation hints.
type AnalyzeRequest struct {
	Payload           map[string]any
	PendingAnalysisID string
	PDFURL            string
}

// AnalyzeResponse is returned to the caller on success.
type AnalyzeResponse struct {
	Recommendations  []profile.Recommendation  `json:"recommendations"`
	ProjectBlueprint *profile.ProjectBlueprint `json:"projectBlueprint,omitempty"`
	AnalysisID       string                    `json:"analysisId,omitempty"`
}

// SavePending creates a pending record for owner and returns it.
func (s *Service) SavePending(ctx context.Context, owner string, req SavePendingRequest) (Record, error) {
	if owner == "" {
		return Record{}, apperr.New(apperr.KindUnauthenticated, "unauthenticated", "Authentication required")
	}
	raw := json.RawMessage(strings.TrimSpace(string(req.ParsedData)))
	if len(raw) == 0 || string(raw) == "null" || !json.Valid(raw) {
		return Record{}, apperr.New(apperr.KindBadInput, "validation_error", "Parsed data is required")
	}

	rec := Record{
		UserID:      owner,
		CompanyName: pendingCompanyName(req.CompanyName, raw),
		Status:      StatusPending,
		ParsedData:  raw,
		CreatedAt:   s.now(),
	}
	if u := strings.TrimSpace(req.PDFURL); u != "" {
		rec.BusinessProfilePDFURL = &u
	}
	id, err := s.Repo.Insert(ctx, rec)
	if err != nil {
		return Record{}, apperr.Wrap(apperr.KindUpstreamUnavailable, "upstream_unavailable", "Failed to save parsed data", err)
	}
	rec.ID = id
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           owner,
		"analysis_id":       id,
		"status":            StatusPending,
		"status_transition": "extracted->pending",
	})
	return rec, nil
}

// MarkFailed records message on a pending record. Errors are logged and returned.
func (s *Service) MarkFailed(ctx context.Context, owner, id, message string) error {
	msg := truncateMessage(message)
	_, err := s.Repo.Update(context.WithoutCancel(ctx), id, owner, Patch{Status: StatusFailed, ErrorMessage: &msg})
	if err != nil {
		telemetry.Warn("analysis.mark_failed_error", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"user_id":     owner,
			"analysis_id": id,
			"error":       err.Error(),
		})
		return err
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           owner,
		"analysis_id":       id,
		"status":            StatusFailed,
		"status_transition": "pending->failed",
	})
	return nil
}

// Analyze normalizes and validates the payload, calls the analyzer and
// reconciles the outcome into the store when owner is known.
//
// With a pending id the pending record is updated in place; if that update
// fails a new record is inserted instead. Without one a new record is
// inserted. On analyzer failure the pending record, if any, is marked failed
// and the analyzer error is returned.
func (s *Service) Analyze(ctx context.Context, owner string, req AnalyzeRequest) (AnalyzeResponse, error) {
	p := profile.Normalize(req.Payload)
	if err := profile.Validate(p); err != nil {
		return AnalyzeResponse{}, apperr.Wrap(apperr.KindBadInput, "validation_error", "Invalid business profile data", err).
			WithDetails(err.Error())
	}

	pendingID := strings.TrimSpace(req.PendingAnalysisID)
	metrics.IncAnalysisStarted()
	start := time.Now()

	result, err := s.Analyzer.AnalyzeProfile(ctx, p)
	metrics.ObserveAnalysisDurationMs(metrics.SinceMillis(start))
	if err != nil {
		metrics.IncAnalysisFailed()
		telemetry.Warn("analysis.status", map[string]any{
			"request_id":        requestIDFromContext(ctx),
			"user_id":           owner,
			"analysis_id":       pendingID,
			"status":            StatusFailed,
			"status_transition": "analyzing->failed",
			"error":             err.Error(),
		})
		if owner != "" && pendingID != "" {
			_ = s.MarkFailed(ctx, owner, pendingID, failureMessage(err))
		}
		if errors.Is(err, llm.ErrNotConfigured) {
			return AnalyzeResponse{}, apperr.NotConfigured(err)
		}
		return AnalyzeResponse{}, apperr.Wrap(apperr.KindUpstreamUnavailable, "upstream_unavailable", "Failed to analyze business profile", err)
	}
	metrics.IncAnalysisCompleted()

	if result.Recommendations == nil {
		result.Recommendations = []profile.Recommendation{}
	}
	resp := AnalyzeResponse{
		Recommendations:  result.Recommendations,
		ProjectBlueprint: result.ProjectBlueprint,
	}
	if owner == "" {
		resp.AnalysisID = pendingID
		return resp, nil
	}

	savedID := s.reconcile(ctx, owner, pendingID, strings.TrimSpace(req.PDFURL), p, result)
	resp.AnalysisID = savedID
	if resp.AnalysisID == "" {
		resp.AnalysisID = pendingID
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           owner,
		"analysis_id":       resp.AnalysisID,
		"status":            StatusCompleted,
		"status_transition": "analyzing->completed",
		"duration_ms":       metrics.SinceMillis(start),
	})
	return resp, nil
}

func (s *Service) reconcile(ctx context.Context, owner, pendingID, pdfURL string, p profile.BusinessProfile, result llm.Result) string {
	ctx = context.WithoutCancel(ctx)
	var pdf *string
	if pdfURL != "" {
		pdf = &pdfURL
	}

	if pendingID != "" {
		id, err := s.Repo.Update(ctx, pendingID, owner, Patch{
			Status:      StatusCompleted,
			CompanyName: p.CompanyName(),
			Completion: &Completion{
				BusinessProfile:  p,
				Recommendations:  result.Recommendations,
				ProjectBlueprint: result.ProjectBlueprint,
			},
			PDFURL: pdf,
		})
		if err == nil {
			return id
		}
		metrics.IncReconcileFallback()
		telemetry.Warn("analysis.reconcile_fallback", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"user_id":     owner,
			"analysis_id": pendingID,
			"error":       err.Error(),
		})
	}

	bp := p
	id, err := s.Repo.Insert(ctx, Record{
		UserID:                owner,
		CompanyName:           p.CompanyName(),
		Status:                StatusCompleted,
		BusinessProfile:       &bp,
		Recommendations:       result.Recommendations,
		ProjectBlueprint:      result.ProjectBlueprint,
		BusinessProfilePDFURL: pdf,
		CreatedAt:             s.now(),
	})
	if err != nil {
		metrics.IncReconcileInsertFailed()
		telemetry.Error("analysis.reconcile_insert_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"user_id":    owner,
			"error":      err.Error(),
		})
		return ""
	}
	return id
}

// List returns owner's history, newest first.
func (s *Service) List(ctx context.Context, owner string) ([]Summary, error) {
	if owner == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "unauthenticated", "Authentication required")
	}
	out, err := s.Repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "upstream_unavailable", "Failed to fetch analysis history", err)
	}
	return out, nil
}

// Get returns one of owner's records.
func (s *Service) Get(ctx context.Context, owner, id string) (Record, error) {
	if owner == "" {
		return Record{}, apperr.New(apperr.KindUnauthenticated, "unauthenticated", "Authentication required")
	}
	rec, err := s.Repo.GetByID(ctx, id, owner)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, apperr.Wrap(apperr.KindNotFound, "not_found", "Analysis not found", err)
		}
		return Record{}, apperr.Wrap(apperr.KindUpstreamUnavailable, "upstream_unavailable", "Failed to fetch analysis", err)
	}
	return rec, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// failureMessage is what a failed record stores; configuration detail stays internal.
func failureMessage(err error) string {
	if errors.Is(err, llm.ErrNotConfigured) {
		return apperr.NotConfiguredMessage
	}
	return err.Error()
}

func truncateMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "Analysis failed"
	}
	if len(msg) > maxErrorMessageLen {
		msg = strings.ToValidUTF8(msg[:maxErrorMessageLen], "")
	}
	return msg
}

func pendingCompanyName(explicit string, parsed json.RawMessage) string {
	if name := strings.TrimSpace(explicit); name != "" {
		return name
	}
	var fields map[string]any
	if err := json.Unmarshal(parsed, &fields); err == nil {
		if name, ok := fields["businessName"].(string); ok && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name)
		}
	}
	return profile.UnknownCompany
}
