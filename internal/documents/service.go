package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"intake-backend/internal/analyses"
	"intake-backend/internal/extract"
	"intake-backend/internal/retrieval"
	"intake-backend/internal/shared/apperr"
	"intake-backend/internal/shared/metrics"
	"intake-backend/internal/shared/storage/object"
	"intake-backend/internal/shared/telemetry"
	"intake-backend/internal/shared/util"
)

// DefaultFolder prefixes every uploaded object key.
const DefaultFolder = "business-profiles"

// PendingTracker is the slice of the analyses service the parse step needs.
type PendingTracker interface {
	SavePending(ctx context.Context, owner string, req analyses.SavePendingRequest) (analyses.Record, error)
	MarkFailed(ctx context.Context, owner, id, message string) error
}

// Service stores uploads and turns stored documents into text.
type Service struct {
	Store         object.Store
	Presigner     object.Presigner
	Resolver      *retrieval.Resolver
	Fetcher       Fetcher
	Pending       PendingTracker
	Folder        string
	PublicBaseURL string
	MaxBytes      int64
	UploadTTL     time.Duration
	Now           func() time.Time
}

// UploadResult describes a stored upload.
type UploadResult struct {
	URL       string `json:"url"`
	ObjectID  string `json:"objectId"`
	FileName  string `json:"fileName"`
	Format    string `json:"format"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// PresignResult lets a client upload directly to object storage.
type PresignResult struct {
	UploadURL string    `json:"uploadUrl"`
	ObjectID  string    `json:"objectId"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ParseRequest asks for the text behind a stored document URL.
type ParseRequest struct {
	FileURL           string `json:"fileUrl"`
	FileName          string `json:"fileName"`
	MimeType          string `json:"mimeType"`
	PendingAnalysisID string `json:"pendingAnalysisId"`
	SavePending       bool   `json:"savePending"`
	CompanyName       string `json:"companyName"`
}

// ParseResult is the extracted text plus the pending record it was saved to, if any.
type ParseResult struct {
	Content    string `json:"content"`
	FileName   string `json:"fileName"`
	AnalysisID string `json:"analysisId,omitempty"`
}

// Upload validates and stores r, returning the public stored URL.
func (s *Service) Upload(ctx context.Context, owner, fileName string, r io.Reader) (UploadResult, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return UploadResult{}, apperr.Wrap(apperr.KindBadInput, "validation_error", "Invalid file name", err)
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes()+1))
	if err != nil {
		return UploadResult{}, apperr.Wrap(apperr.KindBadInput, "validation_error", "Unable to read file", err)
	}
	if int64(len(data)) > s.maxBytes() {
		return UploadResult{}, apperr.New(apperr.KindBadInput, "payload_too_large", msgTooLarge)
	}
	if len(data) == 0 {
		return UploadResult{}, apperr.New(apperr.KindBadInput, "validation_error", "No file uploaded")
	}

	detected := mimetype.Detect(data)
	kind := uploadKind(detected, name)
	if kind == extract.KindUnknown {
		return UploadResult{}, apperr.New(apperr.KindBadInput, "unsupported_file_type", msgUnsupportedType).
			WithDetails(map[string]string{"detected": detected.String()})
	}

	ext := extensionFor(kind, name)
	key := s.folder() + "/" + uuid.NewString() + ext
	contentType := kind.MimeType()
	if ext == ".doc" {
		contentType = "application/msword"
	}
	size, err := s.Store.Put(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return UploadResult{}, apperr.Wrap(apperr.KindUpstreamUnavailable, "upstream_unavailable", "Failed to upload file", err)
	}

	result := UploadResult{
		URL:       retrieval.PublicURL(s.PublicBaseURL, key, s.now().Unix()),
		ObjectID:  key,
		FileName:  name,
		Format:    strings.TrimPrefix(ext, "."),
		MimeType:  contentType,
		SizeBytes: size,
	}
	telemetry.Info("ingest.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           owner,
		"object_id":         key,
		"size_bytes":        size,
		"status_transition": "->uploaded",
	})
	return result, nil
}

// PresignUpload issues a signed PUT URL for a direct upload.
func (s *Service) PresignUpload(ctx context.Context, owner, fileName, contentType string) (PresignResult, error) {
	if s.Presigner == nil {
		return PresignResult{}, apperr.NotConfigured(errors.New("object store does not support presigned uploads"))
	}
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return PresignResult{}, apperr.Wrap(apperr.KindBadInput, "validation_error", "Invalid file name", err)
	}
	kind := extract.Classify(contentType, name)
	if kind == extract.KindUnknown {
		return PresignResult{}, apperr.New(apperr.KindBadInput, "unsupported_file_type", msgUnsupportedType)
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = kind.MimeType()
	}

	ttl := s.UploadTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	key := s.folder() + "/" + uuid.NewString() + extensionFor(kind, name)
	uploadURL, err := s.Presigner.PresignPut(ctx, key, contentType, ttl)
	if err != nil {
		return PresignResult{}, apperr.Wrap(apperr.KindUpstreamUnavailable, "upstream_unavailable", "Failed to sign upload", err)
	}
	now := s.now()
	telemetry.Info("ingest.presign", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"user_id":    owner,
		"object_id":  key,
	})
	return PresignResult{
		UploadURL: uploadURL,
		ObjectID:  key,
		URL:       retrieval.PublicURL(s.PublicBaseURL, key, now.Unix()),
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Parse resolves, downloads and extracts the document at req.FileURL.
//
// On failure a supplied pending record is marked failed for a known owner.
// On success with SavePending a new pending record holds the parsed text.
func (s *Service) Parse(ctx context.Context, owner string, req ParseRequest) (ParseResult, error) {
	req.FileURL = strings.TrimSpace(req.FileURL)
	req.PendingAnalysisID = strings.TrimSpace(req.PendingAnalysisID)
	if req.FileURL == "" {
		return ParseResult{}, apperr.New(apperr.KindBadInput, "validation_error", "No file URL provided")
	}
	s.logTransition(ctx, owner, req, "uploaded->parsing", nil)

	downloadURL := s.Resolver.Resolve(ctx, req.FileURL)
	data, err := s.Fetcher.Fetch(ctx, downloadURL)
	if err != nil {
		return ParseResult{}, s.failParse(ctx, owner, req, err)
	}

	hint := req.FileName
	if extract.Classify(req.MimeType, hint) == extract.KindUnknown {
		hint = req.FileURL
	}
	text, err := extract.Extract(ctx, data, req.MimeType, hint)
	if err != nil {
		return ParseResult{}, s.failParse(ctx, owner, req, err)
	}
	metrics.IncParseSucceeded()

	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		fileName = "document"
	}
	result := ParseResult{Content: text, FileName: fileName, AnalysisID: req.PendingAnalysisID}
	s.logTransition(ctx, owner, req, "parsing->extracted", nil)

	if req.SavePending && owner != "" && s.Pending != nil && req.PendingAnalysisID == "" {
		parsed, err := json.Marshal(map[string]string{"fileName": fileName, "content": text})
		if err != nil {
			return ParseResult{}, apperr.Wrap(apperr.KindInternal, "internal_error", "Unexpected server error", err)
		}
		rec, err := s.Pending.SavePending(ctx, owner, analyses.SavePendingRequest{
			ParsedData:  parsed,
			CompanyName: req.CompanyName,
			PDFURL:      req.FileURL,
		})
		if err != nil {
			return ParseResult{}, err
		}
		result.AnalysisID = rec.ID
	}
	return result, nil
}

func (s *Service) failParse(ctx context.Context, owner string, req ParseRequest, cause error) error {
	metrics.IncParseFailed()
	appErr := classifyParseError(cause)
	s.logTransition(ctx, owner, req, "parsing->failed", cause)
	if owner != "" && req.PendingAnalysisID != "" && s.Pending != nil {
		_ = s.Pending.MarkFailed(ctx, owner, req.PendingAnalysisID, appErr.Message)
	}
	return appErr
}

func classifyParseError(err error) *apperr.Error {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFileType):
		return apperr.Wrap(apperr.KindBadInput, "unsupported_file_type", msgUnsupportedType, err)
	case errors.Is(err, extract.ErrNoExtractableText):
		return apperr.Wrap(apperr.KindNotExtractable, "no_extractable_text", msgNoText, err)
	case errors.Is(err, extract.ErrUnreadableDocument):
		return apperr.Wrap(apperr.KindNotExtractable, "unreadable_document", msgUnreadable, err)
	case errors.Is(err, ErrTooLarge):
		return apperr.Wrap(apperr.KindBadInput, "payload_too_large", msgTooLarge, err)
	case errors.Is(err, ErrDownloadFailed):
		return apperr.Wrap(apperr.KindUpstreamUnavailable, "download_failed", msgDownloadFailed, err)
	default:
		return apperr.Wrap(apperr.KindInternal, "internal_error", msgUnreadable, err)
	}
}

func (s *Service) logTransition(ctx context.Context, owner string, req ParseRequest, transition string, err error) {
	fields := map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           owner,
		"analysis_id":       req.PendingAnalysisID,
		"file_name":         req.FileName,
		"status_transition": transition,
	}
	if err != nil {
		fields["error"] = err.Error()
		telemetry.Warn("ingest.status", fields)
		return
	}
	telemetry.Info("ingest.status", fields)
}

// uploadKind trusts the sniffed type when it is one we accept and consults
// the file name only for container formats shared by docx and doc.
func uploadKind(detected *mimetype.MIME, fileName string) extract.Kind {
	switch {
	case detected.Is("application/pdf"):
		return extract.KindPDF
	case detected.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"),
		detected.Is("application/msword"):
		return extract.KindDOCX
	case detected.Is("text/plain"):
		return extract.KindTXT
	case detected.Is("application/zip"), detected.Is("application/x-ole-storage"):
		if extract.Classify("", fileName) == extract.KindDOCX {
			return extract.KindDOCX
		}
	}
	return extract.KindUnknown
}

func extensionFor(kind extract.Kind, fileName string) string {
	switch kind {
	case extract.KindPDF:
		return ".pdf"
	case extract.KindTXT:
		return ".txt"
	case extract.KindDOCX:
		if strings.ToLower(path.Ext(fileName)) == ".doc" {
			return ".doc"
		}
		return ".docx"
	default:
		return ""
	}
}

func (s *Service) maxBytes() int64 {
	if s.MaxBytes > 0 {
		return s.MaxBytes
	}
	return extract.MaxDocumentBytes
}

func (s *Service) folder() string {
	f := strings.Trim(s.Folder, "/")
	if f == "" {
		return DefaultFolder
	}
	return f
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
