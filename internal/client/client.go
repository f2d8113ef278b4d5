// Package client talks to the intake API and keeps the caller's local session state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"intake-backend/internal/analyses"
	"intake-backend/internal/documents"
)

const (
	defaultTimeout   = 3 * time.Minute
	maxResponseBytes = 8 << 20
)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// IsUnauthenticated reports whether err is a 401 from the API.
func IsUnauthenticated(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Client is a typed wrapper over the /api/v1 surface.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New returns a Client for baseURL, e.g. http://localhost:8080.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: defaultTimeout},
	}
}

// Me is the identity returned by GET /me.
type Me struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	CompanyName string    `json:"companyName"`
	FullName    string    `json:"fullName,omitempty"`
	PictureURL  string    `json:"pictureUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

func (c *Client) Me(ctx context.Context) (Me, error) {
	var out Me
	err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, "", &out)
	return out, err
}

// Upload sends r as a multipart file and returns the stored descriptor.
func (c *Client) Upload(ctx context.Context, fileName string, r io.Reader) (documents.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return documents.UploadResult{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return documents.UploadResult{}, err
	}
	if err := mw.Close(); err != nil {
		return documents.UploadResult{}, err
	}
	var out documents.UploadResult
	err = c.do(ctx, http.MethodPost, "/api/v1/uploads", &buf, mw.FormDataContentType(), &out)
	return out, err
}

func (c *Client) ParseFile(ctx context.Context, req documents.ParseRequest) (documents.ParseResult, error) {
	var out documents.ParseResult
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/parse-file", req, &out)
	return out, err
}

// SavePending stores parsed data as a pending analysis and returns its id.
func (c *Client) SavePending(ctx context.Context, req analyses.SavePendingRequest) (string, error) {
	var out struct {
		AnalysisID string `json:"analysisId"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/analyses/pending", req, &out); err != nil {
		return "", err
	}
	return out.AnalysisID, nil
}

// Analyze submits a raw business profile. pendingID and pdfURL are optional.
func (c *Client) Analyze(ctx context.Context, profile map[string]any, pendingID, pdfURL string) (analyses.AnalyzeResponse, error) {
	body := make(map[string]any, len(profile)+2)
	for k, v := range profile {
		body[k] = v
	}
	if pendingID != "" {
		body["pendingAnalysisId"] = pendingID
	}
	if pdfURL != "" {
		body["businessProfilePdfUrl"] = pdfURL
	}
	var out analyses.AnalyzeResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/analyze", body, &out)
	return out, err
}

func (c *Client) ListAnalyses(ctx context.Context) ([]analyses.Summary, error) {
	var out []analyses.Summary
	err := c.do(ctx, http.MethodGet, "/api/v1/analyses", nil, "", &out)
	return out, err
}

func (c *Client) GetAnalysis(ctx context.Context, id string) (analyses.Record, error) {
	var out analyses.Record
	err := c.do(ctx, http.MethodGet, "/api/v1/analyses/"+url.PathEscape(id), nil, "", &out)
	return out, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, bytes.NewReader(payload), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
