package analyses

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/shared/server/middleware"
	"intake-backend/internal/shared/server/respond"
)

// DefaultMaxPayloadBytes bounds analyze and save-pending bodies.
const DefaultMaxPayloadBytes = 1 << 20

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc             *Service
	MaxPayloadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxPayloadBytes int64) *Handler {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = DefaultMaxPayloadBytes
	}
	return &Handler{Svc: svc, MaxPayloadBytes: maxPayloadBytes}
}

// RegisterRoutes attaches analyze to the optional-auth group and history
// routes to the required-auth group.
func (h *Handler) RegisterRoutes(optional, required *gin.RouterGroup) {
	optional.POST("/analyze", h.analyze)
	required.POST("/analyses/pending", h.savePending)
	required.GET("/analyses", h.listAnalyses)
	required.GET("/analyses/:id", h.getAnalysis)
}

func (h *Handler) analyze(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}
	payload := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid JSON payload", nil)
		return
	}

	req := AnalyzeRequest{
		Payload:           payload,
		PendingAnalysisID: popString(payload, "pendingAnalysisId"),
		PDFURL:            popString(payload, "businessProfilePdfUrl"),
	}
	if req.PendingAnalysisID != "" {
		c.Set("analysisId", req.PendingAnalysisID)
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	resp, err := h.Svc.Analyze(ctx, middleware.UserIDFromContext(c), req)
	if err != nil {
		c.Set("statusTransition", "analyzing->failed")
		respond.Fail(c, err)
		return
	}
	if resp.AnalysisID != "" {
		c.Set("analysisId", resp.AnalysisID)
	}
	c.Set("statusTransition", "analyzing->completed")
	respond.OK(c, resp)
}

func (h *Handler) savePending(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}
	var req SavePendingRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid JSON payload", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	rec, err := h.Svc.SavePending(ctx, middleware.UserIDFromContext(c), req)
	if err != nil {
		respond.Fail(c, err)
		return
	}
	c.Set("analysisId", rec.ID)
	c.Set("statusTransition", "extracted->pending")
	respond.OK(c, gin.H{
		"success":    true,
		"analysisId": rec.ID,
		"message":    "Parsed data saved successfully",
	})
}

func (h *Handler) listAnalyses(c *gin.Context) {
	out, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) getAnalysis(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id is required", nil)
		return
	}
	c.Set("analysisId", id)
	rec, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.OK(c, rec)
}

func (h *Handler) readBody(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxPayloadBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Request payload too large", nil)
			return nil, false
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "Unable to read request body", nil)
		return nil, false
	}
	return body, true
}

func popString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	delete(m, key)
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
