package documents

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/shared/server/middleware"
	"intake-backend/internal/shared/server/respond"
)

// multipartOverhead covers form boundaries and headers around the file part.
const multipartOverhead = 1 << 20

// maxParseBody bounds parse-file and presign JSON bodies.
const maxParseBody = 64 << 10

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches upload and parse routes to the optional-auth group
// and presigned uploads to the required-auth group.
func (h *Handler) RegisterRoutes(optional, required *gin.RouterGroup) {
	optional.POST("/uploads", h.upload)
	optional.POST("/parse-file", h.parseFile)
	required.POST("/uploads/presign", h.presign)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Svc.maxBytes()+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if c.Request.MultipartForm != nil {
		defer c.Request.MultipartForm.RemoveAll()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", msgTooLarge, nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "No file uploaded", nil)
		return
	}
	if fileHeader.Size > h.Svc.maxBytes() {
		respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", msgTooLarge, nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Unable to read file", nil)
		return
	}
	defer file.Close()

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	result, err := h.Svc.Upload(ctx, userID, fileHeader.Filename, file)
	if err != nil {
		respond.Fail(c, err)
		return
	}
	c.Set("statusTransition", "->uploaded")
	respond.OK(c, result)
}

type presignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

func (h *Handler) presign(c *gin.Context) {
	var req presignRequest
	if !decodeJSON(c, &req) {
		return
	}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	result, err := h.Svc.PresignUpload(ctx, middleware.UserIDFromContext(c), req.FileName, strings.TrimSpace(req.ContentType))
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.OK(c, result)
}

func (h *Handler) parseFile(c *gin.Context) {
	var req ParseRequest
	if !decodeJSON(c, &req) {
		return
	}
	if req.PendingAnalysisID != "" {
		c.Set("analysisId", req.PendingAnalysisID)
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	result, err := h.Svc.Parse(ctx, middleware.UserIDFromContext(c), req)
	if err != nil {
		c.Set("statusTransition", "parsing->failed")
		respond.Fail(c, err)
		return
	}
	if result.AnalysisID != "" {
		c.Set("analysisId", result.AnalysisID)
	}
	c.Set("statusTransition", "parsing->extracted")
	respond.OK(c, result)
}

func decodeJSON(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxParseBody)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Request payload too large", nil)
			return false
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "Unable to read request body", nil)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return false
	}
	return true
}
