package retrieval

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/shared/server/respond"
	"intake-backend/internal/shared/storage/object"
)

// FileHandler serves objects from the local store to holders of a LocalSigner link.
type FileHandler struct {
	Signer *LocalSigner
	Store  object.Store
}

func NewFileHandler(signer *LocalSigner, store object.Store) *FileHandler {
	return &FileHandler{Signer: signer, Store: store}
}

func (h *FileHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/files/*objectId", h.serve)
}

func (h *FileHandler) serve(c *gin.Context) {
	objectID := strings.TrimLeft(c.Param("objectId"), "/")
	if objectID == "" {
		respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
		return
	}
	if err := h.Signer.Verify(objectID, c.Query("expires"), c.Query("sig")); err != nil {
		respond.Error(c, http.StatusForbidden, "forbidden", "invalid or expired link", nil)
		return
	}

	body, err := h.Store.Open(c.Request.Context(), objectID)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read file", nil)
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(path.Ext(objectID))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "private, no-store")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, body)
}
