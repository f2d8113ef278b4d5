package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/shared/server/middleware"
	"intake-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes expects rg to require authentication.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

func (h *Handler) me(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok || ident.ID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthenticated", "missing or invalid token", nil)
		return
	}
	response := gin.H{
		"id":          ident.ID,
		"email":       ident.Email,
		"companyName": ident.CompanyName,
	}
	if !ident.CreatedAt.IsZero() {
		response["createdAt"] = ident.CreatedAt
	}
	if h.Svc != nil {
		user, err := h.Svc.GetByID(c.Request.Context(), ident.ID)
		switch {
		case err == nil:
			response["fullName"] = user.FullName
			response["pictureUrl"] = user.PictureURL
		case errors.Is(err, ErrNotFound):
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
			return
		}
	}
	respond.JSON(c, http.StatusOK, response)
}
