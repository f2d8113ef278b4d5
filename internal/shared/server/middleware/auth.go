package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/shared/auth"
	"intake-backend/internal/shared/server/respond"
	"intake-backend/internal/shared/telemetry"
)

const (
	userIDKey   = "userId"
	identityKey = "identity"
)

// AuthMode selects whether a route group admits anonymous callers.
type AuthMode int

const (
	// Required rejects requests without a valid bearer token.
	Required AuthMode = iota
	// Optional lets anonymous requests through; a present but invalid token is still rejected.
	Optional
)

// Auth verifies bearer tokens and stores the caller identity in context.
func Auth(verifier auth.Verifier, mode AuthMode) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			if mode == Optional {
				c.Next()
				return
			}
			respond.Error(c, http.StatusUnauthorized, "unauthenticated", "missing or invalid token", nil)
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthenticated", "missing or invalid token", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if token == "" || verifier == nil {
			respond.Error(c, http.StatusUnauthorized, "unauthenticated", "missing or invalid token", nil)
			return
		}

		ident, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthenticated) {
				telemetry.Error("auth.verify_failed", map[string]any{
					"request_id": RequestIDFromContext(c),
					"error":      err,
				})
				respond.Error(c, http.StatusBadGateway, "upstream_unavailable", "Unable to verify credentials", nil)
				return
			}
			respond.Error(c, http.StatusUnauthorized, "unauthenticated", "missing or invalid token", nil)
			return
		}

		c.Set(userIDKey, ident.ID)
		c.Set(identityKey, ident)
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware. Anonymous callers yield "".
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// IdentityFromContext fetches the verified identity, if any.
func IdentityFromContext(c *gin.Context) (auth.Identity, bool) {
	if c == nil {
		return auth.Identity{}, false
	}
	val, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	ident, ok := val.(auth.Identity)
	return ident, ok
}
