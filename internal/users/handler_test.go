package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/shared/auth"
)

func setupRouter(svc *Service, ident *auth.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if ident != nil {
			c.Set("userId", ident.ID)
			c.Set("identity", *ident)
		}
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestMeRequiresIdentity(t *testing.T) {
	r := setupRouter(NewService(NewMemoryRepo()), nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestMeMergesStoredProfile(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if err := svc.UpsertFromAuth(context.Background(), User{ID: "u1", Email: "a@acme.io", FullName: "Ada", PictureURL: "https://img/a.png"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	r := setupRouter(svc, &auth.Identity{ID: "u1", Email: "a@acme.io", CompanyName: "Acme"})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	body := decodeKeys(t, resp)
	if body["companyName"] != "Acme" || body["fullName"] != "Ada" || body["pictureUrl"] != "https://img/a.png" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestMeWithoutStoredUser(t *testing.T) {
	r := setupRouter(NewService(NewMemoryRepo()), &auth.Identity{ID: "dev:1", Email: "dev@local"})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if _, ok := decodeKeys(t, resp)["fullName"]; ok {
		t.Fatalf("fullName should be absent without a stored user")
	}
}

func decodeKeys(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}
