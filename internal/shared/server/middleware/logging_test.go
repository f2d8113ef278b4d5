package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"intake-backend/internal/shared/auth"
	"intake-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	telemetry.SetLogger(zap.New(core))
	t.Cleanup(func() { telemetry.SetLogger(nil) })

	router := gin.New()
	router.Use(RequestID(), Auth(fakeVerifier{ident: auth.Identity{ID: "user-1"}}, Optional), Logging())
	router.GET("/test", func(c *gin.Context) {
		c.Set("analysisId", "analysis-1")
		c.Set("statusTransition", "uploaded->parsing")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer good")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	entries := logs.FilterMessage("request.complete").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request.complete entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()

	required := []string{"request_id", "user_id", "analysis_id", "duration_ms", "status", "status_transition"}
	for _, key := range required {
		if _, ok := fields[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if fields["user_id"] != "user-1" {
		t.Fatalf("unexpected user_id: %v", fields["user_id"])
	}
	if fields["analysis_id"] != "analysis-1" {
		t.Fatalf("unexpected analysis_id: %v", fields["analysis_id"])
	}
	if fields["status_transition"] != "uploaded->parsing" {
		t.Fatalf("unexpected status_transition: %v", fields["status_transition"])
	}
}
