package documents

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupDocumentsRouter(t *testing.T, svc *Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	required := api.Group("", func(c *gin.Context) {
		if c.GetHeader("X-Test-User") == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set("userId", c.GetHeader("X-Test-User"))
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(api, required)
	return router
}

func multipartBody(t *testing.T, field, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile(field, name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestUploadHandler(t *testing.T) {
	p := newPipeline(t, nil)
	router := setupDocumentsRouter(t, p.docs)

	body, contentType := multipartBody(t, "file", "hello.txt", []byte("hello world"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.FileName != "hello.txt" || out.Format != "txt" || !strings.Contains(out.URL, "/upload/v") {
		t.Fatalf("unexpected upload result %+v", out)
	}
}

func TestUploadHandlerErrors(t *testing.T) {
	p := newPipeline(t, nil)
	p.docs.MaxBytes = 16
	router := setupDocumentsRouter(t, p.docs)

	tests := []struct {
		name       string
		field      string
		fileName   string
		content    []byte
		wantStatus int
		wantCode   string
	}{
		{name: "missing file field", field: "other", fileName: "a.txt", content: []byte("x"), wantStatus: http.StatusBadRequest, wantCode: "validation_error"},
		{name: "too large", field: "file", fileName: "a.txt", content: []byte(strings.Repeat("x", 64)), wantStatus: http.StatusRequestEntityTooLarge, wantCode: "payload_too_large"},
		{name: "unsupported", field: "file", fileName: "a.png", content: []byte("\x89PNG\r\n\x1a\n\x00\x00"), wantStatus: http.StatusBadRequest, wantCode: "unsupported_file_type"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, tt.field, tt.fileName, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
			req.Header.Set("Content-Type", contentType)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.wantStatus {
				t.Fatalf("status %d, want %d: %s", resp.Code, tt.wantStatus, resp.Body.String())
			}
			var env struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			_ = json.Unmarshal(resp.Body.Bytes(), &env)
			if env.Error.Code != tt.wantCode {
				t.Fatalf("code %q, want %q", env.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestParseFileHandler(t *testing.T) {
	p := newPipeline(t, nil)
	router := setupDocumentsRouter(t, p.docs)

	body, contentType := multipartBody(t, "file", "profile.txt", []byte("Acme Corp, retail"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	var up UploadResult
	_ = json.Unmarshal(resp.Body.Bytes(), &up)

	payload, _ := json.Marshal(map[string]any{"fileUrl": up.URL, "fileName": "profile.txt"})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/parse-file", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var out ParseResult
	_ = json.Unmarshal(resp.Body.Bytes(), &out)
	if out.Content != "Acme Corp, retail" || out.FileName != "profile.txt" {
		t.Fatalf("unexpected parse result %+v", out)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/parse-file", strings.NewReader(`{}`))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing url, got %d", resp.Code)
	}
}

func TestPresignRequiresAuth(t *testing.T) {
	p := newPipeline(t, nil)
	router := setupDocumentsRouter(t, p.docs)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/presign", strings.NewReader(`{"fileName":"a.pdf"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
