package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	sharedauth "intake-backend/internal/shared/auth"
	"intake-backend/internal/users"
)

func newTestService(t *testing.T, store UserStore) (*GoogleService, *sharedauth.Tokens) {
	t.Helper()
	tokens, err := sharedauth.NewTokens("dev", "test-secret")
	require.NoError(t, err)
	svc := NewGoogleService("client", "secret", "http://api.local/callback", "http://ui.local/auth", tokens, store)
	return svc, tokens
}

func newRouter(svc *GoogleService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	svc.RegisterRoutes(api)
	svc.RegisterDevRoutes(api)
	return r
}

func TestStateStoreConsumesOnceAndExpires(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	store := newStateStore()
	store.now = func() time.Time { return now }

	store.put("a", now.Add(time.Minute))
	require.True(t, store.consume("a"))
	require.False(t, store.consume("a"))

	store.put("b", now.Add(time.Minute))
	now = now.Add(2 * time.Minute)
	require.False(t, store.consume("b"))
}

func TestAppendToken(t *testing.T) {
	got, err := appendToken("http://ui.local/auth?next=%2Fhistory", "tok")
	require.NoError(t, err)
	u, err := url.Parse(got)
	require.NoError(t, err)
	require.Equal(t, "tok", u.Query().Get("token"))
	require.Equal(t, "/history", u.Query().Get("next"))

	_, err = appendToken("", "tok")
	require.Error(t, err)
}

func TestStartRequiresConfiguration(t *testing.T) {
	tokens, err := sharedauth.NewTokens("dev", "")
	require.NoError(t, err)
	svc := NewGoogleService("", "", "", "", tokens, nil)
	resp := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	require.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	svc, _ := newTestService(t, nil)
	resp := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state=nope&code=c", nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCallbackUpsertsUserAndRedirectsWithToken(t *testing.T) {
	provider := http.NewServeMux()
	provider.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	})
	provider.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"42","email":"owner@harbor.example","name":"Owner","picture":"https://img/p.png"}`))
	})
	srv := httptest.NewServer(provider)
	defer srv.Close()

	prev := userInfoURL
	userInfoURL = srv.URL + "/userinfo"
	t.Cleanup(func() { userInfoURL = prev })

	userSvc := users.NewService(users.NewMemoryRepo())
	svc, tokens := newTestService(t, userSvc)
	svc.oauthConfig.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	svc.stateStore.put("st", time.Now().Add(time.Minute))

	resp := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state=st&code=abc", nil))
	require.Equal(t, http.StatusFound, resp.Code, resp.Body.String())

	loc, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "ui.local", loc.Host)
	claims, err := tokens.Verify(loc.Query().Get("token"))
	require.NoError(t, err)
	require.Equal(t, "google:42", claims.Sub)
	require.Equal(t, "owner", claims.CompanyName)

	stored, err := userSvc.GetByID(context.Background(), "google:42")
	require.NoError(t, err)
	require.Equal(t, "Owner", stored.FullName)
}

func TestDevLoginMintsTokenWithCompany(t *testing.T) {
	userSvc := users.NewService(users.NewMemoryRepo())
	svc, tokens := newTestService(t, userSvc)
	body, _ := json.Marshal(map[string]string{"email": " Dev@Acme.io ", "companyName": "Acme"})

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/dev/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newRouter(svc).ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.Equal(t, "dev:dev@acme.io", out.UserID)
	claims, err := tokens.Verify(out.Token)
	require.NoError(t, err)
	require.Equal(t, "Acme", claims.CompanyName)
}

func TestDevLoginRequiresEmail(t *testing.T) {
	svc, _ := newTestService(t, nil)
	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/dev/login", bytes.NewReader([]byte(`{"email":""}`)))
	req.Header.Set("Content-Type", "application/json")
	newRouter(svc).ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}
