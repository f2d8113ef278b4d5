package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"intake-backend/internal/client"
)

// fakeAPI serves the endpoints the upload, analyze and history commands call
// and records the link fields each analyze request carried.
type fakeAPI struct {
	mu        sync.Mutex
	pending   []any
	pdfURLs   []any
	analyzeN  int
	parseSeen []bool
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"dev:a@acme.io","email":"a@acme.io","companyName":"Acme"}`))
	})
	mux.HandleFunc("/api/v1/uploads", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"url":"http://files.local/profile.txt","objectId":"o-1","fileName":"profile.txt","format":"txt","mimeType":"text/plain"}`))
	})
	mux.HandleFunc("/api/v1/parse-file", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		save, _ := body["savePending"].(bool)
		f.mu.Lock()
		f.parseSeen = append(f.parseSeen, save)
		f.mu.Unlock()
		if save {
			_, _ = w.Write([]byte(`{"content":"Harbor Logistics","fileName":"profile.txt","analysisId":"pending-1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"content":"Harbor Logistics","fileName":"profile.txt"}`))
	})
	mux.HandleFunc("/api/v1/analyze", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.pending = append(f.pending, body["pendingAnalysisId"])
		f.pdfURLs = append(f.pdfURLs, body["businessProfilePdfUrl"])
		f.analyzeN++
		id := fmt.Sprintf("rec-%d", f.analyzeN)
		if p, ok := body["pendingAnalysisId"].(string); ok {
			id = p
		}
		f.mu.Unlock()
		_, _ = fmt.Fprintf(w, `{"recommendations":[{"id":"r1","title":"CRM rollout","category":"crm","priority":"high"}],"analysisId":%q}`, id)
	})
	mux.HandleFunc("/api/v1/analyses", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":"rec-2","companyName":"Quay Freight","status":"completed","createdAt":"2026-10-02T09:00:00Z"},
			{"id":"rec-1","companyName":"Harbor Logistics","status":"failed","createdAt":"2026-10-01T09:00:00Z","errorMessage":"analyzer unavailable"}
		]`))
	})
	mux.HandleFunc("/api/v1/analyses/rec-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"rec-1","userId":"dev:a@acme.io","companyName":"Harbor Logistics","status":"completed","recommendations":[]}`))
	})
	return mux
}

func (f *fakeAPI) sent() (pending, pdfURLs []any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.pending...), append([]any(nil), f.pdfURLs...)
}

func loggedIn(t *testing.T) (*fakeAPI, string, string) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	dir := t.TempDir()
	require.NoError(t, execute(t, "--api", srv.URL, "--cache-dir", dir, "login", "--token", "good"))
	return api, srv.URL, dir
}

func writeProfile(t *testing.T, dir, name, business string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`{"businessName":%q,"industry":"Logistics"}`, business)), 0o600))
	return path
}

func TestUploadThenAnalyzeConsumesPendingID(t *testing.T) {
	api, url, dir := loggedIn(t)
	doc := filepath.Join(dir, "profile.txt")
	require.NoError(t, os.WriteFile(doc, []byte("Harbor Logistics, 40 staff."), 0o600))

	require.NoError(t, execute(t, "--api", url, "--cache-dir", dir, "upload", "--save-pending", doc))
	sess, ok, err := client.NewCaches(dir, nil).Session.Get()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "pending-1", sess.PendingAnalysisID)
	require.NotNil(t, sess.UploadedFile)

	p := writeProfile(t, dir, "p.json", "Harbor Logistics")
	require.NoError(t, execute(t, "--api", url, "--cache-dir", dir, "analyze", "--profile", p))
	require.NoError(t, execute(t, "--api", url, "--cache-dir", dir, "analyze", "--profile", p))

	pending, pdfURLs := api.sent()
	require.Equal(t, []any{"pending-1", nil}, pending)
	require.Equal(t, []any{"http://files.local/profile.txt", nil}, pdfURLs)

	sess, ok, err = client.NewCaches(dir, nil).Session.Get()
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, sess.PendingAnalysisID)
	require.Nil(t, sess.UploadedFile)
	require.Equal(t, "rec-2", sess.LastAnalysisID)
	require.Equal(t, "Harbor Logistics", sess.BusinessProfile.BusinessName)
}

func TestManualAnalysesInsertNewRecords(t *testing.T) {
	api, url, dir := loggedIn(t)
	p := writeProfile(t, dir, "p.json", "Harbor Logistics")
	q := writeProfile(t, dir, "q.json", "Quay Freight")

	require.NoError(t, execute(t, "--api", url, "--cache-dir", dir, "analyze", "--profile", p))
	require.NoError(t, execute(t, "--api", url, "--cache-dir", dir, "analyze", "--profile", q))

	pending, _ := api.sent()
	require.Equal(t, []any{nil, nil}, pending)

	sess, _, err := client.NewCaches(dir, nil).Session.Get()
	require.NoError(t, err)
	require.Equal(t, "rec-2", sess.LastAnalysisID)
	require.Equal(t, "Quay Freight", sess.BusinessProfile.BusinessName)
}

func TestExplicitPendingFlagWins(t *testing.T) {
	api, url, dir := loggedIn(t)
	p := writeProfile(t, dir, "p.json", "Harbor Logistics")

	require.NoError(t, execute(t, "--api", url, "--cache-dir", dir, "analyze", "--profile", p, "--pending", "pending-9"))
	require.NoError(t, execute(t, "--api", url, "--cache-dir", dir, "analyze", "--profile", p))

	pending, _ := api.sent()
	require.Equal(t, []any{"pending-9", nil}, pending)
}

func TestUploadWithoutSavePendingKeepsFileOnly(t *testing.T) {
	api, url, dir := loggedIn(t)
	doc := filepath.Join(dir, "profile.txt")
	require.NoError(t, os.WriteFile(doc, []byte("Harbor Logistics"), 0o600))

	require.NoError(t, execute(t, "--api", url, "--cache-dir", dir, "upload", doc))
	p := writeProfile(t, dir, "p.json", "Harbor Logistics")
	require.NoError(t, execute(t, "--api", url, "--cache-dir", dir, "analyze", "--profile", p))

	pending, pdfURLs := api.sent()
	require.Equal(t, []any{nil}, pending)
	require.Equal(t, []any{"http://files.local/profile.txt"}, pdfURLs)
	require.Equal(t, []bool{false}, api.parseSeen)
}

func TestHistoryListAndShow(t *testing.T) {
	_, url, dir := loggedIn(t)
	require.NoError(t, execute(t, "--api", url, "--cache-dir", dir, "history"))
	require.NoError(t, execute(t, "--api", url, "--cache-dir", dir, "history", "rec-1"))
	require.Error(t, execute(t, "--api", url, "--cache-dir", dir, "history", "missing"))
}

func TestHistoryRequiresLogin(t *testing.T) {
	err := execute(t, "--api", "http://127.0.0.1:0", "--cache-dir", t.TempDir(), "history")
	require.ErrorIs(t, err, client.ErrNotLoggedIn)
}
