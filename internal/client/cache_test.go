package client

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"intake-backend/internal/profile"
)

func TestUserCacheServesCachedUntilRefresh(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) (Me, error) {
		calls++
		return Me{ID: "u1", Email: "ops@harbor.example"}, nil
	}
	caches := NewCaches(t.TempDir(), fetch)
	ctx := context.Background()

	me, err := caches.User.Get(ctx, false)
	require.NoError(t, err)
	require.Equal(t, "ops", me.CompanyName)
	_, err = caches.User.Get(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	_, err = caches.User.Get(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestUserCacheClearsOnUnauthenticatedRefresh(t *testing.T) {
	fail := false
	fetch := func(ctx context.Context) (Me, error) {
		if fail {
			return Me{}, &APIError{Status: http.StatusUnauthorized, Code: "unauthenticated"}
		}
		return Me{ID: "u1", Email: "a@b.c"}, nil
	}
	caches := NewCaches(t.TempDir(), fetch)
	ctx := context.Background()
	_, err := caches.User.Get(ctx, false)
	require.NoError(t, err)

	fail = true
	_, err = caches.User.Get(ctx, true)
	require.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = caches.User.Get(ctx, false)
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestUserCacheSurfacesTransportErrors(t *testing.T) {
	boom := errors.New("connection refused")
	caches := NewCaches(t.TempDir(), func(ctx context.Context) (Me, error) { return Me{}, boom })
	_, err := caches.User.Get(context.Background(), false)
	require.ErrorIs(t, err, boom)
}

func TestSessionLifecycle(t *testing.T) {
	caches := NewCaches(t.TempDir(), nil)
	now := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)
	caches.Session.now = func() time.Time { return now }

	_, ok, err := caches.Session.Get()
	require.NoError(t, err)
	require.False(t, ok)

	sess, err := caches.Session.Update("u1", func(s *Session) {
		s.UploadedFile = &UploadedFile{Name: "profile.pdf", URL: "http://store/upload/v1/x.pdf"}
		s.PendingAnalysisID = "p-1"
	})
	require.NoError(t, err)
	require.Equal(t, "u1", sess.UserID)
	require.Equal(t, now, sess.LastUpdated)

	_, err = caches.Session.Update("u1", func(s *Session) {
		s.BusinessProfile = &profile.BusinessProfile{BusinessName: "Harbor"}
		s.Recommendations = []profile.Recommendation{{ID: "r1", Title: "Backups"}}
	})
	require.NoError(t, err)

	got, ok, err := caches.Session.Get()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "p-1", got.PendingAnalysisID)
	require.Equal(t, "Harbor", got.BusinessProfile.BusinessName)
	require.Len(t, got.Recommendations, 1)
}

func TestLogoutClearsEverything(t *testing.T) {
	caches := NewCaches(t.TempDir(), nil)
	require.NoError(t, caches.SaveToken("tok"))
	require.NoError(t, caches.User.Set(Me{ID: "u1"}))
	require.NoError(t, caches.Session.Set(Session{UserID: "u1"}))
	require.NoError(t, caches.Draft.Save(Draft{Step: 3, Answers: map[string]any{"industry": "Retail"}}))

	draft, ok, err := caches.Draft.Get()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, draft.Step)
	require.False(t, draft.LastSaved.IsZero())

	require.NoError(t, caches.Logout())

	_, err = caches.Token()
	require.ErrorIs(t, err, ErrNotLoggedIn)
	_, ok, _ = caches.Session.Get()
	require.False(t, ok)
	_, ok, _ = caches.Draft.Get()
	require.False(t, ok)
	_, err = caches.User.Get(context.Background(), false)
	require.ErrorIs(t, err, ErrNotLoggedIn)

	require.NoError(t, caches.Logout())
}
