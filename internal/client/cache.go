package client

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"intake-backend/internal/profile"
	"intake-backend/internal/shared/auth"
)

const (
	tokenFile   = "token.json"
	userFile    = "user.json"
	sessionFile = "session.json"
	draftFile   = "questionnaire_draft.json"
)

// ErrNotLoggedIn is returned when no usable credential is cached.
var ErrNotLoggedIn = errors.New("not logged in")

// jsonFile is a single JSON document on disk, written atomically.
type jsonFile struct {
	mu   sync.Mutex
	path string
}

// load reports false when the file does not exist.
func (f *jsonFile) load(dst any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (f *jsonFile) save(value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, f.path)
}

func (f *jsonFile) clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Caches is the client-held state rooted in one directory.
type Caches struct {
	Dir      string
	token    *jsonFile
	User     *UserCache
	Session  *SessionCache
	Draft    *DraftCache
	clearAll sync.Mutex
}

// NewCaches opens caches under dir. fetch loads the current identity when the user cache is cold.
func NewCaches(dir string, fetch func(ctx context.Context) (Me, error)) *Caches {
	return &Caches{
		Dir:     dir,
		token:   &jsonFile{path: filepath.Join(dir, tokenFile)},
		User:    &UserCache{file: &jsonFile{path: filepath.Join(dir, userFile)}, fetch: fetch},
		Session: &SessionCache{file: &jsonFile{path: filepath.Join(dir, sessionFile)}},
		Draft:   &DraftCache{file: &jsonFile{path: filepath.Join(dir, draftFile)}},
	}
}

type storedToken struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"savedAt"`
}

// Token returns the saved bearer token or ErrNotLoggedIn.
func (c *Caches) Token() (string, error) {
	var st storedToken
	ok, err := c.token.load(&st)
	if err != nil {
		return "", err
	}
	if !ok || st.Token == "" {
		return "", ErrNotLoggedIn
	}
	return st.Token, nil
}

func (c *Caches) SaveToken(token string) error {
	return c.token.save(storedToken{Token: token, SavedAt: time.Now().UTC()})
}

// Logout forgets the token, the cached user, the session and any questionnaire draft.
func (c *Caches) Logout() error {
	c.clearAll.Lock()
	defer c.clearAll.Unlock()
	return errors.Join(
		c.token.clear(),
		c.User.Clear(),
		c.Session.Clear(),
		c.Draft.Clear(),
	)
}

// UserCache memoises the identity of the logged-in user.
type UserCache struct {
	file  *jsonFile
	fetch func(ctx context.Context) (Me, error)
}

// Get returns the cached user unless forceRefresh is set or nothing is cached.
// An unauthenticated refresh clears the cache and returns ErrNotLoggedIn.
func (u *UserCache) Get(ctx context.Context, forceRefresh bool) (Me, error) {
	if !forceRefresh {
		var cached Me
		ok, err := u.file.load(&cached)
		if err == nil && ok && cached.ID != "" {
			return cached, nil
		}
	}
	if u.fetch == nil {
		return Me{}, ErrNotLoggedIn
	}
	me, err := u.fetch(ctx)
	if err != nil {
		if IsUnauthenticated(err) || errors.Is(err, ErrNotLoggedIn) {
			_ = u.Clear()
			return Me{}, ErrNotLoggedIn
		}
		return Me{}, err
	}
	if me.CompanyName == "" {
		me.CompanyName = auth.CompanyFromEmail(me.Email)
	}
	if err := u.Set(me); err != nil {
		return Me{}, err
	}
	return me, nil
}

func (u *UserCache) Set(me Me) error { return u.file.save(me) }

func (u *UserCache) Clear() error { return u.file.clear() }

// UploadedFile describes the document behind the current session.
type UploadedFile struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Format string `json:"format,omitempty"`
}

// Session is the client's working copy of the current intake. The server's
// analysis records remain authoritative.
type Session struct {
	UserID            string                    `json:"userId"`
	LastUpdated       time.Time                 `json:"lastUpdated"`
	BusinessProfile   *profile.BusinessProfile  `json:"businessProfile,omitempty"`
	Recommendations   []profile.Recommendation  `json:"recommendations,omitempty"`
	ProjectBlueprint  *profile.ProjectBlueprint `json:"projectBlueprint,omitempty"`
	UploadedFile      *UploadedFile             `json:"uploadedFile,omitempty"`
	PendingAnalysisID string                    `json:"pendingAnalysisId,omitempty"`
	LastAnalysisID    string                    `json:"lastAnalysisId,omitempty"`
}

type SessionCache struct {
	file *jsonFile
	mu   sync.Mutex
	now  func() time.Time
}

// Get reports false when no session exists.
func (s *SessionCache) Get() (Session, bool, error) {
	var sess Session
	ok, err := s.file.load(&sess)
	if err != nil || !ok {
		return Session{}, false, err
	}
	return sess, true, nil
}

func (s *SessionCache) Set(sess Session) error {
	sess.LastUpdated = s.stamp()
	return s.file.save(sess)
}

// Update applies fn to the current session, creating one for userID when none exists.
func (s *SessionCache) Update(userID string, fn func(*Session)) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok, err := s.Get()
	if err != nil {
		return Session{}, err
	}
	if !ok {
		sess = Session{UserID: userID}
	}
	if sess.UserID == "" {
		sess.UserID = userID
	}
	fn(&sess)
	if err := s.Set(sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *SessionCache) Clear() error { return s.file.clear() }

func (s *SessionCache) stamp() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

// Draft is an in-progress questionnaire.
type Draft struct {
	Step      int            `json:"step"`
	Answers   map[string]any `json:"answers"`
	LastSaved time.Time      `json:"lastSaved"`
}

type DraftCache struct {
	file *jsonFile
}

func (d *DraftCache) Get() (Draft, bool, error) {
	var draft Draft
	ok, err := d.file.load(&draft)
	if err != nil || !ok {
		return Draft{}, false, err
	}
	return draft, true, nil
}

func (d *DraftCache) Save(draft Draft) error {
	draft.LastSaved = time.Now().UTC()
	return d.file.save(draft)
}

func (d *DraftCache) Clear() error { return d.file.clear() }
