package retrieval

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"intake-backend/internal/shared/storage/object"
)

var (
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrSignatureExpired = errors.New("signature expired")
)

// PresignSigner signs through a store that can presign GET requests, such as S3.
type PresignSigner struct {
	Store object.Presigner
}

func (s *PresignSigner) SignURL(ctx context.Context, objectID string, ttl time.Duration) (string, error) {
	if s == nil || s.Store == nil {
		return "", errors.New("presign store not configured")
	}
	return s.Store.PresignGet(ctx, objectID, ttl)
}

// LocalSigner issues HMAC-signed links to the API's own file endpoint.
type LocalSigner struct {
	Secret  []byte
	BaseURL string
	Now     func() time.Time
}

func (s *LocalSigner) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *LocalSigner) SignURL(ctx context.Context, objectID string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.Secret) == 0 || s.BaseURL == "" {
		return "", errors.New("local signer not configured")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	expires := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.signature(objectID, expires))
	return fmt.Sprintf("%s/api/v1/files/%s?%s", strings.TrimRight(s.BaseURL, "/"), escapePath(objectID), q.Encode()), nil
}

// Verify checks a signature produced by SignURL.
func (s *LocalSigner) Verify(objectID, expiresRaw, sig string) error {
	expires, err := strconv.ParseInt(expiresRaw, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	if !hmac.Equal([]byte(sig), []byte(s.signature(objectID, expires))) {
		return ErrSignatureInvalid
	}
	if s.now().Unix() > expires {
		return ErrSignatureExpired
	}
	return nil
}

func (s *LocalSigner) signature(objectID string, expires int64) string {
	mac := hmac.New(sha256.New, s.Secret)
	mac.Write([]byte(objectID))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func escapePath(objectID string) string {
	parts := strings.Split(strings.TrimLeft(objectID, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
