// Package retrieval turns stored public URLs into time-limited fetchable URLs.
package retrieval

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"intake-backend/internal/shared/metrics"
	"intake-backend/internal/shared/telemetry"
)

// DefaultMarker separates the storage base path from the versioned object path.
const DefaultMarker = "/upload/"

var versionTag = regexp.MustCompile(`^v\d+/`)

// Signer issues a signed GET URL for an object identifier.
type Signer interface {
	SignURL(ctx context.Context, objectID string, ttl time.Duration) (string, error)
}

// Resolver recognises URLs issued by the configured storage and signs them.
type Resolver struct {
	BaseURL string
	Marker  string
	TTL     time.Duration
	Signer  Signer
}

// NewResolver builds a Resolver for stored URLs under baseURL.
func NewResolver(baseURL string, signer Signer, ttl time.Duration) *Resolver {
	return &Resolver{BaseURL: baseURL, Marker: DefaultMarker, TTL: ttl, Signer: signer}
}

// Resolve returns a signed URL for storedURL, or storedURL unchanged when it
// does not belong to the storage provider or cannot be signed.
func (r *Resolver) Resolve(ctx context.Context, storedURL string) string {
	if r == nil || r.Signer == nil {
		return storedURL
	}
	if !r.owns(storedURL) {
		return storedURL
	}
	objectID, ok := r.ObjectID(storedURL)
	if !ok {
		r.fallback(storedURL, errors.New("no object id after upload marker"))
		return storedURL
	}
	signed, err := r.Signer.SignURL(ctx, objectID, r.TTL)
	if err != nil || signed == "" {
		if err == nil {
			err = errors.New("signer returned empty url")
		}
		r.fallback(storedURL, err)
		return storedURL
	}
	return signed
}

// ObjectID extracts the object identifier, extension included, from storedURL.
func (r *Resolver) ObjectID(storedURL string) (string, bool) {
	marker := r.Marker
	if marker == "" {
		marker = DefaultMarker
	}
	u, err := url.Parse(storedURL)
	if err != nil {
		return "", false
	}
	_, rest, found := strings.Cut(u.Path, marker)
	if !found {
		return "", false
	}
	rest = versionTag.ReplaceAllString(rest, "")
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", false
	}
	return rest, true
}

func (r *Resolver) owns(storedURL string) bool {
	base, err := url.Parse(r.BaseURL)
	if err != nil || base.Host == "" {
		return false
	}
	u, err := url.Parse(storedURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, base.Host)
}

func (r *Resolver) fallback(storedURL string, err error) {
	metrics.IncSignFallback()
	telemetry.Warn("retrieval.sign_fallback", map[string]any{
		"url":   redact(storedURL),
		"error": err,
	})
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.RawQuery = ""
	return u.String()
}

// PublicURL builds the stored URL for objectID as issued at version.
func PublicURL(baseURL, objectID string, version int64) string {
	return strings.TrimRight(baseURL, "/") + DefaultMarker + "v" + strconv.FormatInt(version, 10) + "/" + strings.TrimLeft(objectID, "/")
}
