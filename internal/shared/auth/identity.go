package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrUnauthenticated is returned when a credential cannot be turned into an identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrUnknownUser is returned by a UserLookup that has no row for the id.
var ErrUnknownUser = errors.New("unknown user")

// Identity is the verified caller.
type Identity struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	CompanyName string    `json:"companyName"`
	CreatedAt   time.Time `json:"createdAt"`
	// ExpiresAt is the credential's expiry, zero when it has none.
	ExpiresAt time.Time `json:"-"`
}

// Verifier turns a bearer credential into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// UserLookup loads the stored identity for a user id.
type UserLookup interface {
	LookupIdentity(ctx context.Context, userID string) (Identity, error)
}

// JWTVerifier validates signed tokens and enriches them from the user store when one is set.
type JWTVerifier struct {
	Tokens *Tokens
	Users  UserLookup
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	claims, err := v.Tokens.Verify(token)
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}
	ident := identityFromClaims(claims)
	if v.Users == nil {
		return ident, nil
	}
	stored, err := v.Users.LookupIdentity(ctx, claims.Sub)
	switch {
	case err == nil:
		return mergeIdentity(stored, ident), nil
	case errors.Is(err, ErrUnknownUser):
		return ident, nil
	default:
		return Identity{}, err
	}
}

func identityFromClaims(claims Claims) Identity {
	ident := Identity{
		ID:          claims.Sub,
		Email:       claims.Email,
		CompanyName: claims.CompanyName,
	}
	if ident.CompanyName == "" {
		ident.CompanyName = CompanyFromEmail(claims.Email)
	}
	if claims.Iat > 0 {
		ident.CreatedAt = time.Unix(claims.Iat, 0).UTC()
	}
	if claims.Exp > 0 {
		ident.ExpiresAt = time.Unix(claims.Exp, 0).UTC()
	}
	return ident
}

func mergeIdentity(stored, fromToken Identity) Identity {
	if stored.ID == "" {
		stored.ID = fromToken.ID
	}
	if stored.Email == "" {
		stored.Email = fromToken.Email
	}
	if stored.CompanyName == "" {
		stored.CompanyName = fromToken.CompanyName
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = fromToken.CreatedAt
	}
	stored.ExpiresAt = fromToken.ExpiresAt
	return stored
}

// CompanyFromEmail returns the local part of email, used when no company name was recorded.
func CompanyFromEmail(email string) string {
	local, _, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok {
		return ""
	}
	return local
}

// CachedVerifier memoises successful verifications per token. An entry is
// never served past the credential's own expiry.
type CachedVerifier struct {
	Next  Verifier
	cache *expirable.LRU[string, Identity]
	now   func() time.Time
}

// NewCachedVerifier wraps next with an LRU of size entries expiring after ttl.
func NewCachedVerifier(next Verifier, size int, ttl time.Duration) *CachedVerifier {
	if size <= 0 {
		size = 1024
	}
	return &CachedVerifier{
		Next:  next,
		cache: expirable.NewLRU[string, Identity](size, nil, ttl),
		now:   time.Now,
	}
}

func (v *CachedVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if ident, ok := v.cache.Get(token); ok {
		if ident.ExpiresAt.IsZero() || !v.now().After(ident.ExpiresAt) {
			return ident, nil
		}
		v.cache.Remove(token)
	}
	ident, err := v.Next.Verify(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	v.cache.Add(token, ident)
	return ident, nil
}

// Forget drops token from the cache.
func (v *CachedVerifier) Forget(token string) {
	v.cache.Remove(token)
}
