package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Claims represents the identity contained in a bearer token.
type Claims struct {
	Sub         string `json:"sub"`
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
	Exp         int64  `json:"exp,omitempty"`
	Iat         int64  `json:"iat,omitempty"`
}

const defaultTokenTTL = 24 * time.Hour

var (
	errMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Tokens signs and verifies HS256 tokens.
type Tokens struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

// NewTokens resolves the signing secret for env. Production requires an explicit secret.
func NewTokens(env, secret string) (*Tokens, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		if env == "production" {
			return nil, fmt.Errorf("%w: JWT_SECRET required in production", errMissingSecret)
		}
		secret = "dev-secret"
	}
	return &Tokens{Secret: []byte(secret), TTL: defaultTokenTTL}, nil
}

func (t *Tokens) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}

// Sign signs the given claims, filling iat and exp when unset.
func (t *Tokens) Sign(claims Claims) (string, error) {
	if t == nil || len(t.Secret) == 0 {
		return "", errMissingSecret
	}
	if claims.Sub == "" {
		return "", errors.New("sub is required")
	}

	now := t.now().Unix()
	if claims.Iat == 0 {
		claims.Iat = now
	}
	if claims.Exp == 0 {
		ttl := t.TTL
		if ttl <= 0 {
			ttl = defaultTokenTTL
		}
		claims.Exp = now + int64(ttl/time.Second)
	}

	headerJSON, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	segments := []string{
		base64.RawURLEncoding.EncodeToString(headerJSON),
		base64.RawURLEncoding.EncodeToString(payloadJSON),
	}
	signingInput := strings.Join(segments, ".")
	segments = append(segments, sign(signingInput, t.Secret))
	return strings.Join(segments, "."), nil
}

// Verify checks the signature and expiry of token and returns its claims.
func (t *Tokens) Verify(token string) (Claims, error) {
	if t == nil || len(t.Secret) == 0 {
		return Claims{}, errMissingSecret
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, ErrInvalidToken
	}

	signingInput := strings.Join(parts[0:2], ".")
	if !hmac.Equal([]byte(parts[2]), []byte(sign(signingInput, t.Secret))) {
		return Claims{}, ErrInvalidToken
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if claims.Sub == "" {
		return Claims{}, ErrInvalidToken
	}
	if claims.Exp > 0 && t.now().Unix() > claims.Exp {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func sign(input string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(input))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
