package users

import (
	"context"
	"errors"
	"strings"

	"intake-backend/internal/shared/auth"
)

var errNotConfigured = errors.New("users service not configured")

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// UpsertFromAuth records the identity a login produced so analysis ownership stays stable.
func (s *Service) UpsertFromAuth(ctx context.Context, user User) error {
	if s == nil || s.Repo == nil {
		return errNotConfigured
	}
	user.ID = strings.TrimSpace(user.ID)
	user.Email = strings.TrimSpace(user.Email)
	if user.ID == "" || user.Email == "" {
		return errors.New("user id and email are required")
	}
	user.CompanyName = strings.TrimSpace(user.CompanyName)
	return s.Repo.Upsert(ctx, user)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errNotConfigured
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

// LookupIdentity satisfies auth.UserLookup.
func (s *Service) LookupIdentity(ctx context.Context, userID string) (auth.Identity, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return auth.Identity{}, auth.ErrUnknownUser
		}
		return auth.Identity{}, err
	}
	return user.Identity(), nil
}

// Identity projects the stored user onto the verified-caller shape.
func (u User) Identity() auth.Identity {
	company := u.CompanyName
	if company == "" {
		company = auth.CompanyFromEmail(u.Email)
	}
	return auth.Identity{
		ID:          u.ID,
		Email:       u.Email,
		CompanyName: company,
		CreatedAt:   u.CreatedAt,
	}
}
