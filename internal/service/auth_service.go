package service

import (
	"database/sql"
	"errors"

	"github.com/brightloom/billing_api/internal/models"
	"github.com/brightloom/billing_api/internal/repository"
	"github.com/brightloom/billing_api/internal/utils"
)

// AuthService authenticates client API keys against the profile store.
type AuthService struct {
	profileRepo *repository.ProfileRepository
}

// NewAuthService constructs a new AuthService.
func NewAuthService(profileRepo *repository.ProfileRepository) *AuthService {
	return &AuthService{profileRepo: profileRepo}
}

// ValidateAPIKey verifies the provided token and returns the owning profile.
func (s *AuthService) ValidateAPIKey(token string) (*models.Profile, error) {
	if token == "" {
		return nil, utils.ErrInvalidToken
	}
	profile, err := s.profileRepo.GetByAPIKey(token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrInvalidToken
		}
		return nil, err
	}
	return profile, nil
}
