package service

import (
	"github.com/brightloom/billing_api/internal/models"
	"github.com/brightloom/billing_api/internal/repository"
	"github.com/brightloom/billing_api/internal/utils"
)

// ProfileService manages business profile onboarding for the admin panel.
type ProfileService struct {
	profileRepo *repository.ProfileRepository
}

// NewProfileService constructs a ProfileService.
func NewProfileService(profileRepo *repository.ProfileRepository) *ProfileService {
	return &ProfileService{profileRepo: profileRepo}
}

// CreateProfile registers a new business profile with a freshly generated
// API key. The key is returned once, on creation.
func (s *ProfileService) CreateProfile(email, companyName string) (*models.Profile, error) {
	apiKey, err := utils.GenerateLiveKey()
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{
		Email:              email,
		CompanyName:        companyName,
		APIKey:             apiKey,
		SubscriptionStatus: "none",
		IsActive:           true,
	}
	if err := s.profileRepo.Create(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// ListProfiles returns all registered profiles.
func (s *ProfileService) ListProfiles() ([]models.Profile, error) {
	return s.profileRepo.List()
}
