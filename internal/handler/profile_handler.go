package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/brightloom/billing_api/internal/service"
	"github.com/brightloom/billing_api/internal/utils"
)

// ProfileHandler exposes profile onboarding to the admin panel.
type ProfileHandler struct {
	profileService *service.ProfileService
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// CreateProfile registers a new business profile. The generated API key is
// included in this response only.
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email"`
		CompanyName string `json:"companyName" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "email and companyName are required")
		return
	}

	profile, err := h.profileService.CreateProfile(req.Email, req.CompanyName)
	if err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("profile creation failed")
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to create profile")
		return
	}

	utils.Success(c, 201, "Profile created successfully", gin.H{
		"profile": profile,
		"apiKey":  profile.APIKey,
	})
}

// ListProfiles returns all registered profiles.
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	profiles, err := h.profileService.ListProfiles()
	if err != nil {
		log.Error().Err(err).Msg("profile listing failed")
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to list profiles")
		return
	}

	utils.Success(c, 200, "Profiles retrieved successfully", gin.H{
		"profiles": profiles,
	})
}
