package service

import (
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/brightloom/billing_api/internal/models"
	"github.com/brightloom/billing_api/internal/repository"
	"github.com/brightloom/billing_api/internal/utils"
)

// AdminAuthService authenticates operator accounts and issues admin tokens.
type AdminAuthService struct {
	adminRepo *repository.AdminUserRepository
}

// NewAdminAuthService constructs an AdminAuthService.
func NewAdminAuthService(adminRepo *repository.AdminUserRepository) *AdminAuthService {
	return &AdminAuthService{adminRepo: adminRepo}
}

// Login verifies credentials and returns a signed JWT on success.
func (s *AdminAuthService) Login(email, password string) (string, error) {
	user, err := s.adminRepo.GetByEmail(email)
	if err != nil {
		log.Warn().Str("email", email).Msg("login attempt for unknown admin")
		return "", errors.New("invalid credentials")
	}

	if !user.IsActive {
		log.Warn().Str("email", email).Msg("login attempt for inactive admin")
		return "", errors.New("account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", errors.New("invalid credentials")
	}

	token, err := utils.GenerateJWT(user.ID, user.Email)
	if err != nil {
		return "", err
	}

	log.Info().Str("email", email).Msg("admin login successful")
	return token, nil
}

// EnsureAdmin creates an operator account if none exists for the email.
// Used to bootstrap the first admin from the environment on startup.
func (s *AdminAuthService) EnsureAdmin(email, password, name string) error {
	if _, err := s.adminRepo.GetByEmail(email); err == nil {
		return nil
	}
	log.Info().Str("email", email).Msg("bootstrapping admin account")
	return s.CreateAdmin(email, password, name)
}

// CreateAdmin registers a new operator account with a bcrypt-hashed password.
func (s *AdminAuthService) CreateAdmin(email, password, name string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.AdminUser{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         name,
		IsActive:     true,
	}

	return s.adminRepo.Create(user)
}
