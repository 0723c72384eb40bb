package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/models"
	"github.com/slotbook/booking-engine/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// BusinessUserStore reads business logins
type BusinessUserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.BusinessUser, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
}

// AuthService handles business user authentication
type AuthService struct {
	users      BusinessUserStore
	jwtService *jwt.Service
	logger     *logrus.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users BusinessUserStore, jwtService *jwt.Service, logger *logrus.Logger) *AuthService {
	return &AuthService{
		users:      users,
		jwtService: jwtService,
		logger:     logger,
	}
}

// Login authenticates a business user and returns an access token scoped to
// the user's tenant
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get business user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.TenantID, user.Email, []string{jwt.RoleBusiness})
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	// Log error but don't fail the login
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last login")
	}

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtService.AccessTokenExpiry().Seconds()),
		User:        user,
	}, nil
}
