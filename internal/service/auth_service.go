package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/clinic-queue/internal/auth"
	"github.com/spec-kit/clinic-queue/internal/config"
	"github.com/spec-kit/clinic-queue/internal/domain"
	"github.com/spec-kit/clinic-queue/internal/repository"
)

// AuthService authenticates staff members and manages their accounts.
type AuthService struct {
	staff  repository.StaffRepository
	tokens *auth.TokenManager
	cfg    config.AuthConfig
	logger *zap.Logger
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig, staff repository.StaffRepository, logger *zap.Logger) *AuthService {
	return &AuthService{
		staff:  staff,
		tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		cfg:    cfg,
		logger: logger,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// Login verifies credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, time.Time, *domain.StaffMember, error) {
	staff, err := s.staff.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrStaffNotFound) {
			return "", time.Time{}, nil, domain.ErrInvalidCredentials
		}
		return "", time.Time{}, nil, err
	}
	if !staff.Active {
		return "", time.Time{}, nil, domain.ErrInvalidCredentials
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return "", time.Time{}, nil, domain.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.GenerateToken(staff.ID, staff.Role)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return token, expiresAt, staff, nil
}

// CreateStaff registers a new staff member with a hashed password.
func (s *AuthService) CreateStaff(ctx context.Context, name, email, password string, role domain.StaffRole) (*domain.StaffMember, error) {
	hashed, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	staff := &domain.StaffMember{
		Name:         strings.TrimSpace(name),
		Email:        strings.TrimSpace(email),
		PasswordHash: hashed,
		Role:         role,
		Active:       true,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return nil, err
	}
	return staff, nil
}

// EnsureDefaultAdmin seeds the configured admin account when no staff
// exist yet, so a fresh deployment can log in.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context) error {
	if s.cfg.DefaultAdminEmail == "" || s.cfg.DefaultAdminPassword == "" {
		return nil
	}
	count, err := s.staff.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = s.CreateStaff(ctx, "Administrator", s.cfg.DefaultAdminEmail, s.cfg.DefaultAdminPassword, domain.StaffRoleAdmin)
	if err != nil {
		return err
	}
	s.logger.Info("seeded default admin account", zap.String("email", s.cfg.DefaultAdminEmail))
	return nil
}
