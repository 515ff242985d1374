package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/clinic-queue/internal/config"
	"github.com/spec-kit/clinic-queue/internal/domain"
	"github.com/spec-kit/clinic-queue/internal/repository"
)

func newTestAuthService(t *testing.T) (*AuthService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	cfg := config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4, // keep the hashing cheap for tests
		DefaultAdminEmail:     "admin@clinic.local",
		DefaultAdminPassword:  "admin-password",
	}
	return NewAuthService(cfg, store.Staff(), zap.NewNop()), store
}

func TestLoginRoundTrip(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	staff, err := svc.CreateStaff(ctx, "Nora", "Nora@Clinic.Local", "s3cret-pass", domain.StaffRoleStaff)
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}

	token, expiresAt, got, err := svc.Login(ctx, "nora@clinic.local", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" || expiresAt.IsZero() {
		t.Error("token not issued")
	}
	if got.ID != staff.ID {
		t.Errorf("logged in as %s, want %s", got.ID, staff.ID)
	}

	claims, err := svc.TokenManager().ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.StaffID != staff.ID || claims.Role != domain.StaffRoleStaff {
		t.Errorf("claims = %+v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.CreateStaff(ctx, "Nora", "nora@clinic.local", "s3cret-pass", domain.StaffRoleStaff); err != nil {
		t.Fatalf("create staff: %v", err)
	}

	if _, _, _, err := svc.Login(ctx, "nora@clinic.local", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v", err)
	}
	if _, _, _, err := svc.Login(ctx, "nobody@clinic.local", "s3cret-pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("unknown email: err = %v", err)
	}
}

func TestEnsureDefaultAdmin(t *testing.T) {
	svc, store := newTestAuthService(t)
	ctx := context.Background()

	if err := svc.EnsureDefaultAdmin(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	admin, err := store.Staff().GetByEmail(ctx, "admin@clinic.local")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if admin.Role != domain.StaffRoleAdmin {
		t.Errorf("role = %s", admin.Role)
	}

	// Idempotent; existing accounts suppress the seed.
	if err := svc.EnsureDefaultAdmin(ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	count, _ := store.Staff().Count(ctx)
	if count != 1 {
		t.Errorf("staff count = %d, want 1", count)
	}
}
