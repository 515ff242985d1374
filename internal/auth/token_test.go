package auth

import (
	"testing"

	"github.com/spec-kit/clinic-queue/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)

	token, expiresAt, err := tm.GenerateToken("staff-1", domain.StaffRoleAdmin)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if expiresAt.IsZero() {
		t.Error("expiry not set")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.StaffID != "staff-1" || claims.Role != domain.StaffRoleAdmin {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 5).GenerateToken("staff-1", domain.StaffRoleStaff)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewTokenManager("secret-b", 5).ParseToken(token); err == nil {
		t.Fatal("token signed with another secret must not parse")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	if _, err := NewTokenManager("secret", 5).ParseToken("not-a-token"); err == nil {
		t.Fatal("garbage token must not parse")
	}
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := HashPassword("hunter2-long", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hashed, "hunter2-long"); err != nil {
		t.Errorf("matching password rejected: %v", err)
	}
	if err := ComparePassword(hashed, "wrong"); err == nil {
		t.Error("wrong password accepted")
	}
}
