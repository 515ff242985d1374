package dto

import (
	"time"

	"github.com/spec-kit/clinic-queue/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	ExpiresAt   time.Time     `json:"expires_at"`
	Staff       StaffResponse `json:"staff"`
}

// CreateStaffRequest registers a staff account.
type CreateStaffRequest struct {
	Email    string           `json:"email"`
	Name     string           `json:"name"`
	Password string           `json:"password"`
	Role     domain.StaffRole `json:"role"`
}

// StaffResponse is the wire form of a staff member.
type StaffResponse struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	Role      domain.StaffRole `json:"role"`
	CreatedAt time.Time        `json:"created_at"`
}

// FromStaff converts the domain record.
func FromStaff(member *domain.StaffMember) StaffResponse {
	return StaffResponse{
		ID:        member.ID,
		Email:     member.Email,
		Name:      member.Name,
		Role:      member.Role,
		CreatedAt: member.CreatedAt,
	}
}
