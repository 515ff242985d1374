package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clinic-queue/internal/api/dto"
	"github.com/spec-kit/clinic-queue/internal/domain"
	"github.com/spec-kit/clinic-queue/internal/service"
	apperrors "github.com/spec-kit/clinic-queue/pkg/util/errorutil"
)

// StaffHandler manages staff authentication and account endpoints.
type StaffHandler struct {
	service *service.AuthService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService) *StaffHandler {
	return &StaffHandler{service: authService}
}

// Login POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	token, expiresAt, staff, err := h.service.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Staff:       dto.FromStaff(staff),
	}})
}

// CreateStaff POST /auth/staff (admin).
func (h *StaffHandler) CreateStaff(c *fiber.Ctx) error {
	var req dto.CreateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Name) == "" || len(req.Password) < 8 {
		return apperrors.NewValidationError("email, name and password (8+ chars) required", nil)
	}
	role := req.Role
	if role == "" {
		role = domain.StaffRoleStaff
	}
	if role != domain.StaffRoleStaff && role != domain.StaffRoleAdmin {
		return apperrors.NewValidationError("unknown role", nil)
	}

	staff, err := h.service.CreateStaff(c.Context(), req.Name, req.Email, req.Password, role)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromStaff(staff)})
}
