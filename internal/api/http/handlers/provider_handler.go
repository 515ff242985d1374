package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/clinic-queue/internal/api/dto"
	"github.com/spec-kit/clinic-queue/internal/domain"
	"github.com/spec-kit/clinic-queue/internal/service"
	apperrors "github.com/spec-kit/clinic-queue/pkg/util/errorutil"
)

// ProviderHandler manages provider onboarding, settings and schedules.
type ProviderHandler struct {
	service *service.ScheduleService
}

// NewProviderHandler constructs handler.
func NewProviderHandler(scheduleService *service.ScheduleService) *ProviderHandler {
	return &ProviderHandler{service: scheduleService}
}

// Onboard POST /providers (admin).
func (h *ProviderHandler) Onboard(c *fiber.Ctx) error {
	var req dto.OnboardProviderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		return apperrors.NewValidationError("display_name required", nil)
	}
	if req.DailyPatientLimit < 0 || req.EstimatedServiceMinutes < 0 || req.CallTimeoutMinutes < 0 {
		return apperrors.NewValidationError("limits must not be negative", nil)
	}

	providerID := strings.TrimSpace(req.ProviderID)
	if providerID == "" {
		providerID = uuid.NewString()
	}

	status := &domain.ProviderStatus{
		ProviderID:              providerID,
		DisplayName:             req.DisplayName,
		DailyPatientLimit:       req.DailyPatientLimit,
		EstimatedServiceMinutes: req.EstimatedServiceMinutes,
		CallTimeoutMinutes:      req.CallTimeoutMinutes,
		OpeningHour:             req.OpeningHour,
		ClosingHour:             req.ClosingHour,
		Timezone:                req.Timezone,
		UpdatedAt:               time.Now(),
	}
	if err := h.service.OnboardProvider(c.Context(), status); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromProviderStatus(status)})
}

// List GET /providers.
func (h *ProviderHandler) List(c *fiber.Ctx) error {
	providers, err := h.service.Providers(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.ProviderStatusResponse, 0, len(providers))
	for i := range providers {
		items = append(items, dto.FromProviderStatus(&providers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateStatus PUT /providers/:id/status (staff).
func (h *ProviderHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateProviderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	status, err := h.service.Provider(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	applyProviderPatch(status, req)
	status.UpdatedAt = time.Now()

	if err := h.service.UpdateProviderSettings(c.Context(), status); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromProviderStatus(status)})
}

// GetSchedule GET /providers/:id/schedule (staff).
func (h *ProviderHandler) GetSchedule(c *fiber.Ctx) error {
	schedule, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromWeeklySchedule(schedule)})
}

// PutSchedule PUT /providers/:id/schedule (staff).
func (h *ProviderHandler) PutSchedule(c *fiber.Ctx) error {
	var req dto.WeeklyScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	for _, e := range req.Entries {
		if !validWeekday(e.Day) {
			return apperrors.NewValidationError("day must be a weekday name", nil)
		}
		if e.Open && e.StartHour >= e.EndHour {
			return apperrors.NewValidationError("start_hour must precede end_hour", nil)
		}
	}

	schedule := req.ToDomain(c.Params("id"))
	if err := h.service.Put(c.Context(), &schedule); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromWeeklySchedule(&schedule)})
}

// ApplySchedule POST /providers/:id/schedule/apply (staff).
func (h *ProviderHandler) ApplySchedule(c *fiber.Ctx) error {
	status, err := h.service.ApplyToday(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromProviderStatus(status)})
}

func validWeekday(day string) bool {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(day, d.String()) {
			return true
		}
	}
	return false
}

func applyProviderPatch(status *domain.ProviderStatus, req dto.UpdateProviderStatusRequest) {
	if req.DisplayName != nil {
		status.DisplayName = *req.DisplayName
	}
	if req.IsOpen != nil {
		status.IsOpen = *req.IsOpen
	}
	if req.DailyPatientLimit != nil {
		status.DailyPatientLimit = *req.DailyPatientLimit
	}
	if req.EstimatedServiceMinutes != nil {
		status.EstimatedServiceMinutes = *req.EstimatedServiceMinutes
	}
	if req.CallTimeoutMinutes != nil {
		status.CallTimeoutMinutes = *req.CallTimeoutMinutes
	}
	if req.OpeningHour != nil {
		status.OpeningHour = *req.OpeningHour
	}
	if req.ClosingHour != nil {
		status.ClosingHour = *req.ClosingHour
	}
	if req.Timezone != nil {
		status.Timezone = *req.Timezone
	}
}
