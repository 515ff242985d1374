package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clinic-queue/internal/api/dto"
	"github.com/spec-kit/clinic-queue/internal/service"
	apperrors "github.com/spec-kit/clinic-queue/pkg/util/errorutil"
)

// QueueHandler manages patient queue endpoints.
type QueueHandler struct {
	service *service.QueueService
}

// NewQueueHandler constructs handler.
func NewQueueHandler(queueService *service.QueueService) *QueueHandler {
	return &QueueHandler{service: queueService}
}

// IssueTicket POST /queue/:providerID/tickets.
func (h *QueueHandler) IssueTicket(c *fiber.Ctx) error {
	var req dto.IssueTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.RequesterID) == "" || strings.TrimSpace(req.PatientName) == "" {
		return apperrors.NewValidationError("requester_id and patient_name required", nil)
	}

	ticket, err := h.service.IssueTicket(c.Context(), service.IssueTicketInput{
		ProviderID:  c.Params("providerID"),
		RequesterID: req.RequesterID,
		PatientName: req.PatientName,
		Complaint:   req.Complaint,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// AddManualTicket POST /queue/:providerID/manual-tickets (staff).
func (h *QueueHandler) AddManualTicket(c *fiber.Ctx) error {
	var req dto.ManualTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.PatientName) == "" {
		return apperrors.NewValidationError("patient_name required", nil)
	}

	ticket, err := h.service.AddManualTicket(c.Context(), c.Params("providerID"), req.PatientName, req.Complaint)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// CallNext POST /queue/:providerID/call-next (staff).
func (h *QueueHandler) CallNext(c *fiber.Ctx) error {
	ticket, err := h.service.CallNextPatient(c.Context(), c.Params("providerID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// ConfirmArrival POST /queue/tickets/:id/confirm (staff).
func (h *QueueHandler) ConfirmArrival(c *fiber.Ctx) error {
	ticket, err := h.service.ConfirmArrival(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Complete POST /queue/tickets/:id/complete (staff).
func (h *QueueHandler) Complete(c *fiber.Ctx) error {
	var req dto.MedicalRecordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.CompleteConsultation(c.Context(), c.Params("id"), req.ToDomain())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// CancelByRequester POST /queue/:providerID/cancel.
func (h *QueueHandler) CancelByRequester(c *fiber.Ctx) error {
	var req dto.CancelTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.RequesterID) == "" {
		return apperrors.NewValidationError("requester_id required", nil)
	}

	ticket, err := h.service.CancelTicketByRequester(c.Context(), c.Params("providerID"), req.RequesterID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// CancelByID POST /queue/tickets/:id/cancel (staff).
func (h *QueueHandler) CancelByID(c *fiber.Ctx) error {
	ticket, err := h.service.CancelTicketByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Status GET /queue/:providerID/status.
func (h *QueueHandler) Status(c *fiber.Ctx) error {
	snapshot, err := h.service.Snapshot(c.Context(), c.Params("providerID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromProviderStatus(&snapshot.Provider)})
}

// TodayTickets GET /queue/:providerID/tickets.
func (h *QueueHandler) TodayTickets(c *fiber.Ctx) error {
	snapshot, err := h.service.Snapshot(c.Context(), c.Params("providerID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.QueueSnapshotResponse{
		Provider: dto.FromProviderStatus(&snapshot.Provider),
		Tickets:  dto.FromTickets(snapshot.Tickets),
		At:       snapshot.At,
	}})
}

// VisitHistory GET /patients/:requesterID/visits (staff).
func (h *QueueHandler) VisitHistory(c *fiber.Ctx) error {
	tickets, err := h.service.VisitHistory(c.Context(), c.Params("requesterID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTickets(tickets)})
}
