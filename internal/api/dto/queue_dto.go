package dto

import (
	"time"

	"github.com/spec-kit/clinic-queue/internal/domain"
)

// IssueTicketRequest payload.
type IssueTicketRequest struct {
	RequesterID string `json:"requester_id"`
	PatientName string `json:"patient_name"`
	Complaint   string `json:"complaint"`
}

// ManualTicketRequest payload for staff-registered walk-ins.
type ManualTicketRequest struct {
	PatientName string `json:"patient_name"`
	Complaint   string `json:"complaint"`
}

// CancelTicketRequest payload for requester-scoped cancellation.
type CancelTicketRequest struct {
	RequesterID string `json:"requester_id"`
}

// MedicalRecordRequest payload attached at completion.
type MedicalRecordRequest struct {
	Vitals       string `json:"vitals"`
	Diagnosis    string `json:"diagnosis"`
	Treatment    string `json:"treatment"`
	Prescription string `json:"prescription"`
	Notes        string `json:"notes"`
}

// ToDomain converts the request payload.
func (r MedicalRecordRequest) ToDomain() domain.MedicalRecord {
	return domain.MedicalRecord{
		Vitals:       r.Vitals,
		Diagnosis:    r.Diagnosis,
		Treatment:    r.Treatment,
		Prescription: r.Prescription,
		Notes:        r.Notes,
	}
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	ID               string                 `json:"id"`
	TicketNumber     int                    `json:"ticket_number"`
	ProviderID       string                 `json:"provider_id"`
	RequesterID      string                 `json:"requester_id"`
	PatientName      string                 `json:"patient_name"`
	Complaint        string                 `json:"complaint,omitempty"`
	Status           domain.TicketStatus    `json:"status"`
	StatusNote       string                 `json:"status_note,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	CalledAt         *time.Time             `json:"called_at,omitempty"`
	StartedAt        *time.Time             `json:"started_at,omitempty"`
	FinishedAt       *time.Time             `json:"finished_at,omitempty"`
	HasBeenReclaimed bool                   `json:"has_been_reclaimed"`
	MedicalRecord    *MedicalRecordResponse `json:"medical_record,omitempty"`
}

// MedicalRecordResponse mirrors the attached record.
type MedicalRecordResponse struct {
	Vitals       string `json:"vitals,omitempty"`
	Diagnosis    string `json:"diagnosis,omitempty"`
	Treatment    string `json:"treatment,omitempty"`
	Prescription string `json:"prescription,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// FromTicket converts a domain ticket.
func FromTicket(ticket *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:               ticket.ID,
		TicketNumber:     ticket.TicketNumber,
		ProviderID:       ticket.ProviderID,
		RequesterID:      ticket.RequesterID,
		PatientName:      ticket.PatientName,
		Complaint:        ticket.Complaint,
		Status:           ticket.Status,
		StatusNote:       ticket.StatusNote,
		CreatedAt:        ticket.CreatedAt,
		CalledAt:         ticket.CalledAt,
		StartedAt:        ticket.StartedAt,
		FinishedAt:       ticket.FinishedAt,
		HasBeenReclaimed: ticket.HasBeenReclaimed,
	}
	if ticket.Record != nil {
		resp.MedicalRecord = &MedicalRecordResponse{
			Vitals:       ticket.Record.Vitals,
			Diagnosis:    ticket.Record.Diagnosis,
			Treatment:    ticket.Record.Treatment,
			Prescription: ticket.Record.Prescription,
			Notes:        ticket.Record.Notes,
		}
	}
	return resp
}

// FromTickets converts a slice of domain tickets.
func FromTickets(tickets []domain.Ticket) []TicketResponse {
	result := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		result = append(result, FromTicket(&tickets[i]))
	}
	return result
}

// ProviderStatusResponse is the wire form of the provider status record.
type ProviderStatusResponse struct {
	ProviderID              string    `json:"provider_id"`
	DisplayName             string    `json:"display_name"`
	IsOpen                  bool      `json:"is_open"`
	DailyPatientLimit       int       `json:"daily_patient_limit"`
	LastTicketNumber        int       `json:"last_ticket_number"`
	CurrentServingNumber    int       `json:"current_serving_number"`
	TotalServedCount        int       `json:"total_served_count"`
	EstimatedServiceMinutes int       `json:"estimated_service_minutes"`
	CallTimeoutMinutes      int       `json:"call_timeout_minutes"`
	OpeningHour             int       `json:"opening_hour"`
	ClosingHour             int       `json:"closing_hour"`
	Timezone                string    `json:"timezone"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// FromProviderStatus converts the domain record.
func FromProviderStatus(status *domain.ProviderStatus) ProviderStatusResponse {
	return ProviderStatusResponse{
		ProviderID:              status.ProviderID,
		DisplayName:             status.DisplayName,
		IsOpen:                  status.IsOpen,
		DailyPatientLimit:       status.DailyPatientLimit,
		LastTicketNumber:        status.LastTicketNumber,
		CurrentServingNumber:    status.CurrentServingNumber,
		TotalServedCount:        status.TotalServedCount,
		EstimatedServiceMinutes: status.EstimatedServiceMinutes,
		CallTimeoutMinutes:      status.CallTimeoutMinutes,
		OpeningHour:             status.OpeningHour,
		ClosingHour:             status.ClosingHour,
		Timezone:                status.Timezone,
		UpdatedAt:               status.UpdatedAt,
	}
}

// QueueSnapshotResponse is one live-feed push.
type QueueSnapshotResponse struct {
	Provider ProviderStatusResponse `json:"provider"`
	Tickets  []TicketResponse       `json:"tickets"`
	At       time.Time              `json:"at"`
}
