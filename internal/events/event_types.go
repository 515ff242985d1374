package events

import (
	"time"

	"github.com/spec-kit/clinic-queue/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketIssued          EventType = "ticket_issued"
	EventTicketCalled          EventType = "ticket_called"
	EventTicketConfirmed       EventType = "ticket_confirmed"
	EventTicketCompleted       EventType = "ticket_completed"
	EventTicketCancelled       EventType = "ticket_cancelled"
	EventTicketReclaimed       EventType = "ticket_reclaimed"
	EventProviderStatusChanged EventType = "provider_status_changed"
)

// Event represents a queue mutation emitted by the coordinator.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	ProviderID string      `json:"provider_id"`
	TicketID   string      `json:"ticket_id,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload,omitempty"`
}

// TicketPayload describes the ticket involved in an event.
type TicketPayload struct {
	TicketNumber int                 `json:"ticket_number"`
	RequesterID  string              `json:"requester_id"`
	Status       domain.TicketStatus `json:"status"`
	Reclaimed    bool                `json:"reclaimed,omitempty"`
}

// TicketEventPayload builds the payload for a ticket mutation.
func TicketEventPayload(ticket *domain.Ticket) TicketPayload {
	return TicketPayload{
		TicketNumber: ticket.TicketNumber,
		RequesterID:  ticket.RequesterID,
		Status:       ticket.Status,
		Reclaimed:    ticket.HasBeenReclaimed,
	}
}
