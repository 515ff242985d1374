package domain

import "time"

// TicketStatus enumerates lifecycle states for queue tickets.
type TicketStatus string

const (
	TicketStatusWaiting   TicketStatus = "WAITING"
	TicketStatusCalled    TicketStatus = "CALLED"
	TicketStatusServing   TicketStatus = "SERVING"
	TicketStatusDone      TicketStatus = "DONE"
	TicketStatusCancelled TicketStatus = "CANCELLED"
)

// MedicalRecord is attached to a ticket when the consultation completes.
type MedicalRecord struct {
	Vitals       string
	Diagnosis    string
	Treatment    string
	Prescription string
	Notes        string
}

// IsEmpty reports whether no record fields are set.
func (r MedicalRecord) IsEmpty() bool {
	return r.Vitals == "" && r.Diagnosis == "" && r.Treatment == "" &&
		r.Prescription == "" && r.Notes == ""
}

// Ticket is a single patient's queue position for one provider on one day.
// Ticket numbers are sequential within (provider, day), starting at 1.
type Ticket struct {
	ID               string
	TicketNumber     int
	ProviderID       string
	RequesterID      string
	PatientName      string
	Complaint        string
	Status           TicketStatus
	StatusNote       string
	CreatedAt        time.Time
	CalledAt         *time.Time
	StartedAt        *time.Time
	FinishedAt       *time.Time
	HasBeenReclaimed bool
	Record           *MedicalRecord
}

// IsTerminal reports whether the ticket reached a final state.
func (t *Ticket) IsTerminal() bool {
	return t.Status == TicketStatusDone || t.Status == TicketStatusCancelled
}

// IsActive reports whether the ticket still occupies a queue slot.
func (t *Ticket) IsActive() bool {
	return t.Status == TicketStatusWaiting || t.Status == TicketStatusCalled ||
		t.Status == TicketStatusServing
}

// WAITING -> SERVING covers walk-ins confirmed directly at the desk;
// CALLED -> WAITING is the system-driven no-show reclaim.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusWaiting:   {TicketStatusCalled, TicketStatusServing, TicketStatusCancelled},
	TicketStatusCalled:    {TicketStatusServing, TicketStatusWaiting, TicketStatusCancelled},
	TicketStatusServing:   {TicketStatusDone},
	TicketStatusDone:      {},
	TicketStatusCancelled: {},
}

// CanTransition reports whether moving from current to next is legal.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
