package repository

import (
	"context"
	"time"

	"github.com/spec-kit/clinic-queue/internal/domain"
)

// IssueTicketInput carries everything needed to issue one ticket. Now is
// supplied by the caller so issuance stays deterministic under test.
type IssueTicketInput struct {
	ProviderID  string
	RequesterID string
	PatientName string
	Complaint   string
	// Manual skips the duplicate-active-ticket check; used for walk-ins
	// registered at the desk with a synthesized requester identity.
	Manual bool
	Now    time.Time
}

// QueueRepository exposes the ticket store as domain-level transactional
// operations. Every mutation is a single atomic unit against the ticket
// set and the provider status record together; concurrent callers never
// observe a partially applied state.
type QueueRepository interface {
	IssueTicket(ctx context.Context, input IssueTicketInput) (*domain.Ticket, error)
	CallNext(ctx context.Context, providerID string, now time.Time) (*domain.Ticket, error)
	ConfirmArrival(ctx context.Context, ticketID string, now time.Time) (*domain.Ticket, error)
	Complete(ctx context.Context, ticketID string, record domain.MedicalRecord, now time.Time) (*domain.Ticket, error)
	CancelByRequester(ctx context.Context, providerID, requesterID string, now time.Time) (*domain.Ticket, error)
	CancelByID(ctx context.Context, ticketID string, now time.Time) (*domain.Ticket, error)

	// ReclaimExpiredCalls reverts CALLED tickets whose timeout elapsed back
	// to WAITING. providerID may be empty to scan every provider. The write
	// is conditional on the ticket still being CALLED, so a racing
	// confirmation always wins.
	ReclaimExpiredCalls(ctx context.Context, providerID string, now time.Time) ([]domain.Ticket, error)

	// ExpireStaleTickets cancels WAITING/CALLED tickets left over from
	// prior days. Safe to re-run; terminal tickets are untouched.
	ExpireStaleTickets(ctx context.Context, now time.Time) (int, error)

	GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error)
	TodayTickets(ctx context.Context, providerID string, now time.Time) ([]domain.Ticket, error)
	VisitHistory(ctx context.Context, requesterID string) ([]domain.Ticket, error)
}

// ProviderRepository handles persistence for provider status records.
type ProviderRepository interface {
	Create(ctx context.Context, status *domain.ProviderStatus) error
	Get(ctx context.Context, providerID string) (*domain.ProviderStatus, error)
	List(ctx context.Context) ([]domain.ProviderStatus, error)
	// UpdateSettings writes the schedule-driven configuration fields only;
	// the live counters belong to the queue coordinator.
	UpdateSettings(ctx context.Context, status *domain.ProviderStatus) error
}

// ScheduleRepository stores weekly schedules for the external scheduler.
type ScheduleRepository interface {
	Get(ctx context.Context, providerID string) (*domain.WeeklySchedule, error)
	Upsert(ctx context.Context, schedule *domain.WeeklySchedule) error
}

// StaffRepository handles persistence for staff members.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffMember) error
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error)
	Count(ctx context.Context) (int, error)
}
