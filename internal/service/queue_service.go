package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/clinic-queue/internal/domain"
	"github.com/spec-kit/clinic-queue/internal/events"
	"github.com/spec-kit/clinic-queue/internal/observability"
	"github.com/spec-kit/clinic-queue/internal/repository"
)

// QueueService is the queue coordinator: it owns every ticket lifecycle
// operation and is the only writer of ticket and provider-status state.
// All atomicity lives in the repository; this layer validates input,
// supplies the clock and publishes mutation events.
type QueueService struct {
	queue      repository.QueueRepository
	providers  repository.ProviderRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// QueueDependencies bundles collaborators for the coordinator.
type QueueDependencies struct {
	QueueRepo    repository.QueueRepository
	ProviderRepo repository.ProviderRepository
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// IssueTicketInput describes a patient's ticket request.
type IssueTicketInput struct {
	ProviderID  string
	RequesterID string
	PatientName string
	Complaint   string
}

// QueueSnapshot is what the live feed pushes to subscribers.
type QueueSnapshot struct {
	Provider domain.ProviderStatus `json:"provider"`
	Tickets  []domain.Ticket       `json:"tickets"`
	At       time.Time             `json:"at"`
}

// NewQueueService constructs the coordinator.
func NewQueueService(deps QueueDependencies) *QueueService {
	return &QueueService{
		queue:      deps.QueueRepo,
		providers:  deps.ProviderRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// WithClock overrides the coordinator's clock. Test hook.
func (s *QueueService) WithClock(now func() time.Time) *QueueService {
	s.now = now
	return s
}

// IssueTicket hands out the next sequential ticket of the day.
func (s *QueueService) IssueTicket(ctx context.Context, input IssueTicketInput) (*domain.Ticket, error) {
	ticket, err := s.queue.IssueTicket(ctx, repository.IssueTicketInput{
		ProviderID:  input.ProviderID,
		RequesterID: input.RequesterID,
		PatientName: strings.TrimSpace(input.PatientName),
		Complaint:   strings.TrimSpace(input.Complaint),
		Now:         s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.recordOp(input.ProviderID, "issued")
	s.publishTicketEvent(ctx, events.EventTicketIssued, ticket)
	return ticket, nil
}

// AddManualTicket registers a walk-in at the desk. Same capacity and
// time-window rules as IssueTicket, but the requester identity is
// synthesized and the duplicate check is skipped.
func (s *QueueService) AddManualTicket(ctx context.Context, providerID, patientName, complaint string) (*domain.Ticket, error) {
	ticket, err := s.queue.IssueTicket(ctx, repository.IssueTicketInput{
		ProviderID:  providerID,
		RequesterID: "walkin-" + uuid.NewString()[:8],
		PatientName: strings.TrimSpace(patientName),
		Complaint:   strings.TrimSpace(complaint),
		Manual:      true,
		Now:         s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.recordOp(providerID, "issued")
	s.publishTicketEvent(ctx, events.EventTicketIssued, ticket)
	return ticket, nil
}

// CallNextPatient reclaims any newly expired calls for the provider, then
// calls the earliest waiting ticket. Reclaimed tickets rejoin the pool and
// are eligible for immediate re-selection.
func (s *QueueService) CallNextPatient(ctx context.Context, providerID string) (*domain.Ticket, error) {
	now := s.now()

	reclaimed, err := s.queue.ReclaimExpiredCalls(ctx, providerID, now)
	if err != nil {
		return nil, err
	}
	for i := range reclaimed {
		s.recordOp(providerID, "reclaimed")
		s.publishTicketEvent(ctx, events.EventTicketReclaimed, &reclaimed[i])
	}

	ticket, err := s.queue.CallNext(ctx, providerID, now)
	if err != nil {
		return nil, err
	}
	s.recordOp(providerID, "called")
	s.publishTicketEvent(ctx, events.EventTicketCalled, ticket)
	return ticket, nil
}

// ConfirmArrival moves a ticket into service.
func (s *QueueService) ConfirmArrival(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.queue.ConfirmArrival(ctx, ticketID, s.now())
	if err != nil {
		return nil, err
	}
	s.recordOp(ticket.ProviderID, "confirmed")
	s.publishTicketEvent(ctx, events.EventTicketConfirmed, ticket)
	return ticket, nil
}

// CompleteConsultation finishes the served ticket and attaches the record.
func (s *QueueService) CompleteConsultation(ctx context.Context, ticketID string, record domain.MedicalRecord) (*domain.Ticket, error) {
	ticket, err := s.queue.Complete(ctx, ticketID, record, s.now())
	if err != nil {
		return nil, err
	}
	s.recordOp(ticket.ProviderID, "completed")
	s.publishTicketEvent(ctx, events.EventTicketCompleted, ticket)
	return ticket, nil
}

// CancelTicketByRequester cancels the requester's active ticket for the
// provider today, if any.
func (s *QueueService) CancelTicketByRequester(ctx context.Context, providerID, requesterID string) (*domain.Ticket, error) {
	ticket, err := s.queue.CancelByRequester(ctx, providerID, requesterID, s.now())
	if err != nil {
		return nil, err
	}
	s.recordOp(providerID, "cancelled")
	s.publishTicketEvent(ctx, events.EventTicketCancelled, ticket)
	return ticket, nil
}

// CancelTicketByID cancels a specific WAITING or CALLED ticket.
func (s *QueueService) CancelTicketByID(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.queue.CancelByID(ctx, ticketID, s.now())
	if err != nil {
		return nil, err
	}
	s.recordOp(ticket.ProviderID, "cancelled")
	s.publishTicketEvent(ctx, events.EventTicketCancelled, ticket)
	return ticket, nil
}

// Snapshot returns the provider status plus today's tickets ordered by
// ticket number. Used by the read endpoints and by the live feed.
func (s *QueueService) Snapshot(ctx context.Context, providerID string) (*QueueSnapshot, error) {
	now := s.now()
	status, err := s.providers.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.queue.TodayTickets(ctx, providerID, now)
	if err != nil {
		return nil, err
	}
	return &QueueSnapshot{Provider: *status, Tickets: tickets, At: now}, nil
}

// VisitHistory returns the requester's terminal tickets across all days.
func (s *QueueService) VisitHistory(ctx context.Context, requesterID string) ([]domain.Ticket, error) {
	return s.queue.VisitHistory(ctx, requesterID)
}

func (s *QueueService) publishTicketEvent(ctx context.Context, eventType events.EventType, ticket *domain.Ticket) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ProviderID: ticket.ProviderID,
		TicketID:   ticket.ID,
		Timestamp:  s.now(),
		Payload:    events.TicketEventPayload(ticket),
	})
}

func (s *QueueService) recordOp(providerID, op string) {
	if s.metrics != nil {
		s.metrics.RecordQueueOp(providerID, op)
	}
}
