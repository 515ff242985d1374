package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/clinic-queue/internal/domain"
)

// MemoryStore is a mutex-serialized, in-process implementation of every
// repository interface. The single lock plays the role the store
// transaction plays in the pgx adapter: each operation observes and applies
// its state change atomically. Used by tests and as a fallback when no
// POSTGRES_DSN is configured.
type MemoryStore struct {
	mu        sync.Mutex
	tickets   map[string]*domain.Ticket
	providers map[string]*domain.ProviderStatus
	schedules map[string]*domain.WeeklySchedule
	staff     map[string]*domain.StaffMember
}

// NewMemoryStore initializes an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets:   make(map[string]*domain.Ticket),
		providers: make(map[string]*domain.ProviderStatus),
		schedules: make(map[string]*domain.WeeklySchedule),
		staff:     make(map[string]*domain.StaffMember),
	}
}

var _ QueueRepository = (*MemoryStore)(nil)

// Providers returns the ProviderRepository view of the store.
func (s *MemoryStore) Providers() ProviderRepository { return memoryProviders{s} }

// Schedules returns the ScheduleRepository view of the store.
func (s *MemoryStore) Schedules() ScheduleRepository { return memorySchedules{s} }

// Staff returns the StaffRepository view of the store.
func (s *MemoryStore) Staff() StaffRepository { return memoryStaff{s} }

type memoryProviders struct{ s *MemoryStore }

type memorySchedules struct{ s *MemoryStore }

type memoryStaff struct{ s *MemoryStore }

func (s *MemoryStore) IssueTicket(_ context.Context, input IssueTicketInput) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.providers[input.ProviderID]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	if !status.IsOpen {
		return nil, domain.ErrProviderClosed
	}

	dayStart, dayEnd := status.DayWindow(input.Now)

	lastNumber := 0
	backlog := 0
	for _, t := range s.tickets {
		if t.ProviderID != input.ProviderID || !inWindow(t.CreatedAt, dayStart, dayEnd) {
			continue
		}
		if t.TicketNumber > lastNumber {
			lastNumber = t.TicketNumber
		}
		if t.Status == domain.TicketStatusWaiting || t.Status == domain.TicketStatusCalled {
			backlog++
		}
		if !input.Manual && t.RequesterID == input.RequesterID && t.IsActive() {
			return nil, domain.ErrDuplicateActive
		}
	}

	nextNumber := lastNumber + 1
	if status.DailyPatientLimit > 0 && nextNumber > status.DailyPatientLimit {
		return nil, domain.ErrCapacityExceeded
	}
	if !status.HasTimeFor(backlog, input.Now) {
		return nil, domain.ErrInsufficientTime
	}

	ticket := &domain.Ticket{
		ID:           uuid.NewString(),
		TicketNumber: nextNumber,
		ProviderID:   input.ProviderID,
		RequesterID:  input.RequesterID,
		PatientName:  input.PatientName,
		Complaint:    input.Complaint,
		Status:       domain.TicketStatusWaiting,
		CreatedAt:    input.Now,
	}
	s.tickets[ticket.ID] = ticket
	status.LastTicketNumber = nextNumber
	status.UpdatedAt = input.Now

	copied := *ticket
	return &copied, nil
}

func (s *MemoryStore) CallNext(_ context.Context, providerID string, now time.Time) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.providers[providerID]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	dayStart, dayEnd := status.DayWindow(now)

	var next *domain.Ticket
	for _, t := range s.tickets {
		if t.ProviderID != providerID || !inWindow(t.CreatedAt, dayStart, dayEnd) {
			continue
		}
		if t.Status == domain.TicketStatusServing {
			return nil, domain.ErrAlreadyServing
		}
		if t.Status != domain.TicketStatusWaiting {
			continue
		}
		if next == nil || t.CreatedAt.Before(next.CreatedAt) ||
			(t.CreatedAt.Equal(next.CreatedAt) && t.TicketNumber < next.TicketNumber) {
			next = t
		}
	}
	if next == nil {
		return nil, domain.ErrNoWaitingTicket
	}

	calledAt := now
	next.Status = domain.TicketStatusCalled
	next.CalledAt = &calledAt

	copied := *next
	return &copied, nil
}

func (s *MemoryStore) ConfirmArrival(_ context.Context, ticketID string, now time.Time) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[ticketID]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	if !domain.CanTransition(ticket.Status, domain.TicketStatusServing) {
		return nil, domain.ErrInvalidTicketState
	}

	status, ok := s.providers[ticket.ProviderID]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	dayStart, dayEnd := status.DayWindow(now)
	for _, t := range s.tickets {
		if t.ProviderID == ticket.ProviderID && t.Status == domain.TicketStatusServing &&
			inWindow(t.CreatedAt, dayStart, dayEnd) {
			return nil, domain.ErrAlreadyServing
		}
	}

	startedAt := now
	ticket.Status = domain.TicketStatusServing
	ticket.StartedAt = &startedAt
	if ticket.CalledAt == nil {
		calledAt := now
		ticket.CalledAt = &calledAt
	}
	status.CurrentServingNumber = ticket.TicketNumber
	status.UpdatedAt = now

	copied := *ticket
	return &copied, nil
}

func (s *MemoryStore) Complete(_ context.Context, ticketID string, record domain.MedicalRecord, now time.Time) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[ticketID]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	if ticket.Status != domain.TicketStatusServing {
		return nil, domain.ErrInvalidTicketState
	}

	finishedAt := now
	ticket.Status = domain.TicketStatusDone
	ticket.FinishedAt = &finishedAt
	if !record.IsEmpty() {
		attached := record
		ticket.Record = &attached
	}

	if status, ok := s.providers[ticket.ProviderID]; ok {
		status.CurrentServingNumber = 0
		status.TotalServedCount++
		status.UpdatedAt = now
	}

	copied := *ticket
	return &copied, nil
}

func (s *MemoryStore) CancelByRequester(_ context.Context, providerID, requesterID string, now time.Time) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.providers[providerID]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	dayStart, dayEnd := status.DayWindow(now)

	for _, t := range s.tickets {
		if t.ProviderID != providerID || t.RequesterID != requesterID {
			continue
		}
		if !inWindow(t.CreatedAt, dayStart, dayEnd) {
			continue
		}
		if t.Status == domain.TicketStatusWaiting || t.Status == domain.TicketStatusCalled {
			t.Status = domain.TicketStatusCancelled
			t.StatusNote = "cancelled by requester"
			copied := *t
			return &copied, nil
		}
	}
	return nil, domain.ErrNoActiveTicket
}

func (s *MemoryStore) CancelByID(_ context.Context, ticketID string, _ time.Time) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[ticketID]
	if !ok {
		return nil, domain.ErrNoActiveTicket
	}
	if ticket.Status != domain.TicketStatusWaiting && ticket.Status != domain.TicketStatusCalled {
		return nil, domain.ErrNoActiveTicket
	}
	ticket.Status = domain.TicketStatusCancelled
	ticket.StatusNote = "cancelled"

	copied := *ticket
	return &copied, nil
}

func (s *MemoryStore) ReclaimExpiredCalls(_ context.Context, providerID string, now time.Time) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reclaimed []domain.Ticket
	for _, t := range s.tickets {
		if providerID != "" && t.ProviderID != providerID {
			continue
		}
		if t.Status != domain.TicketStatusCalled || t.CalledAt == nil {
			continue
		}
		status, ok := s.providers[t.ProviderID]
		if !ok {
			continue
		}
		if now.Sub(*t.CalledAt) <= status.CallTimeout() {
			continue
		}
		t.Status = domain.TicketStatusWaiting
		t.CalledAt = nil
		t.HasBeenReclaimed = true
		reclaimed = append(reclaimed, *t)
	}
	return reclaimed, nil
}

func (s *MemoryStore) ExpireStaleTickets(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for _, t := range s.tickets {
		if t.Status != domain.TicketStatusWaiting && t.Status != domain.TicketStatusCalled {
			continue
		}
		status, ok := s.providers[t.ProviderID]
		if !ok {
			continue
		}
		dayStart, _ := status.DayWindow(now)
		if t.CreatedAt.Before(dayStart) {
			t.Status = domain.TicketStatusCancelled
			t.StatusNote = "expired: carried over from a previous day"
			expired++
		}
	}
	return expired, nil
}

func (s *MemoryStore) GetTicket(_ context.Context, ticketID string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[ticketID]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (s *MemoryStore) TodayTickets(_ context.Context, providerID string, now time.Time) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.providers[providerID]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	dayStart, dayEnd := status.DayWindow(now)

	var result []domain.Ticket
	for _, t := range s.tickets {
		if t.ProviderID == providerID && inWindow(t.CreatedAt, dayStart, dayEnd) {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TicketNumber < result[j].TicketNumber
	})
	return result, nil
}

func (s *MemoryStore) VisitHistory(_ context.Context, requesterID string) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Ticket
	for _, t := range s.tickets {
		if t.RequesterID == requesterID && t.IsTerminal() {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m memoryProviders) Create(_ context.Context, status *domain.ProviderStatus) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	copied := *status
	if copied.UpdatedAt.IsZero() {
		copied.UpdatedAt = time.Now()
	}
	m.s.providers[status.ProviderID] = &copied
	return nil
}

func (m memoryProviders) Get(_ context.Context, providerID string) (*domain.ProviderStatus, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	status, ok := m.s.providers[providerID]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	copied := *status
	return &copied, nil
}

func (m memoryProviders) List(_ context.Context) ([]domain.ProviderStatus, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	result := make([]domain.ProviderStatus, 0, len(m.s.providers))
	for _, status := range m.s.providers {
		result = append(result, *status)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ProviderID < result[j].ProviderID
	})
	return result, nil
}

func (m memoryProviders) UpdateSettings(_ context.Context, status *domain.ProviderStatus) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	existing, ok := m.s.providers[status.ProviderID]
	if !ok {
		return domain.ErrProviderNotFound
	}
	existing.DisplayName = status.DisplayName
	existing.IsOpen = status.IsOpen
	existing.DailyPatientLimit = status.DailyPatientLimit
	existing.EstimatedServiceMinutes = status.EstimatedServiceMinutes
	existing.CallTimeoutMinutes = status.CallTimeoutMinutes
	existing.OpeningHour = status.OpeningHour
	existing.ClosingHour = status.ClosingHour
	existing.Timezone = status.Timezone
	existing.UpdatedAt = time.Now()
	return nil
}

func (m memorySchedules) Get(_ context.Context, providerID string) (*domain.WeeklySchedule, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	schedule, ok := m.s.schedules[providerID]
	if !ok {
		return nil, domain.ErrScheduleNotFound
	}
	copied := *schedule
	copied.Entries = append([]domain.DaySchedule(nil), schedule.Entries...)
	return &copied, nil
}

func (m memorySchedules) Upsert(_ context.Context, schedule *domain.WeeklySchedule) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	copied := *schedule
	copied.Entries = append([]domain.DaySchedule(nil), schedule.Entries...)
	copied.UpdatedAt = time.Now()
	m.s.schedules[schedule.ProviderID] = &copied
	schedule.UpdatedAt = copied.UpdatedAt
	return nil
}

func (m memoryStaff) Create(_ context.Context, staff *domain.StaffMember) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	staff.Email = strings.ToLower(staff.Email)
	now := time.Now()
	staff.CreatedAt = now
	staff.UpdatedAt = now
	copied := *staff
	m.s.staff[staff.ID] = &copied
	return nil
}

func (m memoryStaff) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	staff, ok := m.s.staff[id]
	if !ok {
		return nil, domain.ErrStaffNotFound
	}
	copied := *staff
	return &copied, nil
}

func (m memoryStaff) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	email = strings.ToLower(email)
	for _, staff := range m.s.staff {
		if staff.Email == email {
			copied := *staff
			return &copied, nil
		}
	}
	return nil, domain.ErrStaffNotFound
}

func (m memoryStaff) Count(_ context.Context) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return len(m.s.staff), nil
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
