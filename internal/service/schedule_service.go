package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/clinic-queue/internal/domain"
	"github.com/spec-kit/clinic-queue/internal/events"
	"github.com/spec-kit/clinic-queue/internal/repository"
)

// ScheduleService is the external-scheduler surface: it stores weekly
// schedules and copies the current day's entry onto the provider status.
// The queue coordinator itself never interprets schedule entries.
type ScheduleService struct {
	schedules  repository.ScheduleRepository
	providers  repository.ProviderRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// NewScheduleService constructs the service.
func NewScheduleService(schedules repository.ScheduleRepository, providers repository.ProviderRepository, dispatcher events.Dispatcher) *ScheduleService {
	return &ScheduleService{
		schedules:  schedules,
		providers:  providers,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Provider returns the provider status record.
func (s *ScheduleService) Provider(ctx context.Context, providerID string) (*domain.ProviderStatus, error) {
	return s.providers.Get(ctx, providerID)
}

// Providers lists all provider status records.
func (s *ScheduleService) Providers(ctx context.Context) ([]domain.ProviderStatus, error) {
	return s.providers.List(ctx)
}

// Get returns the weekly schedule for a provider.
func (s *ScheduleService) Get(ctx context.Context, providerID string) (*domain.WeeklySchedule, error) {
	return s.schedules.Get(ctx, providerID)
}

// Put replaces the weekly schedule for a provider.
func (s *ScheduleService) Put(ctx context.Context, schedule *domain.WeeklySchedule) error {
	if _, err := s.providers.Get(ctx, schedule.ProviderID); err != nil {
		return err
	}
	return s.schedules.Upsert(ctx, schedule)
}

// ApplyToday derives today's open flag and operating hours from the weekly
// schedule and writes them onto the provider status record.
func (s *ScheduleService) ApplyToday(ctx context.Context, providerID string) (*domain.ProviderStatus, error) {
	status, err := s.providers.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}
	schedule, err := s.schedules.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}

	now := s.now().In(status.Location())
	entry, found := schedule.EntryFor(now.Weekday())
	if !found || !entry.Open {
		status.IsOpen = false
	} else {
		status.IsOpen = true
		status.OpeningHour = entry.StartHour
		status.ClosingHour = entry.EndHour
	}

	if err := s.providers.UpdateSettings(ctx, status); err != nil {
		return nil, err
	}
	s.publishStatusChanged(ctx, providerID)
	return status, nil
}

// UpdateProviderSettings writes operator-edited configuration onto the
// provider status record.
func (s *ScheduleService) UpdateProviderSettings(ctx context.Context, status *domain.ProviderStatus) error {
	if err := s.providers.UpdateSettings(ctx, status); err != nil {
		return err
	}
	s.publishStatusChanged(ctx, status.ProviderID)
	return nil
}

// OnboardProvider creates the provider status record.
func (s *ScheduleService) OnboardProvider(ctx context.Context, status *domain.ProviderStatus) error {
	if err := s.providers.Create(ctx, status); err != nil {
		return err
	}
	s.publishStatusChanged(ctx, status.ProviderID)
	return nil
}

func (s *ScheduleService) publishStatusChanged(ctx context.Context, providerID string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       events.EventProviderStatusChanged,
		ProviderID: providerID,
		Timestamp:  s.now(),
	})
}
