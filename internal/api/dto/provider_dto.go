package dto

import (
	"time"

	"github.com/spec-kit/clinic-queue/internal/domain"
)

// OnboardProviderRequest registers a new provider.
type OnboardProviderRequest struct {
	ProviderID              string `json:"provider_id"`
	DisplayName             string `json:"display_name"`
	DailyPatientLimit       int    `json:"daily_patient_limit"`
	EstimatedServiceMinutes int    `json:"estimated_service_minutes"`
	CallTimeoutMinutes      int    `json:"call_timeout_minutes"`
	OpeningHour             int    `json:"opening_hour"`
	ClosingHour             int    `json:"closing_hour"`
	Timezone                string `json:"timezone"`
}

// UpdateProviderStatusRequest changes the operational settings of a provider.
type UpdateProviderStatusRequest struct {
	DisplayName             *string `json:"display_name"`
	IsOpen                  *bool   `json:"is_open"`
	DailyPatientLimit       *int    `json:"daily_patient_limit"`
	EstimatedServiceMinutes *int    `json:"estimated_service_minutes"`
	CallTimeoutMinutes      *int    `json:"call_timeout_minutes"`
	OpeningHour             *int    `json:"opening_hour"`
	ClosingHour             *int    `json:"closing_hour"`
	Timezone                *string `json:"timezone"`
}

// DayScheduleRequest is one weekday entry of a weekly schedule.
type DayScheduleRequest struct {
	Day        string `json:"day"`
	Open       bool   `json:"open"`
	StartHour  int    `json:"start_hour"`
	EndHour    int    `json:"end_hour"`
	BreakStart *int   `json:"break_start,omitempty"`
	BreakEnd   *int   `json:"break_end,omitempty"`
}

// WeeklyScheduleRequest replaces a provider's weekly schedule.
type WeeklyScheduleRequest struct {
	Entries []DayScheduleRequest `json:"entries"`
}

// ToDomain converts the request into a weekly schedule.
func (r WeeklyScheduleRequest) ToDomain(providerID string) domain.WeeklySchedule {
	entries := make([]domain.DaySchedule, 0, len(r.Entries))
	for _, e := range r.Entries {
		entries = append(entries, domain.DaySchedule{
			Day:        e.Day,
			Open:       e.Open,
			StartHour:  e.StartHour,
			EndHour:    e.EndHour,
			BreakStart: e.BreakStart,
			BreakEnd:   e.BreakEnd,
		})
	}
	return domain.WeeklySchedule{ProviderID: providerID, Entries: entries}
}

// WeeklyScheduleResponse is the wire form of a weekly schedule.
type WeeklyScheduleResponse struct {
	ProviderID string               `json:"provider_id"`
	Entries    []DayScheduleRequest `json:"entries"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// FromWeeklySchedule converts the domain record.
func FromWeeklySchedule(schedule *domain.WeeklySchedule) WeeklyScheduleResponse {
	entries := make([]DayScheduleRequest, 0, len(schedule.Entries))
	for _, e := range schedule.Entries {
		entries = append(entries, DayScheduleRequest{
			Day:        e.Day,
			Open:       e.Open,
			StartHour:  e.StartHour,
			EndHour:    e.EndHour,
			BreakStart: e.BreakStart,
			BreakEnd:   e.BreakEnd,
		})
	}
	return WeeklyScheduleResponse{
		ProviderID: schedule.ProviderID,
		Entries:    entries,
		UpdatedAt:  schedule.UpdatedAt,
	}
}
