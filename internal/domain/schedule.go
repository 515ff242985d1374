package domain

import (
	"strings"
	"time"
)

// DaySchedule is one entry of a weekly operating schedule.
type DaySchedule struct {
	Day        string `json:"day"`
	Open       bool   `json:"open"`
	StartHour  int    `json:"start_hour"`
	EndHour    int    `json:"end_hour"`
	BreakStart *int   `json:"break_start,omitempty"`
	BreakEnd   *int   `json:"break_end,omitempty"`
}

// WeeklySchedule holds the ordered seven day-entries for a provider. The
// queue coordinator never interprets entries; an external scheduler derives
// ProviderStatus.IsOpen and the operating hours from them.
type WeeklySchedule struct {
	ProviderID string        `json:"provider_id"`
	Entries    []DaySchedule `json:"entries"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// EntryFor returns the schedule entry matching the given weekday.
func (w *WeeklySchedule) EntryFor(weekday time.Weekday) (DaySchedule, bool) {
	name := strings.ToLower(weekday.String())
	for _, entry := range w.Entries {
		if strings.ToLower(entry.Day) == name {
			return entry, true
		}
	}
	return DaySchedule{}, false
}
