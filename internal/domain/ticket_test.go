package domain

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to TicketStatus
		want     bool
	}{
		{TicketStatusWaiting, TicketStatusCalled, true},
		{TicketStatusWaiting, TicketStatusServing, true},
		{TicketStatusWaiting, TicketStatusCancelled, true},
		{TicketStatusWaiting, TicketStatusDone, false},
		{TicketStatusCalled, TicketStatusServing, true},
		{TicketStatusCalled, TicketStatusWaiting, true},
		{TicketStatusCalled, TicketStatusCancelled, true},
		{TicketStatusCalled, TicketStatusDone, false},
		{TicketStatusServing, TicketStatusDone, true},
		{TicketStatusServing, TicketStatusCancelled, false},
		{TicketStatusServing, TicketStatusWaiting, false},
		{TicketStatusDone, TicketStatusWaiting, false},
		{TicketStatusDone, TicketStatusCalled, false},
		{TicketStatusCancelled, TicketStatusWaiting, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTicketIsTerminal(t *testing.T) {
	terminal := map[TicketStatus]bool{
		TicketStatusWaiting:   false,
		TicketStatusCalled:    false,
		TicketStatusServing:   false,
		TicketStatusDone:      true,
		TicketStatusCancelled: true,
	}
	for status, want := range terminal {
		ticket := Ticket{Status: status}
		if got := ticket.IsTerminal(); got != want {
			t.Errorf("IsTerminal() for %s = %v, want %v", status, got, want)
		}
		if got := ticket.IsActive(); got == want {
			t.Errorf("IsActive() for %s = %v, want %v", status, got, !want)
		}
	}
}

func TestMedicalRecordIsEmpty(t *testing.T) {
	if !(MedicalRecord{}).IsEmpty() {
		t.Error("zero record should be empty")
	}
	if (MedicalRecord{Diagnosis: "flu"}).IsEmpty() {
		t.Error("record with diagnosis should not be empty")
	}
}

func TestProviderDayWindow(t *testing.T) {
	status := ProviderStatus{Timezone: "Asia/Jakarta"}
	loc := status.Location()

	now := time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC) // 06:30 next day in Jakarta
	start, end := status.DayWindow(now)

	if got := start.In(loc); got.Hour() != 0 || got.Minute() != 0 || got.Day() != 15 {
		t.Errorf("window start = %v, want midnight March 15 local", got)
	}
	if !end.Equal(start.Add(24 * time.Hour)) {
		t.Errorf("window end = %v, want start+24h", end)
	}
}

func TestProviderHasTimeFor(t *testing.T) {
	status := ProviderStatus{
		Timezone:                "UTC",
		ClosingHour:             17,
		EstimatedServiceMinutes: 15,
	}

	at := func(hour, min int) time.Time {
		return time.Date(2024, 3, 14, hour, min, 0, 0, time.UTC)
	}

	cases := []struct {
		name    string
		now     time.Time
		backlog int
		want    bool
	}{
		{"plenty of room", at(9, 0), 0, true},
		{"fits exactly", at(16, 0), 3, true},       // (3+1)*15 = 60 = remaining
		{"one over", at(16, 0), 4, false},          // (4+1)*15 = 75 > 60
		{"ten minutes left", at(16, 50), 0, false}, // needs 15
		{"at closing", at(17, 0), 0, false},
		{"past closing", at(18, 0), 0, false},
	}
	for _, tc := range cases {
		if got := status.HasTimeFor(tc.backlog, tc.now); got != tc.want {
			t.Errorf("%s: HasTimeFor(%d, %v) = %v, want %v", tc.name, tc.backlog, tc.now, got, tc.want)
		}
	}
}

func TestProviderHasTimeForNoEstimate(t *testing.T) {
	status := ProviderStatus{Timezone: "UTC", ClosingHour: 17}
	now := time.Date(2024, 3, 14, 16, 59, 0, 0, time.UTC)
	if !status.HasTimeFor(100, now) {
		t.Error("zero estimate should disable the time-window check")
	}
}

func TestWeeklyScheduleEntryFor(t *testing.T) {
	schedule := WeeklySchedule{Entries: []DaySchedule{
		{Day: "monday", Open: true, StartHour: 8, EndHour: 16},
		{Day: "Saturday", Open: false},
	}}

	if entry, ok := schedule.EntryFor(time.Monday); !ok || entry.StartHour != 8 {
		t.Errorf("EntryFor(Monday) = %+v, %v", entry, ok)
	}
	if _, ok := schedule.EntryFor(time.Sunday); ok {
		t.Error("EntryFor(Sunday) should miss")
	}
}
