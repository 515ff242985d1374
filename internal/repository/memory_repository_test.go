package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/clinic-queue/internal/domain"
)

func seedProvider(t *testing.T, store *MemoryStore, mutate func(*domain.ProviderStatus)) *domain.ProviderStatus {
	t.Helper()
	status := &domain.ProviderStatus{
		ProviderID:              "prov-1",
		DisplayName:             "Dr. Example",
		IsOpen:                  true,
		DailyPatientLimit:       100,
		EstimatedServiceMinutes: 0,
		CallTimeoutMinutes:      10,
		OpeningHour:             8,
		ClosingHour:             17,
		Timezone:                "UTC",
	}
	if mutate != nil {
		mutate(status)
	}
	if err := store.Providers().Create(context.Background(), status); err != nil {
		t.Fatalf("seed provider: %v", err)
	}
	return status
}

func issueAt(t *testing.T, store *MemoryStore, requesterID string, now time.Time) *domain.Ticket {
	t.Helper()
	ticket, err := store.IssueTicket(context.Background(), IssueTicketInput{
		ProviderID:  "prov-1",
		RequesterID: requesterID,
		PatientName: "patient " + requesterID,
		Now:         now,
	})
	if err != nil {
		t.Fatalf("issue ticket for %s: %v", requesterID, err)
	}
	return ticket
}

func TestIssueTicketSequence(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, nil)
	now := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		ticket := issueAt(t, store, fmt.Sprintf("req-%d", i), now)
		if ticket.TicketNumber != i {
			t.Errorf("ticket %d got number %d", i, ticket.TicketNumber)
		}
		if ticket.Status != domain.TicketStatusWaiting {
			t.Errorf("new ticket status = %s", ticket.Status)
		}
	}
}

func TestIssueTicketRejectsClosedProvider(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, func(p *domain.ProviderStatus) { p.IsOpen = false })

	_, err := store.IssueTicket(context.Background(), IssueTicketInput{
		ProviderID:  "prov-1",
		RequesterID: "req-1",
		Now:         time.Now(),
	})
	if !errors.Is(err, domain.ErrProviderClosed) {
		t.Fatalf("err = %v, want ErrProviderClosed", err)
	}
}

func TestIssueTicketUnknownProvider(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.IssueTicket(context.Background(), IssueTicketInput{
		ProviderID: "nope", RequesterID: "req-1", Now: time.Now(),
	})
	if !errors.Is(err, domain.ErrProviderNotFound) {
		t.Fatalf("err = %v, want ErrProviderNotFound", err)
	}
}

func TestIssueTicketDuplicateActive(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, nil)
	now := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	issueAt(t, store, "req-1", now)
	_, err := store.IssueTicket(context.Background(), IssueTicketInput{
		ProviderID: "prov-1", RequesterID: "req-1", Now: now.Add(time.Minute),
	})
	if !errors.Is(err, domain.ErrDuplicateActive) {
		t.Fatalf("err = %v, want ErrDuplicateActive", err)
	}

	// A cancelled ticket no longer blocks re-issue.
	if _, err := store.CancelByRequester(context.Background(), "prov-1", "req-1", now.Add(2*time.Minute)); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	ticket := issueAt(t, store, "req-1", now.Add(3*time.Minute))
	if ticket.TicketNumber != 2 {
		t.Errorf("re-issued number = %d, want 2", ticket.TicketNumber)
	}
}

func TestIssueTicketManualSkipsDuplicateCheck(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, nil)
	now := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	issueAt(t, store, "walkin", now)
	_, err := store.IssueTicket(context.Background(), IssueTicketInput{
		ProviderID: "prov-1", RequesterID: "walkin", Manual: true, Now: now,
	})
	if err != nil {
		t.Fatalf("manual issue: %v", err)
	}
}

func TestIssueTicketCapacity(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, func(p *domain.ProviderStatus) { p.DailyPatientLimit = 3 })
	now := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		issueAt(t, store, fmt.Sprintf("req-%d", i), now)
	}
	_, err := store.IssueTicket(context.Background(), IssueTicketInput{
		ProviderID: "prov-1", RequesterID: "req-4", Now: now,
	})
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}

	// Ticket numbers are never reused, so cancelling does not free a slot.
	if _, err := store.CancelByRequester(context.Background(), "prov-1", "req-1", now); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err = store.IssueTicket(context.Background(), IssueTicketInput{
		ProviderID: "prov-1", RequesterID: "req-4", Now: now,
	})
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("after cancel err = %v, want ErrCapacityExceeded", err)
	}
}

func TestIssueTicketTimeWindow(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, func(p *domain.ProviderStatus) { p.EstimatedServiceMinutes = 15 })

	// 16:50 with closing at 17:00 leaves 10 minutes, less than one estimate.
	_, err := store.IssueTicket(context.Background(), IssueTicketInput{
		ProviderID: "prov-1", RequesterID: "late",
		Now: time.Date(2024, 3, 14, 16, 50, 0, 0, time.UTC),
	})
	if !errors.Is(err, domain.ErrInsufficientTime) {
		t.Fatalf("err = %v, want ErrInsufficientTime", err)
	}

	// 16:00 fits exactly: (0+1)*15 <= 60.
	issueAt(t, store, "req-1", time.Date(2024, 3, 14, 16, 0, 0, 0, time.UTC))

	// Backlog of one waiting ticket now needs (1+1)*15 = 30 <= 45. Fits.
	issueAt(t, store, "req-2", time.Date(2024, 3, 14, 16, 15, 0, 0, time.UTC))

	// (2+1)*15 = 45 > 30 remaining. Rejected.
	_, err = store.IssueTicket(context.Background(), IssueTicketInput{
		ProviderID: "prov-1", RequesterID: "req-3",
		Now: time.Date(2024, 3, 14, 16, 30, 0, 0, time.UTC),
	})
	if !errors.Is(err, domain.ErrInsufficientTime) {
		t.Fatalf("backlog err = %v, want ErrInsufficientTime", err)
	}
}

func TestIssueTicketConcurrentNumbersUnique(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, nil)
	now := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	const workers = 50
	var wg sync.WaitGroup
	numbers := make(chan int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket, err := store.IssueTicket(context.Background(), IssueTicketInput{
				ProviderID:  "prov-1",
				RequesterID: fmt.Sprintf("req-%d", i),
				Now:         now,
			})
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			numbers <- ticket.TicketNumber
		}(i)
	}
	wg.Wait()
	close(numbers)

	seen := make(map[int]bool)
	for n := range numbers {
		if seen[n] {
			t.Fatalf("duplicate ticket number %d", n)
		}
		if n < 1 || n > workers {
			t.Fatalf("number %d outside 1..%d", n, workers)
		}
		seen[n] = true
	}
	if len(seen) != workers {
		t.Fatalf("issued %d tickets, want %d", len(seen), workers)
	}
}

func TestTicketNumbersResetAcrossDays(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, nil)

	day1 := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	first := issueAt(t, store, "req-1", day1)
	if first.TicketNumber != 1 {
		t.Fatalf("day1 number = %d", first.TicketNumber)
	}

	day2 := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	second, err := store.IssueTicket(context.Background(), IssueTicketInput{
		ProviderID: "prov-1", RequesterID: "req-2", Now: day2,
	})
	if err != nil {
		t.Fatalf("day2 issue: %v", err)
	}
	if second.TicketNumber != 1 {
		t.Errorf("day2 number = %d, want 1", second.TicketNumber)
	}
}

func TestCallNextOrdersByArrival(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, nil)
	base := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	issueAt(t, store, "req-1", base)
	issueAt(t, store, "req-2", base.Add(time.Minute))

	called, err := store.CallNext(context.Background(), "prov-1", base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("call next: %v", err)
	}
	if called.RequesterID != "req-1" || called.Status != domain.TicketStatusCalled {
		t.Errorf("called %s in state %s, want req-1 CALLED", called.RequesterID, called.Status)
	}
	if called.CalledAt == nil {
		t.Error("CalledAt not set")
	}
}

func TestCallNextBlockedWhileServing(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, nil)
	base := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	first := issueAt(t, store, "req-1", base)
	issueAt(t, store, "req-2", base)

	if _, err := store.CallNext(context.Background(), "prov-1", base); err != nil {
		t.Fatalf("call next: %v", err)
	}
	if _, err := store.ConfirmArrival(context.Background(), first.ID, base.Add(time.Minute)); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	_, err := store.CallNext(context.Background(), "prov-1", base.Add(2*time.Minute))
	if !errors.Is(err, domain.ErrAlreadyServing) {
		t.Fatalf("err = %v, want ErrAlreadyServing", err)
	}
}

func TestCallNextEmptyQueue(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, nil)

	_, err := store.CallNext(context.Background(), "prov-1", time.Now())
	if !errors.Is(err, domain.ErrNoWaitingTicket) {
		t.Fatalf("err = %v, want ErrNoWaitingTicket", err)
	}
}

func TestConfirmArrivalDirectFromWaiting(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, nil)
	base := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	ticket := issueAt(t, store, "req-1", base)
	confirmed, err := store.ConfirmArrival(context.Background(), ticket.ID, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != domain.TicketStatusServing {
		t.Errorf("status = %s, want SERVING", confirmed.Status)
	}
	if confirmed.CalledAt == nil || confirmed.StartedAt == nil {
		t.Error("CalledAt and StartedAt should be backfilled")
	}

	status, err := store.Providers().Get(context.Background(), "prov-1")
	if err != nil {
		t.Fatalf("get provider: %v", err)
	}
	if status.CurrentServingNumber != confirmed.TicketNumber {
		t.Errorf("CurrentServingNumber = %d, want %d", status.CurrentServingNumber, confirmed.TicketNumber)
	}
}

func TestCompleteAttachesRecordAndCounters(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, nil)
	base := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	ticket := issueAt(t, store, "req-1", base)
	if _, err := store.ConfirmArrival(context.Background(), ticket.ID, base); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	record := domain.MedicalRecord{Diagnosis: "common cold", Prescription: "rest"}
	done, err := store.Complete(context.Background(), ticket.ID, record, base.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domain.TicketStatusDone || done.FinishedAt == nil {
		t.Errorf("ticket not finalized: %+v", done)
	}
	if done.Record == nil || done.Record.Diagnosis != "common cold" {
		t.Errorf("record not attached: %+v", done.Record)
	}

	status, _ := store.Providers().Get(context.Background(), "prov-1")
	if status.TotalServedCount != 1 || status.CurrentServingNumber != 0 {
		t.Errorf("counters = served %d serving %d", status.TotalServedCount, status.CurrentServingNumber)
	}
}

func TestCompleteRequiresServing(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, nil)
	ticket := issueAt(t, store, "req-1", time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC))

	_, err := store.Complete(context.Background(), ticket.ID, domain.MedicalRecord{}, time.Now())
	if !errors.Is(err, domain.ErrInvalidTicketState) {
		t.Fatalf("err = %v, want ErrInvalidTicketState", err)
	}
}

func TestCancelByRequesterNoActive(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, nil)

	_, err := store.CancelByRequester(context.Background(), "prov-1", "ghost", time.Now())
	if !errors.Is(err, domain.ErrNoActiveTicket) {
		t.Fatalf("err = %v, want ErrNoActiveTicket", err)
	}
}

func TestReclaimExpiredCalls(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, func(p *domain.ProviderStatus) { p.CallTimeoutMinutes = 10 })
	base := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	ticket := issueAt(t, store, "req-1", base)
	if _, err := store.CallNext(context.Background(), "prov-1", base); err != nil {
		t.Fatalf("call next: %v", err)
	}

	// At exactly the timeout nothing is reclaimed.
	reclaimed, err := store.ReclaimExpiredCalls(context.Background(), "prov-1", base.Add(10*time.Minute))
	if err != nil || len(reclaimed) != 0 {
		t.Fatalf("at boundary: reclaimed %d, err %v", len(reclaimed), err)
	}

	reclaimed, err = store.ReclaimExpiredCalls(context.Background(), "prov-1", base.Add(11*time.Minute))
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if len(reclaimed) != 1 {
		t.Fatalf("reclaimed %d tickets, want 1", len(reclaimed))
	}
	got := reclaimed[0]
	if got.Status != domain.TicketStatusWaiting || !got.HasBeenReclaimed || got.CalledAt != nil {
		t.Errorf("reclaimed ticket state: %+v", got)
	}
	if got.TicketNumber != ticket.TicketNumber || !got.CreatedAt.Equal(ticket.CreatedAt) {
		t.Error("reclaim must preserve the original number and arrival time")
	}

	// Idempotent: a second sweep finds nothing.
	reclaimed, _ = store.ReclaimExpiredCalls(context.Background(), "prov-1", base.Add(12*time.Minute))
	if len(reclaimed) != 0 {
		t.Errorf("second sweep reclaimed %d", len(reclaimed))
	}
}

func TestReclaimedTicketKeepsPriority(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, func(p *domain.ProviderStatus) { p.CallTimeoutMinutes = 10 })
	base := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	issueAt(t, store, "req-1", base)
	issueAt(t, store, "req-2", base.Add(time.Minute))

	if _, err := store.CallNext(context.Background(), "prov-1", base.Add(2*time.Minute)); err != nil {
		t.Fatalf("call next: %v", err)
	}
	if _, err := store.ReclaimExpiredCalls(context.Background(), "prov-1", base.Add(20*time.Minute)); err != nil {
		t.Fatalf("reclaim: %v", err)
	}

	// The reclaimed ticket arrived first, so it is called again before req-2.
	called, err := store.CallNext(context.Background(), "prov-1", base.Add(21*time.Minute))
	if err != nil {
		t.Fatalf("call next: %v", err)
	}
	if called.RequesterID != "req-1" {
		t.Errorf("called %s, want req-1", called.RequesterID)
	}
}

func TestConfirmBeatsReclaim(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, func(p *domain.ProviderStatus) { p.CallTimeoutMinutes = 10 })
	base := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	ticket := issueAt(t, store, "req-1", base)
	if _, err := store.CallNext(context.Background(), "prov-1", base); err != nil {
		t.Fatalf("call next: %v", err)
	}
	if _, err := store.ConfirmArrival(context.Background(), ticket.ID, base.Add(15*time.Minute)); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// The sweep only reverts tickets still in CALLED.
	reclaimed, err := store.ReclaimExpiredCalls(context.Background(), "prov-1", base.Add(16*time.Minute))
	if err != nil || len(reclaimed) != 0 {
		t.Fatalf("reclaimed %d after confirm, err %v", len(reclaimed), err)
	}
	got, _ := store.GetTicket(context.Background(), ticket.ID)
	if got.Status != domain.TicketStatusServing {
		t.Errorf("status = %s, want SERVING", got.Status)
	}
}

func TestExpireStaleTickets(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, nil)
	day1 := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	stale := issueAt(t, store, "req-1", day1)
	done := issueAt(t, store, "req-2", day1)
	if _, err := store.ConfirmArrival(context.Background(), done.ID, day1); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := store.Complete(context.Background(), done.ID, domain.MedicalRecord{}, day1); err != nil {
		t.Fatalf("complete: %v", err)
	}

	day2 := time.Date(2024, 3, 15, 7, 0, 0, 0, time.UTC)
	expired, err := store.ExpireStaleTickets(context.Background(), day2)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired %d, want 1", expired)
	}

	got, _ := store.GetTicket(context.Background(), stale.ID)
	if got.Status != domain.TicketStatusCancelled {
		t.Errorf("stale ticket status = %s", got.Status)
	}
	kept, _ := store.GetTicket(context.Background(), done.ID)
	if kept.Status != domain.TicketStatusDone {
		t.Errorf("terminal ticket was touched: %s", kept.Status)
	}
}

func TestVisitHistoryOnlyTerminal(t *testing.T) {
	store := NewMemoryStore()
	seedProvider(t, store, nil)
	base := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	issueAt(t, store, "req-1", base)
	if _, err := store.CancelByRequester(context.Background(), "prov-1", "req-1", base); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// A fresh active ticket must not show up in the history.
	issueAt(t, store, "req-1", base.Add(time.Hour))

	history, err := store.VisitHistory(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Status != domain.TicketStatusCancelled {
		t.Fatalf("history = %+v", history)
	}
}
