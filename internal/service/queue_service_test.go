package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/clinic-queue/internal/domain"
	"github.com/spec-kit/clinic-queue/internal/events"
	"github.com/spec-kit/clinic-queue/internal/observability"
	"github.com/spec-kit/clinic-queue/internal/repository"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}
func (d *recordingDispatcher) SubscribeAll(events.EventHandler)               {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		result = append(result, e.Type)
	}
	return result
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestQueueService(t *testing.T) (*QueueService, *repository.MemoryStore, *recordingDispatcher, *fixedClock) {
	t.Helper()
	store := repository.NewMemoryStore()
	dispatcher := &recordingDispatcher{}
	clock := &fixedClock{now: time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)}

	svc := NewQueueService(QueueDependencies{
		QueueRepo:    store,
		ProviderRepo: store.Providers(),
		Dispatcher:   dispatcher,
		Metrics:      observability.NewMetrics(),
		Logger:       zap.NewNop(),
	}).WithClock(clock.Now)

	status := &domain.ProviderStatus{
		ProviderID:         "prov-1",
		DisplayName:        "Dr. Example",
		IsOpen:             true,
		DailyPatientLimit:  50,
		CallTimeoutMinutes: 10,
		OpeningHour:        8,
		ClosingHour:        17,
		Timezone:           "UTC",
	}
	if err := store.Providers().Create(context.Background(), status); err != nil {
		t.Fatalf("seed provider: %v", err)
	}
	return svc, store, dispatcher, clock
}

func TestQueueLifecycle(t *testing.T) {
	svc, _, dispatcher, clock := newTestQueueService(t)
	ctx := context.Background()

	ticket, err := svc.IssueTicket(ctx, IssueTicketInput{
		ProviderID:  "prov-1",
		RequesterID: "req-1",
		PatientName: "  Ana  ",
		Complaint:   "headache",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if ticket.PatientName != "Ana" {
		t.Errorf("patient name not trimmed: %q", ticket.PatientName)
	}

	clock.Advance(5 * time.Minute)
	called, err := svc.CallNextPatient(ctx, "prov-1")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if called.ID != ticket.ID || called.Status != domain.TicketStatusCalled {
		t.Fatalf("called = %+v", called)
	}

	clock.Advance(2 * time.Minute)
	if _, err := svc.ConfirmArrival(ctx, ticket.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	clock.Advance(10 * time.Minute)
	done, err := svc.CompleteConsultation(ctx, ticket.ID, domain.MedicalRecord{Diagnosis: "migraine"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domain.TicketStatusDone || done.Record == nil {
		t.Fatalf("done = %+v", done)
	}

	want := []events.EventType{
		events.EventTicketIssued,
		events.EventTicketCalled,
		events.EventTicketConfirmed,
		events.EventTicketCompleted,
	}
	got := dispatcher.types()
	if len(got) != len(want) {
		t.Fatalf("event types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCallNextReclaimsNoShowsFirst(t *testing.T) {
	svc, _, dispatcher, clock := newTestQueueService(t)
	ctx := context.Background()

	first, err := svc.IssueTicket(ctx, IssueTicketInput{ProviderID: "prov-1", RequesterID: "req-1", PatientName: "Ana"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.IssueTicket(ctx, IssueTicketInput{ProviderID: "prov-1", RequesterID: "req-2", PatientName: "Ben"}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := svc.CallNextPatient(ctx, "prov-1"); err != nil {
		t.Fatalf("call: %v", err)
	}

	// The called patient never shows up. After the timeout the next call
	// sweeps them back to WAITING and, arrival order preserved, calls them
	// again.
	clock.Advance(11 * time.Minute)
	called, err := svc.CallNextPatient(ctx, "prov-1")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if called.ID != first.ID {
		t.Errorf("called %s, want the reclaimed ticket %s", called.ID, first.ID)
	}
	if !called.HasBeenReclaimed {
		t.Error("reclaim flag not set")
	}

	var sawReclaim bool
	for _, typ := range dispatcher.types() {
		if typ == events.EventTicketReclaimed {
			sawReclaim = true
		}
	}
	if !sawReclaim {
		t.Error("no reclaim event published")
	}
}

func TestAddManualTicketSynthesizesRequester(t *testing.T) {
	svc, _, _, _ := newTestQueueService(t)
	ctx := context.Background()

	first, err := svc.AddManualTicket(ctx, "prov-1", "Walk In", "")
	if err != nil {
		t.Fatalf("manual: %v", err)
	}
	if first.RequesterID == "" {
		t.Fatal("requester id not synthesized")
	}

	second, err := svc.AddManualTicket(ctx, "prov-1", "Walk In", "")
	if err != nil {
		t.Fatalf("second manual: %v", err)
	}
	if second.RequesterID == first.RequesterID {
		t.Error("manual tickets must get distinct requester ids")
	}
}

func TestIssueTicketPropagatesGateErrors(t *testing.T) {
	svc, store, _, _ := newTestQueueService(t)
	ctx := context.Background()

	status, _ := store.Providers().Get(ctx, "prov-1")
	status.IsOpen = false
	if err := store.Providers().UpdateSettings(ctx, status); err != nil {
		t.Fatalf("close provider: %v", err)
	}

	_, err := svc.IssueTicket(ctx, IssueTicketInput{ProviderID: "prov-1", RequesterID: "req-1", PatientName: "Ana"})
	if !errors.Is(err, domain.ErrProviderClosed) {
		t.Fatalf("err = %v, want ErrProviderClosed", err)
	}
}

func TestSnapshotOrdersTickets(t *testing.T) {
	svc, _, _, _ := newTestQueueService(t)
	ctx := context.Background()

	for _, req := range []string{"req-1", "req-2", "req-3"} {
		if _, err := svc.IssueTicket(ctx, IssueTicketInput{ProviderID: "prov-1", RequesterID: req, PatientName: req}); err != nil {
			t.Fatalf("issue %s: %v", req, err)
		}
	}

	snapshot, err := svc.Snapshot(ctx, "prov-1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snapshot.Tickets) != 3 {
		t.Fatalf("got %d tickets", len(snapshot.Tickets))
	}
	for i, ticket := range snapshot.Tickets {
		if ticket.TicketNumber != i+1 {
			t.Errorf("tickets[%d].TicketNumber = %d", i, ticket.TicketNumber)
		}
	}
	if snapshot.Provider.LastTicketNumber != 3 {
		t.Errorf("LastTicketNumber = %d", snapshot.Provider.LastTicketNumber)
	}
}
