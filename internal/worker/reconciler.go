package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/clinic-queue/internal/events"
	"github.com/spec-kit/clinic-queue/internal/observability"
	"github.com/spec-kit/clinic-queue/internal/repository"
)

// Reconciler is the background loop that keeps persisted queue state
// consistent with elapsed time: it requeues no-shows whose call timeout
// expired, and once per process start it cancels tickets left over from a
// prior day. Both sub-tasks are idempotent and purely a function of the
// current store state, so a missed or repeated tick loses nothing.
type Reconciler struct {
	queue      repository.QueueRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	interval   time.Duration
}

// NewReconciler constructs the loop.
func NewReconciler(queue repository.QueueRepository, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reconciler{
		queue:      queue,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		interval:   interval,
	}
}

// Run blocks until ctx is cancelled. Failures are logged and retried on
// the next tick; they never stop the loop.
func (r *Reconciler) Run(ctx context.Context) {
	if expired, err := r.queue.ExpireStaleTickets(ctx, time.Now()); err != nil {
		r.logger.Error("stale-day cleanup failed", zap.Error(err))
	} else if expired > 0 {
		r.logger.Info("expired stale tickets", zap.Int("count", expired))
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs one reclaim pass. Exported so call-next shares the exact same
// reclaim semantics and tests can drive the loop directly.
func (r *Reconciler) Tick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	reclaimed, err := r.queue.ReclaimExpiredCalls(tickCtx, "", time.Now())
	if err != nil {
		r.logger.Error("reclaim pass failed", zap.Error(err))
		return
	}
	for i := range reclaimed {
		ticket := &reclaimed[i]
		if r.metrics != nil {
			r.metrics.RecordQueueOp(ticket.ProviderID, "reclaimed")
		}
		if r.dispatcher != nil {
			_ = r.dispatcher.Publish(tickCtx, events.Event{
				ID:         uuid.NewString(),
				Type:       events.EventTicketReclaimed,
				ProviderID: ticket.ProviderID,
				TicketID:   ticket.ID,
				Timestamp:  time.Now(),
				Payload:    events.TicketEventPayload(ticket),
			})
		}
	}
	if len(reclaimed) > 0 {
		r.logger.Info("reclaimed expired calls", zap.Int("count", len(reclaimed)))
	}
}
