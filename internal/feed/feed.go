package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/clinic-queue/internal/events"
	"github.com/spec-kit/clinic-queue/internal/service"
)

const changeChannel = "queue:changed"

// Snapshot is one push of the live feed.
type Snapshot = service.QueueSnapshot

// Subscriber receives queue snapshots for one provider. The channel
// carries the latest snapshot; slow consumers get the newest state, not a
// backlog.
type Subscriber struct {
	ProviderID string
	C          <-chan Snapshot
	id         string
	ch         chan Snapshot
}

// Feed is the live query surface: per-provider subscriptions that are
// re-pushed on every mutation. Late subscribers receive the current
// snapshot immediately. When a redis client is configured, mutations are
// fanned out across replicas on a pub/sub channel.
type Feed struct {
	queue  *service.QueueService
	client *redis.Client
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[string]*Subscriber
}

// New constructs the feed. client may be nil for single-process setups.
func New(queue *service.QueueService, client *redis.Client, logger *zap.Logger) *Feed {
	return &Feed{
		queue:  queue,
		client: client,
		logger: logger,
		subs:   make(map[string]map[string]*Subscriber),
	}
}

// RegisterHandlers makes every dispatched queue event refresh the feed.
func (f *Feed) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.SubscribeAll(func(ctx context.Context, event events.Event) error {
		if event.ProviderID == "" {
			return nil
		}
		f.refresh(ctx, event.ProviderID)
		f.publishRemote(ctx, event.ProviderID)
		return nil
	})
}

// Subscribe registers a viewer for one provider and immediately pushes the
// current snapshot.
func (f *Feed) Subscribe(ctx context.Context, providerID string) (*Subscriber, error) {
	snapshot, err := f.queue.Snapshot(ctx, providerID)
	if err != nil {
		return nil, err
	}

	sub := &Subscriber{
		ProviderID: providerID,
		id:         uuid.NewString(),
		ch:         make(chan Snapshot, 1),
	}
	sub.C = sub.ch
	sub.ch <- *snapshot

	f.mu.Lock()
	if f.subs[providerID] == nil {
		f.subs[providerID] = make(map[string]*Subscriber)
	}
	f.subs[providerID][sub.id] = sub
	f.mu.Unlock()
	return sub, nil
}

// Unsubscribe removes the viewer and closes its channel.
func (f *Feed) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if providerSubs, ok := f.subs[sub.ProviderID]; ok {
		if _, exists := providerSubs[sub.id]; exists {
			delete(providerSubs, sub.id)
			close(sub.ch)
		}
		if len(providerSubs) == 0 {
			delete(f.subs, sub.ProviderID)
		}
	}
}

// ListenRemote consumes cross-replica change notifications until ctx is
// cancelled. No-op when redis is not configured.
func (f *Feed) ListenRemote(ctx context.Context) {
	if f.client == nil {
		return
	}
	pubsub := f.client.Subscribe(ctx, changeChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			f.refresh(ctx, msg.Payload)
		}
	}
}

// refresh republishes the current snapshot to local subscribers.
func (f *Feed) refresh(ctx context.Context, providerID string) {
	f.mu.RLock()
	hasSubs := len(f.subs[providerID]) > 0
	f.mu.RUnlock()
	if !hasSubs {
		return
	}

	snapshot, err := f.queue.Snapshot(ctx, providerID)
	if err != nil {
		f.logger.Warn("feed snapshot failed", zap.String("provider_id", providerID), zap.Error(err))
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sub := range f.subs[providerID] {
		// keep only the latest snapshot for slow consumers
		select {
		case sub.ch <- *snapshot:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- *snapshot:
			default:
			}
		}
	}
}

func (f *Feed) publishRemote(ctx context.Context, providerID string) {
	if f.client == nil {
		return
	}
	if err := f.client.Publish(ctx, changeChannel, providerID).Err(); err != nil {
		f.logger.Warn("feed publish failed", zap.Error(err))
	}
}
