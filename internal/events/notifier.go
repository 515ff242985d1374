package events

import (
	"context"

	"go.uber.org/zap"
)

// RegisterNotificationLogger subscribes a logging sink for every queue
// event. It stands in for an outbound notification channel (SMS, app
// push): delivery is at-least-once and failures never affect the
// originating operation.
func RegisterNotificationLogger(dispatcher Dispatcher, logger *zap.Logger) {
	dispatcher.SubscribeAll(func(ctx context.Context, event Event) error {
		logger.Info("queue notification",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.String("provider_id", event.ProviderID),
			zap.String("ticket_id", event.TicketID),
			zap.Time("timestamp", event.Timestamp),
		)
		return nil
	})
}
