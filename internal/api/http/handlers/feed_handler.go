package handlers

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/clinic-queue/internal/api/dto"
	"github.com/spec-kit/clinic-queue/internal/feed"
)

// FeedHandler serves the websocket live feed.
type FeedHandler struct {
	feed   *feed.Feed
	logger *zap.Logger
}

// NewFeedHandler constructs handler.
func NewFeedHandler(queueFeed *feed.Feed, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{feed: queueFeed, logger: logger}
}

// Upgrade gates the feed route to websocket requests.
func (h *FeedHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Stream GET /queue/:providerID/feed. Pushes the current snapshot on
// connect, then a fresh snapshot after every queue mutation.
func (h *FeedHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		providerID := conn.Params("providerID")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sub, err := h.feed.Subscribe(ctx, providerID)
		if err != nil {
			_ = conn.WriteJSON(fiber.Map{"error": fiber.Map{
				"code":    "SUBSCRIBE_FAILED",
				"message": err.Error(),
			}})
			return
		}
		defer h.feed.Unsubscribe(sub)

		// Drain the read side so we notice the client going away.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case snapshot, ok := <-sub.C:
				if !ok {
					return
				}
				payload := dto.QueueSnapshotResponse{
					Provider: dto.FromProviderStatus(&snapshot.Provider),
					Tickets:  dto.FromTickets(snapshot.Tickets),
					At:       snapshot.At,
				}
				if err := conn.WriteJSON(fiber.Map{"data": payload}); err != nil {
					h.logger.Debug("feed write failed", zap.String("provider_id", providerID), zap.Error(err))
					return
				}
			}
		}
	})
}
