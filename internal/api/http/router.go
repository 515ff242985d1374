package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clinic-queue/internal/api/http/handlers"
	"github.com/spec-kit/clinic-queue/internal/auth"
	"github.com/spec-kit/clinic-queue/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Queue          *handlers.QueueHandler
	Providers      *handlers.ProviderHandler
	Staff          *handlers.StaffHandler
	Feed           *handlers.FeedHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Staff.Login)
	authGroup.Post("/staff", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.StaffRoleAdmin), cfg.Staff.CreateStaff)

	// Patient-facing queue surface.
	queue := app.Group("/queue")
	queue.Post("/:providerID/tickets", cfg.Queue.IssueTicket)
	queue.Post("/:providerID/cancel", cfg.Queue.CancelByRequester)
	queue.Get("/:providerID/status", cfg.Queue.Status)
	queue.Get("/:providerID/tickets", cfg.Queue.TodayTickets)
	queue.Get("/:providerID/feed", cfg.Feed.Upgrade, cfg.Feed.Stream())

	// Staff queue controls.
	staffOnly := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireRole(domain.StaffRoleStaff, domain.StaffRoleAdmin)}
	queue.Post("/:providerID/call-next", append(staffOnly, cfg.Queue.CallNext)...)
	queue.Post("/:providerID/manual-tickets", append(staffOnly, cfg.Queue.AddManualTicket)...)
	queue.Post("/tickets/:id/confirm", append(staffOnly, cfg.Queue.ConfirmArrival)...)
	queue.Post("/tickets/:id/complete", append(staffOnly, cfg.Queue.Complete)...)
	queue.Post("/tickets/:id/cancel", append(staffOnly, cfg.Queue.CancelByID)...)

	app.Get("/patients/:requesterID/visits", append(staffOnly, cfg.Queue.VisitHistory)...)

	providers := app.Group("/providers")
	providers.Get("/", cfg.Providers.List)
	providers.Post("/", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.StaffRoleAdmin), cfg.Providers.Onboard)
	providers.Put("/:id/status", append(staffOnly, cfg.Providers.UpdateStatus)...)
	providers.Get("/:id/schedule", append(staffOnly, cfg.Providers.GetSchedule)...)
	providers.Put("/:id/schedule", append(staffOnly, cfg.Providers.PutSchedule)...)
	providers.Post("/:id/schedule/apply", append(staffOnly, cfg.Providers.ApplySchedule)...)
}
