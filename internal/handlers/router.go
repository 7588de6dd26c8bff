package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"event-waitlist/internal/middleware"
)

// RouterConfig carries the handlers and middleware settings for NewRouter
type RouterConfig struct {
	Events      *EventHandler
	WaitingList *WaitingListHandler
	Health      *HealthHandler
	CORS        middleware.CORSConfig
	RateLimiter *middleware.RateLimiter
}

// NewRouter builds the HTTP API
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.ErrorHandlingMiddleware)
	r.Use(middleware.SecurityHeadersMiddleware)
	r.Use(middleware.CORSMiddleware(cfg.CORS))

	r.NotFound(middleware.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler().ServeHTTP)

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Health)
	}

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(middleware.RateLimit(cfg.RateLimiter))
		}

		r.Route("/events", func(r chi.Router) {
			r.Post("/", cfg.Events.CreateEvent)
			r.Get("/{id}", cfg.Events.GetEvent)
			r.Get("/{id}/availability", cfg.Events.GetAvailability)
			r.Post("/{id}/waiting-list", cfg.Events.JoinWaitingList)
			r.Post("/{id}/offers", cfg.Events.ProcessQueue)
		})

		r.Route("/waiting-list", func(r chi.Router) {
			r.Get("/{id}", cfg.WaitingList.GetQueuePosition)
			r.Post("/{id}/purchase", cfg.WaitingList.PurchaseOffer)
			r.Post("/{id}/release", cfg.WaitingList.ReleaseOffer)
		})

		r.Post("/tickets/{id}/cancel", cfg.WaitingList.CancelTicket)
	})

	return r
}
